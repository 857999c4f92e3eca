package segment

import (
	"testing"

	"github.com/banshee-data/cardio.report/internal/ecg/detect"
	"github.com/banshee-data/cardio.report/internal/ecg/ecgsim"
	"github.com/banshee-data/cardio.report/internal/ecg/filter"
)

func filteredECG(bpm float64, n int) []float64 {
	gen := ecgsim.New(ecgsim.Config{SampleRate: 250, HeartRate: bpm, Noise: 0})
	stages := filter.NewStages(filter.DefaultStagesConfig())
	out := make([]float64, n)
	for i := range out {
		out[i] = stages.Process(gen.Next())
	}
	return out
}

func TestSegmentOrdering(t *testing.T) {
	samples := filteredECG(75, 1200)
	d := detect.New(detect.DefaultConfig())
	peaks := d.Detect(samples)
	if len(peaks) == 0 {
		t.Fatal("detector found no peaks in synthetic signal")
	}

	clusters := New(DefaultConfig()).Segment(samples, peaks)
	if len(clusters) == 0 {
		t.Fatal("no clusters segmented")
	}
	for _, c := range clusters {
		lms := c.Landmarks()
		for i := 1; i < len(lms); i++ {
			if lms[i].Index <= lms[i-1].Index {
				t.Errorf("landmarks out of order: %v then %v", lms[i-1], lms[i])
			}
		}
		if c.Q != nil && c.Q.Amplitude > c.R.Amplitude {
			t.Errorf("Q above R: %v vs %v", c.Q.Amplitude, c.R.Amplitude)
		}
		if c.S != nil && c.S.Amplitude > c.R.Amplitude {
			t.Errorf("S above R: %v vs %v", c.S.Amplitude, c.R.Amplitude)
		}
	}
}

func TestSegmentMaxBeats(t *testing.T) {
	cfg := DefaultConfig()
	samples := filteredECG(150, 2400)
	peaks := detect.New(detect.DefaultConfig()).Detect(samples)
	clusters := New(cfg).Segment(samples, peaks)
	if len(clusters) > cfg.MaxBeats {
		t.Errorf("segmented %d clusters, cap is %d", len(clusters), cfg.MaxBeats)
	}
}

func TestSegmentFlatSignal(t *testing.T) {
	s := New(DefaultConfig())
	if got := s.Segment(make([]float64, 1200), nil); got != nil {
		t.Errorf("flat signal produced clusters: %v", got)
	}

	// Weak signal below the amplitude floor.
	weak := make([]float64, 1200)
	for i := range weak {
		weak[i] = 0.1
	}
	if got := s.Segment(weak, nil); got != nil {
		t.Errorf("weak signal produced clusters: %v", got)
	}
}

func TestSegmentRejectsInvalidQRS(t *testing.T) {
	// A below-floor bump with a flat non-negative neighbourhood: no negative
	// deflection exists on either side, so the cluster must be rejected.
	samples := make([]float64, 600)
	for i := range samples {
		samples[i] = 0.01
	}
	samples[300] = 0.3
	// Give the window enough spread to pass the flatness gate.
	samples[100] = 0.25

	peaks := []detect.Peak{{Index: 300, Amplitude: 0.3}}
	if got := New(DefaultConfig()).Segment(samples, peaks); len(got) != 0 {
		t.Errorf("invalid QRS accepted: %v", got)
	}
}

func TestSegmentDirectDetectionFallback(t *testing.T) {
	samples := filteredECG(75, 1200)
	// No upstream peaks: the segmenter must re-derive R candidates itself.
	clusters := New(DefaultConfig()).Segment(samples, nil)
	if len(clusters) == 0 {
		t.Fatal("direct detection found no beats in synthetic signal")
	}
}

func TestLocalRRClamp(t *testing.T) {
	s := New(DefaultConfig())
	// Two implausibly close peaks clamp to the lower bound.
	peaks := []detect.Peak{{Index: 100}, {Index: 110}}
	if rr := s.localRR(peaks, 0); rr != 75 { // 0.3 * 250
		t.Errorf("close spacing clamped to %d, want 75", rr)
	}
	// A single peak defaults to one second.
	if rr := s.localRR([]detect.Peak{{Index: 100}}, 0); rr != 250 {
		t.Errorf("lone peak RR = %d, want 250", rr)
	}
}
