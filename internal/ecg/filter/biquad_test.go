package filter

import (
	"math"
	"testing"
)

// sine generates n samples of a pure tone at freq Hz.
func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

// rms over the tail of a signal, skipping the filter settling transient.
func tailRMS(x []float64, skip int) float64 {
	sum := 0.0
	for _, v := range x[skip:] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)-skip))
}

func TestNotchRejectsPowerLine(t *testing.T) {
	const fs = 250.0
	s := NewSection(Notch(fs, 50, 30))
	in := sine(50, fs, 2000)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = s.Process(v)
	}
	inRMS := tailRMS(in, 500)
	outRMS := tailRMS(out, 500)
	if outRMS > 0.2*inRMS {
		t.Errorf("50 Hz tone not rejected: in RMS %.4f, out RMS %.4f", inRMS, outRMS)
	}
}

func TestNotchPassesQRSBand(t *testing.T) {
	const fs = 250.0
	s := NewSection(Notch(fs, 50, 30))
	in := sine(10, fs, 2000)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = s.Process(v)
	}
	inRMS := tailRMS(in, 500)
	outRMS := tailRMS(out, 500)
	if outRMS < 0.9*inRMS {
		t.Errorf("10 Hz tone attenuated through notch: in RMS %.4f, out RMS %.4f", inRMS, outRMS)
	}
}

func TestBandpassAttenuatesBaselineWander(t *testing.T) {
	const fs = 250.0
	s := NewSection(Bandpass(fs, 0.5, 40))
	// 0.15 Hz baseline drift is well below the low corner.
	in := sine(0.15, fs, 5000)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = s.Process(v)
	}
	if got := tailRMS(out, 2500); got > 0.5*tailRMS(in, 2500) {
		t.Errorf("baseline drift insufficiently attenuated: out RMS %.4f", got)
	}
}

func TestSectionReset(t *testing.T) {
	s := NewSection(Bandpass(250, 0.5, 40))
	for _, v := range sine(10, 250, 100) {
		s.Process(v)
	}
	s.Reset()
	fresh := NewSection(Bandpass(250, 0.5, 40))
	for i, v := range sine(10, 250, 100) {
		got, want := s.Process(v), fresh.Process(v)
		if got != want {
			t.Fatalf("sample %d after Reset: got %v, want %v", i, got, want)
		}
	}
}

func TestStagesZeroInput(t *testing.T) {
	st := NewStages(DefaultStagesConfig())
	for i := 0; i < 100; i++ {
		if out := st.Process(0); out != 0 {
			t.Fatalf("zero input produced non-zero output %v at sample %d", out, i)
		}
	}
}
