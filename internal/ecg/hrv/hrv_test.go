package hrv

import (
	"math"
	"testing"
)

// fill adds the given intervals, failing the test on any rejection.
func fill(t *testing.T, e *Engine, intervals ...float64) {
	t.Helper()
	for _, v := range intervals {
		if !e.Add(v) {
			t.Fatalf("interval %v ms rejected", v)
		}
	}
}

// repeat returns n copies of v.
func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestConstantSeriesHasZeroVariability(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, repeat(800, 4)...)
	s := e.Snapshot()
	if s.SDNN != 0 {
		t.Errorf("SDNN = %v, want 0", s.SDNN)
	}
	if s.RMSSD != 0 {
		t.Errorf("RMSSD = %v, want 0", s.RMSSD)
	}
}

func TestAlternatingRMSSDExact(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, 700, 900, 700, 900)
	s := e.Snapshot()
	if s.RMSSD != 200 {
		t.Errorf("RMSSD = %v, want exactly 200", s.RMSSD)
	}
}

func TestPNN50Extremes(t *testing.T) {
	// Every successive difference is 100 ms: pNN50 = 100%.
	e := New(DefaultConfig())
	fill(t, e, 700, 800, 700, 800, 700)
	if s := e.Snapshot(); s.PNN50 != 100 {
		t.Errorf("pNN50 = %v, want 100", s.PNN50)
	}

	// Differences of 10 ms never exceed the threshold: pNN50 = 0%.
	e = New(DefaultConfig())
	fill(t, e, 700, 710, 700, 710, 700)
	if s := e.Snapshot(); s.PNN50 != 0 {
		t.Errorf("pNN50 = %v, want 0", s.PNN50)
	}
}

func TestAdmissionBounds(t *testing.T) {
	e := New(DefaultConfig())
	testCases := []struct {
		rr       float64
		accepted bool
	}{
		{299.9, false},
		{300, true},
		{2000, true},
		{2000.1, false},
		{-100, false},
	}
	for _, tc := range testCases {
		if got := e.Add(tc.rr); got != tc.accepted {
			t.Errorf("Add(%v) = %v, want %v", tc.rr, got, tc.accepted)
		}
	}
	if got := e.Len(); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
}

func TestFIFOEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 5
	e := New(cfg)
	fill(t, e, 500, 600, 700, 800, 900, 1000)
	if got := e.Len(); got != 5 {
		t.Errorf("history length = %d, want capacity 5", got)
	}
	// The oldest interval (500) must be gone: min of the set is now 600.
	s := e.Snapshot()
	if s.SampleCount != 5 {
		t.Errorf("sample count = %d, want 5", s.SampleCount)
	}
}

func TestTriangularIndexGate(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, repeat(800, 19)...)
	if s := e.Snapshot(); s.TriangularIndex != 0 {
		t.Errorf("triangular index with 19 samples = %v, want 0", s.TriangularIndex)
	}
	e.Add(800)
	if s := e.Snapshot(); s.TriangularIndex == 0 {
		t.Error("triangular index still 0 at 20 samples")
	}
}

func TestTriangularIndexBoundedBySampleCount(t *testing.T) {
	e := New(DefaultConfig())
	// Maximal spread: every interval lands in its own histogram bin.
	for i := 0; i < 50; i++ {
		e.Add(400 + float64(i)*20)
	}
	s := e.Snapshot()
	if s.TriangularIndex > float64(s.SampleCount) {
		t.Errorf("triangular index %v exceeds sample count %d", s.TriangularIndex, s.SampleCount)
	}
}

func TestFrequencyProxyGate(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, repeat(800, 29)...)
	s := e.Snapshot()
	if s.LF != 0 || s.HF != 0 || s.Ratio != 0 {
		t.Errorf("frequency proxy active below gate: %+v", s)
	}
	if !s.FrequencyDomainIsApprox {
		t.Error("approximation capability flag not set")
	}
}

func TestRatioZeroWhenHFZero(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, repeat(800, 40)...)
	s := e.Snapshot()
	if s.HF != 0 {
		t.Fatalf("constant series HF = %v, want 0", s.HF)
	}
	if s.Ratio != 0 {
		t.Errorf("ratio = %v, want 0 when HF is 0", s.Ratio)
	}
}

func TestReadinessTransitions(t *testing.T) {
	e := New(DefaultConfig())
	if got := e.Snapshot().Readiness; got != ReadinessCold {
		t.Errorf("empty engine readiness = %v, want cold", got)
	}

	fill(t, e, repeat(800, 29)...)
	s := e.Snapshot()
	if s.Readiness != ReadinessWarming {
		t.Errorf("29-sample readiness = %v, want warming", s.Readiness)
	}
	if s.State.State != StateAnalyzing || s.State.Confidence != 0 {
		t.Errorf("29-sample state = %+v, want Analyzing/0", s.State)
	}

	// The 30th valid interval flips to a decided state.
	e.Add(800)
	s = e.Snapshot()
	if s.Readiness != ReadinessReady {
		t.Errorf("30-sample readiness = %v, want ready", s.Readiness)
	}
	if s.State.State == StateAnalyzing {
		t.Error("30-sample state still Analyzing")
	}
	if s.State.Confidence < 0.6 || s.State.Confidence > 0.95 {
		t.Errorf("confidence %v outside [0.6, 0.95]", s.State.Confidence)
	}
}

func TestResetReturnsToCold(t *testing.T) {
	e := New(DefaultConfig())
	fill(t, e, repeat(800, 40)...)
	e.Reset()
	s := e.Snapshot()
	if s.Readiness != ReadinessCold || s.SampleCount != 0 {
		t.Errorf("after reset: %+v, want cold/0", s)
	}
}

func TestStateClassification(t *testing.T) {
	testCases := []struct {
		name     string
		rr       []float64
		expected string
	}{
		{
			// 800 ms constant: 75 BPM, zero variability. RMSSD 0 < 25 but
			// ratio is 0 and BPM under 90, and BPM 75 is not under the
			// fatigue bound of 65: falls through stress and fatigue to
			// focused (tight distribution, mid-range rate).
			name:     "constant_mid_rate_is_focused",
			rr:       repeat(800, 40),
			expected: StateFocused,
		},
		{
			// 1000 ms constant: 60 BPM with zero variability reads as
			// fatigue (depressed RMSSD and SDNN at low rate).
			name:     "flat_slow_is_fatigue",
			rr:       repeat(1000, 40),
			expected: StateFatigue,
		},
		{
			// 550 ms constant: 109 BPM with suppressed variability.
			name:     "flat_fast_is_stress",
			rr:       repeat(550, 40),
			expected: StateHighStress,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := New(DefaultConfig())
			fill(t, e, tc.rr...)
			s := e.Snapshot()
			if s.State.State != tc.expected {
				t.Errorf("state = %q (conf %.2f), want %q", s.State.State, s.State.Confidence, tc.expected)
			}
			if s.State.Confidence < 0.6 || s.State.Confidence > 0.95 {
				t.Errorf("confidence %v outside [0.6, 0.95]", s.State.Confidence)
			}
		})
	}
}

func TestRelaxedClassification(t *testing.T) {
	// High variability at a low rate: alternate 850/950 ms (≈67 BPM,
	// RMSSD 100, ratio LF/HF = 1 since all diffs share magnitude).
	e := New(DefaultConfig())
	for i := 0; i < 40; i++ {
		v := 850.0
		if i%2 == 1 {
			v = 950
		}
		if !e.Add(v) {
			t.Fatalf("interval %v rejected", v)
		}
	}
	s := e.Snapshot()
	if s.State.State != StateRelaxed {
		t.Errorf("state = %q, want %q (RMSSD %v, ratio %v)", s.State.State, StateRelaxed, s.RMSSD, s.Ratio)
	}
}

func TestAssessmentBands(t *testing.T) {
	low := New(DefaultConfig())
	fill(t, low, repeat(800, 40)...) // RMSSD 0
	if got := low.Snapshot().Assessment; got != "low autonomic function" {
		t.Errorf("assessment = %q, want low", got)
	}

	high := New(DefaultConfig())
	for i := 0; i < 40; i++ {
		v := 700.0
		if i%2 == 1 {
			v = 900
		}
		high.Add(v)
	}
	if got := high.Snapshot().Assessment; got != "high autonomic function" {
		t.Errorf("assessment = %q, want high", got)
	}
}

func TestRMSSDAgainstDirectComputation(t *testing.T) {
	rr := []float64{810, 790, 830, 770, 820}
	e := New(DefaultConfig())
	fill(t, e, rr...)

	var sum float64
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		sum += d * d
	}
	want := math.Sqrt(sum / float64(len(rr)-1))
	if got := e.Snapshot().RMSSD; math.Abs(got-want) > 1e-12 {
		t.Errorf("RMSSD = %v, want %v", got, want)
	}
}
