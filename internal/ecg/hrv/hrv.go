// Package hrv accumulates validated RR intervals and derives heart-rate
// variability statistics: time-domain measures (RMSSD, SDNN, pNN50,
// triangular index), a non-spectral frequency proxy, an RMSSD-banded
// assessment, and a rule-based physiological state estimate.
//
// The LF/HF figures are a stride-subsampling approximation of the classic
// spectral split, not an FFT-based power estimate. Snapshots carry the
// FrequencyDomainIsApprox capability flag so consumers can tell.
package hrv

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Readiness is the engine's reporting state, driven only by how many valid
// intervals have accumulated.
type Readiness string

const (
	ReadinessCold    Readiness = "cold"    // no samples
	ReadinessWarming Readiness = "warming" // reporting "Analyzing"
	ReadinessReady   Readiness = "ready"   // full snapshot available
)

// PhysiologicalState is the rule-based classifier output.
type PhysiologicalState struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
}

// Snapshot is a pure function of the current RR history.
type Snapshot struct {
	RMSSD           float64            `json:"rmssd_ms"`
	SDNN            float64            `json:"sdnn_ms"`
	PNN50           float64            `json:"pnn50_pct"`
	TriangularIndex float64            `json:"triangular_index"`
	LF              float64            `json:"lf"`
	HF              float64            `json:"hf"`
	Ratio           float64            `json:"lf_hf_ratio"`
	SampleCount     int                `json:"sample_count"`
	Assessment      string             `json:"assessment"`
	State           PhysiologicalState `json:"physiological_state"`
	Readiness       Readiness          `json:"readiness"`

	// FrequencyDomainIsApprox is always true for this engine: LF/HF are a
	// stride-subsampling proxy, not a spectral estimate.
	FrequencyDomainIsApprox bool `json:"frequency_domain_is_approx"`
}

// Config holds the HRV engine parameters.
type Config struct {
	Capacity             int     // bounded RR history length
	RRMinMs              float64 // admission lower bound
	RRMaxMs              float64 // admission upper bound
	PNN50ThresholdMs     float64 // successive-difference threshold
	TriangularBinMs      float64 // histogram bin width
	TriangularMinSamples int     // below this the index is 0
	FrequencyMinSamples  int     // below this LF/HF/ratio are 0
	ReadyMinSamples      int     // full-snapshot gate
	LFStride             int     // successive-difference stride for "LF"
	HFStride             int     // successive-difference stride for "HF"
	RMSSDLowMs           float64 // assessment band: below is low
	RMSSDHighMs          float64 // assessment band: above is high
	States               StateThresholds
}

// DefaultConfig returns the production HRV parameters.
func DefaultConfig() Config {
	return Config{
		Capacity:             300,
		RRMinMs:              300,
		RRMaxMs:              2000,
		PNN50ThresholdMs:     50,
		TriangularBinMs:      7.8125,
		TriangularMinSamples: 20,
		FrequencyMinSamples:  30,
		ReadyMinSamples:      30,
		LFStride:             4,
		HFStride:             2,
		RMSSDLowMs:           20,
		RMSSDHighMs:          50,
		States:               DefaultStateThresholds(),
	}
}

// Engine owns the bounded RR history. Admission and snapshot computation
// are serialized internally so an external Reset cannot race an in-flight
// reporting pass.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	rr  []float64 // milliseconds, FIFO order
}

// New returns an empty (cold) engine.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Add offers one RR interval in milliseconds. Intervals outside the
// admission bounds are discarded, not stored; the return value reports
// acceptance. The history evicts FIFO at capacity.
func (e *Engine) Add(rrMs float64) bool {
	if rrMs < e.cfg.RRMinMs || rrMs > e.cfg.RRMaxMs {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rr = append(e.rr, rrMs)
	if len(e.rr) > e.cfg.Capacity {
		e.rr = e.rr[len(e.rr)-e.cfg.Capacity:]
	}
	return true
}

// Len returns the current history length.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rr)
}

// Reset discards the history, returning the engine to cold.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rr = nil
}

// Snapshot computes all statistics from the current history. Below the
// readiness gate the physiological state reports "Analyzing" with zero
// confidence.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	rr := make([]float64, len(e.rr))
	copy(rr, e.rr)
	e.mu.Unlock()

	s := Snapshot{
		SampleCount:             len(rr),
		Readiness:               e.readiness(len(rr)),
		FrequencyDomainIsApprox: true,
	}

	if len(rr) >= 2 {
		diffs := successiveDiffs(rr)
		s.RMSSD = rmssd(diffs)
		s.SDNN = sdnn(rr)
		s.PNN50 = pnn50(diffs, e.cfg.PNN50ThresholdMs)
	}
	if len(rr) >= e.cfg.TriangularMinSamples {
		s.TriangularIndex = triangularIndex(rr, e.cfg.TriangularBinMs)
	}
	if len(rr) >= e.cfg.FrequencyMinSamples {
		diffs := successiveDiffs(rr)
		s.LF = strideMeanAbs(diffs, e.cfg.LFStride)
		s.HF = strideMeanAbs(diffs, e.cfg.HFStride)
		if s.HF != 0 {
			s.Ratio = s.LF / s.HF
		}
	}

	s.Assessment = e.assess(s.RMSSD, len(rr))
	s.State = classifyState(s, rr, e.cfg)
	return s
}

func (e *Engine) readiness(n int) Readiness {
	switch {
	case n == 0:
		return ReadinessCold
	case n < e.cfg.ReadyMinSamples:
		return ReadinessWarming
	default:
		return ReadinessReady
	}
}

// assess bands RMSSD into a qualitative autonomic-function label.
func (e *Engine) assess(rmssd float64, n int) string {
	if n < e.cfg.ReadyMinSamples {
		return "analyzing"
	}
	switch {
	case rmssd < e.cfg.RMSSDLowMs:
		return "low autonomic function"
	case rmssd > e.cfg.RMSSDHighMs:
		return "high autonomic function"
	default:
		return "normal autonomic function"
	}
}

func successiveDiffs(rr []float64) []float64 {
	diffs := make([]float64, len(rr)-1)
	for i := 1; i < len(rr); i++ {
		diffs[i-1] = rr[i] - rr[i-1]
	}
	return diffs
}

// rmssd is the root mean square of successive differences.
func rmssd(diffs []float64) float64 {
	if len(diffs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range diffs {
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(diffs)))
}

// sdnn is the population standard deviation of the interval set.
func sdnn(rr []float64) float64 {
	mean := stat.Mean(rr, nil)
	var sum float64
	for _, v := range rr {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(rr)))
}

// pnn50 is the percentage of successive differences exceeding the
// threshold in magnitude.
func pnn50(diffs []float64, thresholdMs float64) float64 {
	if len(diffs) == 0 {
		return 0
	}
	count := 0
	for _, d := range diffs {
		if math.Abs(d) > thresholdMs {
			count++
		}
	}
	return 100 * float64(count) / float64(len(diffs))
}

// triangularIndex is total count divided by the modal bin count of a
// fixed-width histogram spanning [min, max] of the interval set. Bounded
// above by the sample count since the modal bin holds at least one sample.
func triangularIndex(rr []float64, binMs float64) float64 {
	min, max := rr[0], rr[0]
	for _, v := range rr {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	bins := int((max-min)/binMs) + 1
	hist := make([]int, bins)
	for _, v := range rr {
		b := int((v - min) / binMs)
		if b >= bins {
			b = bins - 1
		}
		hist[b]++
	}
	modal := 0
	for _, c := range hist {
		if c > modal {
			modal = c
		}
	}
	return float64(len(rr)) / float64(modal)
}

// strideMeanAbs is the mean absolute value of every stride-th successive
// difference, the non-spectral frequency proxy.
func strideMeanAbs(diffs []float64, stride int) float64 {
	if stride < 1 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i < len(diffs); i += stride {
		sum += math.Abs(diffs[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
