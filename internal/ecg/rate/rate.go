// Package rate derives a smoothed beats-per-minute estimate from detected
// peak spacing. Raw values outside the plausible band are rejected; accepted
// values pass through a sliding-window average and a per-update slew cap so
// the reported rate never jumps.
package rate

import "github.com/banshee-data/cardio.report/internal/ecg/detect"

// Estimate is one BPM reading: the raw window-derived value and the
// smoothed value carried across updates.
type Estimate struct {
	Raw      float64 `json:"raw"`
	Smoothed float64 `json:"smoothed"`
}

// Config holds the rate estimator parameters.
type Config struct {
	SampleRate      float64 // Hz
	MinBPM          float64 // reject below
	MaxBPM          float64 // reject above
	SmoothingWindow int     // sliding-window size
	SlewCapBPM      float64 // maximum change per update
}

// DefaultConfig returns the production rate parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:      250,
		MinBPM:          40,
		MaxBPM:          200,
		SmoothingWindow: 5,
		SlewCapBPM:      2,
	}
}

// Estimator carries the smoothing state across updates. Owned by a single
// ingestion path.
type Estimator struct {
	cfg      Config
	window   []float64
	smoothed float64
	primed   bool
}

// New returns an Estimator with empty smoothing state.
func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Reset clears the window and the smoothed value.
func (e *Estimator) Reset() {
	e.window = nil
	e.smoothed = 0
	e.primed = false
}

// Update derives a BPM value from the latest ordered peak list. It returns
// nil when fewer than two peaks exist or the raw value falls outside the
// configured band; rejection does not disturb the smoothing state.
func (e *Estimator) Update(peaks []detect.Peak) *Estimate {
	if len(peaks) < 2 {
		return e.last()
	}

	var total int
	for i := 1; i < len(peaks); i++ {
		total += peaks[i].Index - peaks[i-1].Index
	}
	avgInterval := float64(total) / float64(len(peaks)-1)
	if avgInterval <= 0 {
		return e.last()
	}

	raw := 60 * e.cfg.SampleRate / avgInterval
	if raw < e.cfg.MinBPM || raw > e.cfg.MaxBPM {
		return e.last()
	}

	e.window = append(e.window, raw)
	if len(e.window) > e.cfg.SmoothingWindow {
		e.window = e.window[len(e.window)-e.cfg.SmoothingWindow:]
	}
	var sum float64
	for _, v := range e.window {
		sum += v
	}
	target := sum / float64(len(e.window))

	// Slew toward the window average, capped per update.
	if !e.primed {
		e.smoothed = target
		e.primed = true
	} else {
		delta := target - e.smoothed
		if delta > e.cfg.SlewCapBPM {
			delta = e.cfg.SlewCapBPM
		} else if delta < -e.cfg.SlewCapBPM {
			delta = -e.cfg.SlewCapBPM
		}
		e.smoothed += delta
	}

	return &Estimate{Raw: raw, Smoothed: e.smoothed}
}

// last re-reports the current smoothed value, or nil before the first
// accepted update.
func (e *Estimator) last() *Estimate {
	if !e.primed {
		return nil
	}
	return &Estimate{Raw: 0, Smoothed: e.smoothed}
}
