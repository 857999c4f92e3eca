// Package detect locates heartbeat (R) peaks in a window of filtered ECG
// samples. The primary detector is an adaptive Pan-Tompkins style pipeline
// (band-pass, derivative, squaring, moving-window integration, two-threshold
// classification); a simpler amplitude-threshold fallback covers weak or
// atypical signals where the primary detector finds nothing.
package detect

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/cardio.report/internal/ecg/filter"
)

// Source identifies which detector produced a peak list. Exposed so callers
// can observe fallback activation.
type Source string

const (
	SourceAdaptive Source = "adaptive" // Pan-Tompkins pipeline
	SourceFallback Source = "fallback" // amplitude-threshold fallback
	SourceNone     Source = "none"     // no peaks found by either path
)

// Peak is a detected R-peak: an index into the analysis window plus the
// filtered-signal amplitude at that index.
type Peak struct {
	Index     int     `json:"index"`
	Amplitude float64 `json:"amplitude"`
}

// Config holds the adaptive detector tuning parameters.
type Config struct {
	SampleRate          float64 // Hz
	BandLow             float64 // detection band-pass low corner (Hz)
	BandHigh            float64 // detection band-pass high corner (Hz)
	IntegrationWindowMs float64 // moving-window integration width
	RefractoryMs        float64 // minimum spacing between accepted beats
	SignalLearningRate  float64 // signal threshold adaptation rate
	NoiseLearningRate   float64 // noise threshold adaptation rate
	SeedQuantile        float64 // energy quantile seeding the thresholds
	PeakAverageCount    int     // recent peaks averaged for adaptation
	RefineRadius        int     // samples searched around an energy peak
}

// DefaultConfig returns the production detector parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:          250,
		BandLow:             5,
		BandHigh:            15,
		IntegrationWindowMs: 150,
		RefractoryMs:        250,
		SignalLearningRate:  0.15,
		NoiseLearningRate:   0.075,
		SeedQuantile:        0.95,
		PeakAverageCount:    8,
		RefineRadius:        10,
	}
}

// Detector carries the adaptive threshold state across invocations. It is
// owned by a single ingestion path; the pipeline driver serializes calls.
type Detector struct {
	cfg Config

	seeded          bool
	signalThreshold float64
	noiseThreshold  float64
	signalPeaks     []float64 // recent accepted peak energies
	noisePeaks      []float64 // recent rejected peak energies
}

// New returns a Detector with unseeded thresholds.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Reset clears all adaptive state. A reset detector is indistinguishable
// from a freshly constructed one.
func (d *Detector) Reset() {
	d.seeded = false
	d.signalThreshold = 0
	d.noiseThreshold = 0
	d.signalPeaks = nil
	d.noisePeaks = nil
}

// Detect runs the full pipeline over one window of filtered samples and
// returns accepted R-peaks in ascending index order. An empty result is a
// valid steady state, not an error.
func (d *Detector) Detect(samples []float64) []Peak {
	if len(samples) < d.integrationWidth()+4 {
		return nil
	}

	energy := d.energy(samples)
	if !d.seeded {
		d.seed(energy)
	}

	refractory := int(d.cfg.RefractoryMs / 1000 * d.cfg.SampleRate)
	lastAccepted := -refractory

	var peaks []Peak
	for i := 1; i < len(energy)-1; i++ {
		if energy[i] <= energy[i-1] || energy[i] < energy[i+1] {
			continue
		}
		switch {
		case energy[i] > d.signalThreshold && i-lastAccepted >= refractory:
			lastAccepted = i
			d.learnSignal(energy[i])
			idx := d.refine(samples, i)
			peaks = append(peaks, Peak{Index: idx, Amplitude: samples[idx]})
		case energy[i] > d.noiseThreshold:
			d.learnNoise(energy[i])
		}
	}
	return peaks
}

// energy computes the integrated squared-derivative signal: band-pass,
// 5-point derivative, squaring, then a moving-window average. The result is
// aligned with the input window; edge samples carry zero energy.
func (d *Detector) energy(samples []float64) []float64 {
	bp := filter.NewSection(filter.Bandpass(d.cfg.SampleRate, d.cfg.BandLow, d.cfg.BandHigh))
	filtered := make([]float64, len(samples))
	for i, v := range samples {
		filtered[i] = bp.Process(v)
	}

	// 5-point derivative, squared in place.
	squared := make([]float64, len(filtered))
	for i := 2; i < len(filtered)-2; i++ {
		dv := (-filtered[i-2] - 2*filtered[i-1] + 2*filtered[i+1] + filtered[i+2]) / 8
		squared[i] = dv * dv
	}

	// Moving-window integration over the QRS-width window.
	width := d.integrationWidth()
	energy := make([]float64, len(squared))
	var sum float64
	for i, v := range squared {
		sum += v
		if i >= width {
			sum -= squared[i-width]
		}
		energy[i] = sum / float64(width)
	}
	return energy
}

func (d *Detector) integrationWidth() int {
	w := int(d.cfg.IntegrationWindowMs / 1000 * d.cfg.SampleRate)
	if w < 1 {
		w = 1
	}
	return w
}

// seed initialises both thresholds from the top quantile of the energy
// signal on first use.
func (d *Detector) seed(energy []float64) {
	sorted := make([]float64, len(energy))
	copy(sorted, energy)
	sort.Float64s(sorted)
	top := stat.Quantile(d.cfg.SeedQuantile, stat.Empirical, sorted, nil)
	d.signalThreshold = top * 0.5
	d.noiseThreshold = top * 0.125
	d.seeded = true
}

// learnSignal nudges the signal threshold toward the recent accepted peak
// average.
func (d *Detector) learnSignal(e float64) {
	d.signalPeaks = appendBounded(d.signalPeaks, e, d.cfg.PeakAverageCount)
	avg := stat.Mean(d.signalPeaks, nil)
	d.signalThreshold += d.cfg.SignalLearningRate * (avg*0.5 - d.signalThreshold)
	if d.signalThreshold < d.noiseThreshold {
		d.signalThreshold = d.noiseThreshold
	}
}

// learnNoise nudges the noise threshold toward the recent noise average at
// a slower rate than the signal threshold.
func (d *Detector) learnNoise(e float64) {
	d.noisePeaks = appendBounded(d.noisePeaks, e, d.cfg.PeakAverageCount)
	avg := stat.Mean(d.noisePeaks, nil)
	d.noiseThreshold += d.cfg.NoiseLearningRate * (avg*0.5 - d.noiseThreshold)
}

// refine searches a small window around an energy-domain peak for the true
// local maximum in the original filtered signal, compensating for the lag
// the integration stage introduces.
func (d *Detector) refine(samples []float64, idx int) int {
	lo := idx - d.cfg.RefineRadius
	hi := idx + d.cfg.RefineRadius
	if lo < 0 {
		lo = 0
	}
	if hi >= len(samples) {
		hi = len(samples) - 1
	}
	best := idx
	for i := lo; i <= hi; i++ {
		if samples[i] > samples[best] {
			best = i
		}
	}
	return best
}

func appendBounded(s []float64, v float64, max int) []float64 {
	s = append(s, v)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
