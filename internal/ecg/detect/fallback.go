package detect

import (
	"math"
	"sort"
)

// FallbackConfig holds the amplitude-threshold fallback parameters.
type FallbackConfig struct {
	SampleRate     float64 // Hz
	ThresholdScale float64 // scale on the top-magnitude mean
	ThresholdFloor float64 // minimum usable threshold
	TopFraction    float64 // fraction of largest magnitudes averaged
	MinSpacingMs   float64 // minimum spacing during the scan
	RefractoryMs   float64 // final refractory filter
	MaxCandidates  int     // cap before the refractory filter
}

// DefaultFallbackConfig returns the production fallback parameters.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{
		SampleRate:     250,
		ThresholdScale: 0.5,
		ThresholdFloor: 0.1,
		TopFraction:    0.05,
		MinSpacingMs:   80,
		RefractoryMs:   200,
		MaxCandidates:  20,
	}
}

// FallbackDetect runs the simple amplitude-threshold peak search used when
// the adaptive detector yields nothing. It is stateless; the threshold is
// derived from the window contents on every call.
func FallbackDetect(samples []float64, cfg FallbackConfig) []Peak {
	if len(samples) < 3 {
		return nil
	}

	threshold := fallbackThreshold(samples, cfg)

	minSpacing := int(cfg.MinSpacingMs / 1000 * cfg.SampleRate)
	var candidates []Peak
	lastIdx := -minSpacing
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] <= samples[i-1] || samples[i] < samples[i+1] {
			continue
		}
		if samples[i] < threshold || i-lastIdx < minSpacing {
			continue
		}
		lastIdx = i
		candidates = append(candidates, Peak{Index: i, Amplitude: samples[i]})
	}

	// A noisy window can produce far more candidates than plausible beats;
	// keep only the largest and restore chronological order.
	if len(candidates) > cfg.MaxCandidates {
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].Amplitude > candidates[b].Amplitude
		})
		candidates = candidates[:cfg.MaxCandidates]
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].Index < candidates[b].Index
		})
	}

	// Final refractory pass mirrors the adaptive detector's spacing rule.
	refractory := int(cfg.RefractoryMs / 1000 * cfg.SampleRate)
	var peaks []Peak
	last := -refractory
	for _, p := range candidates {
		if p.Index-last < refractory {
			continue
		}
		last = p.Index
		peaks = append(peaks, p)
	}
	return peaks
}

// fallbackThreshold computes the dynamic amplitude threshold: the mean of
// the top fraction of sample magnitudes, scaled, with an absolute floor.
func fallbackThreshold(samples []float64, cfg FallbackConfig) float64 {
	mags := make([]float64, len(samples))
	for i, v := range samples {
		mags[i] = math.Abs(v)
	}
	sort.Float64s(mags)

	n := int(float64(len(mags)) * cfg.TopFraction)
	if n < 1 {
		n = 1
	}
	top := mags[len(mags)-n:]
	var sum float64
	for _, v := range top {
		sum += v
	}
	threshold := sum / float64(n) * cfg.ThresholdScale
	if threshold < cfg.ThresholdFloor {
		threshold = cfg.ThresholdFloor
	}
	return threshold
}
