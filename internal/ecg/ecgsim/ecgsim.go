// Package ecgsim generates a synthetic, non-clinical ECG-like waveform:
// gaussian P/QRS/T bumps over a slow baseline, with optional deterministic
// noise. It stands in for a device during development and drives tests with
// a signal whose beat locations are known by construction.
package ecgsim

import "math"

// Config controls the generated waveform.
type Config struct {
	SampleRate float64 // Hz
	HeartRate  float64 // BPM
	Noise      float64 // noise amplitude, 0 disables
}

// DefaultConfig returns a 250 Hz, 72 BPM, lightly noisy generator.
func DefaultConfig() Config {
	return Config{SampleRate: 250, HeartRate: 72, Noise: 0.02}
}

// Generator produces one sample per Next call, advancing an internal phase
// through the cardiac cycle. Deterministic: two generators with the same
// config produce identical streams.
type Generator struct {
	cfg   Config
	phase float64
}

// New returns a Generator at the start of a cycle.
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

// Next returns the next sample, nominally in [-1, 1].
func (g *Generator) Next() float64 {
	cycleHz := g.cfg.HeartRate / 60
	g.phase += cycleHz / g.cfg.SampleRate
	if g.phase >= 1 {
		g.phase -= 1
	}
	t := g.phase

	baseline := 0.05 * math.Sin(2*math.Pi*0.33*t)
	p := 0.08 * gauss(t, 0.18, 0.03)
	q := -0.12 * gauss(t, 0.30, 0.01)
	r := 1.00 * gauss(t, 0.32, 0.008)
	s := -0.25 * gauss(t, 0.35, 0.012)
	tw := 0.25 * gauss(t, 0.60, 0.06)

	n := g.cfg.Noise * (2*fract(math.Sin(12345.678*t)*9876.543) - 1)

	return baseline + p + q + r + s + tw + n
}

// Batch fills and returns a slice of n consecutive samples.
func (g *Generator) Batch(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

func gauss(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

func fract(x float64) float64 { return x - math.Floor(x) }
