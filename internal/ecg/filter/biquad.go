// Package filter implements the fixed-coefficient IIR front end applied to
// every incoming ECG sample before detection: a narrow power-line notch
// followed by a band-pass that suppresses baseline wander and emphasises the
// QRS-relevant band.
package filter

import "math"

// Coefficients holds one normalized second-order section. a0 is normalized
// to 1 and not stored.
type Coefficients struct {
	B0, B1, B2 float64 // feedforward
	A1, A2     float64 // feedback
}

// Section is a single biquad with its two-element delay line, processed in
// Direct Form II Transposed. One Section instance is owned by exactly one
// input channel; there is no internal locking.
type Section struct {
	Coefficients
	d0, d1 float64
}

// NewSection returns a Section with the given coefficients and zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// Process filters one sample. Callers must reject non-finite input before
// calling; the filter itself assumes finite floats.
func (s *Section) Process(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = s.B1*x - s.A1*y + s.d1
	s.d1 = s.B2*x - s.A2*y
	return y
}

// Reset clears the delay line to zero.
func (s *Section) Reset() {
	s.d0 = 0
	s.d1 = 0
}

// Notch designs a second-order notch rejecting a narrow band around freq.
// Standard RBJ cookbook design.
func Notch(sampleRate, freq, q float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return Coefficients{
		B0: 1 / a0,
		B1: -2 * cosw0 / a0,
		B2: 1 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}
}

// Bandpass designs a second-order band-pass with 0 dB peak gain between the
// low and high corner frequencies. The centre frequency is the geometric
// mean of the corners.
func Bandpass(sampleRate, low, high float64) Coefficients {
	f0 := math.Sqrt(low * high)
	q := f0 / (high - low)
	w0 := 2 * math.Pi * f0 / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)
	a0 := 1 + alpha
	return Coefficients{
		B0: alpha / a0,
		B1: 0,
		B2: -alpha / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}
}
