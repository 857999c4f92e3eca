// Package segment locates the P, Q, S and T wave landmarks around each
// accepted R-peak. Search windows are scaled to the local RR interval so the
// same fractions work across heart rates; clusters that do not look like a
// true QRS complex are discarded rather than emitted.
package segment

import (
	"math"

	"github.com/banshee-data/cardio.report/internal/ecg/detect"
)

// Kind identifies one of the five wave landmarks.
type Kind string

const (
	WaveP Kind = "P"
	WaveQ Kind = "Q"
	WaveR Kind = "R"
	WaveS Kind = "S"
	WaveT Kind = "T"
)

// Landmark is one located wave point.
type Landmark struct {
	Index     int     `json:"index"`
	Amplitude float64 `json:"amplitude"`
	Kind      Kind    `json:"kind"`
}

// Cluster is the set of landmarks found around one R-peak. R is always
// present; the other fields are nil when their search window fell outside
// the buffer.
type Cluster struct {
	R Landmark
	P *Landmark
	Q *Landmark
	S *Landmark
	T *Landmark
}

// Landmarks flattens the cluster into chronological order, skipping absent
// waves.
func (c Cluster) Landmarks() []Landmark {
	out := make([]Landmark, 0, 5)
	for _, lm := range []*Landmark{c.P, c.Q} {
		if lm != nil {
			out = append(out, *lm)
		}
	}
	out = append(out, c.R)
	for _, lm := range []*Landmark{c.S, c.T} {
		if lm != nil {
			out = append(out, *lm)
		}
	}
	return out
}

// Config holds the segmentation tuning parameters. Window fractions are
// relative to the local RR interval.
type Config struct {
	SampleRate       float64 // Hz
	QWindowFrac      float64 // Q search window before R
	PWindowFrac      float64 // P search window before Q
	SWindowFrac      float64 // S search window after R
	TWindowFrac      float64 // T search window after S
	GapFrac          float64 // guard gap between adjacent windows
	RRClampLow       float64 // minimum plausible RR, fraction of 1 s
	RRClampHigh      float64 // maximum plausible RR, fraction of 1 s
	ValidationWindow int     // samples checked around R for deflections
	RAmplitudeFloor  float64 // R amplitude accepted without deflections
	MinAmplitude     float64 // below this peak amplitude the window is flat
	MinVariance      float64 // below this variance the window is flat
	DirectThreshold  float64 // direct-detection threshold, fraction of max
	DirectMinSpacing int     // direct-detection minimum peak spacing
	MaxBeats         int     // most recent beats segmented per pass
}

// DefaultConfig returns the production segmentation parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:       250,
		QWindowFrac:      0.10,
		PWindowFrac:      0.25,
		SWindowFrac:      0.10,
		TWindowFrac:      0.40,
		GapFrac:          0.02,
		RRClampLow:       0.3,
		RRClampHigh:      1.5,
		ValidationWindow: 20,
		RAmplitudeFloor:  0.5,
		MinAmplitude:     0.2,
		MinVariance:      1e-4,
		DirectThreshold:  0.6,
		DirectMinSpacing: 60,
		MaxBeats:         5,
	}
}

// Segmenter locates wave landmarks. It carries no state between passes.
type Segmenter struct {
	cfg Config
}

// New returns a Segmenter with the given parameters.
func New(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Segment locates landmark clusters for the most recent accepted R-peaks.
// When the detector found no peaks, a direct amplitude scan re-derives R
// candidates before segmentation. A zero-length result is valid for flat or
// weak signal.
func (s *Segmenter) Segment(samples []float64, peaks []detect.Peak) []Cluster {
	if s.flat(samples) {
		return nil
	}
	if len(peaks) == 0 {
		peaks = s.directDetect(samples)
		if len(peaks) == 0 {
			return nil
		}
	}
	if len(peaks) > s.cfg.MaxBeats {
		peaks = peaks[len(peaks)-s.cfg.MaxBeats:]
	}

	clusters := make([]Cluster, 0, len(peaks))
	for i, p := range peaks {
		rr := s.localRR(peaks, i)
		c, ok := s.segmentBeat(samples, p, rr)
		if ok {
			clusters = append(clusters, c)
		}
	}
	return clusters
}

// flat reports whether the window is too weak or too uniform to segment.
func (s *Segmenter) flat(samples []float64) bool {
	if len(samples) == 0 {
		return true
	}
	var maxAbs, sum float64
	for _, v := range samples {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
		sum += v
	}
	if maxAbs < s.cfg.MinAmplitude {
		return true
	}
	mean := sum / float64(len(samples))
	var variance float64
	for _, v := range samples {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(samples))
	return variance < s.cfg.MinVariance
}

// localRR returns the spacing to the nearest neighbouring peak in samples,
// defaulting to one second when no neighbour exists, clamped to the
// plausible range.
func (s *Segmenter) localRR(peaks []detect.Peak, i int) int {
	rr := int(s.cfg.SampleRate) // one-second default
	switch {
	case i+1 < len(peaks):
		rr = peaks[i+1].Index - peaks[i].Index
	case i > 0:
		rr = peaks[i].Index - peaks[i-1].Index
	}
	lo := int(s.cfg.RRClampLow * s.cfg.SampleRate)
	hi := int(s.cfg.RRClampHigh * s.cfg.SampleRate)
	if rr < lo {
		rr = lo
	}
	if rr > hi {
		rr = hi
	}
	return rr
}

// segmentBeat locates the four satellite waves around one R-peak and
// validates the cluster as a QRS complex.
func (s *Segmenter) segmentBeat(samples []float64, p detect.Peak, rr int) (Cluster, bool) {
	if !s.validQRS(samples, p) {
		return Cluster{}, false
	}

	c := Cluster{R: Landmark{Index: p.Index, Amplitude: p.Amplitude, Kind: WaveR}}

	gap := int(s.cfg.GapFrac * float64(rr))
	qWin := int(s.cfg.QWindowFrac * float64(rr))
	pWin := int(s.cfg.PWindowFrac * float64(rr))
	sWin := int(s.cfg.SWindowFrac * float64(rr))
	tWin := int(s.cfg.TWindowFrac * float64(rr))

	if q := windowMin(samples, p.Index-qWin, p.Index); q != nil {
		c.Q = &Landmark{Index: q.idx, Amplitude: q.val, Kind: WaveQ}
		if pw := windowMax(samples, q.idx-gap-pWin, q.idx-gap); pw != nil {
			c.P = &Landmark{Index: pw.idx, Amplitude: pw.val, Kind: WaveP}
		}
	}
	if sw := windowMin(samples, p.Index+1, p.Index+1+sWin); sw != nil {
		c.S = &Landmark{Index: sw.idx, Amplitude: sw.val, Kind: WaveS}
		if tw := windowMax(samples, sw.idx+gap, sw.idx+gap+tWin); tw != nil {
			c.T = &Landmark{Index: tw.idx, Amplitude: tw.val, Kind: WaveT}
		}
	}
	return c, true
}

// validQRS accepts a beat when a negative deflection exists on both sides
// of R within the validation window, or the R amplitude alone clears the
// absolute floor.
func (s *Segmenter) validQRS(samples []float64, p detect.Peak) bool {
	if p.Amplitude >= s.cfg.RAmplitudeFloor {
		return true
	}
	w := s.cfg.ValidationWindow
	negBefore := false
	for i := maxInt(0, p.Index-w); i < p.Index; i++ {
		if samples[i] < 0 {
			negBefore = true
			break
		}
	}
	if !negBefore {
		return false
	}
	for i := p.Index + 1; i <= minInt(len(samples)-1, p.Index+w); i++ {
		if samples[i] < 0 {
			return true
		}
	}
	return false
}

// directDetect re-derives R candidates from raw amplitude when the
// upstream detectors produced nothing: threshold at a fraction of the
// window maximum with a fixed minimum spacing.
func (s *Segmenter) directDetect(samples []float64) []detect.Peak {
	var max float64
	for _, v := range samples {
		if v > max {
			max = v
		}
	}
	if max < s.cfg.MinAmplitude {
		return nil
	}
	threshold := s.cfg.DirectThreshold * max

	var peaks []detect.Peak
	last := -s.cfg.DirectMinSpacing
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] <= samples[i-1] || samples[i] < samples[i+1] {
			continue
		}
		if samples[i] < threshold || i-last < s.cfg.DirectMinSpacing {
			continue
		}
		last = i
		peaks = append(peaks, detect.Peak{Index: i, Amplitude: samples[i]})
	}
	return peaks
}

type extremum struct {
	idx int
	val float64
}

// windowMin returns the minimum sample in [lo, hi), or nil when the clamped
// window is empty.
func windowMin(samples []float64, lo, hi int) *extremum {
	lo, hi = clampWindow(samples, lo, hi)
	if lo >= hi {
		return nil
	}
	best := extremum{idx: lo, val: samples[lo]}
	for i := lo + 1; i < hi; i++ {
		if samples[i] < best.val {
			best = extremum{idx: i, val: samples[i]}
		}
	}
	return &best
}

// windowMax returns the maximum sample in [lo, hi), or nil when the clamped
// window is empty.
func windowMax(samples []float64, lo, hi int) *extremum {
	lo, hi = clampWindow(samples, lo, hi)
	if lo >= hi {
		return nil
	}
	best := extremum{idx: lo, val: samples[lo]}
	for i := lo + 1; i < hi; i++ {
		if samples[i] > best.val {
			best = extremum{idx: i, val: samples[i]}
		}
	}
	return &best
}

func clampWindow(samples []float64, lo, hi int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > len(samples) {
		hi = len(samples)
	}
	return lo, hi
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
