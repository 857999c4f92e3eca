// Package intervals converts wave landmark positions into clinical timing
// measurements (PR, QRS, QT, QTc, ST deviation) and classifies each against
// configurable clinical bands.
package intervals

import (
	"math"

	"github.com/banshee-data/cardio.report/internal/ecg/segment"
)

// Status classifies one measurement against its clinical band.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusShort     Status = "short"
	StatusProlonged Status = "prolonged"
	StatusWide      Status = "wide"
	StatusElevated  Status = "elevated"
	StatusDepressed Status = "depressed"
	StatusUnknown   Status = "unknown" // landmark missing, no numeric default
)

// Sex selects the QTc banding convention. Clinical convention tolerates a
// longer QTc upper bound for females.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Set holds one beat's interval measurements in milliseconds (ST deviation
// in millimetres) with a status per field. Fields whose landmarks were
// missing carry StatusUnknown and a zero value.
type Set struct {
	PRMs      float64 `json:"pr_ms"`
	QRSMs     float64 `json:"qrs_ms"`
	QTMs      float64 `json:"qt_ms"`
	QTcMs     float64 `json:"qtc_ms"`
	STDevMm   float64 `json:"st_dev_mm"`
	PRStatus  Status  `json:"pr_status"`
	QRSStatus Status  `json:"qrs_status"`
	QTcStatus Status  `json:"qtc_status"`
	STStatus  Status  `json:"st_status"`
}

// Unknown returns a Set with every status unknown, the steady state before
// the first valid cluster.
func Unknown() Set {
	return Set{
		PRStatus:  StatusUnknown,
		QRSStatus: StatusUnknown,
		QTcStatus: StatusUnknown,
		STStatus:  StatusUnknown,
	}
}

// Config holds the clinical banding thresholds.
type Config struct {
	SampleRate      float64 // Hz
	PRShortMs       float64 // PR below this is short
	PRProlongedMs   float64 // PR above this is prolonged
	QRSWideMs       float64 // QRS above this is wide
	QTcProlongedMs  float64 // QTc upper bound, male convention
	QTcProlongedFMs float64 // QTc upper bound, female convention
	QTcShortMs      float64 // QTc below this is short
	STDeviationMm   float64 // |ST| above this is elevated/depressed
	JPointOffsetMs  float64 // ST measurement point after R
	MmPerMillivolt  float64 // amplitude-to-millimetre scale
}

// DefaultConfig returns the standard clinical bands.
func DefaultConfig() Config {
	return Config{
		SampleRate:      250,
		PRShortMs:       120,
		PRProlongedMs:   200,
		QRSWideMs:       120,
		QTcProlongedMs:  450,
		QTcProlongedFMs: 470,
		QTcShortMs:      350,
		STDeviationMm:   0.5,
		JPointOffsetMs:  80,
		MmPerMillivolt:  10,
	}
}

// Calculator converts clusters into interval sets. Stateless.
type Calculator struct {
	cfg Config
	sex Sex
}

// New returns a Calculator banding QTc for the given subject sex.
func New(cfg Config, sex Sex) *Calculator {
	return &Calculator{cfg: cfg, sex: sex}
}

// Compute derives the interval set for one cluster. rrSamples is the local
// RR spacing used for the Bazett correction; samples is the filtered window
// the cluster indexes into, needed for the ST baseline.
func (c *Calculator) Compute(samples []float64, cluster segment.Cluster, rrSamples int) Set {
	set := Unknown()
	msPerSample := 1000 / c.cfg.SampleRate

	if cluster.P != nil {
		set.PRMs = float64(cluster.R.Index-cluster.P.Index) * msPerSample
		set.PRStatus = c.bandPR(set.PRMs)
	}
	if cluster.Q != nil && cluster.S != nil {
		set.QRSMs = float64(cluster.S.Index-cluster.Q.Index) * msPerSample
		set.QRSStatus = c.bandQRS(set.QRSMs)
	}
	if cluster.Q != nil && cluster.T != nil {
		set.QTMs = float64(cluster.T.Index-cluster.Q.Index) * msPerSample
		rrSec := float64(rrSamples) / c.cfg.SampleRate
		if rrSec > 0 {
			set.QTcMs = set.QTMs / math.Sqrt(rrSec)
			set.QTcStatus = c.bandQTc(set.QTcMs)
		}
	}
	if dev, ok := c.stDeviation(samples, cluster); ok {
		set.STDevMm = dev
		set.STStatus = c.bandST(dev)
	}
	return set
}

// stDeviation measures the ST-segment offset in millimetres. The
// isoelectric baseline is the PQ-segment mean (between the P and Q
// landmarks); the measurement point is J+offset after R. Both landmarks and
// the measurement point must be inside the window.
func (c *Calculator) stDeviation(samples []float64, cluster segment.Cluster) (float64, bool) {
	if cluster.P == nil || cluster.Q == nil {
		return 0, false
	}
	lo, hi := cluster.P.Index+1, cluster.Q.Index
	if lo >= hi || hi > len(samples) {
		return 0, false
	}
	var baseline float64
	for _, v := range samples[lo:hi] {
		baseline += v
	}
	baseline /= float64(hi - lo)

	j := cluster.R.Index + int(c.cfg.JPointOffsetMs/1000*c.cfg.SampleRate)
	if j >= len(samples) {
		return 0, false
	}
	return (samples[j] - baseline) * c.cfg.MmPerMillivolt, true
}

func (c *Calculator) bandPR(ms float64) Status {
	switch {
	case ms < c.cfg.PRShortMs:
		return StatusShort
	case ms > c.cfg.PRProlongedMs:
		return StatusProlonged
	default:
		return StatusNormal
	}
}

func (c *Calculator) bandQRS(ms float64) Status {
	if ms > c.cfg.QRSWideMs {
		return StatusWide
	}
	return StatusNormal
}

func (c *Calculator) bandQTc(ms float64) Status {
	upper := c.cfg.QTcProlongedMs
	if c.sex == SexFemale {
		upper = c.cfg.QTcProlongedFMs
	}
	switch {
	case ms > upper:
		return StatusProlonged
	case ms < c.cfg.QTcShortMs:
		return StatusShort
	default:
		return StatusNormal
	}
}

func (c *Calculator) bandST(mm float64) Status {
	switch {
	case mm > c.cfg.STDeviationMm:
		return StatusElevated
	case mm < -c.cfg.STDeviationMm:
		return StatusDepressed
	default:
		return StatusNormal
	}
}
