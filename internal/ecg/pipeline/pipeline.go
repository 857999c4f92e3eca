// Package pipeline is the composition root for the ECG analysis chain. It
// owns the sample ring buffer and the stage instances (filters, detectors,
// segmenter, interval/rate/HRV calculators) and enforces the concurrency
// discipline: exactly one ingestion path mutates state, while periodic
// readers receive copy-on-read snapshots and cached analysis results.
//
// The stage packages own the domain logic; this package only wires them.
package pipeline

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/cardio.report/internal/ecg/detect"
	"github.com/banshee-data/cardio.report/internal/ecg/filter"
	"github.com/banshee-data/cardio.report/internal/ecg/hrv"
	"github.com/banshee-data/cardio.report/internal/ecg/intervals"
	"github.com/banshee-data/cardio.report/internal/ecg/rate"
	"github.com/banshee-data/cardio.report/internal/ecg/segment"
	"github.com/banshee-data/cardio.report/internal/monitoring"
)

// Config aggregates the per-stage configurations plus the pipeline's own
// buffer parameters.
type Config struct {
	SampleRate     float64 // Hz, must be positive
	BufferCapacity int     // ring buffer length in samples
	Sex            intervals.Sex

	Stages    filter.StagesConfig
	Detector  detect.Config
	Fallback  detect.FallbackConfig
	Segmenter segment.Config
	Intervals intervals.Config
	Rate      rate.Config
	HRV       hrv.Config
}

// DefaultConfig returns the production pipeline configuration at 250 Hz.
func DefaultConfig() Config {
	return Config{
		SampleRate:     250,
		BufferCapacity: 1200,
		Sex:            intervals.SexMale,
		Stages:         filter.DefaultStagesConfig(),
		Detector:       detect.DefaultConfig(),
		Fallback:       detect.DefaultFallbackConfig(),
		Segmenter:      segment.DefaultConfig(),
		Intervals:      intervals.DefaultConfig(),
		Rate:           rate.DefaultConfig(),
		HRV:            hrv.DefaultConfig(),
	}
}

// Validate rejects configurations that would make the pipeline divide by
// zero or allocate nothing. These are fatal at startup, never per-sample.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", c.SampleRate)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", c.BufferCapacity)
	}
	if c.Rate.SmoothingWindow <= 0 {
		return fmt.Errorf("smoothing window must be positive, got %d", c.Rate.SmoothingWindow)
	}
	if c.HRV.Capacity <= 0 {
		return fmt.Errorf("hrv capacity must be positive, got %d", c.HRV.Capacity)
	}
	return nil
}

// BeatReport is the read-side view of the latest detection pass.
type BeatReport struct {
	Peaks     []detect.Peak      `json:"peaks"`
	Landmarks []segment.Landmark `json:"landmarks"`
	Source    detect.Source      `json:"source"`
}

// Pipeline drives the full analysis chain. All mutation happens under mu
// via Ingest and Reset; read methods take the read lock and return copies.
type Pipeline struct {
	mu        sync.RWMutex
	cfg       Config
	sessionID string

	ring  []float64
	head  int    // next write position
	count int    // filled samples, up to capacity
	total uint64 // lifetime samples ingested

	stages    *filter.Stages
	detector  *detect.Detector
	segmenter *segment.Segmenter
	calc      *intervals.Calculator
	rate      *rate.Estimator
	hrv       *hrv.Engine

	// lastPeakAbs tracks the absolute position of the newest accepted peak
	// so overlapping windows never double-count an RR interval.
	lastPeakAbs int64

	// Cached outputs of the most recent analysis pass. Reads are served
	// from this cache, so re-reading an unchanged buffer is idempotent.
	analyzedAt  uint64
	peaks       []detect.Peak
	source      detect.Source
	clusters    []segment.Cluster
	intervalSet intervals.Set
	bpm         *rate.Estimate

	dropped uint64 // non-finite samples rejected at the boundary
}

// New validates the configuration and builds a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	p := &Pipeline{
		cfg:         cfg,
		sessionID:   uuid.NewString(),
		ring:        make([]float64, cfg.BufferCapacity),
		stages:      filter.NewStages(cfg.Stages),
		detector:    detect.New(cfg.Detector),
		segmenter:   segment.New(cfg.Segmenter),
		calc:        intervals.New(cfg.Intervals, cfg.Sex),
		rate:        rate.New(cfg.Rate),
		hrv:         hrv.New(cfg.HRV),
		intervalSet: intervals.Unknown(),
		lastPeakAbs: -1,
		source:      detect.SourceNone,
	}
	return p, nil
}

// SessionID identifies this pipeline instance in logs and snapshots.
func (p *Pipeline) SessionID() string { return p.sessionID }

// SampleRate returns the configured sample rate in Hz.
func (p *Pipeline) SampleRate() float64 { return p.cfg.SampleRate }

// Ingest filters a batch of raw samples into the ring buffer and runs one
// analysis pass over the updated window. Non-finite samples are dropped at
// the boundary and counted. Batches of any size are accepted. Returns the
// number of samples admitted.
func (p *Pipeline) Ingest(samples []float64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	admitted := 0
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.dropped++
			continue
		}
		p.ring[p.head] = p.stages.Process(v)
		p.head = (p.head + 1) % len(p.ring)
		if p.count < len(p.ring) {
			p.count++
		}
		p.total++
		admitted++
	}
	if admitted > 0 {
		p.analyze()
	}
	return admitted
}

// analyze runs detection through interval/rate/HRV updates over the current
// window. Caller holds the write lock.
func (p *Pipeline) analyze() {
	if p.total == p.analyzedAt {
		return
	}
	window := p.windowLocked()

	peaks := p.detector.Detect(window)
	source := detect.SourceAdaptive
	if len(peaks) == 0 {
		peaks = detect.FallbackDetect(window, p.cfg.Fallback)
		source = detect.SourceFallback
		if len(peaks) == 0 {
			source = detect.SourceNone
		} else {
			monitoring.Logf("session %s: adaptive detector empty, fallback found %d peaks", p.sessionID, len(peaks))
		}
	}

	clusters := p.segmenter.Segment(window, peaks)

	// A fresh cluster refreshes the interval set; otherwise the last valid
	// values hold.
	if len(clusters) > 0 {
		latest := clusters[len(clusters)-1]
		rr := p.localRRSamples(peaks, latest.R.Index)
		p.intervalSet = p.calc.Compute(window, latest, rr)
	}

	if est := p.rate.Update(peaks); est != nil {
		p.bpm = est
	}

	p.feedHRV(peaks)

	p.peaks = peaks
	p.source = source
	p.clusters = clusters
	p.analyzedAt = p.total
}

// feedHRV converts newly seen peak spacings to RR intervals. Peak indices
// are window-relative; converting them to absolute stream positions lets
// overlapping windows contribute each interval exactly once.
func (p *Pipeline) feedHRV(peaks []detect.Peak) {
	if len(peaks) < 2 {
		return
	}
	windowStart := int64(p.total) - int64(p.count)
	msPerSample := 1000 / p.cfg.SampleRate
	for i := 1; i < len(peaks); i++ {
		abs := windowStart + int64(peaks[i].Index)
		if abs <= p.lastPeakAbs {
			continue
		}
		rrMs := float64(peaks[i].Index-peaks[i-1].Index) * msPerSample
		p.hrv.Add(rrMs)
		p.lastPeakAbs = abs
	}
}

// localRRSamples returns the spacing around the peak at index rIdx, falling
// back to one second.
func (p *Pipeline) localRRSamples(peaks []detect.Peak, rIdx int) int {
	for i, pk := range peaks {
		if pk.Index != rIdx {
			continue
		}
		if i+1 < len(peaks) {
			return peaks[i+1].Index - pk.Index
		}
		if i > 0 {
			return pk.Index - peaks[i-1].Index
		}
	}
	return int(p.cfg.SampleRate)
}

// windowLocked returns the chronological window (oldest first). Caller
// holds at least the read lock.
func (p *Pipeline) windowLocked() []float64 {
	out := make([]float64, p.count)
	start := (p.head - p.count + len(p.ring)) % len(p.ring)
	for i := 0; i < p.count; i++ {
		out[i] = p.ring[(start+i)%len(p.ring)]
	}
	return out
}

// Waveform returns a copy of the filtered buffer in chronological order.
func (p *Pipeline) Waveform() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.windowLocked()
}

// Beats returns the latest peak list, landmark set and the detector that
// produced them.
func (p *Pipeline) Beats() BeatReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	report := BeatReport{
		Peaks:  append([]detect.Peak(nil), p.peaks...),
		Source: p.source,
	}
	for _, c := range p.clusters {
		report.Landmarks = append(report.Landmarks, c.Landmarks()...)
	}
	return report
}

// Intervals returns the current interval set; before the first valid
// cluster every status is unknown.
func (p *Pipeline) Intervals() intervals.Set {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.intervalSet
}

// Rate returns the latest BPM estimate, or nil before the first accepted
// update.
func (p *Pipeline) Rate() *rate.Estimate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bpm == nil {
		return nil
	}
	est := *p.bpm
	return &est
}

// HRV computes a snapshot from the accumulated RR history.
func (p *Pipeline) HRV() hrv.Snapshot {
	return p.hrv.Snapshot()
}

// Dropped reports how many non-finite samples were rejected at ingestion.
func (p *Pipeline) Dropped() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dropped
}

// Reset restores every stage to its initial state. Serialized against
// in-flight passes by the write lock.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.ring {
		p.ring[i] = 0
	}
	p.head = 0
	p.count = 0
	p.total = 0
	p.analyzedAt = 0
	p.lastPeakAbs = -1
	p.dropped = 0
	p.peaks = nil
	p.clusters = nil
	p.source = detect.SourceNone
	p.intervalSet = intervals.Unknown()
	p.bpm = nil
	p.stages.Reset()
	p.detector.Reset()
	p.rate.Reset()
	p.hrv.Reset()
	monitoring.Logf("session %s: pipeline reset", p.sessionID)
}
