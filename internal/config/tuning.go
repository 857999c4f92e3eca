package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default tuning values. Every Get* accessor falls back to one of these
// named constants, never an inline literal.
const (
	DefaultSampleRate         = 250.0
	DefaultBufferCapacity     = 1200
	DefaultSubjectSex         = "male"
	DefaultRefractoryMs       = 250.0
	DefaultMinBPM             = 40.0
	DefaultMaxBPM             = 200.0
	DefaultSmoothingWindow    = 5
	DefaultSlewCapBPM         = 2.0
	DefaultRRMinMs            = 300.0
	DefaultRRMaxMs            = 2000.0
	DefaultHRVCapacity        = 300
	DefaultHRVReadyMinSamples = 30
	DefaultPRShortMs          = 120.0
	DefaultPRProlongedMs      = 200.0
	DefaultQRSWideMs          = 120.0
	DefaultQTcProlongedMs     = 450.0
	DefaultQTcProlongedFMs    = 470.0
	DefaultQTcShortMs         = 350.0
	DefaultSTDeviationMm      = 0.5
)

// TuningConfig represents the root configuration for pipeline tuning
// parameters. The schema matches the /api/ecg/config endpoint so the same
// JSON serves startup configuration and runtime inspection. All fields are
// optional; omitted fields fall back to the Default* constants.
type TuningConfig struct {
	// Signal parameters
	SampleRate     *float64 `json:"sample_rate,omitempty"`
	BufferCapacity *int     `json:"buffer_capacity,omitempty"`
	SubjectSex     *string  `json:"subject_sex,omitempty"`

	// Detector params
	RefractoryMs *float64 `json:"refractory_ms,omitempty"`

	// Rate params
	MinBPM          *float64 `json:"min_bpm,omitempty"`
	MaxBPM          *float64 `json:"max_bpm,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
	SlewCapBPM      *float64 `json:"slew_cap_bpm,omitempty"`

	// HRV params
	RRMinMs            *float64 `json:"rr_min_ms,omitempty"`
	RRMaxMs            *float64 `json:"rr_max_ms,omitempty"`
	HRVCapacity        *int     `json:"hrv_capacity,omitempty"`
	HRVReadyMinSamples *int     `json:"hrv_ready_min_samples,omitempty"`

	// Clinical interval bands
	PRShortMs       *float64 `json:"pr_short_ms,omitempty"`
	PRProlongedMs   *float64 `json:"pr_prolonged_ms,omitempty"`
	QRSWideMs       *float64 `json:"qrs_wide_ms,omitempty"`
	QTcProlongedMs  *float64 `json:"qtc_prolonged_ms,omitempty"`
	QTcProlongedFMs *float64 `json:"qtc_prolonged_f_ms,omitempty"`
	QTcShortMs      *float64 `json:"qtc_short_ms,omitempty"`
	STDeviationMm   *float64 `json:"st_deviation_mm,omitempty"`

	// Physiological-state rule cut points (optional overrides)
	StressBPMMin    *float64 `json:"stress_bpm_min,omitempty"`
	RelaxBPMMax     *float64 `json:"relax_bpm_max,omitempty"`
	FatigueBPMMax   *float64 `json:"fatigue_bpm_max,omitempty"`
	RelaxRMSSDMinMs *float64 `json:"relax_rmssd_min_ms,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that any set values are usable. A zero or negative
// sample rate is a fatal configuration error, never recoverable per-sample.
func (c *TuningConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %f", *c.SampleRate)
	}
	if c.BufferCapacity != nil && *c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", *c.BufferCapacity)
	}
	if c.SubjectSex != nil && *c.SubjectSex != "male" && *c.SubjectSex != "female" {
		return fmt.Errorf("subject_sex must be male or female, got %q", *c.SubjectSex)
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow <= 0 {
		return fmt.Errorf("smoothing_window must be positive, got %d", *c.SmoothingWindow)
	}
	if c.MinBPM != nil && c.MaxBPM != nil && *c.MinBPM >= *c.MaxBPM {
		return fmt.Errorf("min_bpm %f must be below max_bpm %f", *c.MinBPM, *c.MaxBPM)
	}
	if c.RRMinMs != nil && c.RRMaxMs != nil && *c.RRMinMs >= *c.RRMaxMs {
		return fmt.Errorf("rr_min_ms %f must be below rr_max_ms %f", *c.RRMinMs, *c.RRMaxMs)
	}
	if c.HRVCapacity != nil && *c.HRVCapacity <= 0 {
		return fmt.Errorf("hrv_capacity must be positive, got %d", *c.HRVCapacity)
	}
	return nil
}

// GetSampleRate returns the sample_rate value or the default.
func (c *TuningConfig) GetSampleRate() float64 {
	if c.SampleRate == nil {
		return DefaultSampleRate
	}
	return *c.SampleRate
}

// GetBufferCapacity returns the buffer_capacity value or the default.
func (c *TuningConfig) GetBufferCapacity() int {
	if c.BufferCapacity == nil {
		return DefaultBufferCapacity
	}
	return *c.BufferCapacity
}

// GetSubjectSex returns the subject_sex value or the default.
func (c *TuningConfig) GetSubjectSex() string {
	if c.SubjectSex == nil {
		return DefaultSubjectSex
	}
	return *c.SubjectSex
}

// GetRefractoryMs returns the refractory_ms value or the default.
func (c *TuningConfig) GetRefractoryMs() float64 {
	if c.RefractoryMs == nil {
		return DefaultRefractoryMs
	}
	return *c.RefractoryMs
}

// GetMinBPM returns the min_bpm value or the default.
func (c *TuningConfig) GetMinBPM() float64 {
	if c.MinBPM == nil {
		return DefaultMinBPM
	}
	return *c.MinBPM
}

// GetMaxBPM returns the max_bpm value or the default.
func (c *TuningConfig) GetMaxBPM() float64 {
	if c.MaxBPM == nil {
		return DefaultMaxBPM
	}
	return *c.MaxBPM
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return DefaultSmoothingWindow
	}
	return *c.SmoothingWindow
}

// GetSlewCapBPM returns the slew_cap_bpm value or the default.
func (c *TuningConfig) GetSlewCapBPM() float64 {
	if c.SlewCapBPM == nil {
		return DefaultSlewCapBPM
	}
	return *c.SlewCapBPM
}

// GetRRMinMs returns the rr_min_ms value or the default.
func (c *TuningConfig) GetRRMinMs() float64 {
	if c.RRMinMs == nil {
		return DefaultRRMinMs
	}
	return *c.RRMinMs
}

// GetRRMaxMs returns the rr_max_ms value or the default.
func (c *TuningConfig) GetRRMaxMs() float64 {
	if c.RRMaxMs == nil {
		return DefaultRRMaxMs
	}
	return *c.RRMaxMs
}

// GetHRVCapacity returns the hrv_capacity value or the default.
func (c *TuningConfig) GetHRVCapacity() int {
	if c.HRVCapacity == nil {
		return DefaultHRVCapacity
	}
	return *c.HRVCapacity
}

// GetHRVReadyMinSamples returns the hrv_ready_min_samples value or the default.
func (c *TuningConfig) GetHRVReadyMinSamples() int {
	if c.HRVReadyMinSamples == nil {
		return DefaultHRVReadyMinSamples
	}
	return *c.HRVReadyMinSamples
}

// GetPRShortMs returns the pr_short_ms value or the default.
func (c *TuningConfig) GetPRShortMs() float64 {
	if c.PRShortMs == nil {
		return DefaultPRShortMs
	}
	return *c.PRShortMs
}

// GetPRProlongedMs returns the pr_prolonged_ms value or the default.
func (c *TuningConfig) GetPRProlongedMs() float64 {
	if c.PRProlongedMs == nil {
		return DefaultPRProlongedMs
	}
	return *c.PRProlongedMs
}

// GetQRSWideMs returns the qrs_wide_ms value or the default.
func (c *TuningConfig) GetQRSWideMs() float64 {
	if c.QRSWideMs == nil {
		return DefaultQRSWideMs
	}
	return *c.QRSWideMs
}

// GetQTcProlongedMs returns the qtc_prolonged_ms value or the default.
func (c *TuningConfig) GetQTcProlongedMs() float64 {
	if c.QTcProlongedMs == nil {
		return DefaultQTcProlongedMs
	}
	return *c.QTcProlongedMs
}

// GetQTcProlongedFMs returns the qtc_prolonged_f_ms value or the default.
func (c *TuningConfig) GetQTcProlongedFMs() float64 {
	if c.QTcProlongedFMs == nil {
		return DefaultQTcProlongedFMs
	}
	return *c.QTcProlongedFMs
}

// GetQTcShortMs returns the qtc_short_ms value or the default.
func (c *TuningConfig) GetQTcShortMs() float64 {
	if c.QTcShortMs == nil {
		return DefaultQTcShortMs
	}
	return *c.QTcShortMs
}

// GetSTDeviationMm returns the st_deviation_mm value or the default.
func (c *TuningConfig) GetSTDeviationMm() float64 {
	if c.STDeviationMm == nil {
		return DefaultSTDeviationMm
	}
	return *c.STDeviationMm
}

// GetStressBPMMin returns the stress_bpm_min override, or fallback when unset.
func (c *TuningConfig) GetStressBPMMin(fallback float64) float64 {
	if c.StressBPMMin == nil {
		return fallback
	}
	return *c.StressBPMMin
}

// GetRelaxBPMMax returns the relax_bpm_max override, or fallback when unset.
func (c *TuningConfig) GetRelaxBPMMax(fallback float64) float64 {
	if c.RelaxBPMMax == nil {
		return fallback
	}
	return *c.RelaxBPMMax
}

// GetFatigueBPMMax returns the fatigue_bpm_max override, or fallback when unset.
func (c *TuningConfig) GetFatigueBPMMax(fallback float64) float64 {
	if c.FatigueBPMMax == nil {
		return fallback
	}
	return *c.FatigueBPMMax
}

// GetRelaxRMSSDMinMs returns the relax_rmssd_min_ms override, or fallback when unset.
func (c *TuningConfig) GetRelaxRMSSDMinMs(fallback float64) float64 {
	if c.RelaxRMSSDMinMs == nil {
		return fallback
	}
	return *c.RelaxRMSSDMinMs
}
