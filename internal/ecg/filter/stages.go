package filter

// StagesConfig holds the front-end filter design parameters.
type StagesConfig struct {
	SampleRate float64 // Hz
	NotchFreq  float64 // power-line frequency to reject (Hz)
	NotchQ     float64 // notch quality factor (narrowness)
	BandLow    float64 // band-pass low corner (Hz)
	BandHigh   float64 // band-pass high corner (Hz)
}

// DefaultStagesConfig returns the production front-end parameters: a 50 Hz
// power-line notch and a 0.5-40 Hz passband at 250 Hz sampling.
func DefaultStagesConfig() StagesConfig {
	return StagesConfig{
		SampleRate: 250,
		NotchFreq:  50,
		NotchQ:     30,
		BandLow:    0.5,
		BandHigh:   40,
	}
}

// Stages is the two-stage cascade run over every incoming sample: stage 1
// rejects the power-line band, stage 2 shapes the passband. Each stage
// carries its own delay line; a Stages instance is owned by a single
// ingestion path.
type Stages struct {
	notch *Section
	band  *Section
}

// NewStages builds the cascade from the given design parameters.
func NewStages(cfg StagesConfig) *Stages {
	return &Stages{
		notch: NewSection(Notch(cfg.SampleRate, cfg.NotchFreq, cfg.NotchQ)),
		band:  NewSection(Bandpass(cfg.SampleRate, cfg.BandLow, cfg.BandHigh)),
	}
}

// Process runs one sample through both stages in series.
func (s *Stages) Process(x float64) float64 {
	return s.band.Process(s.notch.Process(x))
}

// Reset clears both delay lines.
func (s *Stages) Reset() {
	s.notch.Reset()
	s.band.Reset()
}
