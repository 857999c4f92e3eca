package pipeline

import (
	"github.com/banshee-data/cardio.report/internal/config"
	"github.com/banshee-data/cardio.report/internal/ecg/intervals"
)

// FromTuning derives a pipeline Config from a tuning file, starting from
// the production defaults and overriding whatever the file sets. The
// sample rate propagates into every stage that scales by it.
func FromTuning(t *config.TuningConfig) Config {
	cfg := DefaultConfig()

	fs := t.GetSampleRate()
	cfg.SampleRate = fs
	cfg.BufferCapacity = t.GetBufferCapacity()
	cfg.Stages.SampleRate = fs
	cfg.Detector.SampleRate = fs
	cfg.Fallback.SampleRate = fs
	cfg.Segmenter.SampleRate = fs
	cfg.Intervals.SampleRate = fs
	cfg.Rate.SampleRate = fs

	if t.GetSubjectSex() == string(intervals.SexFemale) {
		cfg.Sex = intervals.SexFemale
	}

	cfg.Detector.RefractoryMs = t.GetRefractoryMs()

	cfg.Rate.MinBPM = t.GetMinBPM()
	cfg.Rate.MaxBPM = t.GetMaxBPM()
	cfg.Rate.SmoothingWindow = t.GetSmoothingWindow()
	cfg.Rate.SlewCapBPM = t.GetSlewCapBPM()

	cfg.HRV.RRMinMs = t.GetRRMinMs()
	cfg.HRV.RRMaxMs = t.GetRRMaxMs()
	cfg.HRV.Capacity = t.GetHRVCapacity()
	cfg.HRV.ReadyMinSamples = t.GetHRVReadyMinSamples()
	cfg.HRV.FrequencyMinSamples = t.GetHRVReadyMinSamples()

	cfg.Intervals.PRShortMs = t.GetPRShortMs()
	cfg.Intervals.PRProlongedMs = t.GetPRProlongedMs()
	cfg.Intervals.QRSWideMs = t.GetQRSWideMs()
	cfg.Intervals.QTcProlongedMs = t.GetQTcProlongedMs()
	cfg.Intervals.QTcProlongedFMs = t.GetQTcProlongedFMs()
	cfg.Intervals.QTcShortMs = t.GetQTcShortMs()
	cfg.Intervals.STDeviationMm = t.GetSTDeviationMm()

	st := cfg.HRV.States
	st.StressBPMMin = t.GetStressBPMMin(st.StressBPMMin)
	st.RelaxBPMMax = t.GetRelaxBPMMax(st.RelaxBPMMax)
	st.FatigueBPMMax = t.GetFatigueBPMMax(st.FatigueBPMMax)
	st.RelaxRMSSDMinMs = t.GetRelaxRMSSDMinMs(st.RelaxRMSSDMinMs)
	cfg.HRV.States = st

	return cfg
}
