package hrv

import "gonum.org/v1/gonum/stat"

// Physiological state labels.
const (
	StateAnalyzing  = "Analyzing"
	StateHighStress = "High Stress"
	StateRelaxed    = "Relaxed"
	StateFocused    = "Focused"
	StateFatigue    = "Fatigue"
	StateNeutral    = "Neutral"
)

// StateThresholds holds every cut point the physiological-state rules use.
// Kept as configuration so the rules can be tuned without touching the
// classifier.
type StateThresholds struct {
	FatigueRMSSDMaxMs float64 // fatigue: depressed variability
	FatigueSDNNMaxMs  float64
	FatigueBPMMax     float64

	StressRMSSDMaxMs float64 // stress: low variability with sympathetic push
	StressRatioMin   float64
	StressBPMMin     float64

	RelaxRMSSDMinMs float64 // relaxed: high variability, low rate
	RelaxRatioMax   float64
	RelaxBPMMax     float64

	FocusBPMMin     float64 // focused: steady mid-range rate, narrow spread
	FocusBPMMax     float64
	FocusSDNNMaxMs  float64
	FocusEntropyMax float64

	ConfidenceFloor float64 // confidence range for any decided state
	ConfidenceCeil  float64
}

// DefaultStateThresholds returns the production rule cut points.
func DefaultStateThresholds() StateThresholds {
	return StateThresholds{
		FatigueRMSSDMaxMs: 20,
		FatigueSDNNMaxMs:  25,
		FatigueBPMMax:     65,

		StressRMSSDMaxMs: 25,
		StressRatioMin:   2.0,
		StressBPMMin:     90,

		RelaxRMSSDMinMs: 45,
		RelaxRatioMax:   1.5,
		RelaxBPMMax:     75,

		FocusBPMMin:     70,
		FocusBPMMax:     95,
		FocusSDNNMaxMs:  50,
		FocusEntropyMax: 0.15,

		ConfidenceFloor: 0.6,
		ConfidenceCeil:  0.95,
	}
}

// classifyState runs the fixed rule cascade over the snapshot statistics.
// Below the readiness gate it reports Analyzing with zero confidence.
// Confidence for a decided state scales with the distance to the nearest
// threshold that rule depends on, clamped to [floor, ceil].
func classifyState(s Snapshot, rr []float64, cfg Config) PhysiologicalState {
	if len(rr) < cfg.ReadyMinSamples {
		return PhysiologicalState{State: StateAnalyzing, Confidence: 0}
	}

	th := cfg.States
	bpm := 60000 / stat.Mean(rr, nil)
	// Entropy proxy: inverse modal concentration of the RR histogram,
	// normalized by the sample count. Near 0 means a tight distribution.
	entropy := s.TriangularIndex / float64(len(rr))

	// Rules are evaluated most-specific first; the first match wins.
	if s.RMSSD < th.FatigueRMSSDMaxMs && s.SDNN < th.FatigueSDNNMaxMs && bpm < th.FatigueBPMMax {
		margin := minMargin(
			belowMargin(s.RMSSD, th.FatigueRMSSDMaxMs),
			belowMargin(s.SDNN, th.FatigueSDNNMaxMs),
			belowMargin(bpm, th.FatigueBPMMax),
		)
		return PhysiologicalState{State: StateFatigue, Confidence: confidence(margin, th)}
	}

	if s.RMSSD < th.StressRMSSDMaxMs && (s.Ratio > th.StressRatioMin || bpm > th.StressBPMMin) {
		margin := belowMargin(s.RMSSD, th.StressRMSSDMaxMs)
		if s.Ratio > th.StressRatioMin {
			margin = minMargin(margin, aboveMargin(s.Ratio, th.StressRatioMin))
		} else {
			margin = minMargin(margin, aboveMargin(bpm, th.StressBPMMin))
		}
		return PhysiologicalState{State: StateHighStress, Confidence: confidence(margin, th)}
	}

	if s.RMSSD > th.RelaxRMSSDMinMs && s.Ratio < th.RelaxRatioMax && bpm < th.RelaxBPMMax {
		margin := minMargin(
			aboveMargin(s.RMSSD, th.RelaxRMSSDMinMs),
			belowMargin(s.Ratio, th.RelaxRatioMax),
			belowMargin(bpm, th.RelaxBPMMax),
		)
		return PhysiologicalState{State: StateRelaxed, Confidence: confidence(margin, th)}
	}

	if bpm >= th.FocusBPMMin && bpm <= th.FocusBPMMax &&
		s.SDNN < th.FocusSDNNMaxMs && entropy < th.FocusEntropyMax {
		margin := minMargin(
			aboveMargin(bpm, th.FocusBPMMin),
			belowMargin(bpm, th.FocusBPMMax),
			belowMargin(s.SDNN, th.FocusSDNNMaxMs),
			belowMargin(entropy, th.FocusEntropyMax),
		)
		return PhysiologicalState{State: StateFocused, Confidence: confidence(margin, th)}
	}

	return PhysiologicalState{State: StateNeutral, Confidence: th.ConfidenceFloor}
}

// belowMargin is the normalized slack of a value under its threshold.
func belowMargin(v, threshold float64) float64 {
	if threshold == 0 {
		return 0
	}
	return (threshold - v) / threshold
}

// aboveMargin is the normalized slack of a value over its threshold.
func aboveMargin(v, threshold float64) float64 {
	if threshold == 0 {
		return 0
	}
	return (v - threshold) / threshold
}

func minMargin(margins ...float64) float64 {
	min := margins[0]
	for _, m := range margins[1:] {
		if m < min {
			min = m
		}
	}
	return min
}

// confidence maps a normalized margin onto [floor, ceil]: a rule satisfied
// right at its threshold reports floor, a comfortably satisfied rule
// approaches ceil.
func confidence(margin float64, th StateThresholds) float64 {
	if margin < 0 {
		margin = 0
	}
	if margin > 1 {
		margin = 1
	}
	return th.ConfidenceFloor + (th.ConfidenceCeil-th.ConfidenceFloor)*margin
}
