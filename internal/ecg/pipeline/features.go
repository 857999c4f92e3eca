package pipeline

// FeatureVectorVersion identifies the feature ordering below. The
// classification collaborator depends on this ordering; any change to the
// field list or order must bump the version.
const FeatureVectorVersion = 1

// featureNames is the frozen field order of the classification vector.
var featureNames = []string{
	"pr_ms",
	"qrs_ms",
	"qt_ms",
	"qtc_ms",
	"st_dev_mm",
	"rmssd_ms",
	"sdnn_ms",
	"pnn50_pct",
	"triangular_index",
	"lf",
	"hf",
	"lf_hf_ratio",
	"bpm",
}

// FeatureNames returns the ordered field names of the classification
// vector.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// Features assembles the numeric vector the classification collaborator
// consumes, in the frozen FeatureNames order. Fields without a value yet
// (unknown intervals, unprimed rate) contribute zero.
func (p *Pipeline) Features() []float64 {
	set := p.Intervals()
	snap := p.HRV()

	bpm := 0.0
	if est := p.Rate(); est != nil {
		bpm = est.Smoothed
	}

	return []float64{
		set.PRMs,
		set.QRSMs,
		set.QTMs,
		set.QTcMs,
		set.STDevMm,
		snap.RMSSD,
		snap.SDNN,
		snap.PNN50,
		snap.TriangularIndex,
		snap.LF,
		snap.HF,
		snap.Ratio,
		bpm,
	}
}
