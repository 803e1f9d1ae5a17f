package model

// AudioSignal is a decoded mono recording: normalized samples in [-1, 1]
// at a fixed sample rate. Values are computed once and never mutated;
// the matching pipeline treats every signal as read-only.
type AudioSignal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s AudioSignal) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// MatchEstimate is the common shape produced by both the DTW aligner and
// the secondary (transcript-based) matcher: a time range in the full
// recording plus a calibrated confidence.
type MatchEstimate struct {
	Start      float64 // seconds into the full recording
	End        float64
	Confidence float64 // [0, 1]
	Source     string  // "dtw" or "stt"
}

// AlignmentResult is the aligner's estimate together with the raw
// normalized DTW cost that produced the confidence.
type AlignmentResult struct {
	MatchEstimate
	Cost        float64 // total path cost / path length
	FeatureType string
}

// FusedMatch is the reconciled estimate after combining the primary and
// secondary signals, tagged with the strategy that produced it.
type FusedMatch struct {
	Start      float64
	End        float64
	Confidence float64
	Method     string // both_agree, primary_preferred, primary_only, secondary_only

	// DisagreementDelta is max(|startDelta|, |endDelta|) between the two
	// estimates. Nil unless both estimates were present.
	DisagreementDelta *float64
}

// CropInstruction expands a matched range into clamped crop boundaries.
// For any valid match range, 0 <= CropStart < CropEnd <= full duration.
type CropInstruction struct {
	MatchStart  float64
	MatchEnd    float64
	BufferStart float64 // seconds of lead actually applied
	BufferEnd   float64 // seconds of tail actually applied
	CropStart   float64
	CropEnd     float64
	Confidence  float64
}
