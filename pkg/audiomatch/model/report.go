package model

// Reported method values. These are the wire-format strings consumers of
// the crop report act on; the internal fusion methods map onto them.
const (
	MethodDTWOnly            = "dtw_only"
	MethodHybridValidated    = "hybrid_validated"
	MethodHybridDTWPreferred = "hybrid_dtw_preferred"
	MethodSTTOnly            = "stt_only"
)

// SignalResult is the raw sub-result from one matching signal, preserved
// in the report so consumers can audit how the fused range was reached.
type SignalResult struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Confidence float64  `json:"confidence"`
	Cost       *float64 `json:"cost,omitempty"` // DTW only
}

// CropReport is the final output record of a matching run: the crop
// boundaries the downstream pipeline cuts at, the underlying match range,
// and the evidence from each signal.
type CropReport struct {
	RunID      string `json:"run_id"`
	SourceFile string `json:"source_file,omitempty"`
	ClipFile   string `json:"clip_file,omitempty"`

	CropStart    float64 `json:"crop_start"`
	CropEnd      float64 `json:"crop_end"`
	CropDuration float64 `json:"crop_duration"`

	MatchStart  float64 `json:"match_start"`
	MatchEnd    float64 `json:"match_end"`
	BufferStart float64 `json:"buffer_start"`
	BufferEnd   float64 `json:"buffer_end"`

	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`

	DTW *SignalResult `json:"dtw"`
	STT *SignalResult `json:"stt"`
}
