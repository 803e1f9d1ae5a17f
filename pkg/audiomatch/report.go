package audiomatch

import (
	"github.com/google/uuid"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/fuse"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// reportMethods maps internal fusion methods onto the wire-format method
// strings consumers of the report act on.
var reportMethods = map[string]string{
	fuse.MethodBothAgree:        model.MethodHybridValidated,
	fuse.MethodPrimaryPreferred: model.MethodHybridDTWPreferred,
	fuse.MethodPrimaryOnly:      model.MethodDTWOnly,
	fuse.MethodSecondaryOnly:    model.MethodSTTOnly,
}

// buildReport assembles the final output record from the pipeline's
// intermediate values.
func buildReport(req MatchRequest, instruction *model.CropInstruction, fused *model.FusedMatch,
	primary *model.AlignmentResult, secondary *model.MatchEstimate) *model.CropReport {

	report := &model.CropReport{
		RunID:      uuid.NewString(),
		SourceFile: req.TrackPath,
		ClipFile:   req.ClipPath,

		CropStart:    instruction.CropStart,
		CropEnd:      instruction.CropEnd,
		CropDuration: instruction.CropEnd - instruction.CropStart,

		MatchStart:  instruction.MatchStart,
		MatchEnd:    instruction.MatchEnd,
		BufferStart: instruction.BufferStart,
		BufferEnd:   instruction.BufferEnd,

		Confidence: instruction.Confidence,
		Method:     reportMethods[fused.Method],
	}

	if primary != nil {
		cost := primary.Cost
		report.DTW = &model.SignalResult{
			Start:      primary.Start,
			End:        primary.End,
			Confidence: primary.Confidence,
			Cost:       &cost,
		}
	}
	if secondary != nil {
		report.STT = &model.SignalResult{
			Start:      secondary.Start,
			End:        secondary.End,
			Confidence: secondary.Confidence,
		}
	}
	return report
}
