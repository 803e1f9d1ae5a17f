// Package crop expands a matched time range into clamped crop boundaries
// with lead and tail padding for musical pickup notes and reverb tails.
package crop

import (
	"fmt"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// Default padding, from the reference pipeline: pickup/intro notes before
// the phrase and sustain after it.
const (
	DefaultLeadBuffer = 2.0
	DefaultTailBuffer = 2.5
)

// InvalidMatchRangeError reports a match range that violates the pipeline
// invariants (start < end, times within the track). Fatal: it indicates a
// bug upstream and is never silently clamped.
type InvalidMatchRangeError struct {
	MatchStart   float64
	MatchEnd     float64
	FullDuration float64
}

func (e *InvalidMatchRangeError) Error() string {
	return fmt.Sprintf("invalid match range: start=%.3f end=%.3f duration=%.3f",
		e.MatchStart, e.MatchEnd, e.FullDuration)
}

// Calculate produces crop boundaries for a match range within a track of
// fullDuration seconds. lead and tail fall back to the defaults when
// non-positive, and are shrunk at the track edges so that the output
// always satisfies 0 <= CropStart < CropEnd <= fullDuration.
func Calculate(matchStart, matchEnd, fullDuration, lead, tail, confidence float64) (*model.CropInstruction, error) {
	if matchStart < 0 || matchStart >= matchEnd || matchEnd > fullDuration {
		return nil, &InvalidMatchRangeError{
			MatchStart:   matchStart,
			MatchEnd:     matchEnd,
			FullDuration: fullDuration,
		}
	}

	if lead <= 0 {
		lead = DefaultLeadBuffer
	}
	if tail <= 0 {
		tail = DefaultTailBuffer
	}

	if matchStart < lead {
		lead = matchStart
	}
	if matchEnd+tail > fullDuration {
		tail = fullDuration - matchEnd
	}

	return &model.CropInstruction{
		MatchStart:  matchStart,
		MatchEnd:    matchEnd,
		BufferStart: lead,
		BufferEnd:   tail,
		CropStart:   matchStart - lead,
		CropEnd:     matchEnd + tail,
		Confidence:  confidence,
	}, nil
}
