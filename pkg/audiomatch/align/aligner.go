// Package align locates the sub-region of a full recording's feature
// sequence that best matches a clip's sequence under time warping. A
// coarse sliding-window search bounds the cost of full DTW over an
// arbitrarily long recording.
package align

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/feature"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// Search tunables. Empirically chosen in the reference pipeline; exposed
// as options because they are unverified for very short or very long clips.
const (
	// DefaultWindowMultiplier sizes each candidate window relative to the
	// clip, leaving slack for tempo drift.
	DefaultWindowMultiplier = 1.5

	// DefaultSearchHopDivisor steps the window by clipLen/divisor frames,
	// a 75% overlap search grid at the default.
	DefaultSearchHopDivisor = 4

	// DefaultCostScale separates good from poor normalized DTW costs when
	// mapping cost to confidence.
	DefaultCostScale = 5.0
)

// Options tune the windowed search. Zero values fall back to the defaults.
type Options struct {
	WindowMultiplier float64
	SearchHopDivisor int
	CostScale        float64
}

func (o Options) withDefaults() Options {
	if o.WindowMultiplier <= 0 {
		o.WindowMultiplier = DefaultWindowMultiplier
	}
	if o.SearchHopDivisor <= 0 {
		o.SearchHopDivisor = DefaultSearchHopDivisor
	}
	if o.CostScale <= 0 {
		o.CostScale = DefaultCostScale
	}
	return o
}

// TrackTooShortError reports a full track with fewer frames than one
// search window, leaving no candidate offsets to evaluate. Fatal.
type TrackTooShortError struct {
	TrackFrames  int
	WindowFrames int
}

func (e *TrackTooShortError) Error() string {
	return fmt.Sprintf("track too short: %d frames, search window needs %d",
		e.TrackFrames, e.WindowFrames)
}

// Align finds the lowest-cost time-warped match of clip inside full.
// clipDuration is the clip's own length in seconds; the reported end time
// is start + clipDuration so the crop tracks the clip, not the warp.
//
// Candidate offsets are evaluated concurrently; each evaluation touches
// no shared state, and the reduction picks the strictly lowest cost with
// ties broken by lowest offset index, so the result is identical to a
// serial scan regardless of completion order.
func Align(ctx context.Context, clip, full *feature.Sequence, clipDuration float64, opts Options) (*model.AlignmentResult, error) {
	opts = opts.withDefaults()

	if clip.Dim() != full.Dim() {
		return nil, fmt.Errorf("feature dimensionality mismatch: clip %d, track %d", clip.Dim(), full.Dim())
	}

	clipLen := clip.Len()
	fullLen := full.Len()
	windowSize := int(math.Ceil(float64(clipLen) * opts.WindowMultiplier))
	if fullLen < windowSize {
		return nil, &TrackTooShortError{TrackFrames: fullLen, WindowFrames: windowSize}
	}

	hopSize := clipLen / opts.SearchHopDivisor
	if hopSize < 1 {
		hopSize = 1
	}

	offsets := make([]int, 0, (fullLen-windowSize)/hopSize+1)
	for i := 0; i+windowSize <= fullLen; i += hopSize {
		offsets = append(offsets, i)
	}

	results := make([]dtwResult, len(offsets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, offset := range offsets {
		idx, offset := idx, offset
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = dtw(clip.Frames, full.Frames[offset:offset+windowSize])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("windowed search: %w", err)
	}

	// Best-of reduction in offset order: first-seen wins ties.
	best := 0
	bestCost := normalizedCost(results[0])
	for idx := 1; idx < len(results); idx++ {
		if c := normalizedCost(results[idx]); c < bestCost {
			best = idx
			bestCost = c
		}
	}

	startFrame := offsets[best] + results[best].startCol
	startTime := full.FrameTime(startFrame)

	return &model.AlignmentResult{
		MatchEstimate: model.MatchEstimate{
			Start:      startTime,
			End:        startTime + clipDuration,
			Confidence: Confidence(bestCost, opts.CostScale),
			Source:     "dtw",
		},
		Cost:        bestCost,
		FeatureType: string(clip.Type),
	}, nil
}

func normalizedCost(r dtwResult) float64 {
	return r.cost / float64(r.pathLen)
}

// Confidence maps a normalized DTW cost into [0, 1]. A calibration
// heuristic, not a probability: cost 0 is 1.0, cost >= scale is 0.0, and
// the mapping is monotonically non-increasing in cost.
func Confidence(cost, scale float64) float64 {
	c := 1.0 - cost/scale
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
