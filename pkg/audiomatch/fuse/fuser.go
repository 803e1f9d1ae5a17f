// Package fuse reconciles the aligner's estimate with the optional
// secondary estimate into one final match plus a provenance tag.
//
// Fusion is an ordered list of strategies evaluated until one applies,
// so adding a new signal source means adding a strategy, not
// restructuring conditionals.
package fuse

import (
	"math"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// Fusion methods, in the order strategies are tried.
const (
	MethodBothAgree        = "both_agree"
	MethodPrimaryPreferred = "primary_preferred"
	MethodPrimaryOnly      = "primary_only"
	MethodSecondaryOnly    = "secondary_only"
)

// Fusion tunables, from the reference pipeline.
const (
	// DefaultAgreementTolerance is the largest start/end delta (seconds)
	// at which the two estimates are considered to agree.
	DefaultAgreementTolerance = 5.0

	// DefaultAgreementBoost multiplies the mean confidence when both
	// estimates agree, capped at 1.0.
	DefaultAgreementBoost = 1.1
)

// Options tune agreement detection. Zero values fall back to the defaults.
type Options struct {
	AgreementTolerance float64
	AgreementBoost     float64
}

func (o Options) withDefaults() Options {
	if o.AgreementTolerance <= 0 {
		o.AgreementTolerance = DefaultAgreementTolerance
	}
	if o.AgreementBoost <= 0 {
		o.AgreementBoost = DefaultAgreementBoost
	}
	return o
}

// NoMatchFoundError reports that neither signal produced an estimate.
// Fatal: there is nothing to report.
type NoMatchFoundError struct{}

func (e *NoMatchFoundError) Error() string {
	return "no match found: both primary and secondary signals unavailable"
}

// strategy pairs an applicability test with the fusion it performs. A
// strategy may also decline by returning nil from fuse, which passes
// evaluation to the next entry.
type strategy struct {
	method     string
	applicable func(primary, secondary *model.MatchEstimate) bool
	fuse       func(primary, secondary *model.MatchEstimate, opts Options) *model.FusedMatch
}

func orderedStrategies() []strategy {
	return []strategy{
		{
			method: MethodBothAgree,
			applicable: func(p, s *model.MatchEstimate) bool { return p != nil && s != nil },
			fuse: func(p, s *model.MatchEstimate, opts Options) *model.FusedMatch {
				startDelta := math.Abs(p.Start - s.Start)
				endDelta := math.Abs(p.End - s.End)
				if startDelta >= opts.AgreementTolerance || endDelta >= opts.AgreementTolerance {
					return nil
				}
				return &model.FusedMatch{
					Start:      (p.Start + s.Start) / 2,
					End:        (p.End + s.End) / 2,
					Confidence: math.Min(1.0, (p.Confidence+s.Confidence)/2*opts.AgreementBoost),
					Method:     MethodBothAgree,
				}
			},
		},
		{
			method:     MethodPrimaryPreferred,
			applicable: func(p, s *model.MatchEstimate) bool { return p != nil && s != nil },
			fuse: func(p, s *model.MatchEstimate, opts Options) *model.FusedMatch {
				// Primary is trusted for timing precision on disagreement.
				return &model.FusedMatch{
					Start:      p.Start,
					End:        p.End,
					Confidence: p.Confidence,
					Method:     MethodPrimaryPreferred,
				}
			},
		},
		{
			method:     MethodPrimaryOnly,
			applicable: func(p, s *model.MatchEstimate) bool { return p != nil },
			fuse: func(p, s *model.MatchEstimate, opts Options) *model.FusedMatch {
				return &model.FusedMatch{
					Start:      p.Start,
					End:        p.End,
					Confidence: p.Confidence,
					Method:     MethodPrimaryOnly,
				}
			},
		},
		{
			method:     MethodSecondaryOnly,
			applicable: func(p, s *model.MatchEstimate) bool { return s != nil },
			fuse: func(p, s *model.MatchEstimate, opts Options) *model.FusedMatch {
				return &model.FusedMatch{
					Start:      s.Start,
					End:        s.End,
					Confidence: s.Confidence,
					Method:     MethodSecondaryOnly,
				}
			},
		},
	}
}

// Fuse combines the primary (aligner) and secondary (collaborator)
// estimates. Either may be nil; both nil is a NoMatchFoundError.
func Fuse(primary, secondary *model.MatchEstimate, opts Options) (*model.FusedMatch, error) {
	opts = opts.withDefaults()

	for _, s := range orderedStrategies() {
		if !s.applicable(primary, secondary) {
			continue
		}
		fused := s.fuse(primary, secondary, opts)
		if fused == nil {
			continue
		}
		if primary != nil && secondary != nil {
			delta := math.Max(math.Abs(primary.Start-secondary.Start), math.Abs(primary.End-secondary.End))
			fused.DisagreementDelta = &delta
		}
		return fused, nil
	}
	return nil, &NoMatchFoundError{}
}
