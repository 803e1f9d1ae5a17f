// Package audiomatch locates a short audio clip within a longer recording
// and produces crop boundaries for downstream processing. The primary
// signal is a windowed time-warped alignment over normalized spectral
// features; an optional secondary matcher cross-checks it, and the two
// estimates are fused into one reported range with a confidence score.
package audiomatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/align"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/crop"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/feature"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/fuse"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/storage"
	"github.com/techno-hippies/karaoke-school/pkg/logger"
)

// Service runs the matching pipeline. One call to Match processes one
// (clip, track[, transcript]) triple start to finish; every intermediate
// value is computed once and never mutated.
type Service struct {
	cfg       *Config
	log       Logger
	store     Storage
	secondary SecondaryMatcher
}

// NewService builds a service from functional options.
func NewService(opts ...Option) (*Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	store := cfg.Storage
	if store == nil && cfg.DBPath != "" {
		var err error
		store, err = storage.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening run store: %w", err)
		}
	}

	return &Service{
		cfg:       cfg,
		log:       cfg.Logger,
		store:     store,
		secondary: cfg.Secondary,
	}, nil
}

// MatchRequest is one matching run's input. Clip and Track are decoded
// mono PCM at the same sample rate; the path fields are optional metadata
// recorded in the report, with SegmentsPath doubling as the opaque
// catalog handed to the secondary matcher.
type MatchRequest struct {
	Clip  model.AudioSignal
	Track model.AudioSignal

	ClipPath     string
	TrackPath    string
	SegmentsPath string
}

// Match locates the clip within the track and returns the crop report.
// Absence of the secondary signal is never fatal; any other stage failure
// aborts the run without emitting a partial report.
func (s *Service) Match(ctx context.Context, req MatchRequest) (*model.CropReport, error) {
	if req.Clip.SampleRate != req.Track.SampleRate {
		return nil, fmt.Errorf("sample rate mismatch: clip %d Hz, track %d Hz",
			req.Clip.SampleRate, req.Track.SampleRate)
	}
	if s.cfg.SampleRate != 0 && req.Clip.SampleRate != s.cfg.SampleRate {
		s.log.Warnf("Input sample rate %d Hz differs from configured %d Hz",
			req.Clip.SampleRate, s.cfg.SampleRate)
	}

	s.log.Infof("Matching clip (%.1fs) against track (%.1fs), features=%s",
		req.Clip.Duration(), req.Track.Duration(), s.cfg.FeatureType)

	clipSeq, err := feature.Extract(req.Clip, s.cfg.FeatureType, s.cfg.WindowSize, s.cfg.HopLength)
	if err != nil {
		return nil, fmt.Errorf("extracting clip features (%d samples): %w", len(req.Clip.Samples), err)
	}
	trackSeq, err := feature.Extract(req.Track, s.cfg.FeatureType, s.cfg.WindowSize, s.cfg.HopLength)
	if err != nil {
		return nil, fmt.Errorf("extracting track features (%d samples): %w", len(req.Track.Samples), err)
	}

	primary, err := align.Align(ctx, clipSeq, trackSeq, req.Clip.Duration(), align.Options{
		WindowMultiplier: s.cfg.WindowMultiplier,
		SearchHopDivisor: s.cfg.SearchHopDivisor,
		CostScale:        s.cfg.CostScale,
	})
	if err != nil {
		return nil, fmt.Errorf("aligning (clip %d frames, track %d frames): %w",
			clipSeq.Len(), trackSeq.Len(), err)
	}
	s.log.Infof("DTW match: %.1fs - %.1fs (cost %.3f, confidence %.1f%%)",
		primary.Start, primary.End, primary.Cost, primary.Confidence*100)

	secondary := s.runSecondary(ctx, req)

	fused, err := fuse.Fuse(&primary.MatchEstimate, secondary, fuse.Options{
		AgreementTolerance: s.cfg.AgreementTolerance,
		AgreementBoost:     s.cfg.AgreementBoost,
	})
	if err != nil {
		return nil, fmt.Errorf("fusing estimates: %w", err)
	}
	s.log.Infof("Fused match: %.1fs - %.1fs via %s", fused.Start, fused.End, fused.Method)

	instruction, err := crop.Calculate(fused.Start, fused.End, req.Track.Duration(),
		s.cfg.LeadBuffer, s.cfg.TailBuffer, fused.Confidence)
	if err != nil {
		return nil, fmt.Errorf("calculating crop boundaries: %w", err)
	}

	report := buildReport(req, instruction, fused, primary, secondary)

	if s.store != nil {
		if err := s.store.SaveRun(report); err != nil {
			// The report is still valid for the caller; persistence is a
			// side channel for the run history.
			s.log.Errorf("Failed to store run %s: %v", report.RunID, err)
		}
	}

	return report, nil
}

// runSecondary invokes the secondary matcher under the configured
// deadline. All failure modes collapse to absence.
func (s *Service) runSecondary(ctx context.Context, req MatchRequest) *model.MatchEstimate {
	if s.secondary == nil || req.SegmentsPath == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SecondaryTimeout)
	defer cancel()

	est, err := s.secondary.Match(ctx, req.ClipPath, req.SegmentsPath)
	if err != nil {
		if errors.Is(err, ErrSecondaryUnavailable) {
			s.log.Warnf("Secondary matcher unavailable: %v", err)
		} else {
			s.log.Warnf("Secondary matcher failed: %v", err)
		}
		return nil
	}
	s.log.Infof("Secondary match: %.1fs - %.1fs (confidence %.1f%%)",
		est.Start, est.End, est.Confidence*100)
	return est
}

// History returns up to limit stored runs, newest first.
func (s *Service) History(limit int) ([]model.CropReport, error) {
	if s.store == nil {
		return nil, errors.New("no run store configured")
	}
	return s.store.ListRuns(limit)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
