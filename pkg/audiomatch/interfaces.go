package audiomatch

import (
	"context"
	"errors"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// ErrSecondaryUnavailable signals the normal absence of the secondary
// matching signal (tool missing, timeout, malformed output). It is not a
// failure: the pipeline degrades to primary-only operation and at most
// logs a warning. Check with errors.Is.
var ErrSecondaryUnavailable = errors.New("secondary matcher unavailable")

// SecondaryMatcher produces an independent match estimate for the clip
// from an externally supplied transcript/segment catalog. The core never
// implements transcript matching; it only consumes this optional result.
// Implementations report absence by returning an error wrapping
// ErrSecondaryUnavailable.
type SecondaryMatcher interface {
	Match(ctx context.Context, clipPath, segmentsPath string) (*model.MatchEstimate, error)
}

// Storage persists completed match runs.
type Storage interface {
	SaveRun(report *model.CropReport) error
	ListRuns(limit int) ([]model.CropReport, error)
	Close() error
}

// Logger is the logging interface consumed by the service.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
