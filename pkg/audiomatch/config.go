package audiomatch

import (
	"time"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/align"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/crop"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/feature"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/fuse"
)

// Config holds every tunable of the matching pipeline. The constants are
// empirically chosen in the reference behavior and unverified for very
// short or very long clips, so all of them are configuration rather than
// hard-coded.
type Config struct {
	SampleRate  int
	WindowSize  int // STFT window, samples
	HopLength   int // STFT hop, samples
	FeatureType feature.Type

	WindowMultiplier float64 // search window size relative to clip length
	SearchHopDivisor int     // search grid step = clipFrames / divisor
	CostScale        float64 // cost-to-confidence calibration

	AgreementTolerance float64 // seconds
	AgreementBoost     float64

	LeadBuffer float64 // seconds
	TailBuffer float64

	SecondaryTimeout time.Duration

	DBPath    string
	Logger    Logger
	Storage   Storage
	Secondary SecondaryMatcher
}

// Option mutates the config during NewService.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		SampleRate:         feature.DefaultSampleRate,
		WindowSize:         feature.DefaultWindowSize,
		HopLength:          feature.DefaultHopLength,
		FeatureType:        feature.Timbral,
		WindowMultiplier:   align.DefaultWindowMultiplier,
		SearchHopDivisor:   align.DefaultSearchHopDivisor,
		CostScale:          align.DefaultCostScale,
		AgreementTolerance: fuse.DefaultAgreementTolerance,
		AgreementBoost:     fuse.DefaultAgreementBoost,
		LeadBuffer:         crop.DefaultLeadBuffer,
		TailBuffer:         crop.DefaultTailBuffer,
		SecondaryTimeout:   60 * time.Second,
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

func WithWindowSize(samples int) Option {
	return func(c *Config) { c.WindowSize = samples }
}

func WithHopLength(samples int) Option {
	return func(c *Config) { c.HopLength = samples }
}

func WithFeatureType(typ feature.Type) Option {
	return func(c *Config) { c.FeatureType = typ }
}

func WithWindowMultiplier(m float64) Option {
	return func(c *Config) { c.WindowMultiplier = m }
}

func WithSearchHopDivisor(d int) Option {
	return func(c *Config) { c.SearchHopDivisor = d }
}

func WithCostScale(scale float64) Option {
	return func(c *Config) { c.CostScale = scale }
}

func WithAgreementTolerance(seconds float64) Option {
	return func(c *Config) { c.AgreementTolerance = seconds }
}

func WithAgreementBoost(boost float64) Option {
	return func(c *Config) { c.AgreementBoost = boost }
}

func WithBuffers(lead, tail float64) Option {
	return func(c *Config) {
		c.LeadBuffer = lead
		c.TailBuffer = tail
	}
}

func WithSecondaryTimeout(d time.Duration) Option {
	return func(c *Config) { c.SecondaryTimeout = d }
}

func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

func WithStorage(store Storage) Option {
	return func(c *Config) { c.Storage = store }
}

func WithSecondaryMatcher(m SecondaryMatcher) Option {
	return func(c *Config) { c.Secondary = m }
}
