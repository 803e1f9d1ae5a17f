package audiomatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

const (
	testRate       = 8000
	testWindowSize = 1024
	testHopLength  = 256
)

// chirp synthesizes a frequency sweep so consecutive analysis frames are
// distinguishable and a clip copied from it localizes unambiguously.
func chirp(duration float64, rate int) model.AudioSignal {
	n := int(duration * float64(rate))
	samples := make([]float64, n)
	phase := 0.0
	for i := range samples {
		t := float64(i) / float64(rate)
		freq := 200.0 + 100.0*t
		phase += 2 * math.Pi * freq / float64(rate)
		samples[i] = 0.8 * math.Sin(phase)
	}
	return model.AudioSignal{Samples: samples, SampleRate: rate}
}

// clipFrom copies a hop-aligned region of the track so the clip's frames
// coincide exactly with the track's.
func clipFrom(track model.AudioSignal, startSample, numSamples int) model.AudioSignal {
	samples := make([]float64, numSamples)
	copy(samples, track.Samples[startSample:startSample+numSamples])
	return model.AudioSignal{Samples: samples, SampleRate: track.SampleRate}
}

type testLogger struct{ t *testing.T }

func (l testLogger) Infof(format string, args ...any)  { l.t.Logf("INFO  "+format, args...) }
func (l testLogger) Warnf(format string, args ...any)  { l.t.Logf("WARN  "+format, args...) }
func (l testLogger) Errorf(format string, args ...any) { l.t.Logf("ERROR "+format, args...) }
func (l testLogger) Debugf(format string, args ...any) { l.t.Logf("DEBUG "+format, args...) }

type fakeSecondary struct {
	est   *model.MatchEstimate
	err   error
	calls int
}

func (f *fakeSecondary) Match(ctx context.Context, clipPath, segmentsPath string) (*model.MatchEstimate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.est, nil
}

type fakeStore struct {
	saved   []*model.CropReport
	saveErr error
}

func (f *fakeStore) SaveRun(report *model.CropReport) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, report)
	return nil
}

func (f *fakeStore) ListRuns(limit int) ([]model.CropReport, error) {
	out := make([]model.CropReport, 0, len(f.saved))
	for _, r := range f.saved {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) Close() error { return nil }

func newTestService(t *testing.T, extra ...Option) *Service {
	t.Helper()
	opts := append([]Option{
		WithSampleRate(testRate),
		WithWindowSize(testWindowSize),
		WithHopLength(testHopLength),
		WithLogger(testLogger{t}),
	}, extra...)
	svc, err := NewService(opts...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

// The clip starts at sample 24064, a multiple of the hop length, so the
// true match start lands exactly on frame 94 = 3.008s.
const (
	clipStartSample = 24064
	clipNumSamples  = 3 * testRate
	wantMatchStart  = float64(clipStartSample) / float64(testRate)
)

func testRequest(track model.AudioSignal, segmentsPath string) MatchRequest {
	return MatchRequest{
		Clip:         clipFrom(track, clipStartSample, clipNumSamples),
		Track:        track,
		ClipPath:     "clip.wav",
		TrackPath:    "track.wav",
		SegmentsPath: segmentsPath,
	}
}

func TestMatchDTWOnly(t *testing.T) {
	svc := newTestService(t)
	track := chirp(30, testRate)

	report, err := svc.Match(context.Background(), testRequest(track, ""))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if report.Method != model.MethodDTWOnly {
		t.Errorf("Method = %q, want %q", report.Method, model.MethodDTWOnly)
	}
	if math.Abs(report.MatchStart-wantMatchStart) > 1e-6 {
		t.Errorf("MatchStart = %f, want %f", report.MatchStart, wantMatchStart)
	}
	if math.Abs(report.MatchEnd-(wantMatchStart+3.0)) > 1e-6 {
		t.Errorf("MatchEnd = %f, want %f", report.MatchEnd, wantMatchStart+3.0)
	}
	if report.Confidence < 0.5 {
		t.Errorf("Confidence = %f, want >= 0.5 for an exact copy", report.Confidence)
	}
	if report.DTW == nil {
		t.Fatal("DTW signal result missing")
	}
	if report.DTW.Cost == nil {
		t.Error("DTW cost missing")
	}
	if report.STT != nil {
		t.Error("STT signal result should be absent without a secondary matcher")
	}

	// Crop boundaries carry the default buffers, clamped to the track.
	if math.Abs(report.CropStart-(report.MatchStart-2.0)) > 1e-6 {
		t.Errorf("CropStart = %f, want match start minus lead buffer", report.CropStart)
	}
	if math.Abs(report.CropEnd-(report.MatchEnd+2.5)) > 1e-6 {
		t.Errorf("CropEnd = %f, want match end plus tail buffer", report.CropEnd)
	}
	if math.Abs(report.CropDuration-(report.CropEnd-report.CropStart)) > 1e-9 {
		t.Errorf("CropDuration = %f, inconsistent with bounds", report.CropDuration)
	}
	if report.RunID == "" {
		t.Error("RunID not assigned")
	}
}

func TestMatchHybridValidated(t *testing.T) {
	track := chirp(30, testRate)
	secondary := &fakeSecondary{
		est: &model.MatchEstimate{Start: 3.5, End: 6.5, Confidence: 0.8, Source: "stt"},
	}
	svc := newTestService(t, WithSecondaryMatcher(secondary))

	report, err := svc.Match(context.Background(), testRequest(track, "segments.json"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if secondary.calls != 1 {
		t.Errorf("Secondary called %d times, want 1", secondary.calls)
	}
	if report.Method != model.MethodHybridValidated {
		t.Errorf("Method = %q, want %q", report.Method, model.MethodHybridValidated)
	}
	// Fused start is the mean of the two estimates.
	wantStart := (wantMatchStart + 3.5) / 2
	if math.Abs(report.MatchStart-wantStart) > 1e-6 {
		t.Errorf("MatchStart = %f, want %f", report.MatchStart, wantStart)
	}
	if report.STT == nil {
		t.Fatal("STT signal result missing")
	}
	if report.STT.Start != 3.5 || report.STT.End != 6.5 {
		t.Errorf("STT result = [%f, %f], want [3.5, 6.5]", report.STT.Start, report.STT.End)
	}
	if report.STT.Cost != nil {
		t.Error("STT result should carry no alignment cost")
	}
}

func TestMatchHybridDTWPreferred(t *testing.T) {
	track := chirp(30, testRate)
	secondary := &fakeSecondary{
		est: &model.MatchEstimate{Start: 20.0, End: 23.0, Confidence: 0.7, Source: "stt"},
	}
	svc := newTestService(t, WithSecondaryMatcher(secondary))

	report, err := svc.Match(context.Background(), testRequest(track, "segments.json"))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if report.Method != model.MethodHybridDTWPreferred {
		t.Errorf("Method = %q, want %q", report.Method, model.MethodHybridDTWPreferred)
	}
	if math.Abs(report.MatchStart-wantMatchStart) > 1e-6 {
		t.Errorf("MatchStart = %f, want unchanged primary %f", report.MatchStart, wantMatchStart)
	}
	if report.STT == nil {
		t.Error("Disagreeing secondary estimate should still be reported")
	}
}

func TestMatchSecondaryUnavailable(t *testing.T) {
	track := chirp(30, testRate)
	secondary := &fakeSecondary{
		err: fmt.Errorf("tool missing: %w", ErrSecondaryUnavailable),
	}
	svc := newTestService(t, WithSecondaryMatcher(secondary))

	report, err := svc.Match(context.Background(), testRequest(track, "segments.json"))
	if err != nil {
		t.Fatalf("Match should degrade, not fail: %v", err)
	}

	if report.Method != model.MethodDTWOnly {
		t.Errorf("Method = %q, want %q when secondary is unavailable", report.Method, model.MethodDTWOnly)
	}
	if report.STT != nil {
		t.Error("STT signal result should be absent on unavailability")
	}
}

func TestMatchSecondarySkippedWithoutSegments(t *testing.T) {
	track := chirp(30, testRate)
	secondary := &fakeSecondary{
		est: &model.MatchEstimate{Start: 3.0, End: 6.0, Confidence: 0.8, Source: "stt"},
	}
	svc := newTestService(t, WithSecondaryMatcher(secondary))

	report, err := svc.Match(context.Background(), testRequest(track, ""))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if secondary.calls != 0 {
		t.Errorf("Secondary called %d times without a segment catalog, want 0", secondary.calls)
	}
	if report.Method != model.MethodDTWOnly {
		t.Errorf("Method = %q, want %q", report.Method, model.MethodDTWOnly)
	}
}

func TestMatchSampleRateMismatch(t *testing.T) {
	svc := newTestService(t)
	track := chirp(30, testRate)
	req := testRequest(track, "")
	req.Clip.SampleRate = 44100

	if _, err := svc.Match(context.Background(), req); err == nil {
		t.Fatal("Expected error on sample rate mismatch")
	}
}

func TestMatchStoresRun(t *testing.T) {
	track := chirp(30, testRate)
	store := &fakeStore{}
	svc := newTestService(t, WithStorage(store))

	report, err := svc.Match(context.Background(), testRequest(track, ""))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("Stored %d runs, want 1", len(store.saved))
	}
	if store.saved[0].RunID != report.RunID {
		t.Errorf("Stored run ID %q, want %q", store.saved[0].RunID, report.RunID)
	}

	runs, err := svc.History(10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("History returned %d runs, want 1", len(runs))
	}
}

func TestMatchStoreFailureNotFatal(t *testing.T) {
	track := chirp(30, testRate)
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := newTestService(t, WithStorage(store))

	report, err := svc.Match(context.Background(), testRequest(track, ""))
	if err != nil {
		t.Fatalf("Match should survive a storage failure: %v", err)
	}
	if report == nil {
		t.Fatal("Report missing despite storage failure")
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.History(10); err == nil {
		t.Fatal("Expected error when no run store is configured")
	}
}
