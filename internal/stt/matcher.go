// Package stt adapts an external transcript-based matching tool to the
// SecondaryMatcher interface. The tool is an opaque collaborator: it is
// handed the clip and a segment catalog and prints a JSON estimate. Every
// failure mode (missing tool, timeout, bad output) collapses to the
// unavailable signal rather than an error.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch"
	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

// outputMarker precedes the JSON payload on the tool's stdout.
const outputMarker = "JSON OUTPUT:"

// DefaultCommand runs the Node-based transcript matcher.
var DefaultCommand = []string{"node", "match-audio-stt.mjs"}

// Matcher invokes an external command and parses its estimate.
type Matcher struct {
	// Command is the program and leading arguments; the clip path and
	// segments path are appended per call.
	Command []string

	// Timeout bounds one invocation when the caller's context carries no
	// deadline of its own.
	Timeout time.Duration

	// Dir is the working directory for the command; empty means inherit.
	Dir string
}

// NewMatcher returns a matcher for the given command line, or the default
// Node script when cmd is empty.
func NewMatcher(cmd []string) *Matcher {
	if len(cmd) == 0 {
		cmd = DefaultCommand
	}
	return &Matcher{Command: cmd, Timeout: 60 * time.Second}
}

// toolOutput is the JSON contract with the external matcher.
type toolOutput struct {
	SegmentID  string  `json:"segmentId"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

// Match runs the tool against the clip and segment catalog.
func (m *Matcher) Match(ctx context.Context, clipPath, segmentsPath string) (*model.MatchEstimate, error) {
	if clipPath == "" || segmentsPath == "" {
		return nil, fmt.Errorf("missing clip or segments path: %w", audiomatch.ErrSecondaryUnavailable)
	}
	if _, err := exec.LookPath(m.Command[0]); err != nil {
		return nil, fmt.Errorf("%s not found: %w", m.Command[0], audiomatch.ErrSecondaryUnavailable)
	}

	if _, ok := ctx.Deadline(); !ok && m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, m.Command[1:]...), clipPath, segmentsPath)
	cmd := exec.CommandContext(ctx, m.Command[0], args...)
	cmd.Dir = m.Dir

	// The tool spawns its own children (node forking whisper) that inherit
	// our stdout pipe. Run it in its own process group and kill the whole
	// group on cancellation, or Wait would block on the pipe until every
	// descendant exits. WaitDelay bounds the pipe drain either way.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 3 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("timed out: %w", audiomatch.ErrSecondaryUnavailable)
		}
		return nil, fmt.Errorf("exited with %v (%s): %w",
			err, firstLine(stderr.String()), audiomatch.ErrSecondaryUnavailable)
	}

	out, err := parseOutput(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, audiomatch.ErrSecondaryUnavailable)
	}

	return &model.MatchEstimate{
		Start:      out.StartTime,
		End:        out.EndTime,
		Confidence: out.Confidence,
		Source:     "stt",
	}, nil
}

// parseOutput extracts the JSON payload following the output marker.
func parseOutput(stdout string) (*toolOutput, error) {
	idx := strings.Index(stdout, outputMarker)
	if idx < 0 {
		return nil, fmt.Errorf("no %q marker in output", outputMarker)
	}
	payload := stdout[idx+len(outputMarker):]

	var out toolOutput
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &out); err != nil {
		return nil, fmt.Errorf("parsing JSON output: %v", err)
	}
	if out.EndTime < out.StartTime {
		return nil, fmt.Errorf("malformed estimate: start %.3f after end %.3f", out.StartTime, out.EndTime)
	}
	return &out, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
