package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/backmassage/crossproj/internal/check"
	"github.com/backmassage/crossproj/internal/config"
)

// Logger is the subset of the logging.Logger API used by the toolchain.
type Logger interface {
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// Toolchain runs the ffmpeg audio steps of a projection run for one config.
type Toolchain struct {
	cfg *config.Config
	log Logger
}

// NewToolchain returns a Toolchain using cfg.FFmpegPath.
func NewToolchain(cfg *config.Config, log Logger) *Toolchain {
	return &Toolchain{cfg: cfg, log: log}
}

// Validate checks that ffmpeg, its ffprobe and the configured video encoder
// are usable. Errors wrap check.ErrEncoderUnavailable and friends.
func (t *Toolchain) Validate(ctx context.Context) error {
	return check.CheckDeps(ctx, t.cfg)
}

// ExtractAudio copies the first audio stream of in to out. A source with no
// audio yields ErrNoAudioStream. A partial out is removed on failure.
func (t *Toolchain) ExtractAudio(ctx context.Context, in, out string) error {
	err := t.run(ctx, "extract audio", out, func(rs *RetryState) []string {
		return ExtractArgs(t.cfg, in, out, rs)
	})
	if err != nil {
		_ = os.Remove(out)
	}
	return err
}

// MergeAudioVideo muxes the video stream of video with the audio stream of
// audio into out. A partial out is removed on failure.
func (t *Toolchain) MergeAudioVideo(ctx context.Context, video, audio, out string) error {
	err := t.run(ctx, "merge audio", out, func(rs *RetryState) []string {
		return MergeArgs(t.cfg, video, audio, out, rs)
	})
	if err != nil {
		_ = os.Remove(out)
	}
	return err
}

// run executes the command produced by build, classifying stderr on failure
// and retrying with one fix per attempt.
func (t *Toolchain) run(ctx context.Context, label, out string, build func(*RetryState) []string) error {
	rs := NewRetryState()
	for {
		args := build(rs)
		t.log.Debug("ffmpeg %s", strings.Join(args, " "))

		result := Execute(ctx, t.cfg.FFmpegPath, args, t.cfg.Verbose)
		if result.Err == nil {
			return nil
		}

		// Stop retrying if the context has been cancelled (e.g. SIGINT).
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", label, ctx.Err())
		}

		if MatchNoAudioStream(result.Stderr) {
			return fmt.Errorf("%s: %w", label, ErrNoAudioStream)
		}

		if t.cfg.StrictMode {
			logStderr(t.log, result.Stderr)
			return fmt.Errorf("%s (strict mode, no retry): %w", label, result.Err)
		}

		action := rs.Advance(result.Stderr)
		if action == RetryNone {
			logStderr(t.log, result.Stderr)
			return fmt.Errorf("%s: %w", label, stderrError(result))
		}

		t.log.Warn("Retry %d (%s): %s", rs.Attempt, label, action)
		_ = os.Remove(out)
	}
}

// stderrError attaches the last stderr line to the process error.
func stderrError(r ExecResult) error {
	lines := strings.Split(strings.TrimSpace(r.Stderr), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return r.Err
	}
	return fmt.Errorf("%w: %s", r.Err, last)
}

func logStderr(log Logger, stderr string) {
	if stderr == "" {
		return
	}
	log.Debug("Last ffmpeg output:")
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		log.Debug("  %s", l)
	}
}

// IsNoAudio reports whether err says the source carried no audio stream.
func IsNoAudio(err error) bool { return errors.Is(err, ErrNoAudioStream) }
