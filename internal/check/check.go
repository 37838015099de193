// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation for ffmpeg, ffprobe and the configured encoders.
package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/display"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrEncoderUnavailable = errors.New("ffmpeg unavailable")
	ErrProbeUnavailable   = errors.New("ffprobe unavailable")
	ErrCodecUnavailable   = errors.New("encoder not supported by ffmpeg")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// ResolveFFprobe returns the ffprobe executable that belongs to ffmpegPath.
// When ffmpegPath names a file in a directory that also holds an ffprobe
// binary, that sidecar is used; otherwise plain "ffprobe" is looked up on PATH.
func ResolveFFprobe(ffmpegPath string) string {
	if !strings.ContainsRune(ffmpegPath, filepath.Separator) && !strings.ContainsRune(ffmpegPath, '/') {
		return "ffprobe"
	}
	name := "ffprobe"
	if strings.EqualFold(filepath.Ext(ffmpegPath), ".exe") {
		name += ".exe"
	}
	sidecar := filepath.Join(filepath.Dir(ffmpegPath), name)
	if fi, err := os.Stat(sidecar); err == nil && !fi.IsDir() {
		return sidecar
	}
	return "ffprobe"
}

// ToolVersion runs "<bin> -version" and returns the first output line.
func ToolVersion(ctx context.Context, bin string) (string, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", err
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-version")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s -version: %w: %s", bin, err, msg)
		}
		return "", fmt.Errorf("%s -version: %w", bin, err)
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(first), nil
}

// CheckDeps is the pre-pipeline validation: it verifies that ffmpeg and its
// ffprobe are runnable and that ffmpeg lists the configured video encoder.
// Returns a wrapped sentinel error on failure.
func CheckDeps(ctx context.Context, cfg *config.Config) error {
	if _, err := ToolVersion(ctx, cfg.FFmpegPath); err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	ffprobe := ResolveFFprobe(cfg.FFmpegPath)
	if _, err := ToolVersion(ctx, ffprobe); err != nil {
		return fmt.Errorf("%w: %v", ErrProbeUnavailable, err)
	}
	encoders, err := listEncoders(ctx, cfg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}
	if !hasEncoder(encoders, string(cfg.VideoCodec)) {
		return fmt.Errorf("%w: %s", ErrCodecUnavailable, cfg.VideoCodec)
	}
	return nil
}

// RunCheck runs the interactive --check flow: prints availability of ffmpeg,
// ffprobe, the video encoders and the AAC encoder as a table on w.
// Returns false if any required component failed.
func RunCheck(ctx context.Context, cfg *config.Config, log Logger, w io.Writer) bool {
	log.Info("=== System Check ===")

	var rows [][]string
	ok := true
	add := func(component, status, detail string, required bool) {
		rows = append(rows, []string{component, status, detail})
		if required && status != statusOK {
			ok = false
		}
	}

	ffmpegVersion, err := ToolVersion(ctx, cfg.FFmpegPath)
	if err != nil {
		add("ffmpeg", statusMissing, err.Error(), true)
		fmt.Fprintln(w, display.RenderTable([]string{"Component", "Status", "Detail"}, rows, nil))
		log.Error("ffmpeg not usable: %s", cfg.FFmpegPath)
		return false
	}
	add("ffmpeg", statusOK, ffmpegVersion, true)

	ffprobe := ResolveFFprobe(cfg.FFmpegPath)
	if v, err := ToolVersion(ctx, ffprobe); err != nil {
		add("ffprobe", statusMissing, err.Error(), true)
	} else {
		add("ffprobe", statusOK, v, true)
	}

	encoders, err := listEncoders(ctx, cfg.FFmpegPath)
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
	}
	for _, codec := range []config.VideoCodec{config.CodecX264, config.CodecMPEG4} {
		required := codec == cfg.VideoCodec
		switch {
		case !hasEncoder(encoders, string(codec)):
			add(string(codec), statusMissing, "not listed by ffmpeg -encoders", required)
		case !runSilent(ctx, cfg.FFmpegPath, videoTestArgs(string(codec))...):
			add(string(codec), statusFailed, "test encode failed", required)
		default:
			add(string(codec), statusOK, "test encode passed", required)
		}
	}

	audioRequired := cfg.AudioCodec == "aac"
	if runSilent(ctx, cfg.FFmpegPath, audioTestArgs(cfg.AudioCodec)...) {
		add(cfg.AudioCodec, statusOK, "test encode passed", audioRequired)
	} else {
		add(cfg.AudioCodec, statusFailed, "test encode failed", audioRequired)
	}

	fmt.Fprintln(w, display.RenderTable([]string{"Component", "Status", "Detail"}, rows, nil))
	if ok {
		log.Success("All required components available")
	} else {
		log.Error("Some required components are missing")
	}
	return ok
}

const (
	statusOK      = "ok"
	statusMissing = "missing"
	statusFailed  = "failed"
)

// --- internal helpers ---

// listEncoders returns the raw "ffmpeg -encoders" listing.
func listEncoders(ctx context.Context, bin string) (string, error) {
	out, err := exec.CommandContext(ctx, bin, "-hide_banner", "-encoders").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// hasEncoder reports whether the "-encoders" listing contains name as an
// encoder identifier (second column of each entry).
func hasEncoder(listing, name string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

// videoTestArgs returns the ffmpeg arguments for a minimal test encode.
func videoTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=black:s=64x64:d=0.1",
		"-c:v", codec,
		"-f", "null", "-",
	}
}

func audioTestArgs(codec string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=1000:duration=0.1",
		"-c:a", codec, "-f", "null", "-",
	}
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(ctx context.Context, name string, args ...string) bool {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
