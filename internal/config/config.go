// Package config holds runtime configuration: defaults, the optional TOML
// config file, CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backmassage/crossproj/internal/projector"
)

// --- Enum types for validated string fields ---

// VideoCodec selects the encoder for the projected video stream.
type VideoCodec string

const (
	CodecX264  VideoCodec = "libx264" // H.264 via libx264 (default).
	CodecMPEG4 VideoCodec = "mpeg4"   // MPEG-4 Part 2 (mp4v), widest player support.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Valid quality ranges per codec.
const (
	CRFMin    = 0
	CRFMax    = 51
	QScaleMin = 1
	QScaleMax = 31
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by the config file ([Load]), then by CLI flags ([ApplyFlags]), and is
// passed by pointer to the packages that need it.
type Config struct {
	// Paths.
	Input      string `toml:"-"`
	Output     string `toml:"output"`      // Default: "output.mp4".
	FFmpegPath string `toml:"ffmpeg"`      // Default: "ffmpeg" (resolved on PATH).
	TempDir    string `toml:"temp_dir"`    // Default: "" (next to the output file).
	ConfigFile string `toml:"-"`           // Resolved config file path, if any.
	KeepTemp   bool   `toml:"keep_temp"`   // Leave the workspace behind for debugging.
	LockOutput bool   `toml:"lock_output"` // Default: true. Hold <output>.lock during a run.

	// Projection.
	Direction projector.Direction `toml:"direction"` // Default: "up".

	// Video encoding.
	VideoCodec VideoCodec `toml:"video_codec"` // Default: "libx264".
	CRF        int        `toml:"crf"`         // libx264 only. Default: 18.
	Preset     string     `toml:"preset"`      // libx264 only. Default: "medium".
	QScale     int        `toml:"qscale"`      // mpeg4 only. Default: 3.
	PixFmt     string     `toml:"-"`           // Fixed: "yuv420p".

	// Audio remux.
	AudioCodec   string `toml:"audio_codec"`   // Default: "aac".
	AudioBitrate string `toml:"audio_bitrate"` // Default: "192k".

	// Behavior flags.
	StrictMode bool `toml:"strict"` // Disable ffmpeg retry fallbacks.

	// Display and logging.
	Verbose      bool      `toml:"verbose"`
	ShowProgress bool      `toml:"progress"` // Default: true. Only drawn on a TTY.
	ColorMode    ColorMode `toml:"color"`    // Default: "auto".
	LogFile      string    `toml:"log_file"` // Optional log file path.
	CheckOnly    bool      `toml:"-"`        // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before the config file and [ApplyFlags] apply overrides.
func DefaultConfig() Config {
	return Config{
		Output:       "output.mp4",
		FFmpegPath:   "ffmpeg",
		LockOutput:   true,
		Direction:    projector.Up,
		VideoCodec:   CodecX264,
		CRF:          18,
		Preset:       "medium",
		QScale:       3,
		PixFmt:       "yuv420p",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		ShowProgress: true,
		ColorMode:    ColorAuto,
	}
}

// Validate checks enum and range fields and normalizes the audio bitrate.
// When not in CheckOnly mode it also requires input and output paths.
func (c *Config) Validate() error {
	dir, err := projector.ParseDirection(string(c.Direction))
	if err != nil {
		return err
	}
	c.Direction = dir

	switch c.VideoCodec {
	case CodecX264:
		if c.CRF < CRFMin || c.CRF > CRFMax {
			return fmt.Errorf("crf %d out of range (%d-%d)", c.CRF, CRFMin, CRFMax)
		}
		if strings.TrimSpace(c.Preset) == "" {
			return errors.New("preset must not be empty")
		}
	case CodecMPEG4:
		if c.QScale < QScaleMin || c.QScale > QScaleMax {
			return fmt.Errorf("qscale %d out of range (%d-%d)", c.QScale, QScaleMin, QScaleMax)
		}
	default:
		return fmt.Errorf("invalid video codec %q (use 'libx264' or 'mpeg4')", c.VideoCodec)
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	if strings.TrimSpace(c.FFmpegPath) == "" {
		return errors.New("ffmpeg path must not be empty")
	}
	if strings.TrimSpace(c.AudioCodec) == "" {
		return errors.New("audio codec must not be empty")
	}
	normalizedBitrate, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalizedBitrate

	if c.CheckOnly {
		return nil
	}
	if strings.TrimSpace(c.Input) == "" {
		return errors.New("--input is required")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output path must not be empty")
	}
	return nil
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "256", "256k", "256K", "256kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 128k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}

// ValidatePaths rejects an output that resolves to the input file itself,
// which would truncate the source while it is still being decoded. Both
// arguments must be absolute, symlink-resolved paths (the output may not
// exist yet, in which case its cleaned absolute path is used).
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	if filepath.Clean(inputAbs) == filepath.Clean(outputAbs) {
		return errors.New("output path must differ from input path")
	}
	return nil
}
