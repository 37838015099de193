package config

// This file binds CLI flags to a FlagValues holder and applies them to a
// Config after the config file has been loaded. Only flags the user actually
// set override file values and defaults.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/backmassage/crossproj/internal/projector"
)

// FlagValues receives raw flag values before they are merged into a Config.
type FlagValues struct {
	ConfigPath string

	input        string
	output       string
	ffmpeg       string
	direction    projector.Direction
	codec        VideoCodec
	crf          int
	preset       string
	qscale       int
	audioCodec   string
	audioBitrate string
	tempDir      string
	keepTemp     bool
	noLock       bool
	strict       bool
	verbose      bool
	check        bool
	logFile      string

	// Negated flags invert a default after parsing.
	forceColor bool
	noColor    bool
	noProgress bool
}

// BindFlags registers all CLI flags on fs. Defaults shown in help come from
// cfg (normally [DefaultConfig]).
func BindFlags(fs *pflag.FlagSet, cfg *Config) *FlagValues {
	v := &FlagValues{
		direction: cfg.Direction,
		codec:     cfg.VideoCodec,
	}

	// Paths and projection.
	fs.StringVarP(&v.input, "input", "i", "", "Input video path (required)")
	fs.StringVarP(&v.output, "output", "o", cfg.Output, "Output video path")
	fs.StringVarP(&v.ffmpeg, "ffmpeg", "f", cfg.FFmpegPath, "Path to the ffmpeg executable")
	fs.VarP(&directionValue{&v.direction}, "direction", "d", "Projection direction: up | down")
	fs.StringVarP(&v.ConfigPath, "config", "c", "", "TOML config file (default ./"+ProjectConfigName+" or ~/.config/crossproj/config.toml)")

	// Encoding.
	fs.Var(&codecValue{&v.codec}, "codec", "Video codec: libx264 | mpeg4")
	fs.IntVar(&v.crf, "crf", cfg.CRF, "libx264 CRF (0-51)")
	fs.StringVar(&v.preset, "preset", cfg.Preset, "libx264 preset (e.g. fast, medium, slow)")
	fs.IntVar(&v.qscale, "qscale", cfg.QScale, "mpeg4 quantizer scale (1-31)")
	fs.StringVar(&v.audioCodec, "audio-codec", cfg.AudioCodec, "Audio codec used when remuxing")
	fs.StringVar(&v.audioBitrate, "audio-bitrate", cfg.AudioBitrate, "Audio bitrate when remuxing (e.g. 192k)")

	// Behavior.
	fs.StringVar(&v.tempDir, "temp-dir", cfg.TempDir, "Parent directory for the temporary workspace (default: next to output)")
	fs.BoolVar(&v.keepTemp, "keep-temp", false, "Keep the temporary workspace after the run")
	fs.BoolVar(&v.noLock, "no-lock", false, "Do not lock the output path during the run")
	fs.BoolVar(&v.strict, "strict", false, "Disable automatic ffmpeg retry fallbacks")
	fs.BoolVar(&v.check, "check", false, "Run system diagnostics and exit")

	// Display.
	fs.BoolVar(&v.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&v.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&v.noProgress, "no-progress", false, "Do not draw the frame progress bar")
	fs.BoolVarP(&v.verbose, "verbose", "v", false, "Verbose output")
	fs.StringVarP(&v.logFile, "log", "l", "", "Append logs to file")

	return v
}

// ApplyFlags copies every flag the user set on fs into cfg. Flags left at
// their default do not override values loaded from the config file.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config, v *FlagValues) {
	set := func(name string) bool { return fs.Changed(name) }

	if set("input") {
		cfg.Input = v.input
	}
	if set("output") {
		cfg.Output = v.output
	}
	if set("ffmpeg") {
		cfg.FFmpegPath = v.ffmpeg
	}
	if set("direction") {
		cfg.Direction = v.direction
	}
	if set("codec") {
		cfg.VideoCodec = v.codec
	}
	if set("crf") {
		cfg.CRF = v.crf
	}
	if set("preset") {
		cfg.Preset = v.preset
	}
	if set("qscale") {
		cfg.QScale = v.qscale
	}
	if set("audio-codec") {
		cfg.AudioCodec = v.audioCodec
	}
	if set("audio-bitrate") {
		cfg.AudioBitrate = v.audioBitrate
	}
	if set("temp-dir") {
		cfg.TempDir = v.tempDir
	}
	if v.keepTemp {
		cfg.KeepTemp = true
	}
	if v.noLock {
		cfg.LockOutput = false
	}
	if v.strict {
		cfg.StrictMode = true
	}
	if v.check {
		cfg.CheckOnly = true
	}
	if v.verbose {
		cfg.Verbose = true
	}
	if set("log") {
		cfg.LogFile = v.logFile
	}
	if v.noProgress {
		cfg.ShowProgress = false
	}
	if v.noColor {
		cfg.ColorMode = ColorNever
	} else if v.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// pflag.Value adapters so enum types can be bound with fs.Var.

type directionValue struct{ p *projector.Direction }

func (d *directionValue) String() string { return string(*d.p) }
func (d *directionValue) Type() string   { return "up|down" }
func (d *directionValue) Set(s string) error {
	dir, err := projector.ParseDirection(s)
	if err != nil {
		return err
	}
	*d.p = dir
	return nil
}

type codecValue struct{ p *VideoCodec }

func (c *codecValue) String() string { return string(*c.p) }
func (c *codecValue) Type() string   { return "codec" }
func (c *codecValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "libx264", "x264", "h264":
		*c.p = CodecX264
	case "mpeg4", "mp4v":
		*c.p = CodecMPEG4
	default:
		return fmt.Errorf("invalid codec %q (use 'libx264' or 'mpeg4')", s)
	}
	return nil
}
