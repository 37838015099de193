package frameio

import (
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/probe"
)

// EncodeOptions describes the projected video stream written by an Encoder.
type EncodeOptions struct {
	Width   int
	Height  int
	Rate    probe.Rate
	Codec   config.VideoCodec
	CRF     int
	Preset  string
	QScale  int
	PixFmt  string
	Verbose bool
}

// EncodeOptionsFromConfig fills the codec settings from cfg.
func EncodeOptionsFromConfig(cfg *config.Config, width, height int, rate probe.Rate) EncodeOptions {
	return EncodeOptions{
		Width:   width,
		Height:  height,
		Rate:    rate,
		Codec:   cfg.VideoCodec,
		CRF:     cfg.CRF,
		Preset:  cfg.Preset,
		QScale:  cfg.QScale,
		PixFmt:  cfg.PixFmt,
		Verbose: cfg.Verbose,
	}
}

func logLevel(verbose bool) string {
	if verbose {
		return "info"
	}
	return "error"
}

// decodeArgs builds the ffmpeg arguments that decode one video stream of
// path to packed rgb24 on stdout, one output frame per decoded frame.
// stream is the absolute stream index; a negative index selects the first
// video stream.
func decodeArgs(path string, stream int, verbose bool) []string {
	return ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"f":       "rawvideo",
			"pix_fmt": "rgb24",
			"map":     streamMap(stream),
			"vsync":   "passthrough",
		}).
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", logLevel(verbose)).
		GetArgs()
}

func streamMap(stream int) string {
	if stream < 0 {
		return "0:v:0"
	}
	return "0:" + strconv.Itoa(stream)
}

// encodeArgs builds the ffmpeg arguments that read packed rgb24 frames of
// the given size from stdin and encode them into out.
func encodeArgs(out string, o EncodeOptions) []string {
	outArgs := ffmpeg.KwArgs{
		"c:v":     string(o.Codec),
		"pix_fmt": outputPixFmt(o),
	}
	switch o.Codec {
	case config.CodecMPEG4:
		outArgs["q:v"] = strconv.Itoa(o.QScale)
	default:
		outArgs["crf"] = strconv.Itoa(o.CRF)
		if o.Preset != "" {
			outArgs["preset"] = o.Preset
		}
	}
	for k, v := range containerKwArgs(out) {
		outArgs[k] = v
	}

	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgb24",
		"s":         strconv.Itoa(o.Width) + "x" + strconv.Itoa(o.Height),
		"framerate": o.Rate.String(),
	}).
		Output(out, outArgs).
		GlobalArgs("-hide_banner", "-nostdin", "-loglevel", logLevel(o.Verbose)).
		OverWriteOutput().
		GetArgs()
}

// outputPixFmt returns the encoder pixel format. 4:2:0 chroma needs even
// dimensions; libx264 falls back to 4:4:4 for odd canvases.
func outputPixFmt(o EncodeOptions) string {
	pf := o.PixFmt
	if pf == "" {
		pf = "yuv420p"
	}
	odd := o.Width%2 != 0 || o.Height%2 != 0
	if odd && pf == "yuv420p" && o.Codec == config.CodecX264 {
		return "yuv444p"
	}
	return pf
}

func containerKwArgs(out string) ffmpeg.KwArgs {
	switch strings.ToLower(filepath.Ext(out)) {
	case ".mp4", ".m4v", ".mov":
		return ffmpeg.KwArgs{"movflags": "+faststart"}
	}
	return nil
}
