package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/backmassage/crossproj/internal/check"
	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/display"
	"github.com/backmassage/crossproj/internal/ffmpeg"
	"github.com/backmassage/crossproj/internal/frameio"
	"github.com/backmassage/crossproj/internal/logging"
	"github.com/backmassage/crossproj/internal/probe"
	"github.com/backmassage/crossproj/internal/projector"
	"github.com/backmassage/crossproj/internal/term"
)

// Toolchain is the external encoder capability used for the audio path.
type Toolchain interface {
	Validate(ctx context.Context) error
	ExtractAudio(ctx context.Context, in, out string) error
	MergeAudioVideo(ctx context.Context, video, audio, out string) error
}

// FrameSource yields source frames in order; ReadInto returns io.EOF after
// the last one.
type FrameSource interface {
	ReadInto(dst projector.Frame) error
	Close() error
}

// FrameSink accepts projected frames in order. Close finishes the file;
// Abort discards it.
type FrameSink interface {
	WriteFrame(f projector.Frame) error
	Close() error
	Abort()
}

// Progress is advanced once per written frame.
type Progress interface {
	Add(n int)
	Finish()
}

// SourceInfo is what the pipeline needs to know about the source before
// decoding starts.
type SourceInfo struct {
	Width          int
	Height         int
	Rate           probe.Rate
	Codec          string
	StreamIndex    int // Absolute index of the probed video stream.
	HasAudio       bool
	AudioCodec     string
	ExpectedFrames int64
}

// Deps are the injected capabilities of a run. DefaultDeps wires the
// ffmpeg-backed implementations; tests substitute fakes.
type Deps struct {
	Toolchain   Toolchain
	Probe       func(ctx context.Context, path string) (SourceInfo, error)
	OpenSource  func(ctx context.Context, path string, info SourceInfo) (FrameSource, error)
	OpenSink    func(ctx context.Context, path string, side int, rate probe.Rate) (FrameSink, error)
	NewProgress func(total int64) Progress
}

// DefaultDeps returns the ffmpeg-backed dependencies for cfg.
func DefaultDeps(cfg *config.Config, log *logging.Logger) Deps {
	ffprobe := check.ResolveFFprobe(cfg.FFmpegPath)
	return Deps{
		Toolchain: ffmpeg.NewToolchain(cfg, log),
		Probe: func(ctx context.Context, path string) (SourceInfo, error) {
			return ProbeSource(ctx, ffprobe, path)
		},
		OpenSource: func(ctx context.Context, path string, info SourceInfo) (FrameSource, error) {
			d, err := frameio.OpenDecoder(ctx, cfg.FFmpegPath, path, info.StreamIndex, info.Width, info.Height, cfg.Verbose)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		OpenSink: func(ctx context.Context, path string, side int, rate probe.Rate) (FrameSink, error) {
			e, err := frameio.OpenEncoder(ctx, cfg.FFmpegPath, path, frameio.EncodeOptionsFromConfig(cfg, side, side, rate))
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		NewProgress: func(total int64) Progress {
			return display.NewProgress(os.Stderr, total, cfg.ShowProgress && !cfg.Verbose && term.IsTerminal(os.Stderr))
		},
	}
}

// ProbeSource checks that path exists and reads its video geometry, frame
// rate and audio presence with ffprobe.
func ProbeSource(ctx context.Context, ffprobe, path string) (SourceInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return SourceInfo{}, err
	}
	if fi.IsDir() {
		return SourceInfo{}, fmt.Errorf("%s is a directory", path)
	}

	pr, err := probe.Probe(ctx, ffprobe, path)
	if err != nil {
		return SourceInfo{}, err
	}
	return sourceInfo(pr)
}

func sourceInfo(pr *probe.ProbeResult) (SourceInfo, error) {
	v := pr.PrimaryVideo
	if v == nil {
		return SourceInfo{}, errors.New("no video stream")
	}
	w, h := v.DisplaySize()
	if w <= 0 || h <= 0 {
		return SourceInfo{}, fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	rate := v.FrameRate()
	if !rate.Valid() {
		return SourceInfo{}, errors.New("unknown frame rate")
	}
	info := SourceInfo{
		Width:          w,
		Height:         h,
		Rate:           rate,
		Codec:          v.Codec,
		StreamIndex:    v.Index,
		HasAudio:       pr.HasAudio(),
		ExpectedFrames: pr.ExpectedFrames(),
	}
	if info.HasAudio {
		info.AudioCodec = pr.AudioStreams[0].Codec
	}
	return info, nil
}

type noProgress struct{}

func (noProgress) Add(int) {}
func (noProgress) Finish() {}
