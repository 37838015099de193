package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/display"
	"github.com/backmassage/crossproj/internal/ffmpeg"
	"github.com/backmassage/crossproj/internal/logging"
	"github.com/backmassage/crossproj/internal/projector"
	"github.com/backmassage/crossproj/internal/workspace"
)

// Run projects cfg.Input into cfg.Output. It returns the run summary and,
// on failure, an error wrapping one of the package sentinels. Audio
// failures are not errors; they are reported in Result.Audio.
//
// Run never leaves a partial file at cfg.Output: the finished video is
// built in a workspace and moved into place as the last step.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, deps Deps) (res Result, err error) {
	start := time.Now()
	res = Result{Input: cfg.Input, Output: cfg.Output, Direction: cfg.Direction}
	defer func() { res.Elapsed = time.Since(start) }()

	proj, err := projector.New(cfg.Direction)
	if err != nil {
		return res, err
	}

	// --- Validate the external encoder ---
	if err := deps.Toolchain.Validate(ctx); err != nil {
		return res, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}

	// --- Probe and open the source ---
	info, err := deps.Probe(ctx, cfg.Input)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrSourceOpen, cfg.Input, err)
	}
	res.SourceWidth, res.SourceHeight = info.Width, info.Height
	res.CanvasSize = projector.CanvasSize(info.Width, info.Height)
	res.Rate = info.Rate
	logSource(log, cfg, info, res.CanvasSize)

	src, err := deps.OpenSource(ctx, cfg.Input, info)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrSourceOpen, cfg.Input, err)
	}
	defer src.Close()

	// --- Output directory, lock and workspace ---
	outDir := filepath.Dir(cfg.Output)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return res, fmt.Errorf("%w: create output directory: %v", ErrWrite, err)
	}

	if cfg.LockOutput {
		lock, err := workspace.AcquireLock(cfg.Output)
		if err != nil {
			if errors.Is(err, workspace.ErrLocked) {
				return res, fmt.Errorf("%w: %v", ErrOutputLocked, err)
			}
			return res, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				log.Warn("%v", rerr)
			}
		}()
	}

	base := cfg.TempDir
	if base == "" {
		base = outDir
	}
	ws, err := workspace.New(base)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if cfg.KeepTemp {
		ws.Keep()
		res.Workspace = ws.Dir()
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Warn("Cannot remove workspace %s: %v", ws.Dir(), cerr)
		}
	}()
	log.Debug("Workspace: %s", ws.Dir())

	ext := filepath.Ext(cfg.Output)

	// --- Extract audio ---
	audioPath := extractAudio(ctx, log, deps.Toolchain, cfg.Input, ws, info, &res)

	// --- Frame loop ---
	silent := ws.SilentVideoPath(ext)
	sink, err := deps.OpenSink(ctx, silent, res.CanvasSize, info.Rate)
	if err != nil {
		return res, fmt.Errorf("%w: open encoder: %v", ErrWrite, err)
	}

	progress := Progress(noProgress{})
	if deps.NewProgress != nil {
		progress = deps.NewProgress(info.ExpectedFrames)
	}
	res.Frames, err = projectFrames(ctx, proj, src, sink, info, progress)
	progress.Finish()
	if err != nil {
		sink.Abort()
		return res, fmt.Errorf("%w: %w", ErrFrame, err)
	}
	if err := sink.Close(); err != nil {
		return res, fmt.Errorf("%w: finish encoding: %v", ErrFrame, err)
	}
	if res.Frames == 0 {
		return res, fmt.Errorf("%w: source produced no frames", ErrFrame)
	}
	log.Info("Projected %d frames", res.Frames)

	// --- Merge audio and place the result ---
	final := silent
	if audioPath != "" {
		merged := ws.MergedPath(ext)
		if err := deps.Toolchain.MergeAudioVideo(ctx, silent, audioPath, merged); err != nil {
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %w", ErrFrame, ctx.Err())
			}
			log.Warn("Audio merge failed, writing video without audio: %v", err)
			res.Audio = AudioMergeFailed
		} else {
			final = merged
			res.Audio = AudioMerged
		}
	}

	if err := workspace.Place(final, cfg.Output); err != nil {
		return res, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if fi, err := os.Stat(cfg.Output); err == nil {
		res.OutputBytes = fi.Size()
	}
	return res, nil
}

// extractAudio runs the audio extraction step and records the outcome in
// res. It returns the extracted file, or "" when the output will be silent.
func extractAudio(ctx context.Context, log *logging.Logger, tc Toolchain, input string, ws *workspace.Workspace, info SourceInfo, res *Result) string {
	if !info.HasAudio {
		log.Info("Source has no audio track; output will be silent")
		res.Audio = AudioNone
		return ""
	}

	out := ws.AudioPath()
	err := tc.ExtractAudio(ctx, input, out)
	switch {
	case err == nil:
		return out
	case ffmpeg.IsNoAudio(err):
		log.Info("Source has no usable audio track; output will be silent")
		res.Audio = AudioNone
	default:
		log.Warn("Audio extraction failed, continuing without audio: %v", err)
		res.Audio = AudioExtractFailed
	}
	_ = os.Remove(out)
	return ""
}

// projectFrames decodes, projects and encodes every frame in order, reusing
// one source buffer and one canvas. It stops between frames when ctx is
// cancelled.
func projectFrames(ctx context.Context, proj *projector.Projector, src FrameSource, sink FrameSink, info SourceInfo, progress Progress) (int64, error) {
	frame := projector.NewFrame(info.Width, info.Height)
	canvas, err := proj.NewCanvas(info.Width, info.Height)
	if err != nil {
		return 0, err
	}

	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("interrupted after %d frames: %w", n, err)
		}
		err := src.ReadInto(frame)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("decode frame %d: %w", n, err)
		}
		if err := proj.ProjectInto(canvas, frame); err != nil {
			return n, fmt.Errorf("project frame %d: %w", n, err)
		}
		if err := sink.WriteFrame(canvas); err != nil {
			return n, fmt.Errorf("encode frame %d: %w", n, err)
		}
		n++
		progress.Add(1)
	}
}

// --- Logging helpers ---

func logSource(log *logging.Logger, cfg *config.Config, info SourceInfo, side int) {
	audio := "none"
	if info.HasAudio {
		audio = info.AudioCodec
	}
	log.Info("Source: %dx%d %s @ %s, audio: %s", info.Width, info.Height, info.Codec, display.FormatFPS(info.Rate.Float()), audio)
	log.Info("Canvas: %dx%d, direction %s", side, side, cfg.Direction)
	switch cfg.VideoCodec {
	case config.CodecMPEG4:
		log.Info("Video: %s (q:v %d)", cfg.VideoCodec, cfg.QScale)
	default:
		log.Info("Video: %s (crf %d, preset %s)", cfg.VideoCodec, cfg.CRF, cfg.Preset)
	}
	if info.ExpectedFrames > 0 {
		log.Debug("Expected frames: %d", info.ExpectedFrames)
	}
}
