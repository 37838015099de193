package frameio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/backmassage/crossproj/internal/projector"
)

// ErrTruncatedFrame is returned when the stream ends part-way through a frame.
var ErrTruncatedFrame = errors.New("truncated frame")

// errDecoderClosed is the sticky error after Close.
var errDecoderClosed = errors.New("decoder closed")

// Decoder yields packed RGB24 frames of a fixed size in stream order.
type Decoder struct {
	width  int
	height int
	r      *bufio.Reader
	proc   *process
	frames int64
	err    error
}

// OpenDecoder starts ffmpeg decoding the video stream with absolute index
// stream of path (the first video stream when stream is negative). width and
// height must be that stream's decoded size.
// width and height must be the decoded frame size reported by probe.
func OpenDecoder(ctx context.Context, bin, path string, stream, width, height int, verbose bool) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", projector.ErrEmptyFrame, width, height)
	}
	proc := newProcess(ctx, bin, decodeArgs(path, stream, verbose), verbose)
	stdout, err := proc.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := proc.start(); err != nil {
		return nil, err
	}
	return &Decoder{
		width:  width,
		height: height,
		r:      bufio.NewReaderSize(stdout, width*height*projector.Channels),
		proc:   proc,
	}, nil
}

// NewDecoder reads frames from an already-decoded rgb24 stream.
func NewDecoder(r io.Reader, width, height int) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", projector.ErrEmptyFrame, width, height)
	}
	return &Decoder{width: width, height: height, r: bufio.NewReader(r)}, nil
}

// Width returns the frame width in pixels.
func (d *Decoder) Width() int { return d.width }

// Height returns the frame height in pixels.
func (d *Decoder) Height() int { return d.height }

// Frames returns the number of complete frames read so far.
func (d *Decoder) Frames() int64 { return d.frames }

// Next reads the next frame into a newly allocated Frame.
// It returns io.EOF after the last frame of a cleanly finished stream.
func (d *Decoder) Next() (projector.Frame, error) {
	f := projector.NewFrame(d.width, d.height)
	if err := d.ReadInto(f); err != nil {
		return projector.Frame{}, err
	}
	return f, nil
}

// ReadInto reads the next frame into dst, which must match the decoder's
// size. Errors are sticky: once ReadInto fails, every later call returns
// the same error.
func (d *Decoder) ReadInto(dst projector.Frame) error {
	if d.err != nil {
		return d.err
	}
	if dst.Width != d.width || dst.Height != d.height || len(dst.Pix) != dst.Len() {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", projector.ErrFrameSize, dst.Width, dst.Height, d.width, d.height)
	}

	_, err := io.ReadFull(d.r, dst.Pix)
	switch {
	case err == nil:
		d.frames++
		return nil
	case errors.Is(err, io.EOF):
		d.err = io.EOF
		if d.proc != nil {
			if werr := d.proc.wait(); werr != nil {
				d.err = fmt.Errorf("decode after %d frames: %w", d.frames, werr)
			}
		}
	case errors.Is(err, io.ErrUnexpectedEOF):
		d.err = fmt.Errorf("%w: frame %d", ErrTruncatedFrame, d.frames)
		if d.proc != nil {
			if werr := d.proc.wait(); werr != nil {
				d.err = fmt.Errorf("%w: frame %d: %v", ErrTruncatedFrame, d.frames, werr)
			}
		}
	default:
		d.err = fmt.Errorf("read frame %d: %w", d.frames, err)
	}
	return d.err
}

// Close releases the decoder. A process that is still running is killed.
// Close is idempotent.
func (d *Decoder) Close() error {
	if d.proc != nil {
		d.proc.kill()
	}
	if d.err == nil {
		d.err = errDecoderClosed
	}
	return nil
}
