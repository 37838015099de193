package frameio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/backmassage/crossproj/internal/projector"
)

// ErrEncoderClosed is returned by WriteFrame after Close or Abort.
var ErrEncoderClosed = errors.New("encoder closed")

// Encoder accepts frames of a fixed size in order and writes them to an
// ffmpeg process (or any io.Writer).
type Encoder struct {
	width  int
	height int
	w      *bufio.Writer
	stdin  io.Closer
	proc   *process
	frames int64
	closed bool
}

// OpenEncoder starts ffmpeg encoding rgb24 frames of o.Width x o.Height at
// o.Rate into out.
func OpenEncoder(ctx context.Context, bin, out string, o EncodeOptions) (*Encoder, error) {
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", projector.ErrEmptyFrame, o.Width, o.Height)
	}
	if !o.Rate.Valid() {
		return nil, fmt.Errorf("invalid frame rate %s", o.Rate)
	}
	proc := newProcess(ctx, bin, encodeArgs(out, o), o.Verbose)
	stdin, err := proc.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := proc.start(); err != nil {
		return nil, err
	}
	return &Encoder{
		width:  o.Width,
		height: o.Height,
		w:      bufio.NewWriterSize(stdin, o.Width*o.Height*projector.Channels),
		stdin:  stdin,
		proc:   proc,
	}, nil
}

// NewEncoder writes raw rgb24 frames to w.
func NewEncoder(w io.Writer, width, height int) (*Encoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", projector.ErrEmptyFrame, width, height)
	}
	return &Encoder{width: width, height: height, w: bufio.NewWriter(w)}, nil
}

// Frames returns the number of frames accepted so far.
func (e *Encoder) Frames() int64 { return e.frames }

// WriteFrame appends f to the stream. f must have the encoder's size.
func (e *Encoder) WriteFrame(f projector.Frame) error {
	if e.closed {
		return ErrEncoderClosed
	}
	if f.Width != e.width || f.Height != e.height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", projector.ErrFrameSize, f.Width, f.Height, e.width, e.height)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if _, err := e.w.Write(f.Pix); err != nil {
		return e.writeError(err)
	}
	e.frames++
	return nil
}

// writeError prefers the encoder's own exit reason over a broken pipe.
func (e *Encoder) writeError(err error) error {
	if e.proc != nil {
		_ = e.stdin.Close()
		if werr := e.proc.wait(); werr != nil {
			e.closed = true
			return fmt.Errorf("write frame %d: %w", e.frames, werr)
		}
	}
	return fmt.Errorf("write frame %d: %w", e.frames, err)
}

// Close flushes buffered frames, closes ffmpeg's stdin and waits for the
// encoder to finish. Close is idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		if e.proc != nil {
			return e.proc.wait()
		}
		return nil
	}
	e.closed = true

	flushErr := e.w.Flush()
	if e.proc == nil {
		return flushErr
	}
	_ = e.stdin.Close()
	if err := e.proc.wait(); err != nil {
		return err
	}
	if flushErr != nil {
		return fmt.Errorf("flush frames: %w", flushErr)
	}
	return nil
}

// Abort stops the encoder without finishing the output file.
func (e *Encoder) Abort() {
	e.closed = true
	if e.proc != nil {
		_ = e.stdin.Close()
		e.proc.kill()
	}
}
