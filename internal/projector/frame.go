package projector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
)

// Channels is the number of interleaved 8-bit channels per pixel (RGB24).
const Channels = 3

// Sentinel errors for invalid frames and directions.
var (
	ErrEmptyFrame = errors.New("frame has no pixels")
	ErrFrameSize  = errors.New("frame buffer does not match its dimensions")
	ErrDirection  = errors.New("invalid direction (use 'up' or 'down')")
)

// Frame is a packed RGB24 image: Height rows of Width pixels, each pixel
// three bytes, no row padding.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame returns an all-black frame of the given size.
func NewFrame(width, height int) Frame {
	if width <= 0 || height <= 0 {
		return Frame{Width: width, Height: height}
	}
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}
}

// Stride is the number of bytes per row.
func (f Frame) Stride() int { return f.Width * Channels }

// Len is the expected length of Pix for the frame's dimensions.
func (f Frame) Len() int { return f.Width * f.Height * Channels }

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// Validate reports ErrEmptyFrame for non-positive dimensions and
// ErrFrameSize when Pix is not exactly Width*Height*3 bytes.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Len() {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrFrameSize, f.Width, f.Height, f.Len(), len(f.Pix))
	}
	return nil
}

// At returns the RGB triple at column x, row y.
func (f Frame) At(x, y int) [Channels]byte {
	i := y*f.Stride() + x*Channels
	return [Channels]byte{f.Pix[i], f.Pix[i+1], f.Pix[i+2]}
}

// Set writes the RGB triple at column x, row y.
func (f Frame) Set(x, y int, px [Channels]byte) {
	i := y*f.Stride() + x*Channels
	copy(f.Pix[i:i+Channels], px[:])
}

// Equal reports whether both frames have the same size and identical pixels.
func (f Frame) Equal(g Frame) bool {
	return f.Width == g.Width && f.Height == g.Height && bytes.Equal(f.Pix, g.Pix)
}

// Crop returns a copy of the pixels inside r, which must lie within the frame.
func (f Frame) Crop(r image.Rectangle) Frame {
	out := NewFrame(r.Dx(), r.Dy())
	if r.Empty() {
		return out
	}
	rowBytes := r.Dx() * Channels
	for y := 0; y < r.Dy(); y++ {
		src := (r.Min.Y+y)*f.Stride() + r.Min.X*Channels
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], f.Pix[src:src+rowBytes])
	}
	return out
}

// IsBlack reports whether every byte inside r is zero.
func (f Frame) IsBlack(r image.Rectangle) bool {
	rowBytes := r.Dx() * Channels
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := y*f.Stride() + r.Min.X*Channels
		for _, b := range f.Pix[start : start+rowBytes] {
			if b != 0 {
				return false
			}
		}
	}
	return true
}

// zero clears the pixels inside r.
func (f Frame) zero(r image.Rectangle) {
	rowBytes := r.Dx() * Channels
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := y*f.Stride() + r.Min.X*Channels
		clear(f.Pix[start : start+rowBytes])
	}
}
