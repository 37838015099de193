package projector

// Exact 90°-multiple geometric primitives. Rotation names follow the
// on-screen sense: Rotate90CW turns the picture clockwise.

// Flip mirrors f along its vertical axis (left and right swap).
func Flip(f Frame) Frame {
	out := NewFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			out.Set(x, y, f.At(f.Width-1-x, y))
		}
	}
	return out
}

// Rotate90CW rotates f clockwise. The result is Height wide and Width tall.
func Rotate90CW(f Frame) Frame {
	out := NewFrame(f.Height, f.Width)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, f.At(y, f.Height-1-x))
		}
	}
	return out
}

// Rotate90CCW rotates f counter-clockwise. The result is Height wide and
// Width tall.
func Rotate90CCW(f Frame) Frame {
	out := NewFrame(f.Height, f.Width)
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, f.At(f.Width-1-y, x))
		}
	}
	return out
}

// Rotate180 turns f upside down.
func Rotate180(f Frame) Frame {
	out := NewFrame(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			out.Set(x, y, f.At(f.Width-1-x, f.Height-1-y))
		}
	}
	return out
}

// orientation is one of the four mirrored tile transforms used by the
// layout. Each is flip(rotate(src)) collapsed into a single coordinate map
// so a tile can be written straight into the canvas.
type orientation int

const (
	mirrorNone   orientation = iota // flip(src)
	mirrorRot180                    // flip(rotate180(src)): vertical mirror
	mirrorRotCCW                    // flip(rotate90CCW(src)): anti-transpose
	mirrorRotCW                     // flip(rotate90CW(src)): transpose
)

func (o orientation) String() string {
	switch o {
	case mirrorNone:
		return "flip"
	case mirrorRot180:
		return "flip(rotate180)"
	case mirrorRotCCW:
		return "flip(rotate90ccw)"
	case mirrorRotCW:
		return "flip(rotate90cw)"
	}
	return "unknown"
}

// transposes reports whether the tile is src.Height wide and src.Width tall.
func (o orientation) transposes() bool {
	return o == mirrorRotCCW || o == mirrorRotCW
}

// apply returns the tile as a standalone frame.
func (o orientation) apply(src Frame) Frame {
	switch o {
	case mirrorRot180:
		return Flip(Rotate180(src))
	case mirrorRotCCW:
		return Flip(Rotate90CCW(src))
	case mirrorRotCW:
		return Flip(Rotate90CW(src))
	default:
		return Flip(src)
	}
}

// blit writes the tile of src under o into dst with its top-left corner at
// (x0, y0). The tile area of dst must already be in bounds.
func (o orientation) blit(dst Frame, x0, y0 int, src Frame) {
	w, h := src.Width, src.Height
	stride := dst.Stride()
	srcStride := src.Stride()

	switch o {
	case mirrorNone:
		// tile(x, y) = src(w-1-x, y)
		for y := 0; y < h; y++ {
			d := (y0+y)*stride + x0*Channels
			s := y*srcStride + (w-1)*Channels
			for x := 0; x < w; x++ {
				copy(dst.Pix[d:d+Channels], src.Pix[s:s+Channels])
				d += Channels
				s -= Channels
			}
		}
	case mirrorRot180:
		// tile(x, y) = src(x, h-1-y); whole rows move unchanged.
		for y := 0; y < h; y++ {
			d := (y0+y)*stride + x0*Channels
			s := (h - 1 - y) * srcStride
			copy(dst.Pix[d:d+srcStride], src.Pix[s:s+srcStride])
		}
	case mirrorRotCCW:
		// tile is h wide, w tall; tile(x, y) = src(w-1-y, h-1-x)
		for y := 0; y < w; y++ {
			d := (y0+y)*stride + x0*Channels
			for x := 0; x < h; x++ {
				s := (h-1-x)*srcStride + (w-1-y)*Channels
				copy(dst.Pix[d:d+Channels], src.Pix[s:s+Channels])
				d += Channels
			}
		}
	case mirrorRotCW:
		// tile is h wide, w tall; tile(x, y) = src(y, x)
		for y := 0; y < w; y++ {
			d := (y0+y)*stride + x0*Channels
			for x := 0; x < h; x++ {
				s := x*srcStride + y*Channels
				copy(dst.Pix[d:d+Channels], src.Pix[s:s+Channels])
				d += Channels
			}
		}
	}
}
