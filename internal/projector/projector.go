package projector

import (
	"fmt"
	"image"
	"strings"
)

// Direction selects which of the two mirrored face assignments is used.
type Direction string

const (
	Up   Direction = "up"   // Default.
	Down Direction = "down" // Top and bottom swap, left and right swap.
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("%w: %q", ErrDirection, s)
}

// Valid reports whether d is Up or Down.
func (d Direction) Valid() bool { return d == Up || d == Down }

// Face identifies one of the four tiles of the cross.
type Face int

const (
	Top Face = iota
	Right
	Bottom
	Left
)

// Faces lists the tiles in clockwise order starting at the top.
var Faces = [4]Face{Top, Right, Bottom, Left}

func (f Face) String() string {
	switch f {
	case Top:
		return "top"
	case Right:
		return "right"
	case Bottom:
		return "bottom"
	case Left:
		return "left"
	}
	return "unknown"
}

// layouts holds the tile orientation per face, indexed like Faces. Down is
// Up shifted by two positions: top<->bottom and right<->left.
var layouts = map[Direction][4]orientation{
	Up:   {mirrorNone, mirrorRotCCW, mirrorRot180, mirrorRotCW},
	Down: {mirrorRot180, mirrorRotCW, mirrorNone, mirrorRotCCW},
}

// CanvasSize returns the side of the square canvas for a w×h source.
func CanvasSize(w, h int) int { return w + 2*h }

// FaceRect returns the canvas rectangle occupied by face for a w×h source.
func FaceRect(face Face, w, h int) image.Rectangle {
	switch face {
	case Top:
		return image.Rect(h, 0, h+w, h)
	case Right:
		return image.Rect(w+h, h, w+2*h, h+w)
	case Bottom:
		return image.Rect(h, h+w, h+w, 2*h+w)
	case Left:
		return image.Rect(0, h, h, h+w)
	}
	return image.Rectangle{}
}

// CornerRects returns the four h×h corner blocks that stay black.
func CornerRects(w, h int) [4]image.Rectangle {
	n := CanvasSize(w, h)
	return [4]image.Rectangle{
		image.Rect(0, 0, h, h),
		image.Rect(n-h, 0, n, h),
		image.Rect(0, n-h, h, n),
		image.Rect(n-h, n-h, n, n),
	}
}

// Projector composes cross canvases for a fixed direction. It holds no
// per-frame state and is safe for concurrent use.
type Projector struct {
	dir    Direction
	layout [4]orientation
}

// New returns a Projector for dir.
func New(dir Direction) (*Projector, error) {
	layout, ok := layouts[dir]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDirection, dir)
	}
	return &Projector{dir: dir, layout: layout}, nil
}

// Direction returns the direction the projector was built with.
func (p *Projector) Direction() Direction { return p.dir }

// NewCanvas allocates a black canvas sized for a w×h source.
func (p *Projector) NewCanvas(w, h int) (Frame, error) {
	if w <= 0 || h <= 0 {
		return Frame{}, fmt.Errorf("%w: %dx%d", ErrEmptyFrame, w, h)
	}
	n := CanvasSize(w, h)
	return NewFrame(n, n), nil
}

// ProjectInto writes the cross projection of src into dst, which must be a
// canvas of CanvasSize(src.Width, src.Height) on each side. All four faces
// are overwritten and the corners cleared, so dst can be reused from frame
// to frame.
func (p *Projector) ProjectInto(dst Frame, src Frame) error {
	if err := src.Validate(); err != nil {
		return err
	}
	n := CanvasSize(src.Width, src.Height)
	if dst.Width != n || dst.Height != n {
		return fmt.Errorf("%w: canvas is %dx%d, want %dx%d", ErrFrameSize, dst.Width, dst.Height, n, n)
	}
	if err := dst.Validate(); err != nil {
		return err
	}

	for i, face := range Faces {
		r := FaceRect(face, src.Width, src.Height)
		p.layout[i].blit(dst, r.Min.X, r.Min.Y, src)
	}
	for _, r := range CornerRects(src.Width, src.Height) {
		dst.zero(r)
	}
	// The centre w×w block is never written by a face.
	dst.zero(image.Rect(src.Height, src.Height, src.Height+src.Width, src.Height+src.Width))
	return nil
}

// Tile returns the standalone tile that face receives for src, built from
// the primitive transforms rather than the fused canvas writer.
func (p *Projector) Tile(face Face, src Frame) Frame {
	return p.layout[face].apply(src)
}

// Project returns a new canvas holding the cross projection of src.
func Project(src Frame, dir Direction) (Frame, error) {
	p, err := New(dir)
	if err != nil {
		return Frame{}, err
	}
	if err := src.Validate(); err != nil {
		return Frame{}, err
	}
	dst, err := p.NewCanvas(src.Width, src.Height)
	if err != nil {
		return Frame{}, err
	}
	if err := p.ProjectInto(dst, src); err != nil {
		return Frame{}, err
	}
	return dst, nil
}
