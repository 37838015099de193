// Package projector maps a flat video frame into a cross-shaped canvas: four
// mirrored/rotated copies of the frame laid out as the side faces of an
// unfolded cube around a black centre, with black h×h corners.
//
// For a source of width w and height h the canvas is (w+2h)×(w+2h):
//
//	       h        w        h
//	  +--------+--------+--------+
//	h | black  |  top   | black  |
//	  +--------+--------+--------+
//	w |  left  | (zero) | right  |
//	  +--------+--------+--------+
//	h | black  | bottom | black  |
//	  +--------+--------+--------+
//
// Every tile is a horizontal mirror of a rotated source. Rotations are
// multiples of 90°, so the mapping is an exact pixel permutation with no
// resampling, and the result depends only on the input frame and the
// [Direction].
package projector
