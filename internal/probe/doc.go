// Package probe runs ffprobe against a source video and returns the typed
// properties the projection pipeline needs: display size, frame rate,
// expected frame count and whether an audio track exists.
package probe
