// Package ffmpeg builds and executes the audio side of a projection run:
// extracting the source audio track into the workspace and remuxing it with
// the projected video.
//
// Arguments share one preamble (see [Preamble]); stderr of every run is
// captured and classified so that known muxer failures are retried with a
// single fix per attempt (see [RetryState]).
package ffmpeg
