// Package frameio streams raw RGB24 frames in and out of ffmpeg.
//
// A [Decoder] reads packed rgb24 frames from an ffmpeg process decoding the
// source; an [Encoder] writes frames to an ffmpeg process encoding the
// projected video. Both are forward-only and own their subprocess: Close
// always reaps it, killing it first when the stream was abandoned.
package frameio
