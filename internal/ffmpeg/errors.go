package ffmpeg

import (
	"errors"
	"regexp"
)

// ErrNoAudioStream is returned when the source has no audio stream to
// extract. It is never retried.
var ErrNoAudioStream = errors.New("no audio stream")

// Pre-compiled regexes for classifying ffmpeg stderr output into retryable
// error categories. Checked in order by [RetryState.Advance]; the first
// matching pattern whose fix has not yet been applied wins.
var (
	reMuxQueueOverflow = regexp.MustCompile(
		`Too many packets buffered for output stream`)

	reTimestampIssue = regexp.MustCompile(
		`(?i)Non-monotonous DTS|non monotonically increasing dts|` +
			`invalid, non monotonically increasing dts|` +
			`DTS .*out of order|PTS .*out of order|` +
			`pts has no value|missing PTS|Timestamps are unset`)

	reNoAudioStream = regexp.MustCompile(
		`(?i)Stream map '\d+:a:0' matches no streams|` +
			`Output file .*does not contain any stream`)
)

// MatchMuxQueueOverflow reports whether stderr contains a mux queue overflow.
func MatchMuxQueueOverflow(stderr string) bool {
	return reMuxQueueOverflow.MatchString(stderr)
}

// MatchTimestampIssue reports whether stderr contains a timestamp discontinuity.
func MatchTimestampIssue(stderr string) bool {
	return reTimestampIssue.MatchString(stderr)
}

// MatchNoAudioStream reports whether stderr says the audio map matched nothing.
func MatchNoAudioStream(stderr string) bool {
	return reNoAudioStream.MatchString(stderr)
}
