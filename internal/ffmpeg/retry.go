package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone          RetryAction = iota
	RetryIncreaseMux               // Raise max_muxing_queue_size to 16384.
	RetryFixTimestamps             // Enable +genpts and avoid_negative_ts.
)

// String returns the label logged for a retry.
func (a RetryAction) String() string {
	switch a {
	case RetryIncreaseMux:
		return "increase mux queue"
	case RetryFixTimestamps:
		return "fix timestamps"
	default:
		return "none"
	}
}

const (
	maxAttempts      = 3
	muxQueueDefault  = 4096
	muxQueueEscalate = 16384
)

// RetryState tracks which fallback fixes have been applied across ffmpeg
// retry attempts for a single command.
type RetryState struct {
	Attempt     int
	MaxAttempts int

	MuxQueueSize int
	TimestampFix bool
}

// NewRetryState returns the initial state: default mux queue, no timestamp fix.
func NewRetryState() *RetryState {
	return &RetryState{
		MaxAttempts:  maxAttempts,
		MuxQueueSize: muxQueueDefault,
	}
}

// Advance inspects stderr from a failed ffmpeg run, finds the first matching
// error pattern whose fix has not yet been applied, applies that fix, and
// returns the action taken. Returns RetryNone when no fixable pattern matches
// or the attempt limit is reached.
//
// Pattern evaluation order: mux queue, then timestamp.
// Only one fix is applied per call (one fix per retry attempt).
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}

	if s.MuxQueueSize < muxQueueEscalate && MatchMuxQueueOverflow(stderr) {
		s.MuxQueueSize = muxQueueEscalate
		return RetryIncreaseMux
	}
	if !s.TimestampFix && MatchTimestampIssue(stderr) {
		s.TimestampFix = true
		return RetryFixTimestamps
	}

	return RetryNone
}
