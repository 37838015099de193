package probe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// Rate is a frame rate as the exact rational ffprobe reports it.
type Rate struct {
	Num int
	Den int
}

// ParseRate parses "30000/1001", "25/1" or a plain "24". A zero numerator or
// denominator yields the zero Rate.
func ParseRate(s string) Rate {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	if !found {
		den = "1"
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return Rate{}
	}
	return Rate{Num: n, Den: d}
}

// Valid reports whether the rate is positive.
func (r Rate) Valid() bool { return r.Num > 0 && r.Den > 0 }

// Float returns frames per second.
func (r Rate) Float() float64 {
	if !r.Valid() {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String returns "num/den", the form ffmpeg accepts for -framerate.
func (r Rate) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index         int
	Codec         string
	PixFmt        string
	Width         int
	Height        int
	Rotation      int // Degrees from the display matrix, normalized to 0/90/180/270.
	AvgFrameRate  Rate
	RealFrameRate Rate
	NbFrames      int64
	Duration      float64
	IsAttachedPic bool
}

// DisplaySize returns the size frames have after ffmpeg applies the stream
// rotation, which is what the decoder emits.
func (v *VideoStream) DisplaySize() (int, int) {
	if v.Rotation == 90 || v.Rotation == 270 {
		return v.Height, v.Width
	}
	return v.Width, v.Height
}

// FrameRate returns avg_frame_rate, falling back to r_frame_rate when the
// average is unset ("0/0").
func (v *VideoStream) FrameRate() Rate {
	if v.AvgFrameRate.Valid() {
		return v.AvgFrameRate
	}
	return v.RealFrameRate
}

// AudioStream holds the parsed properties of a single audio stream.
type AudioStream struct {
	Index      int
	Codec      string
	Channels   int
	SampleRate int
	BitRate    int64
	Language   string
}

// ProbeResult is the fully parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first non-attached-pic video stream (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
	AudioStreams []AudioStream
}

// HasAudio reports whether the source carries at least one audio stream.
func (p *ProbeResult) HasAudio() bool { return len(p.AudioStreams) > 0 }

// ExpectedFrames estimates the number of frames in the primary video
// stream: nb_frames when the container records it, else duration × fps.
// Returns 0 when unknown. Only used for progress display.
func (p *ProbeResult) ExpectedFrames() int64 {
	v := p.PrimaryVideo
	if v == nil {
		return 0
	}
	if v.NbFrames > 0 {
		return v.NbFrames
	}
	duration := v.Duration
	if duration <= 0 {
		duration = p.Format.Duration
	}
	fps := v.FrameRate().Float()
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int64(math.Round(duration * fps))
}

// Resolution returns "WxH" of the decoded frames, or "unknown".
func (p *ProbeResult) Resolution() string {
	if p.PrimaryVideo == nil {
		return "unknown"
	}
	w, h := p.PrimaryVideo.DisplaySize()
	if w <= 0 || h <= 0 {
		return "unknown"
	}
	return strconv.Itoa(w) + "x" + strconv.Itoa(h)
}
