package pipeline

import (
	"fmt"
	"time"

	"github.com/backmassage/crossproj/internal/display"
	"github.com/backmassage/crossproj/internal/probe"
	"github.com/backmassage/crossproj/internal/projector"
)

// AudioOutcome records what happened to the source audio.
type AudioOutcome string

const (
	AudioMerged        AudioOutcome = "merged"         // Output carries the source audio.
	AudioNone          AudioOutcome = "none"           // Source has no audio stream.
	AudioExtractFailed AudioOutcome = "extract-failed" // Extraction failed; output is silent.
	AudioMergeFailed   AudioOutcome = "merge-failed"   // Remux failed; output is silent.
)

// Result summarizes one run. Fields are filled as far as the run got.
type Result struct {
	Input        string
	Output       string
	Direction    projector.Direction
	SourceWidth  int
	SourceHeight int
	CanvasSize   int
	Rate         probe.Rate
	Frames       int64
	Audio        AudioOutcome
	OutputBytes  int64
	Workspace    string // Set only when the workspace was kept.
	Elapsed      time.Duration
}

// HasAudio reports whether the output carries an audio stream.
func (r *Result) HasAudio() bool { return r.Audio == AudioMerged }

// SummaryRows returns the end-of-run summary for display.
func (r *Result) SummaryRows() []display.SummaryRow {
	rows := []display.SummaryRow{
		{Label: "Output", Value: r.Output},
		{Label: "Direction", Value: string(r.Direction)},
		{Label: "Source", Value: fmt.Sprintf("%dx%d", r.SourceWidth, r.SourceHeight)},
		{Label: "Canvas", Value: fmt.Sprintf("%dx%d", r.CanvasSize, r.CanvasSize)},
		{Label: "Frame rate", Value: display.FormatFPS(r.Rate.Float())},
		{Label: "Frames", Value: display.FormatCount(r.Frames)},
		{Label: "Audio", Value: string(r.Audio)},
		{Label: "Size", Value: display.FormatBytes(r.OutputBytes)},
	}
	if r.Workspace != "" {
		rows = append(rows, display.SummaryRow{Label: "Workspace", Value: r.Workspace})
	}
	return append(rows, display.SummaryRow{Label: "Elapsed", Value: display.FormatElapsed(r.Elapsed)})
}
