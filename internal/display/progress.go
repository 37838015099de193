package display

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress reports frames written during the projection loop. A disabled
// Progress is a no-op, so callers never need to branch on TTY state.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress returns a frame progress bar on w. total <= 0 draws a spinner
// with a running count. When enabled is false the bar is never drawn.
func NewProgress(w io.Writer, total int64, enabled bool) *Progress {
	if !enabled {
		return &Progress{}
	}
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Projecting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(30),
	)
	return &Progress{bar: bar}
}

// Add advances the bar by n frames.
func (p *Progress) Add(n int) {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(n)
}

// Finish completes and clears the bar.
func (p *Progress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
