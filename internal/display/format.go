package display

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable IEC size (B, KiB, MiB, GiB, ...).
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatCount returns n with thousands separators (e.g. "12,345").
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatElapsed renders a duration as seconds with two decimals ("12.34s").
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatFPS renders a frame rate with up to three decimals ("29.97 fps").
func FormatFPS(fps float64) string {
	return humanize.FtoaWithDigits(fps, 3) + " fps"
}
