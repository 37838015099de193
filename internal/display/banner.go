package display

import (
	"fmt"
	"io"

	"github.com/backmassage/crossproj/internal/term"
)

// PrintBanner prints the ASCII art banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprint(w, `                                           _
  ___ _ __ ___  ___ ___ _ __  _ __ ___  (_)
 / __| '__/ _ \/ __/ __| '_ \| '__/ _ \ | |
| (__| | | (_) \__ \__ \ |_) | | | (_) || |
 \___|_|  \___/|___/___/ .__/|_|  \___// |
                       |_|           |__/
`)
	if term.Enabled() {
		fmt.Fprintln(w, term.NC)
	}
}
