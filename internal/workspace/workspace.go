// Package workspace manages the scoped temporary directory of one run and
// the final placement of its artifacts.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

// Prefix starts the name of every workspace directory.
const Prefix = ".crossproj-"

// Workspace is a private temp directory removed by Close.
type Workspace struct {
	id     string
	dir    string
	keep   bool
	closed bool
}

// New creates <base>/.crossproj-<uuid>. base must exist; an empty base uses
// os.TempDir().
func New(base string) (*Workspace, error) {
	if base == "" {
		base = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(base, Prefix+id)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{id: id, dir: dir}, nil
}

// ID returns the run identifier embedded in the directory name.
func (w *Workspace) ID() string { return w.id }

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// AudioPath is where the extracted source audio is stored.
func (w *Workspace) AudioPath() string { return filepath.Join(w.dir, "audio.mka") }

// SilentVideoPath is where the projected video without audio is encoded.
// ext is the output container extension, including the dot.
func (w *Workspace) SilentVideoPath(ext string) string {
	return filepath.Join(w.dir, "video"+normalizeExt(ext))
}

// MergedPath is where the remuxed video with audio is written before it is
// moved into place.
func (w *Workspace) MergedPath(ext string) string {
	return filepath.Join(w.dir, "merged"+normalizeExt(ext))
}

// Keep disables removal on Close.
func (w *Workspace) Keep() { w.keep = true }

// Kept reports whether Close will leave the directory behind.
func (w *Workspace) Kept() bool { return w.keep }

// Close removes the workspace and everything in it unless Keep was called.
// Close is idempotent.
func (w *Workspace) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.dir)
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// Place moves src to dst. A rename is tried first; across filesystems the
// file is copied to a temp name next to dst and renamed over it, so dst
// never holds a partial file.
func Place(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".part")
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("place %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("place %s: %w", dst, err)
	}
	_ = os.Remove(src)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
