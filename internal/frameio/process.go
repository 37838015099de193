package frameio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// stderrTail bounds how much ffmpeg stderr is kept for error messages.
const stderrTail = 4096

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}

// process is one ffmpeg subprocess. wait is idempotent and safe to call
// after kill.
type process struct {
	cmd    *exec.Cmd
	stderr *tailBuffer
	done   bool
	err    error
}

func newProcess(ctx context.Context, bin string, args []string, verbose bool) *process {
	p := &process{
		cmd:    exec.CommandContext(ctx, bin, args...),
		stderr: &tailBuffer{max: stderrTail},
	}
	if verbose {
		p.cmd.Stderr = io.MultiWriter(p.stderr, os.Stderr)
	} else {
		p.cmd.Stderr = p.stderr
	}
	return p
}

func (p *process) start() error {
	if err := p.cmd.Start(); err != nil {
		p.done = true
		return fmt.Errorf("start %s: %w", p.cmd.Path, err)
	}
	return nil
}

// wait reaps the process and returns its exit error annotated with the tail
// of stderr.
func (p *process) wait() error {
	if p.done {
		return p.err
	}
	p.done = true
	if err := p.cmd.Wait(); err != nil {
		if msg := lastLine(p.stderr.String()); msg != "" {
			p.err = fmt.Errorf("ffmpeg: %w: %s", err, msg)
		} else {
			p.err = fmt.Errorf("ffmpeg: %w", err)
		}
	}
	return p.err
}

// kill stops a still-running process and reaps it.
func (p *process) kill() {
	if p.done {
		return
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.wait()
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
