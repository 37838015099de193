package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/backmassage/crossproj/internal/config"
)

type testLogger struct{ warns []string }

func (l *testLogger) Warn(f string, a ...interface{})  { l.warns = append(l.warns, f) }
func (l *testLogger) Error(f string, a ...interface{}) {}
func (l *testLogger) Debug(f string, a ...interface{}) {}

// --- Builder tests ---

func TestPreamble(t *testing.T) {
	if got := strings.Join(Preamble(false), " "); got != "-hide_banner -nostdin -y -loglevel error" {
		t.Errorf("quiet preamble: %q", got)
	}
	if got := strings.Join(Preamble(true), " "); !strings.HasSuffix(got, "-loglevel info") {
		t.Errorf("verbose preamble: %q", got)
	}
}

func TestExtractArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	rs := NewRetryState()
	args := ExtractArgs(&cfg, "in.mp4", "audio.mka", rs)
	got := strings.Join(args, " ")

	for _, want := range []string{"-i in.mp4", "-vn -sn -dn", "-map 0:a:0", "-c:a copy", "-max_muxing_queue_size 4096", "-f matroska audio.mka"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if slices.Contains(args, "+genpts") {
		t.Error("timestamp fix applied before any retry")
	}
	if args[len(args)-1] != "audio.mka" {
		t.Errorf("output must be last, got %q", args[len(args)-1])
	}
}

func TestMergeArgs(t *testing.T) {
	cfg := config.DefaultConfig()
	rs := NewRetryState()
	rs.TimestampFix = true
	rs.MuxQueueSize = muxQueueEscalate
	args := MergeArgs(&cfg, "video.mp4", "audio.mka", "out.mp4", rs)
	got := strings.Join(args, " ")

	for _, want := range []string{
		"-fflags +genpts -i video.mp4 -i audio.mka",
		"-map 0:v:0 -map 1:a:0",
		"-c:v copy",
		"-c:a aac -b:a 192k",
		"-max_muxing_queue_size 16384",
		"-avoid_negative_ts make_zero",
		"-movflags +faststart out.mp4",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestMergeArgs_CopyAudioMKV(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AudioCodec = "copy"
	args := MergeArgs(&cfg, "v.mkv", "a.mka", "out.mkv", NewRetryState())
	got := strings.Join(args, " ")
	if !strings.Contains(got, "-c:a copy") || strings.Contains(got, "-b:a") {
		t.Errorf("copy audio args: %q", got)
	}
	if strings.Contains(got, "movflags") {
		t.Errorf("movflags on mkv output: %q", got)
	}
}

// --- Classification and retry tests ---

func TestMatchers(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		mux    bool
		ts     bool
		noA    bool
	}{
		{"mux", "Too many packets buffered for output stream 0:1.", true, false, false},
		{"dts", "Application provided invalid, non monotonically increasing dts to muxer", false, true, false},
		{"pts", "Timestamps are unset in a packet for stream 0", false, true, false},
		{"no audio", "Stream map '0:a:0' matches no streams.", false, false, true},
		{"no audio merge", "Stream map '1:a:0' matches no streams.", false, false, true},
		{"empty output", "Output file #0 does not contain any stream", false, false, true},
		{"other", "Conversion failed!", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchMuxQueueOverflow(tt.stderr); got != tt.mux {
				t.Errorf("mux = %v", got)
			}
			if got := MatchTimestampIssue(tt.stderr); got != tt.ts {
				t.Errorf("timestamp = %v", got)
			}
			if got := MatchNoAudioStream(tt.stderr); got != tt.noA {
				t.Errorf("no audio = %v", got)
			}
		})
	}
}

func TestRetryState_Advance(t *testing.T) {
	rs := NewRetryState()
	both := "Too many packets buffered for output stream 0:1.\nNon-monotonous DTS in output stream 0:1"

	if a := rs.Advance(both); a != RetryIncreaseMux || rs.MuxQueueSize != muxQueueEscalate {
		t.Fatalf("first advance: %v, queue %d", a, rs.MuxQueueSize)
	}
	if a := rs.Advance(both); a != RetryFixTimestamps || !rs.TimestampFix {
		t.Fatalf("second advance: %v", a)
	}
	if a := rs.Advance(both); a != RetryNone {
		t.Fatalf("third advance should hit the attempt limit, got %v", a)
	}
}

func TestRetryState_NoMatch(t *testing.T) {
	rs := NewRetryState()
	if a := rs.Advance("Conversion failed!"); a != RetryNone {
		t.Errorf("got %v, want RetryNone", a)
	}
	if a := RetryIncreaseMux.String(); a != "increase mux queue" {
		t.Errorf("label: %q", a)
	}
}

// --- Toolchain tests with a stub ffmpeg ---

// stubFFmpeg writes a script that appends its arguments to a log file, then
// prints stderr and exits with code. When succeedOn is non-empty the script
// exits 0 once its arguments contain that string.
func stubFFmpeg(t *testing.T, stderr string, code int, succeedOn string) (bin, argLog string) {
	t.Helper()
	dir := t.TempDir()
	argLog = filepath.Join(dir, "args.log")
	script := "#!/bin/sh\n" +
		"echo \"$*\" >> '" + argLog + "'\n"
	if succeedOn != "" {
		script += "case \"$*\" in *'" + succeedOn + "'*) exit 0;; esac\n"
	}
	script += "cat >&2 <<'EOF'\n" + stderr + "\nEOF\n" +
		"exit " + strconv.Itoa(code) + "\n"
	bin = filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin, argLog
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestToolchain_RetryThenSucceed(t *testing.T) {
	bin, argLog := stubFFmpeg(t, "Too many packets buffered for output stream 0:1.", 1, "-max_muxing_queue_size 16384")
	cfg := config.DefaultConfig()
	cfg.FFmpegPath = bin
	log := &testLogger{}

	tc := NewToolchain(&cfg, log)
	if err := tc.MergeAudioVideo(context.Background(), "v.mp4", "a.mka", filepath.Join(t.TempDir(), "out.mp4")); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if n := len(readLines(t, argLog)); n != 2 {
		t.Errorf("ffmpeg ran %d times, want 2", n)
	}
	if len(log.warns) != 1 {
		t.Errorf("warnings: %v", log.warns)
	}
}

func TestToolchain_StrictNoRetry(t *testing.T) {
	bin, argLog := stubFFmpeg(t, "Too many packets buffered for output stream 0:1.", 1, "")
	cfg := config.DefaultConfig()
	cfg.FFmpegPath = bin
	cfg.StrictMode = true

	tc := NewToolchain(&cfg, &testLogger{})
	if err := tc.MergeAudioVideo(context.Background(), "v.mp4", "a.mka", filepath.Join(t.TempDir(), "out.mp4")); err == nil {
		t.Fatal("expected failure in strict mode")
	}
	if n := len(readLines(t, argLog)); n != 1 {
		t.Errorf("ffmpeg ran %d times, want 1", n)
	}
}

func TestToolchain_NoAudio(t *testing.T) {
	bin, argLog := stubFFmpeg(t, "Stream map '0:a:0' matches no streams.", 1, "")
	cfg := config.DefaultConfig()
	cfg.FFmpegPath = bin

	out := filepath.Join(t.TempDir(), "audio.mka")
	if err := os.WriteFile(out, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := NewToolchain(&cfg, &testLogger{}).ExtractAudio(context.Background(), "in.mp4", out)
	if !errors.Is(err, ErrNoAudioStream) || !IsNoAudio(err) {
		t.Fatalf("got %v, want ErrNoAudioStream", err)
	}
	if n := len(readLines(t, argLog)); n != 1 {
		t.Errorf("ffmpeg ran %d times, want 1", n)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("partial audio artifact not removed")
	}
}

func TestToolchain_AttemptLimit(t *testing.T) {
	bin, argLog := stubFFmpeg(t, "Too many packets buffered for output stream 0:1.\nNon-monotonous DTS in output stream 0:1", 1, "")
	cfg := config.DefaultConfig()
	cfg.FFmpegPath = bin

	err := NewToolchain(&cfg, &testLogger{}).ExtractAudio(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "a.mka"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if n := len(readLines(t, argLog)); n != maxAttempts {
		t.Errorf("ffmpeg ran %d times, want %d", n, maxAttempts)
	}
}

// --- Integration with a real ffmpeg ---

func TestToolchain_ExtractAndMerge(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	gen := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=64x48:rate=10",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1:sample_rate=48000",
		"-c:v", "mpeg4", "-c:a", "aac", "-y", src)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Fatalf("generate source: %v\n%s", err, out)
	}

	cfg := config.DefaultConfig()
	tc := NewToolchain(&cfg, &testLogger{})
	audio := filepath.Join(dir, "audio.mka")
	if err := tc.ExtractAudio(context.Background(), src, audio); err != nil {
		t.Fatalf("extract: %v", err)
	}
	out := filepath.Join(dir, "merged.mp4")
	if err := tc.MergeAudioVideo(context.Background(), src, audio, out); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		t.Fatalf("merged output missing: %v", err)
	}
}
