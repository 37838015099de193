package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/ffmpeg"
	"github.com/backmassage/crossproj/internal/frameio"
	"github.com/backmassage/crossproj/internal/logging"
	"github.com/backmassage/crossproj/internal/probe"
	"github.com/backmassage/crossproj/internal/projector"
	"github.com/backmassage/crossproj/internal/workspace"
)

// --- Fakes ---

type fakeToolchain struct {
	validateErr error
	extractErr  error
	mergeErr    error
	calls       []string
}

func (f *fakeToolchain) Validate(context.Context) error {
	f.calls = append(f.calls, "validate")
	return f.validateErr
}

func (f *fakeToolchain) ExtractAudio(_ context.Context, in, out string) error {
	f.calls = append(f.calls, "extract")
	if f.extractErr != nil {
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return f.extractErr
	}
	return os.WriteFile(out, []byte("audio"), 0o644)
}

func (f *fakeToolchain) MergeAudioVideo(_ context.Context, video, audio, out string) error {
	f.calls = append(f.calls, "merge")
	if f.mergeErr != nil {
		return f.mergeErr
	}
	v, err := os.ReadFile(video)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append([]byte("merged:"), v...), 0o644)
}

// fileSink writes raw canvases to a file, as the real encoder writes a
// video file.
type fileSink struct {
	*frameio.Encoder
	f       *os.File
	aborted bool
}

func (s *fileSink) Close() error {
	if err := s.Encoder.Close(); err != nil {
		return err
	}
	return s.f.Close()
}

func (s *fileSink) Abort() {
	s.aborted = true
	s.Encoder.Abort()
	_ = s.f.Close()
}

type harness struct {
	cfg    config.Config
	tc     *fakeToolchain
	frames []projector.Frame
	stream []byte
	info   SourceInfo
	log    bytes.Buffer
	sink   *fileSink
}

func newHarness(t *testing.T, w, h, n int) *harness {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	if err := os.WriteFile(input, []byte("source"), 0o644); err != nil {
		t.Fatal(err)
	}

	hs := &harness{
		cfg: config.DefaultConfig(),
		tc:  &fakeToolchain{},
		info: SourceInfo{
			Width: w, Height: h,
			Rate:           probe.Rate{Num: 30, Den: 1},
			Codec:          "h264",
			HasAudio:       true,
			AudioCodec:     "aac",
			ExpectedFrames: int64(n),
		},
	}
	hs.cfg.Input = input
	hs.cfg.Output = filepath.Join(dir, "out", "output.mp4")
	hs.cfg.ColorMode = config.ColorNever

	for i := 0; i < n; i++ {
		f := projector.NewFrame(w, h)
		for j := range f.Pix {
			f.Pix[j] = byte(i*7 + j)
		}
		hs.frames = append(hs.frames, f)
		hs.stream = append(hs.stream, f.Pix...)
	}
	return hs
}

func (hs *harness) deps() Deps {
	return Deps{
		Toolchain: hs.tc,
		Probe: func(_ context.Context, path string) (SourceInfo, error) {
			if _, err := os.Stat(path); err != nil {
				return SourceInfo{}, err
			}
			return hs.info, nil
		},
		OpenSource: func(_ context.Context, _ string, info SourceInfo) (FrameSource, error) {
			return frameio.NewDecoder(bytes.NewReader(hs.stream), info.Width, info.Height)
		},
		OpenSink: func(_ context.Context, path string, side int, _ probe.Rate) (FrameSink, error) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			enc, err := frameio.NewEncoder(f, side, side)
			if err != nil {
				f.Close()
				return nil, err
			}
			hs.sink = &fileSink{Encoder: enc, f: f}
			return hs.sink, nil
		},
	}
}

func (hs *harness) run(ctx context.Context) (Result, error) {
	return Run(ctx, &hs.cfg, logging.NewWriterLogger(&hs.log, true), hs.deps())
}

func (hs *harness) silentBytes(t *testing.T) []byte {
	t.Helper()
	p, err := projector.New(hs.cfg.Direction)
	if err != nil {
		t.Fatal(err)
	}
	var out []byte
	for _, f := range hs.frames {
		c, err := projector.Project(f, p.Direction())
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, c.Pix...)
	}
	return out
}

// assertNoLeftovers checks that no workspace survives in dir and that the
// output lock, if any, is free again.
func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatal(err)
	}
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), workspace.Prefix):
			t.Errorf("leftover workspace %s in %s", e.Name(), dir)
		case strings.HasSuffix(e.Name(), ".lock"):
			l, err := workspace.AcquireLock(strings.TrimSuffix(filepath.Join(dir, e.Name()), ".lock"))
			if err != nil {
				t.Errorf("output lock still held: %v", err)
				continue
			}
			_ = l.Release()
		}
	}
}

// --- Scenarios ---

func TestRun_WithAudio(t *testing.T) {
	hs := newHarness(t, 16, 9, 60)
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, hs.log.String())
	}
	if res.Frames != 60 || res.CanvasSize != 34 {
		t.Errorf("frames=%d canvas=%d, want 60 and 34", res.Frames, res.CanvasSize)
	}
	if res.Audio != AudioMerged || !res.HasAudio() {
		t.Errorf("audio outcome %q", res.Audio)
	}

	got, err := os.ReadFile(hs.cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte("merged:"), hs.silentBytes(t)...)
	if !bytes.Equal(got, want) {
		t.Error("output is not the merged projection of every frame in order")
	}
	if res.OutputBytes != int64(len(want)) {
		t.Errorf("OutputBytes = %d, want %d", res.OutputBytes, len(want))
	}
	if strings.Join(hs.tc.calls, ",") != "validate,extract,merge" {
		t.Errorf("toolchain calls: %v", hs.tc.calls)
	}
	assertNoLeftovers(t, filepath.Dir(hs.cfg.Output))
}

func TestRun_ExtractFails(t *testing.T) {
	hs := newHarness(t, 16, 9, 60)
	hs.tc.extractErr = errors.New("boom")
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatalf("Run should succeed without audio: %v", err)
	}
	if res.Audio != AudioExtractFailed || res.HasAudio() {
		t.Errorf("audio outcome %q", res.Audio)
	}
	got, _ := os.ReadFile(hs.cfg.Output)
	if !bytes.Equal(got, hs.silentBytes(t)) {
		t.Error("output should be the silent projection")
	}
	if strings.Contains(strings.Join(hs.tc.calls, ","), "merge") {
		t.Error("merge attempted after failed extraction")
	}
	if !strings.Contains(hs.log.String(), "Audio extraction failed") {
		t.Errorf("missing extraction warning:\n%s", hs.log.String())
	}
	assertNoLeftovers(t, filepath.Dir(hs.cfg.Output))
}

func TestRun_MergeFails(t *testing.T) {
	hs := newHarness(t, 8, 4, 5)
	hs.tc.mergeErr = errors.New("mux exploded")
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatalf("Run should succeed without audio: %v", err)
	}
	if res.Audio != AudioMergeFailed {
		t.Errorf("audio outcome %q", res.Audio)
	}
	got, _ := os.ReadFile(hs.cfg.Output)
	if !bytes.Equal(got, hs.silentBytes(t)) {
		t.Error("output should be the silent projection")
	}
	if !strings.Contains(hs.log.String(), "Audio merge failed") {
		t.Errorf("missing merge warning:\n%s", hs.log.String())
	}
}

func TestRun_NoAudioStream(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	hs.info.HasAudio = false
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Audio != AudioNone {
		t.Errorf("audio outcome %q", res.Audio)
	}
	if strings.Join(hs.tc.calls, ",") != "validate" {
		t.Errorf("toolchain calls: %v", hs.tc.calls)
	}
}

func TestRun_ExtractReportsNoAudio(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	hs.tc.extractErr = ffmpeg.ErrNoAudioStream
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Audio != AudioNone {
		t.Errorf("audio outcome %q, want none", res.Audio)
	}
}

func TestRun_MissingInput(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	hs.cfg.Input = filepath.Join(t.TempDir(), "missing.mp4")

	deps := DefaultDeps(&hs.cfg, logging.NewWriterLogger(&hs.log, false))
	deps.Toolchain = hs.tc
	_, err := Run(context.Background(), &hs.cfg, logging.NewWriterLogger(&hs.log, false), deps)
	if !errors.Is(err, ErrSourceOpen) {
		t.Fatalf("got %v, want ErrSourceOpen", err)
	}
	if _, err := os.Stat(hs.cfg.Output); !os.IsNotExist(err) {
		t.Error("output created for a missing input")
	}
	if _, err := os.Stat(filepath.Dir(hs.cfg.Output)); !os.IsNotExist(err) {
		t.Error("output directory created for a missing input")
	}
}

func TestRun_EncoderUnavailable(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	hs.tc.validateErr = errors.New("ffmpeg: not found")
	probed := false
	deps := hs.deps()
	deps.Probe = func(context.Context, string) (SourceInfo, error) {
		probed = true
		return hs.info, nil
	}
	_, err := Run(context.Background(), &hs.cfg, logging.NewWriterLogger(&hs.log, false), deps)
	if !errors.Is(err, ErrEncoderUnavailable) {
		t.Fatalf("got %v, want ErrEncoderUnavailable", err)
	}
	if probed {
		t.Error("source probed after encoder validation failed")
	}
}

func TestRun_TruncatedFrameAborts(t *testing.T) {
	hs := newHarness(t, 8, 4, 4)
	hs.stream = hs.stream[:len(hs.stream)-10]
	_, err := hs.run(context.Background())
	if !errors.Is(err, ErrFrame) || !errors.Is(err, frameio.ErrTruncatedFrame) {
		t.Fatalf("got %v, want ErrFrame wrapping ErrTruncatedFrame", err)
	}
	if _, err := os.Stat(hs.cfg.Output); !os.IsNotExist(err) {
		t.Error("partial output left at destination")
	}
	if hs.sink == nil || !hs.sink.aborted {
		t.Error("encoder not aborted")
	}
	assertNoLeftovers(t, filepath.Dir(hs.cfg.Output))
}

func TestRun_EmptySource(t *testing.T) {
	hs := newHarness(t, 8, 4, 0)
	if _, err := hs.run(context.Background()); !errors.Is(err, ErrFrame) {
		t.Fatalf("got %v, want ErrFrame", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	hs := newHarness(t, 8, 4, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hs.run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if _, err := os.Stat(hs.cfg.Output); !os.IsNotExist(err) {
		t.Error("output written after cancellation")
	}
}

func TestRun_OutputLocked(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	if err := os.MkdirAll(filepath.Dir(hs.cfg.Output), 0o755); err != nil {
		t.Fatal(err)
	}
	lock, err := workspace.AcquireLock(hs.cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	if _, err := hs.run(context.Background()); !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("got %v, want ErrOutputLocked", err)
	}

	hs.cfg.LockOutput = false
	if _, err := hs.run(context.Background()); err != nil {
		t.Fatalf("unlocked run: %v", err)
	}
}

func TestRun_KeepTemp(t *testing.T) {
	hs := newHarness(t, 8, 4, 3)
	hs.cfg.KeepTemp = true
	hs.cfg.TempDir = t.TempDir()
	res, err := hs.run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Workspace == "" || filepath.Dir(res.Workspace) != hs.cfg.TempDir {
		t.Fatalf("workspace %q not under %q", res.Workspace, hs.cfg.TempDir)
	}
	if _, err := os.Stat(filepath.Join(res.Workspace, "audio.mka")); err != nil {
		t.Errorf("kept workspace missing audio: %v", err)
	}
}

func TestRun_DownDirection(t *testing.T) {
	hs := newHarness(t, 6, 3, 2)
	hs.cfg.Direction = projector.Down
	hs.info.HasAudio = false
	if _, err := hs.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(hs.cfg.Output)
	if !bytes.Equal(got, hs.silentBytes(t)) {
		t.Error("DOWN output differs from the DOWN projection")
	}
}

func TestRun_Deterministic(t *testing.T) {
	a := newHarness(t, 8, 4, 3)
	b := newHarness(t, 8, 4, 3)
	if _, err := a.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := b.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	ga, _ := os.ReadFile(a.cfg.Output)
	gb, _ := os.ReadFile(b.cfg.Output)
	if !bytes.Equal(ga, gb) {
		t.Error("two runs on the same input differ")
	}
}

func TestSourceInfo(t *testing.T) {
	pr := &probe.ProbeResult{
		PrimaryVideo: &probe.VideoStream{
			Index: 1, Codec: "h264", Width: 640, Height: 360,
			AvgFrameRate: probe.Rate{Num: 30, Den: 1}, NbFrames: 60,
		},
		AudioStreams: []probe.AudioStream{{Codec: "aac"}},
	}
	info, err := sourceInfo(pr)
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 640 || info.Height != 360 || !info.HasAudio || info.AudioCodec != "aac" || info.ExpectedFrames != 60 {
		t.Errorf("info: %+v", info)
	}

	if info.StreamIndex != 1 {
		t.Errorf("StreamIndex = %d, want the probed stream 1", info.StreamIndex)
	}

	if _, err := sourceInfo(&probe.ProbeResult{}); err == nil {
		t.Error("expected error without a video stream")
	}
	pr.PrimaryVideo.AvgFrameRate = probe.Rate{}
	if _, err := sourceInfo(pr); err == nil {
		t.Error("expected error without a frame rate")
	}
}

func TestResult_SummaryRows(t *testing.T) {
	r := Result{Output: "out.mp4", Direction: projector.Up, SourceWidth: 640, SourceHeight: 360,
		CanvasSize: 1360, Rate: probe.Rate{Num: 30, Den: 1}, Frames: 60, Audio: AudioMerged, OutputBytes: 2048}
	rows := r.SummaryRows()
	got := map[string]string{}
	for _, row := range rows {
		got[row.Label] = row.Value
	}
	if got["Canvas"] != "1360x1360" || got["Frames"] != "60" || got["Audio"] != "merged" || got["Size"] != "2.0 KiB" {
		t.Errorf("summary: %v", got)
	}
	if _, ok := got["Workspace"]; ok {
		t.Error("workspace row shown without a kept workspace")
	}
}

// --- End to end with a real ffmpeg ---

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}
}

func generateSource(t *testing.T, path string, withAudio bool) {
	t.Helper()
	args := []string{"-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "testsrc=duration=2:size=640x360:rate=30"}
	if withAudio {
		args = append(args, "-f", "lavfi", "-i", "sine=frequency=440:duration=2:sample_rate=48000", "-c:a", "aac")
	}
	args = append(args, "-c:v", "mpeg4", "-pix_fmt", "yuv420p", "-y", path)
	if out, err := exec.Command("ffmpeg", args...).CombinedOutput(); err != nil {
		t.Fatalf("generate source: %v\n%s", err, out)
	}
}

func TestEndToEnd_FFmpeg(t *testing.T) {
	requireFFmpeg(t)
	for _, withAudio := range []bool{true, false} {
		name := "silent"
		if withAudio {
			name = "audio"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.DefaultConfig()
			cfg.Input = filepath.Join(dir, "in.mp4")
			cfg.Output = filepath.Join(dir, "out", "output.mp4")
			cfg.VideoCodec = config.CodecMPEG4
			cfg.ShowProgress = false
			generateSource(t, cfg.Input, withAudio)

			var logBuf bytes.Buffer
			log := logging.NewWriterLogger(&logBuf, false)
			res, err := Run(context.Background(), &cfg, log, DefaultDeps(&cfg, log))
			if err != nil {
				t.Fatalf("Run: %v\n%s", err, logBuf.String())
			}
			if res.Frames != 60 || res.CanvasSize != 1360 {
				t.Errorf("frames=%d canvas=%d", res.Frames, res.CanvasSize)
			}

			pr, err := probe.Probe(context.Background(), "ffprobe", cfg.Output)
			if err != nil {
				t.Fatal(err)
			}
			if pr.Resolution() != "1360x1360" {
				t.Errorf("output resolution %s", pr.Resolution())
			}
			if pr.HasAudio() != withAudio {
				t.Errorf("output audio = %v, want %v", pr.HasAudio(), withAudio)
			}
			assertNoLeftovers(t, filepath.Dir(cfg.Output))
		})
	}
}
