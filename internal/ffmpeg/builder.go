package ffmpeg

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backmassage/crossproj/internal/config"
)

// Preamble returns the flags shared by every ffmpeg invocation.
func Preamble(verbose bool) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if verbose {
		return append(args, "-loglevel", "info")
	}
	return append(args, "-loglevel", "error")
}

// ExtractArgs builds the command that copies the first audio stream of in
// into a Matroska audio file at out, without touching the codec.
func ExtractArgs(cfg *config.Config, in, out string, rs *RetryState) []string {
	args := Preamble(cfg.Verbose)

	// --- Pre-input flags (timestamp fix) ---
	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts")
	}

	args = append(args, "-i", in,
		"-vn", "-sn", "-dn",
		"-map", "0:a:0",
		"-c:a", "copy",
		"-max_muxing_queue_size", strconv.Itoa(rs.MuxQueueSize),
	)

	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}
	return append(args, "-f", "matroska", out)
}

// MergeArgs builds the command that muxes the video stream of video with
// the audio stream of audio into out. Video is stream-copied; audio is
// encoded with the configured codec and bitrate.
func MergeArgs(cfg *config.Config, video, audio, out string, rs *RetryState) []string {
	args := Preamble(cfg.Verbose)

	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts")
	}

	args = append(args,
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
	)
	args = append(args, audioCodecArgs(cfg)...)
	args = append(args,
		"-max_muxing_queue_size", strconv.Itoa(rs.MuxQueueSize),
	)

	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}
	args = append(args, ContainerArgs(out)...)
	return append(args, out)
}

// audioCodecArgs returns the audio codec section. "copy" keeps the source
// codec and ignores the bitrate.
func audioCodecArgs(cfg *config.Config) []string {
	if cfg.AudioCodec == "copy" {
		return []string{"-c:a", "copy"}
	}
	args := []string{"-c:a", cfg.AudioCodec}
	if cfg.AudioBitrate != "" {
		args = append(args, "-b:a", cfg.AudioBitrate)
	}
	return args
}

// ContainerArgs returns muxer flags for the container implied by path's
// extension. MP4-family outputs get the moov atom moved to the front.
func ContainerArgs(path string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return []string{"-movflags", "+faststart"}
	}
	return nil
}
