package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/crossproj/internal/check"
	"github.com/backmassage/crossproj/internal/config"
	"github.com/backmassage/crossproj/internal/display"
	"github.com/backmassage/crossproj/internal/logging"
	"github.com/backmassage/crossproj/internal/pipeline"
)

// errReported marks a failure that has already been printed.
var errReported = errors.New("failed")

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "crossproj --input <video> [--output output.mp4] [--direction up|down]",
		Short: "Project a video onto the four arms of a cross",
		Long: "crossproj re-encodes a video so that every frame appears four times,\n" +
			"rotated and mirrored around a square canvas of side width+2*height.\n" +
			"The source audio track is carried over when present.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("crossproj {{.Version}}\n")

	flags := config.BindFlags(cmd.Flags(), &cfg)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		start := time.Now()
		var log *logging.Logger

		// Every run ends with the elapsed time, whichever phase it stopped in.
		defer func() {
			elapsed := display.FormatElapsed(time.Since(start))
			if log == nil {
				fmt.Fprintf(stderr, "Elapsed: %s\n", elapsed)
				return
			}
			log.Info("Elapsed: %s", elapsed)
			_ = log.Close()
		}()

		// Bootstrap: the logger doesn't exist yet, so errors go directly to
		// stderr.
		bootstrapErr := func(err error) error {
			fmt.Fprintf(stderr, "crossproj: %v\n", err)
			return errReported
		}
		if _, _, err := config.Load(flags.ConfigPath, &cfg); err != nil {
			return bootstrapErr(err)
		}
		config.ApplyFlags(cmd.Flags(), &cfg, flags)
		if err := cfg.Validate(); err != nil {
			return bootstrapErr(err)
		}
		l, err := logging.NewLogger(&cfg)
		if err != nil {
			return bootstrapErr(err)
		}
		log = l

		display.PrintBanner(stdout)
		if cfg.ConfigFile != "" {
			log.Debug("Config: %s", cfg.ConfigFile)
		}

		if cfg.CheckOnly {
			if !check.RunCheck(cmd.Context(), &cfg, log, stdout) {
				return errReported
			}
			return nil
		}

		if err := resolvePaths(&cfg); err != nil {
			log.Error("Projection failed: %v", err)
			return errReported
		}

		log.Info("=== crossproj v%s ===", version)
		log.Info("In:  %s", cfg.Input)
		log.Info("Out: %s", cfg.Output)

		res, err := pipeline.Run(cmd.Context(), &cfg, log, pipeline.DefaultDeps(&cfg, log))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("Interrupted; %s was not written", cfg.Output)
			} else {
				log.Error("Projection failed: %v", err)
			}
			return errReported
		}

		display.PrintSummary(stdout, res.SummaryRows())
		log.Success("Wrote %s (%s frames, audio: %s)", cfg.Output, display.FormatCount(res.Frames), res.Audio)
		return nil
	}
	return cmd
}

// resolvePaths makes cfg.Input and cfg.Output absolute and refuses an output
// that is the input itself.
func resolvePaths(cfg *config.Config) error {
	inputAbs, err := absPath(cfg.Input)
	if err != nil {
		return fmt.Errorf("input not found: %s", cfg.Input)
	}
	outputAbs, err := filepath.Abs(cfg.Output)
	if err != nil {
		return fmt.Errorf("cannot resolve output path %s: %w", cfg.Output, err)
	}
	if resolved, err := filepath.EvalSymlinks(outputAbs); err == nil {
		outputAbs = resolved
	}
	if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
		return err
	}
	cfg.Input, cfg.Output = inputAbs, outputAbs
	return nil
}

// absPath returns the absolute, symlink-resolved path of an existing file.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
