// Command notebooklm-loader converts a document tree into Markdown and
// PDF files suitable for NotebookLM import, optionally packing the text
// into size-bounded merged volumes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/miitarou/notebooklm-loader/config"
	"github.com/miitarou/notebooklm-loader/loader"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath     string
		outputBase  string
		doMerge     bool
		dryRun      bool
		fullRebuild bool
		skipPPT     bool
		verbose     bool
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:          "notebooklm-loader <target>",
		Short:        "Convert a document tree into NotebookLM-ready Markdown and PDF",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if cfgPath != "" {
				var err error
				cfg, err = config.LoadConfig(cfgPath)
				if err != nil {
					return err
				}
			}
			if skipPPT {
				cfg.SkipPPT = true
			}

			opts := loader.Options{
				OutputBase:  outputBase,
				Merge:       doMerge,
				DryRun:      dryRun,
				FullRebuild: fullRebuild,
				Quiet:       quiet,
			}

			logDir := ""
			if !dryRun {
				base := outputBase
				if base == "" {
					base = "."
				}
				logDir = filepath.Join(base, cfg.OutputDirName, "logs")
			}
			logger, closeLog, err := setupLogging(logDir, verbose, quiet)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			defer closeLog()
			slog.SetDefault(logger)
			cfg.Logger = logger

			sum, err := loader.New(cfg, opts, logger).Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				logger.Warn("run finished with failures", "failed", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVarP(&outputBase, "output-dir", "o", "", "directory receiving converted_files and converted_files_merged (default: current directory)")
	cmd.Flags().BoolVar(&doMerge, "merge", false, "also pack converted text into merged volumes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list what would be processed without converting")
	cmd.Flags().BoolVar(&fullRebuild, "full-rebuild", false, "ignore incremental state and reprocess everything")
	cmd.Flags().BoolVar(&skipPPT, "skip-ppt", false, "skip .ppt/.pptx files entirely")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "errors only, no progress display")
	return cmd
}
