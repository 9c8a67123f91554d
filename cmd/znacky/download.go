package main

import (
	"fmt"
	"io"

	"github.com/nao1215/znacky/internal/model"
	"github.com/spf13/cobra"
)

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Crawl the catalogue and save every sign image",
		Long: `Download crawls the whole catalogue and saves each full-size image into
a directory, named after the last segment of its URL.

The directory is --dir, or the default directory set with 'znacky folder'.
It must already exist. Files that already exist are never overwritten;
such images, and images that cannot be fetched, are skipped and listed
at the end.

Examples:
  # Save into the default directory
  znacky download

  # Save into ./signs
  znacky download --dir ./signs`,
		Args: cobra.NoArgs,
		RunE: runDownloadCmd,
	}

	addCrawlFlags(cmd)

	return cmd
}

// runDownloadCmd executes the download command.
func runDownloadCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx, cancel := signalContext(logger)
	defer cancel()

	run := &crawlRun{
		cfg:          cfg,
		withDownload: true,
		out:          cmd.OutOrStdout(),
		errOut:       cmd.ErrOrStderr(),
		logger:       logger,
	}

	session, runErr := run.execute(ctx)
	if runErr != nil {
		return fmt.Errorf("loading failed: %w", runErr)
	}

	if err := downloadError(session); err != nil {
		return err
	}
	writeDownloadSummary(run.out, session.Download)
	return nil
}

// writeDownloadSummary prints the saved count and every skipped image.
func writeDownloadSummary(w io.Writer, summary *model.DownloadSummary) {
	if summary == nil {
		return
	}

	fmt.Fprintf(w, "Saved %d of %d images to %s\n",
		len(summary.Saved), summary.Attempted(), summary.Dir)
	for _, f := range summary.Failures {
		fmt.Fprintf(w, "  skipped #%d %s: %s\n", f.Index+1, f.URL, f.Reason)
	}
}
