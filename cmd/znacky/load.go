package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errDirWithoutDownload rejects --dir on a load that saves nothing.
var errDirWithoutDownload = errors.New("--dir requires --download")

// NewLoadCmd creates the load command.
func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Crawl the catalogue and list every sign",
		Long: `Load crawls the traffic sign catalogue from the first page, following
the "další :" links until the last page, and lists every sign with its
caption and full-size image URL.

While loading, the number of signs found so far is shown on stderr.
A page that cannot be fetched stops the crawl; the signs found before
it are still listed.

Examples:
  # List every sign
  znacky load

  # List and save the images into ./signs
  znacky load --download --dir ./signs

  # Write a Markdown catalogue
  znacky load --markdown -o catalogue.md

  # Only the first two pages, one request per second
  znacky load --max-pages 2 --delay 1s`,
		Args: cobra.NoArgs,
		RunE: runLoadCmd,
	}

	addCrawlFlags(cmd)

	cmd.Flags().Bool("download", false,
		"Save the images after loading (required by --dir)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runLoadCmd executes the load command.
func runLoadCmd(cmd *cobra.Command, _ []string) error {
	withDownload, err := cmd.Flags().GetBool("download")
	if err != nil {
		return err
	}
	if !withDownload && cmd.Flags().Changed("dir") {
		return errDirWithoutDownload
	}

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
		withDownload: withDownload,
		out:          cmd.OutOrStdout(),
		errOut:       cmd.ErrOrStderr(),
		logger:       logger,
	}

	session, runErr := run.execute(ctx)
	if session == nil {
		return runErr
	}

	if err := outputReport(run.out, cfg, session); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("loading failed: %w", runErr)
	}
	return downloadError(session)
}
