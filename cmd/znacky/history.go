package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/znacky/internal/config"
	"github.com/nao1215/znacky/internal/database"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many sessions 'znacky history' lists.
const defaultHistoryLimit = 20

// errSessionNotFound is returned for an unknown session ID.
var errSessionNotFound = errors.New("session not found")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List recorded crawl sessions",
		Long: `History lists the crawl sessions recorded in the local database, newest
first. Given a session ID, it prints that session's full entry list and
download outcome.

Examples:
  # Last 20 sessions
  znacky history

  # Every session as JSON
  znacky history --limit 0 --json

  # Re-print session 12 as Markdown
  znacky history 12 --markdown

  # Remove session 12
  znacky history 12 --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of sessions to list (0 lists all)")
	cmd.Flags().Bool("delete", false,
		"Delete the given session")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	limit  int
	id     int64
	hasID  bool
	delete bool
	cfg    *config.Config
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts := historyOptions{cfg: config.NewConfig()}
	opts.cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.delete, err = cmd.Flags().GetBool("delete"); err != nil {
		return err
	}
	if opts.cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.cfg.JSONReport && opts.cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}

	if len(args) == 1 {
		opts.id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil || opts.id <= 0 {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		opts.hasID = true
	}
	if opts.delete && !opts.hasID {
		return errors.New("--delete requires a session id")
	}
	if opts.limit < 0 {
		return fmt.Errorf("invalid limit %d", opts.limit)
	}

	return runHistory(cmd.Context(), cmd.OutOrStdout(), opts)
}

// runHistory lists, shows or deletes sessions in the database under
// opts.cfg.DBDir.
func runHistory(ctx context.Context, w io.Writer, opts historyOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Open(opts.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	switch {
	case opts.delete:
		rec, err := db.GetSession(ctx, opts.id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: %d", errSessionNotFound, opts.id)
		}
		if err := db.DeleteSession(ctx, opts.id); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted session %d\n", opts.id)
		return nil

	case opts.hasID:
		session, err := db.LoadSession(ctx, opts.id)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("%w: %d", errSessionNotFound, opts.id)
		}
		_, err = newReportWriter(w, opts.cfg).Write(session)
		return err

	default:
		records, err := db.ListSessions(ctx, opts.limit)
		if err != nil {
			return err
		}
		_, err = newReportWriter(w, opts.cfg).WriteHistory(records)
		return err
	}
}
