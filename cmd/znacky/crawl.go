package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/znacky/internal/config"
	"github.com/nao1215/znacky/internal/crawler"
	"github.com/nao1215/znacky/internal/database"
	"github.com/nao1215/znacky/internal/download"
	zlog "github.com/nao1215/znacky/internal/log"
	"github.com/nao1215/znacky/internal/model"
	"github.com/nao1215/znacky/internal/pipeline"
	"github.com/nao1215/znacky/internal/report"
	"github.com/spf13/cobra"
)

// addCrawlFlags registers the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()

	f.StringP("config", "c", "",
		"Configuration file path (default: .znacky in current or home directory)")
	f.StringP("seed", "s", config.DefaultSeedURL,
		"First catalogue page to fetch")
	f.String("base-url", config.DefaultBaseURL,
		"Prefix for next-page links and relative image sources")
	f.DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page and image request")
	f.Duration("delay", config.DefaultCrawlDelay,
		"Minimum interval between page requests")
	f.IntP("max-pages", "p", config.DefaultMaxPages,
		"Stop after this many pages (0 follows every next link)")
	f.String("encoding", "",
		"Force the page encoding, e.g. windows-1250 (default: detect)")
	f.String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	f.StringP("dir", "d", "",
		"Download directory (default: the directory set with 'znacky folder')")
	f.Bool("no-history", false,
		"Do not record this run in the history database")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from defaults, the configuration file and
// the command flags, in that order. Only flags set on the command line
// override file values.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	// An explicitly named file must exist; the implicit lookup may find nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	overrides := []error{
		overrideString(cmd, "seed", &cfg.SeedURL),
		overrideString(cmd, "base-url", &cfg.BaseURL),
		overrideString(cmd, "encoding", &cfg.Encoding),
		overrideString(cmd, "user-agent", &cfg.UserAgent),
		overrideString(cmd, "dir", &cfg.TargetDir),
		overrideString(cmd, "output", &cfg.ReportFile),
		overrideDuration(cmd, "timeout", &cfg.Timeout),
		overrideDuration(cmd, "delay", &cfg.CrawlDelay),
		overrideInt(cmd, "max-pages", &cfg.MaxPages),
		overrideBool(cmd, "json", &cfg.JSONReport),
		overrideBool(cmd, "markdown", &cfg.MarkdownReport),
	}
	if err := errors.Join(overrides...); err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	return cfg, nil
}

func overrideString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideInt(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideBool(cmd *cobra.Command, name string, dst *bool) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setupLogger creates the redacting logger for this run.
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	return zlog.NewSecureLogger(w, verbose)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// crawlRun describes one crawl invocation.
type crawlRun struct {
	cfg *config.Config

	// withDownload appends the download step.
	withDownload bool

	// out receives the report, progress goes to errOut.
	out    io.Writer
	errOut io.Writer

	logger *slog.Logger
}

// execute crawls, optionally downloads, records the session and returns it.
// The returned error is the pipeline error; the session is always returned
// once the pipeline ran so the caller can still present partial results.
func (r *crawlRun) execute(ctx context.Context) (*model.Session, error) {
	cfg := r.cfg

	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		r.logger.Debug("database opened", "file", db.Path())
	}

	targetDir := ""
	if r.withDownload {
		settings, err := config.LoadSettings(cfg.SettingsPath)
		if err != nil {
			return nil, err
		}
		targetDir = config.ResolveTargetDir(cfg.TargetDir, settings)
	}

	session := model.NewSession(cfg.SeedURL)
	runner := pipeline.NewRunner(pipeline.WithRunnerLogger(r.logger))
	p := r.newPipeline(runner, session, targetDir)

	r.logger.Info("starting crawl",
		"url", cfg.SeedURL,
		"steps", p.StepNames(),
		"dir", targetDir,
	)

	progress := &progressPrinter{w: r.errOut}
	runErr := runner.Run(ctx, p, session, progress.handle)

	if err := saveSession(ctx, db, session, r.logger); err != nil {
		r.logger.Error("failed to save session", "error", err)
	}

	return session, runErr
}

// newPipeline assembles the crawl step and, when requested, the download
// step around one shared HTTP client.
func (r *crawlRun) newPipeline(runner *pipeline.Runner, session *model.Session, targetDir string) *pipeline.Pipeline {
	cfg := r.cfg
	client := &http.Client{Timeout: cfg.Timeout}

	fetcher := crawler.NewFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithEncoding(cfg.Encoding),
		crawler.WithFetcherLogger(r.logger),
	)
	extractor := crawler.NewExtractor(
		crawler.WithBaseURL(cfg.BaseURL),
		crawler.WithExtractorLogger(r.logger),
	)
	c := crawler.New(fetcher, extractor,
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithLogger(r.logger),
	)

	p := pipeline.New(pipeline.WithLogger(r.logger))
	p.AddStep(pipeline.NewCrawlStep(c,
		pipeline.WithProgressSink(runner.ProgressSink(session.Result)),
		pipeline.WithCrawlLogger(r.logger),
	))

	if r.withDownload {
		d := download.New(client,
			download.WithBaseURL(cfg.BaseURL),
			download.WithUserAgent(cfg.UserAgent),
			download.WithLogger(r.logger),
		)
		p.AddStep(pipeline.NewDownloadStep(d, targetDir, pipeline.WithDownloadLogger(r.logger)))
	}

	return p
}

// progressPrinter renders runner events as a single updating status line.
type progressPrinter struct {
	w io.Writer
}

func (pp *progressPrinter) handle(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventProgress:
		fmt.Fprintf(pp.w, "\rLoaded %d", ev.Count)
	case pipeline.EventCompleted:
		fmt.Fprintf(pp.w, "\rLoaded %d entries.\n", ev.Count)
	case pipeline.EventFailed:
		fmt.Fprintf(pp.w, "\rLoading failed after %d entries: %v\n", ev.Count, ev.Err)
	}
}

// outputReport writes the session in the requested format to the report
// file, or to w when no file is configured.
func outputReport(w io.Writer, cfg *config.Config, session *model.Session) error {
	output := w
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(output, cfg).Write(session)
	return err
}

// newReportWriter picks the writer for the configured format.
func newReportWriter(output io.Writer, cfg *config.Config) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveSession records session in the history database.
// If db is nil, this function is a no-op.
func saveSession(ctx context.Context, db *database.HistoryDB, session *model.Session, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	// A canceled run is still worth recording.
	id, err := db.SaveSession(context.WithoutCancel(ctx), session)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	logger.Info("session saved to database", "id", id, "entries", session.Result.Len())
	return nil
}

// downloadError turns an abandoned download pass into a command error.
func downloadError(session *model.Session) error {
	if session.Download == nil || session.Download.ConfigError == "" {
		return nil
	}
	return fmt.Errorf("download skipped: %s (set one with 'znacky folder <path>' or pass --dir)",
		session.Download.ConfigError)
}
