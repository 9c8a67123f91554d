package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/znacky/internal/model"
)

// FileName is the database file inside the database directory.
const FileName = "znacky.db"

// HistoryDB stores crawl sessions, their entries and download outcomes.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per crawl session
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		truncated INTEGER NOT NULL DEFAULT 0,
		entry_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		download_dir TEXT,
		download_error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Extracted entries in crawl order
	CREATE TABLE IF NOT EXISTS entries (
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		caption TEXT NOT NULL,
		image_url TEXT NOT NULL,
		PRIMARY KEY (session_id, position)
	);

	-- One row per attempted image
	CREATE TABLE IF NOT EXISTS downloads (
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		entry_index INTEGER NOT NULL,
		url TEXT NOT NULL,
		saved INTEGER NOT NULL,
		file TEXT,
		bytes INTEGER NOT NULL DEFAULT 0,
		reason TEXT,
		PRIMARY KEY (session_id, entry_index)
	);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is the stored summary of a crawl session.
type SessionRecord struct {
	ID           int64
	SeedURL      string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       model.SessionStatus
	PagesVisited int
	Truncated    bool
	EntryCount   int

	// Error is the message of the error that aborted the session.
	Error string

	// Downloaded is true when a download pass ran.
	Downloaded bool

	// Saved and Failed count the images of the download pass.
	Saved  int
	Failed int

	// DownloadError is the configuration error that abandoned the pass.
	DownloadError string
}

// SaveSession stores session, its entries and its download outcome in one
// transaction, sets session.ID and returns it.
func (hdb *HistoryDB) SaveSession(ctx context.Context, session *model.Session) (id int64, err error) {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entries := session.Entries()

	var downloadDir, downloadErr sql.NullString
	if session.Download != nil {
		downloadDir = sql.NullString{String: session.Download.Dir, Valid: true}
		downloadErr = nullString(session.Download.ConfigError)
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (seed_url, started_at, finished_at, status, pages_visited, truncated,
		entry_count, error, download_dir, download_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.SeedURL,
		formatTimestamp(session.StartedAt),
		nullString(formatTimestamp(session.FinishedAt)),
		string(session.Status),
		session.PagesVisited,
		session.Truncated,
		len(entries),
		nullString(session.ErrorMessage),
		downloadDir,
		downloadErr,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	for i, e := range entries {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO entries (session_id, position, caption, image_url) VALUES (?, ?, ?, ?)`,
			id, i, e.Caption, e.ImageURL,
		); err != nil {
			return 0, fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if session.Download != nil {
		if err = insertDownloads(ctx, tx, id, session.Download); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}

	session.ID = id
	return id, nil
}

func insertDownloads(ctx context.Context, tx *sql.Tx, sessionID int64, summary *model.DownloadSummary) error {
	const query = `
	INSERT INTO downloads (session_id, entry_index, url, saved, file, bytes, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, s := range summary.Saved {
		if _, err := tx.ExecContext(ctx, query, sessionID, s.Index, s.URL, true, s.Path, s.Bytes, nil); err != nil {
			return fmt.Errorf("failed to insert download %d: %w", s.Index, err)
		}
	}
	for _, f := range summary.Failures {
		if _, err := tx.ExecContext(ctx, query, sessionID, f.Index, f.URL, false, nil, 0, f.Reason); err != nil {
			return fmt.Errorf("failed to insert download %d: %w", f.Index, err)
		}
	}
	return nil
}

// ListSessions returns the most recent sessions first. A limit of zero or
// less returns all sessions.
func (hdb *HistoryDB) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
	SELECT s.id, s.seed_url, s.started_at, s.finished_at, s.status, s.pages_visited, s.truncated,
		s.entry_count, s.error, s.download_dir, s.download_error,
		(SELECT COUNT(*) FROM downloads d WHERE d.session_id = s.id AND d.saved = 1),
		(SELECT COUNT(*) FROM downloads d WHERE d.session_id = s.id AND d.saved = 0)
	FROM sessions s
	ORDER BY s.id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	records := make([]SessionRecord, 0)
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetSession returns the session with id, or nil if there is none.
func (hdb *HistoryDB) GetSession(ctx context.Context, id int64) (*SessionRecord, error) {
	row := hdb.db.QueryRowContext(ctx, `
	SELECT s.id, s.seed_url, s.started_at, s.finished_at, s.status, s.pages_visited, s.truncated,
		s.entry_count, s.error, s.download_dir, s.download_error,
		(SELECT COUNT(*) FROM downloads d WHERE d.session_id = s.id AND d.saved = 1),
		(SELECT COUNT(*) FROM downloads d WHERE d.session_id = s.id AND d.saved = 0)
	FROM sessions s
	WHERE s.id = ?
	`, id)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var startedAt string
	var finishedAt, errMsg, downloadDir, downloadErr sql.NullString
	var status string

	err := row.Scan(
		&rec.ID,
		&rec.SeedURL,
		&startedAt,
		&finishedAt,
		&status,
		&rec.PagesVisited,
		&rec.Truncated,
		&rec.EntryCount,
		&errMsg,
		&downloadDir,
		&downloadErr,
		&rec.Saved,
		&rec.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.StartedAt = parseTimestamp(startedAt)
	rec.FinishedAt = parseTimestamp(finishedAt.String)
	rec.Status = model.SessionStatus(status)
	rec.Error = errMsg.String
	rec.Downloaded = downloadDir.Valid
	rec.DownloadError = downloadErr.String
	return rec, nil
}

// GetEntries returns the entries of a session in crawl order.
func (hdb *HistoryDB) GetEntries(ctx context.Context, sessionID int64) ([]model.ImageEntry, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT caption, image_url FROM entries
	WHERE session_id = ?
	ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ImageEntry, 0)
	for rows.Next() {
		var e model.ImageEntry
		if err := rows.Scan(&e.Caption, &e.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetDownloads returns the download summary of a session, or nil if no
// download pass ran.
func (hdb *HistoryDB) GetDownloads(ctx context.Context, sessionID int64) (*model.DownloadSummary, error) {
	var dir, cfgErr sql.NullString
	err := hdb.db.QueryRowContext(ctx,
		`SELECT download_dir, download_error FROM sessions WHERE id = ?`, sessionID,
	).Scan(&dir, &cfgErr)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !dir.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get download summary: %w", err)
	}

	summary := model.NewDownloadSummary(dir.String)
	summary.ConfigError = cfgErr.String

	rows, err := hdb.db.QueryContext(ctx, `
	SELECT entry_index, url, saved, file, bytes, reason FROM downloads
	WHERE session_id = ?
	ORDER BY entry_index
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get downloads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			index        int
			url          string
			saved        bool
			file, reason sql.NullString
			bytes        int64
		)
		if err := rows.Scan(&index, &url, &saved, &file, &bytes, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		if saved {
			summary.Saved = append(summary.Saved, model.SavedFile{Index: index, URL: url, Path: file.String, Bytes: bytes})
			continue
		}
		summary.Failures = append(summary.Failures, model.DownloadFailure{Index: index, URL: url, Reason: reason.String})
	}

	return summary, rows.Err()
}

// LoadSession rebuilds a stored session with its entries and download
// summary, or returns nil if there is no session with id.
func (hdb *HistoryDB) LoadSession(ctx context.Context, id int64) (*model.Session, error) {
	rec, err := hdb.GetSession(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}

	entries, err := hdb.GetEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	summary, err := hdb.GetDownloads(ctx, id)
	if err != nil {
		return nil, err
	}

	result := model.NewCrawlResult()
	for _, e := range entries {
		result.Append(e)
	}

	return &model.Session{
		ID:             rec.ID,
		SeedURL:        rec.SeedURL,
		StartedAt:      rec.StartedAt,
		FinishedAt:     rec.FinishedAt,
		Status:         rec.Status,
		PagesVisited:   rec.PagesVisited,
		Truncated:      rec.Truncated,
		Result:         result,
		Download:       summary,
		PerformedSteps: make([]string, 0),
		ErrorMessage:   rec.Error,
	}, nil
}

// DeleteSession removes a session with its entries and downloads.
func (hdb *HistoryDB) DeleteSession(ctx context.Context, id int64) error {
	if _, err := hdb.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// formatTimestamp stores times in UTC with nanoseconds. The zero time is
// stored as an empty string.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by formatTimestamp
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
