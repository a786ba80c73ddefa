package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webscrape/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "webscrape.db"

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores summaries of finished runs. It is written after a run
// and only read by the history command; a crawl never consults it.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the scrape command.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		options TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		files INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		errors TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		file_name TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		checksum TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_checksum ON downloads(checksum);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a summary and its downloads in one transaction. Saving
// the same run id twice replaces the earlier row.
func (h *HistoryDB) SaveRun(ctx context.Context, s *model.RunSummary) (err error) {
	optsJSON, err := json.Marshal(s.Options)
	if err != nil {
		return fmt.Errorf("failed to serialize options: %w", err)
	}
	errsJSON, err := json.Marshal(s.Errors)
	if err != nil {
		return fmt.Errorf("failed to serialize errors: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM downloads WHERE run_id = ?`, s.ID); err != nil {
		return fmt.Errorf("failed to clear downloads: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT OR REPLACE INTO runs
		(id, seed, output_dir, options, max_depth, started_at, finished_at, pages, failed, files, cancelled, errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Seed, s.OutputDir, string(optsJSON), s.MaxDepth,
		s.StartedAt.UTC().Format(time.RFC3339Nano), s.FinishedAt.UTC().Format(time.RFC3339Nano),
		s.Pages, s.Failed, s.Files, s.Cancelled, string(errsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, d := range s.Downloads {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO downloads (run_id, url, kind, file_name, bytes, checksum)
		VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, d.URL, string(d.Kind), d.FileName, d.Bytes, d.Checksum,
		)
		if err != nil {
			return fmt.Errorf("failed to insert download: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, seed, output_dir, options, max_depth, started_at, finished_at, pages, failed, files, cancelled, errors`

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run. Records and Downloads are not populated.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]*model.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// GetRun returns one run including its downloads. The id may be a unique
// prefix of the stored id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.RunSummary, error) {
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var matches []*model.RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, s)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("run id %q is ambiguous", id)
	}

	s := matches[0]
	if s.Downloads, err = h.Downloads(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// Downloads returns the media files stored for a run, in insertion order.
func (h *HistoryDB) Downloads(ctx context.Context, runID string) ([]model.DownloadLog, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT url, kind, file_name, bytes, checksum
	FROM downloads WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var logs []model.DownloadLog
	for rows.Next() {
		var (
			d        model.DownloadLog
			kind     string
			checksum sql.NullString
		)
		if err := rows.Scan(&d.URL, &kind, &d.FileName, &d.Bytes, &checksum); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		d.Kind = model.MediaKind(kind)
		d.Checksum = checksum.String
		logs = append(logs, d)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var (
		s                 model.RunSummary
		optsJSON          string
		started, finished string
		errsJSON          sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Seed, &s.OutputDir, &optsJSON, &s.MaxDepth,
		&started, &finished, &s.Pages, &s.Failed, &s.Files, &s.Cancelled, &errsJSON); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(optsJSON), &s.Options); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}
	if errsJSON.Valid && errsJSON.String != "" && errsJSON.String != "null" {
		if err := json.Unmarshal([]byte(errsJSON.String), &s.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse errors: %w", err)
		}
	}
	s.StartedAt = parseTimestamp(started)
	s.FinishedAt = parseTimestamp(finished)
	return &s, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
}

// parseTimestamp tries each layout SQLite may hand back. Unparseable
// values become the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
