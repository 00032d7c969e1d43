package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitemapper/internal/model"
)

// DatabaseFile is the SQLite file name created inside the data directory.
const DatabaseFile = "sitemapper.db"

// SQLite stores sites in a single SQLite database.
//
// Status records and page graphs live in separate tables so that listing
// sites never touches the (potentially large) contents.
type SQLite struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SQLite behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers are not blocked by
	// a running crawl.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the database inside dir.
func OpenSQLite(dir string, opts Options) (*SQLite, error) {
	dbPath := filepath.Join(dir, DatabaseFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLite{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS site_info (
		domain TEXT PRIMARY KEY,
		progress INTEGER NOT NULL DEFAULT 0,
		status INTEGER NOT NULL DEFAULT 0,
		status_description TEXT NOT NULL DEFAULT '',
		status_time TEXT NOT NULL,
		page_count INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		refresh_enabled INTEGER NOT NULL DEFAULT 1,
		contents_time INTEGER NOT NULL DEFAULT 0
	);

	-- Page graphs are stored as one JSON document per domain
	CREATE TABLE IF NOT EXISTS site_contents (
		domain TEXT PRIMARY KEY REFERENCES site_info(domain) ON DELETE CASCADE,
		contents_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_site_info_status ON site_info(status);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSite implements Repository.
func (s *SQLite) SaveSite(ctx context.Context, site *model.Site, overwrite bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	domain := site.Info.Domain
	var prevTime int64
	err = tx.QueryRowContext(ctx, "SELECT contents_time FROM site_info WHERE domain = ?", domain).Scan(&prevTime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read site %s: %w", domain, err)
	case !overwrite:
		return ErrSiteExists
	}

	info := prepareForSave(site, prevTime, time.Now())

	query := `
	INSERT INTO site_info (domain, progress, status, status_description, status_time, page_count, link_count, refresh_enabled, contents_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(domain) DO UPDATE SET
		progress = excluded.progress,
		status = excluded.status,
		status_description = excluded.status_description,
		status_time = excluded.status_time,
		page_count = excluded.page_count,
		link_count = excluded.link_count,
		refresh_enabled = excluded.refresh_enabled,
		contents_time = excluded.contents_time
	`
	_, err = tx.ExecContext(ctx, query,
		info.Domain,
		info.Progress,
		int(info.Status),
		info.StatusDescription,
		info.StatusTime.UTC().Format(time.RFC3339Nano),
		info.PageCount,
		info.LinkCount,
		info.RefreshEnabled,
		info.ContentsTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save site info: %w", err)
	}

	if site.Contents == nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM site_contents WHERE domain = ?", domain); err != nil {
			return fmt.Errorf("failed to clear site contents: %w", err)
		}
	} else {
		contentsJSON, err := json.Marshal(site.Contents)
		if err != nil {
			return fmt.Errorf("failed to serialize site contents: %w", err)
		}
		query := `
		INSERT INTO site_contents (domain, contents_json) VALUES (?, ?)
		ON CONFLICT(domain) DO UPDATE SET contents_json = excluded.contents_json
		`
		if _, err := tx.ExecContext(ctx, query, domain, string(contentsJSON)); err != nil {
			return fmt.Errorf("failed to save site contents: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit site %s: %w", domain, err)
	}
	return nil
}

// siteInfoColumns is the column list read by scanSiteInfo.
const siteInfoColumns = `domain, progress, status, status_description, status_time, page_count, link_count, refresh_enabled, contents_time`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSiteInfo(row rowScanner) (*model.SiteInfo, error) {
	var (
		info       model.SiteInfo
		status     int
		statusTime string
	)
	err := row.Scan(
		&info.Domain,
		&info.Progress,
		&status,
		&info.StatusDescription,
		&statusTime,
		&info.PageCount,
		&info.LinkCount,
		&info.RefreshEnabled,
		&info.ContentsTime,
	)
	if err != nil {
		return nil, err
	}
	info.Status = model.SiteStatus(status)
	info.StatusTime = parseTimestamp(statusTime)
	return &info, nil
}

// GetSite implements Repository.
func (s *SQLite) GetSite(ctx context.Context, domain string, includeContents bool, contentsTimestamp int64) (*model.Site, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+siteInfoColumns+" FROM site_info WHERE domain = ?", domain)
	info, err := scanSiteInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site %s: %w", domain, err)
	}

	site := &model.Site{Info: *info}
	if !wantContents(includeContents, contentsTimestamp, info.ContentsTime) {
		return site, nil
	}

	var contentsJSON string
	err = s.db.QueryRowContext(ctx, "SELECT contents_json FROM site_contents WHERE domain = ?", domain).Scan(&contentsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site contents %s: %w", domain, err)
	}

	var contents model.SiteContents
	if err := json.Unmarshal([]byte(contentsJSON), &contents); err != nil {
		return nil, fmt.Errorf("failed to parse site contents %s: %w", domain, err)
	}
	site.Contents = &contents
	return site, nil
}

// RemoveSite implements Repository.
func (s *SQLite) RemoveSite(ctx context.Context, domain string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM site_contents WHERE domain = ?", domain); err != nil {
		return fmt.Errorf("failed to remove site contents: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM site_info WHERE domain = ?", domain)
	if err != nil {
		return fmt.Errorf("failed to remove site: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove site: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// GetDomains implements Repository.
func (s *SQLite) GetDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT domain FROM site_info ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	domains := make([]string, 0)
	for rows.Next() {
		var domain string
		if err := rows.Scan(&domain); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, domain)
	}
	return domains, rows.Err()
}

// GetSites implements Repository.
func (s *SQLite) GetSites(ctx context.Context) ([]*model.SiteInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+siteInfoColumns+" FROM site_info ORDER BY domain")
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	infos := make([]*model.SiteInfo, 0)
	for rows.Next() {
		info, err := scanSiteInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// UpdateRefreshEnabled implements Repository.
func (s *SQLite) UpdateRefreshEnabled(ctx context.Context, domain string, enabled bool) error {
	result, err := s.db.ExecContext(ctx, "UPDATE site_info SET refresh_enabled = ? WHERE domain = ?", enabled, domain)
	if err != nil {
		return fmt.Errorf("failed to update refresh flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update refresh flag: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp tries each of timestampFormats and returns the zero time
// when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
