package workshop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/sqlite" // SQLite driver (pure Go, no CGO)
)

// Record is the ledger entry of one item folder
type Record struct {
	Folder string
	// URL and LastModified describe the last zip download
	URL          string
	LastModified time.Time
	DownloadedAt time.Time
	DeployedAt   time.Time
}

// Ledger remembers zip downloads and deployments in a SQLite database
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens or creates the ledger at path
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workshop ledger: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

func (l *Ledger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workshop_items (
		folder TEXT PRIMARY KEY,
		url TEXT NOT NULL DEFAULT '',
		last_modified INTEGER NOT NULL DEFAULT 0,
		downloaded_at INTEGER NOT NULL DEFAULT 0,
		deployed_at INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// RecordDownload stores a completed zip download of folder
func (l *Ledger) RecordDownload(ctx context.Context, folder, url string, lastModified time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO workshop_items (folder, url, last_modified, downloaded_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(folder) DO UPDATE SET url = excluded.url, last_modified = excluded.last_modified,
			downloaded_at = excluded.downloaded_at`,
		folder, url, unixOrZero(lastModified), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record download of %s: %w", folder, err)
	}
	return nil
}

// RecordDeploy stores the time folder was copied into the game
func (l *Ledger) RecordDeploy(ctx context.Context, folder string, at time.Time) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO workshop_items (folder, deployed_at) VALUES (?, ?)
		ON CONFLICT(folder) DO UPDATE SET deployed_at = excluded.deployed_at`,
		folder, unixOrZero(at))
	if err != nil {
		return fmt.Errorf("failed to record deployment of %s: %w", folder, err)
	}
	return nil
}

// Get returns the record of folder
func (l *Ledger) Get(ctx context.Context, folder string) (Record, bool, error) {
	var rec Record
	var modified, downloaded, deployed int64
	err := l.db.QueryRowContext(ctx,
		`SELECT folder, url, last_modified, downloaded_at, deployed_at FROM workshop_items WHERE folder = ?`, folder).
		Scan(&rec.Folder, &rec.URL, &modified, &downloaded, &deployed)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec.LastModified = timeOrZero(modified)
	rec.DownloadedAt = timeOrZero(downloaded)
	rec.DeployedAt = timeOrZero(deployed)
	return rec, true, nil
}

// List returns all records ordered by folder
func (l *Ledger) List(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT folder, url, last_modified, downloaded_at, deployed_at FROM workshop_items ORDER BY folder`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var rec Record
		var modified, downloaded, deployed int64
		if err := rows.Scan(&rec.Folder, &rec.URL, &modified, &downloaded, &deployed); err != nil {
			return nil, err
		}
		rec.LastModified = timeOrZero(modified)
		rec.DownloadedAt = timeOrZero(downloaded)
		rec.DeployedAt = timeOrZero(deployed)
		records = append(records, rec)
	}
	return records, rows.Err()
}
