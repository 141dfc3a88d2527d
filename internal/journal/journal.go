package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hooknotify/pkg/listener"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Journal keeps delivery metadata in SQLite. It implements listener.Recorder.
type Journal struct {
	db *sql.DB
}

var _ listener.Recorder = (*Journal)(nil)

// Open opens or creates the journal database at dbPath
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}

	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return j, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initSchema() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			notification_id TEXT,
			request_id TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			remote_addr TEXT NOT NULL,
			status INTEGER NOT NULL,
			received_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			error_message TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = j.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_deliveries_received
		ON deliveries(received_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Record stores the metadata of one delivery
func (j *Journal) Record(ctx context.Context, delivery listener.Delivery) error {
	receivedAt := delivery.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries
		(notification_id, request_id, method, path, remote_addr, status,
		 received_at, duration_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullString(delivery.NotificationID),
		delivery.RequestID,
		delivery.Method,
		delivery.Path,
		delivery.RemoteAddr,
		delivery.Status,
		receivedAt.UTC().Format(timeLayout),
		delivery.Duration.Milliseconds(),
		nullString(delivery.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}

	return nil
}

// Latest returns the most recent delivery, or nil when the journal is empty
func (j *Journal) Latest(ctx context.Context) (*Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, notification_id, request_id, method, path, remote_addr,
		       status, received_at, duration_ms, error_message
		FROM deliveries
		ORDER BY id DESC
		LIMIT 1
	`)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest delivery: %w", err)
	}

	return entry, nil
}

// Recent returns up to limit deliveries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, notification_id, request_id, method, path, remote_addr,
		       status, received_at, duration_ms, error_message
		FROM deliveries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// CountByStatus returns the number of deliveries per HTTP status
func (j *Journal) CountByStatus(ctx context.Context) (map[int]int, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM deliveries GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count deliveries: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// Prune deletes deliveries received before cutoff and returns how many were removed
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := j.db.ExecContext(ctx, `
		DELETE FROM deliveries WHERE received_at < ?
	`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}

	return result.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	var entry Entry
	var receivedAt string
	var notificationID, errorMessage sql.NullString

	err := s.Scan(
		&entry.ID,
		&notificationID,
		&entry.RequestID,
		&entry.Method,
		&entry.Path,
		&entry.RemoteAddr,
		&entry.Status,
		&receivedAt,
		&entry.DurationMS,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	entry.ReceivedAt, err = time.Parse(timeLayout, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at timestamp: %w", err)
	}
	if notificationID.Valid {
		entry.NotificationID = &notificationID.String
	}
	if errorMessage.Valid {
		entry.ErrorMessage = &errorMessage.String
	}

	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
