package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteFileName = "history.db"

// SQLiteStore keeps history in a SQLite database
type SQLiteStore struct {
	db                *sql.DB
	logger            *logrus.Logger
	dataRetentionDays int
	now               func() time.Time
}

// NewSQLiteStore opens (creating if needed) <dir>/history.db
func NewSQLiteStore(opts Options, logger *logrus.Logger) (*SQLiteStore, error) {
	dir, err := historyDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return openSQLite(filepath.Join(dir, sqliteFileName), opts.RetentionDays, logger)
}

func openSQLite(dsn string, retentionDays int, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; WAL lets readers proceed alongside it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:                db,
		logger:            logger,
		dataRetentionDays: retentionDays,
		now:               time.Now,
	}
	if s.dataRetentionDays <= 0 {
		s.dataRetentionDays = DefaultDataRetentionDays
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		user_email TEXT NOT NULL,
		tool TEXT NOT NULL,
		input_data TEXT NOT NULL,
		output_data TEXT NOT NULL,
		created_at INTEGER NOT NULL -- unix nanoseconds
	);

	CREATE INDEX IF NOT EXISTS idx_history_user_created ON history(user_email, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Append implements Store
func (s *SQLiteStore) Append(ctx context.Context, rec Record) (Record, error) {
	now := s.now()
	rec, err := prepare(rec, now)
	if err != nil {
		return rec, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, user_email, tool, input_data, output_data, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserEmail, rec.Tool, rec.InputData, rec.OutputData, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert history record: %w", err)
	}

	cutoff := retentionCutoff(now, s.dataRetentionDays)
	res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE created_at <= ?`, cutoff.UnixNano())
	if err != nil {
		return Record{}, fmt.Errorf("failed to prune history: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.WithField("pruned", n).Debug("Pruned expired history records")
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit history record: %w", err)
	}
	return rec, nil
}

// List implements Store
func (s *SQLiteStore) List(ctx context.Context, email string, limit int) ([]Record, error) {
	cutoff := retentionCutoff(s.now(), s.dataRetentionDays)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_email, tool, input_data, output_data, created_at
		FROM history
		WHERE user_email = ? AND created_at > ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		email, cutoff.UnixNano(), clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			created int64
		)
		if err := rows.Scan(&r.ID, &r.UserEmail, &r.Tool, &r.InputData, &r.OutputData, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Clear implements Store
func (s *SQLiteStore) Clear(ctx context.Context, email string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_email = ?`, email)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared records: %w", err)
	}
	return int(n), nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
