// Package journal records every mutating ShareFile operation the CLI performs
// in a local SQLite database, so administrators can review what was created,
// deleted or uploaded and whether the service accepted it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Outcome classifies how an operation ended.
type Outcome string

// Outcomes. Rejected means the service answered with an error envelope;
// failed means no usable answer arrived at all.
const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// DefaultLimit caps List when the filter sets no limit.
const DefaultLimit = 50

const dirPerms = 0o700

const (
	sqlInsert = `INSERT INTO operations (id, recorded_at, operation, target, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlList = `SELECT id, recorded_at, operation, target, outcome, detail
		FROM operations
		WHERE (? = '' OR operation = ?)
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT ?`
)

// Entry is one journaled operation.
type Entry struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Operation string    `json:"operation"`
	Target    string    `json:"target,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// Filter narrows List. Zero value lists the newest DefaultLimit entries.
type Filter struct {
	Operation string
	Limit     int
}

// Journal is the sole writer to the journal database.
type Journal struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() string
}

// Open opens (creating if needed) the journal database at path and applies
// pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return nil, fmt.Errorf("journal: creating directory for %s: %w", path, err)
	}

	// DSN parameters ensure pragmas apply to every connection.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: opening database %s: %w", path, err)
	}

	// Sole-writer pattern.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("journal opened", slog.String("path", path))

	return &Journal{
		db:      db,
		logger:  logger,
		nowFunc: time.Now,
		newID:   func() string { return uuid.NewString() },
	}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: closing: %w", err)
	}

	return nil
}

// Record appends an entry. ID and At are assigned here.
func (j *Journal) Record(ctx context.Context, operation, target string, outcome Outcome, detail string) (Entry, error) {
	e := Entry{
		ID:        j.newID(),
		At:        j.nowFunc().UTC(),
		Operation: operation,
		Target:    target,
		Outcome:   outcome,
		Detail:    detail,
	}

	if _, err := j.db.ExecContext(ctx, sqlInsert,
		e.ID, e.At.UnixNano(), e.Operation, e.Target, string(e.Outcome), e.Detail,
	); err != nil {
		return Entry{}, fmt.Errorf("journal: recording %s: %w", operation, err)
	}

	j.logger.Debug("journal entry recorded",
		slog.String("operation", operation),
		slog.String("outcome", string(outcome)),
	)

	return e, nil
}

// List returns entries newest first.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx, sqlList, f.Operation, f.Operation, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: listing: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e       Entry
			atNanos int64
			outcome string
		)

		if err := rows.Scan(&e.ID, &atNanos, &e.Operation, &e.Target, &outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("journal: scanning row: %w", err)
		}

		e.At = time.Unix(0, atNanos).UTC()
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating rows: %w", err)
	}

	return entries, nil
}

// OutcomeOf classifies a finished call: err wins over rejected.
func OutcomeOf(rejected bool, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case rejected:
		return OutcomeRejected
	default:
		return OutcomeOK
	}
}
