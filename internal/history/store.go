package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/felixgeelhaar/verdict/internal/engine"
	verdicterrors "github.com/felixgeelhaar/verdict/internal/errors"
	"github.com/felixgeelhaar/verdict/internal/metrics"
)

// Store persists execution records.
type Store interface {
	// Create inserts a new record
	Create(ctx context.Context, r *Record) error

	// Complete writes the final state of a record created earlier
	Complete(ctx context.Context, r *Record) error

	// Get returns one record by id
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first
	List(ctx context.Context, f Filter) ([]*Record, error)

	Close() error
}

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("record not found")

// Fixed-width UTC timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	case_id TEXT NOT NULL,
	title TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	executed_by TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	execution_time DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	execution_log TEXT NOT NULL DEFAULT '[]',
	ai_used BOOLEAN NOT NULL DEFAULT FALSE,
	ai_provider TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_executions_case ON executions(case_id);
CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at);
`

const selectColumns = `id, case_id, title, fingerprint, executed_by, status, execution_time,
	error_message, execution_log, ai_used, ai_provider, mode, started_at, completed_at`

// SQLStore is a Store on database/sql. It serves both SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	driver  string
	metrics *metrics.Metrics
}

// StoreOption configures a SQLStore.
type StoreOption func(*SQLStore)

// WithMetrics records write outcomes.
func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *SQLStore) { s.metrics = m }
}

// Open connects to the named driver and ensures the schema exists.
//
// For sqlite the dsn is a file path (its directory is created) or ":memory:".
// For postgres the dsn is a libpq connection string or URL.
func Open(ctx context.Context, driver, dsn string, opts ...StoreOption) (*SQLStore, error) {
	var sqlDriver string

	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, verdicterrors.NewHistoryOpenError(driver, fmt.Errorf("create directory: %w", err))
			}
		}
	case DriverPostgres:
		sqlDriver = "pgx"
	case DriverNone, "":
		return nil, verdicterrors.NewHistoryDisabledError()
	default:
		return nil, verdicterrors.NewHistoryOpenError(driver, fmt.Errorf("unknown driver %q (want sqlite or postgres)", driver))
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, verdicterrors.NewHistoryOpenError(driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, verdicterrors.NewHistoryOpenError(driver, err)
	}

	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Driver returns the store driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, r *Record) (err error) {
	defer func() { s.metrics.RecordHistoryWrite(s.driver, "create", err) }()

	logJSON, err := encodeLog(r)
	if err != nil {
		return verdicterrors.NewHistoryWriteError(err)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO executions (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.CaseID, r.Title, r.Fingerprint, r.ExecutedBy, string(r.Status), r.ExecutionTime,
		r.ErrorMessage, logJSON, r.AIUsed, r.AIProvider, string(r.Mode),
		formatTime(r.StartedAt), formatTimePtr(r.CompletedAt),
	)
	if err != nil {
		return verdicterrors.NewHistoryWriteError(fmt.Errorf("insert %s: %w", r.ID, err))
	}
	return nil
}

// Complete implements Store.
func (s *SQLStore) Complete(ctx context.Context, r *Record) (err error) {
	defer func() { s.metrics.RecordHistoryWrite(s.driver, "complete", err) }()

	logJSON, err := encodeLog(r)
	if err != nil {
		return verdicterrors.NewHistoryWriteError(err)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE executions SET
		status = ?, execution_time = ?, error_message = ?, execution_log = ?,
		ai_used = ?, ai_provider = ?, mode = ?, completed_at = ?
		WHERE id = ?`),
		string(r.Status), r.ExecutionTime, r.ErrorMessage, logJSON,
		r.AIUsed, r.AIProvider, string(r.Mode), formatTimePtr(r.CompletedAt),
		r.ID,
	)
	if err != nil {
		return verdicterrors.NewHistoryWriteError(fmt.Errorf("update %s: %w", r.ID, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return verdicterrors.NewHistoryWriteError(fmt.Errorf("update %s: %w", r.ID, ErrNotFound))
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectColumns+` FROM executions WHERE id = ?`), id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verdicterrors.NewHistoryNotFoundError(id)
	}
	if err != nil {
		return nil, verdicterrors.Wrap(verdicterrors.ErrCodeHistoryRead, "failed to read execution record", err)
	}
	return r, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, f Filter) ([]*Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + selectColumns + ` FROM executions`
	var args []any
	if f.CaseID != "" {
		query += ` WHERE case_id = ?`
		args = append(args, f.CaseID)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, verdicterrors.Wrap(verdicterrors.ErrCodeHistoryRead, "failed to list execution records", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, verdicterrors.Wrap(verdicterrors.ErrCodeHistoryRead, "failed to read execution record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, verdicterrors.Wrap(verdicterrors.ErrCodeHistoryRead, "failed to list execution records", err)
	}

	return out, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r           Record
		status      string
		mode        string
		logJSON     string
		startedAt   string
		completedAt sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.CaseID, &r.Title, &r.Fingerprint, &r.ExecutedBy, &status, &r.ExecutionTime,
		&r.ErrorMessage, &logJSON, &r.AIUsed, &r.AIProvider, &mode, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.Mode = engine.Mode(mode)

	if err := json.Unmarshal([]byte(logJSON), &r.Log); err != nil {
		return nil, fmt.Errorf("decode execution log of %s: %w", r.ID, err)
	}

	if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("decode started_at of %s: %w", r.ID, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode completed_at of %s: %w", r.ID, err)
		}
		r.CompletedAt = &t
	}

	return &r, nil
}

func encodeLog(r *Record) (string, error) {
	if r.Log == nil {
		return "[]", nil
	}
	data, err := json.Marshal(r.Log)
	if err != nil {
		return "", fmt.Errorf("encode execution log of %s: %w", r.ID, err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

var _ Store = (*SQLStore)(nil)
