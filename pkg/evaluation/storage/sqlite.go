package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"idp-hq/assess/pkg/evaluation"
)

// Driver names accepted by SQLiteConfig.Driver.
const (
	DriverCGo  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// SQLiteConfig contains configuration for the SQLite run store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver, DriverCGo or DriverPure.
	// Default: DriverCGo
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/runs.db",
		Driver:       DriverCGo,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements evaluation.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies pragmas and creates the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGo
	}
	if config.Driver != DriverCGo && config.Driver != DriverPure {
		return nil, evaluation.NewStorageError("sqlite", "open",
			fmt.Errorf("unknown driver %q", config.Driver))
	}

	logger := slog.Default().With("component", "evaluation.storage.sqlite")

	db, err := sql.Open(config.Driver, dataSourceName(config))
	if err != nil {
		return nil, evaluation.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite run store initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dataSourceName carries the busy timeout in the DSN so every pooled
// connection gets it, not only the one the PRAGMA ran on.
func dataSourceName(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	if config.Driver == DriverPure {
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, ms)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", config.Path, ms)
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evaluation.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return evaluation.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evaluation.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evaluation.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evaluation.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evaluation.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Create inserts a new run.
func (s *SQLiteStore) Create(ctx context.Context, run *evaluation.Run) error {
	if !run.Status.Valid() {
		return evaluation.NewStorageError("sqlite", "create",
			fmt.Errorf("invalid status %q", run.Status))
	}

	results, err := encodeJSON(run.Results)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "create", err)
	}
	index, err := encodeJSON(run.Index)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "create", err)
	}
	trace, err := encodeTrace(run.Trace)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "create", err)
	}

	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UnixNano()
	}

	query := `INSERT INTO evaluation_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.ScenarioID, string(run.Status),
		run.Inputs.ArtifactID, run.Inputs.RulePackID, nullString(run.Inputs.WebhookURL), boolInt(run.Inputs.Debug),
		results, index, trace,
		run.CreatedAt.UnixNano(), completedAt,
		nullString(run.Error), nullString(run.ErrorDetail),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: %s", evaluation.ErrRunExists, run.ID)
		}
		return evaluation.NewStorageError("sqlite", "create", err)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*evaluation.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM evaluation_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, evaluation.NewStorageError("sqlite", "get", err)
	}
	return run, nil
}

// Transition moves a run to a non-terminal status.
func (s *SQLiteStore) Transition(ctx context.Context, id string, to evaluation.Status) error {
	if to.IsTerminal() {
		return evaluation.NewTransitionError(id, "", to)
	}
	return s.update(ctx, "transition", id, to, "")
}

// Finalize writes the results of a successful run in a single statement.
func (s *SQLiteStore) Finalize(ctx context.Context, id string, f evaluation.Finalization) error {
	results, err := encodeJSON(&f.Results)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "finalize", err)
	}
	index, err := encodeJSON(&f.Index)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "finalize", err)
	}
	trace, err := encodeTrace(f.Trace)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "finalize", err)
	}

	return s.update(ctx, "finalize", id, evaluation.StatusDone,
		", results = ?, inclusivity_index = ?, trace = ?, completed_at = ?",
		results, index, trace, f.CompletedAt.UnixNano())
}

// Fail records a pipeline fault in a single statement.
func (s *SQLiteStore) Fail(ctx context.Context, id string, f evaluation.Failure) error {
	trace, err := encodeTrace(f.Trace)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "fail", err)
	}

	return s.update(ctx, "fail", id, evaluation.StatusError,
		", error = ?, error_detail = ?, trace = ?, completed_at = ?",
		nullString(f.Message), nullString(f.Detail), trace, f.CompletedAt.UnixNano())
}

// update sets the status to `to` plus any extra assignments, guarded by a
// WHERE clause that only matches runs whose current status may move to
// `to`. A miss is resolved into not-found or a TransitionError.
func (s *SQLiteStore) update(ctx context.Context, op, id string, to evaluation.Status, set string, setArgs ...any) error {
	from := sourcesOf(to)
	if len(from) == 0 {
		return evaluation.NewTransitionError(id, "", to)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	query := fmt.Sprintf("UPDATE evaluation_runs SET status = ?%s WHERE id = ? AND status IN (%s)", set, placeholders)

	args := make([]any, 0, 2+len(setArgs)+len(from))
	args = append(args, string(to))
	args = append(args, setArgs...)
	args = append(args, id)
	for _, st := range from {
		args = append(args, string(st))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return evaluation.NewStorageError("sqlite", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return evaluation.NewStorageError("sqlite", op, err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM evaluation_runs WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	if err != nil {
		return evaluation.NewStorageError("sqlite", op, err)
	}
	return evaluation.NewTransitionError(id, evaluation.Status(current), to)
}

// Delete removes a run.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE id = ?`, id)
	if err != nil {
		return evaluation.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return evaluation.NewStorageError("sqlite", "delete", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", evaluation.ErrRunNotFound, id)
	}
	return nil
}

// List returns runs matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter evaluation.Filter) ([]*evaluation.Run, error) {
	var conditions []string
	var args []any

	if filter.ScenarioID != "" {
		conditions = append(conditions, "scenario_id = ?")
		args = append(args, filter.ScenarioID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.CreatedBefore.UnixNano())
	}

	query := `SELECT ` + runColumns + ` FROM evaluation_runs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, evaluation.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	runs := []*evaluation.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, evaluation.NewStorageError("sqlite", "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, evaluation.NewStorageError("sqlite", "list", err)
	}
	return runs, nil
}

// Prune deletes terminal runs completed before cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM evaluation_runs
		WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?`,
		string(evaluation.StatusDone), string(evaluation.StatusError), cutoff.UnixNano())
	if err != nil {
		return 0, evaluation.NewStorageError("sqlite", "prune", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, evaluation.NewStorageError("sqlite", "prune", err)
	}
	return int(n), nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return evaluation.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite run store closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*evaluation.Run, error) {
	var (
		run                               evaluation.Run
		status                            string
		webhookURL, results, index, trace sql.NullString
		runErr, errDetail                 sql.NullString
		debug, createdAt                  int64
		completedAt                       sql.NullInt64
	)

	err := row.Scan(
		&run.ID, &run.ScenarioID, &status,
		&run.Inputs.ArtifactID, &run.Inputs.RulePackID, &webhookURL, &debug,
		&results, &index, &trace,
		&createdAt, &completedAt,
		&runErr, &errDetail,
	)
	if err != nil {
		return nil, err
	}

	run.Status = evaluation.Status(status)
	run.Inputs.WebhookURL = webhookURL.String
	run.Inputs.Debug = debug != 0
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		run.CompletedAt = &t
	}
	run.Error = runErr.String
	run.ErrorDetail = errDetail.String

	if results.Valid {
		run.Results = &evaluation.Results{}
		if err := json.Unmarshal([]byte(results.String), run.Results); err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
	}
	if index.Valid {
		if err := json.Unmarshal([]byte(index.String), &run.Index); err != nil {
			return nil, fmt.Errorf("decode index: %w", err)
		}
	}
	if trace.Valid {
		if err := json.Unmarshal([]byte(trace.String), &run.Trace); err != nil {
			return nil, fmt.Errorf("decode trace: %w", err)
		}
	}
	return &run, nil
}

// encodeJSON returns nil for nil values so the column stays NULL.
func encodeJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func encodeTrace(trace []evaluation.TraceEntry) (any, error) {
	if trace == nil {
		return nil, nil
	}
	return encodeJSON(&trace)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
