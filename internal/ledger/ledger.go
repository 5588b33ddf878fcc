package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/tokensaver/internal/logging"
)

const (
	// DefaultRetentionDays is how long rows are kept when Options does not
	// say otherwise.
	DefaultRetentionDays = 90

	// DefaultBusyTimeout bounds how long a write waits on another process.
	DefaultBusyTimeout = 10 * time.Second

	// DefaultTopProcessors is the TopProcessors limit used for limit <= 0.
	DefaultTopProcessors = 5

	maxCommandRunes = 500
	sessionIDLength = 12
	driverName      = "sqlite"
)

// ErrNoPath is returned by Open when Options.Path is empty.
var ErrNoPath = errors.New("ledger path is required")

// mu serializes every ledger operation in the process, across Ledger values.
var mu sync.Mutex

// Redactor rewrites a command before it is persisted.
type Redactor interface {
	Redact(command string) string
}

// Options configures Open.
type Options struct {
	// Path is the SQLite database file.
	Path string

	// SessionID groups this process's records. Empty generates one.
	SessionID string

	// RetentionDays is the age after which rows are pruned on Open.
	RetentionDays int

	// BusyTimeout is passed to SQLite's busy handler.
	BusyTimeout time.Duration

	Logger *logging.Logger

	// Redactor masks credentials in commands before they are stored.
	Redactor Redactor

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Ledger is a handle on the savings database.
type Ledger struct {
	db        *sql.DB
	path      string
	sessionID string
	logger    *logging.Logger
	redactor  Redactor
	now       func() time.Time
}

// NewSessionID returns a short random session id.
func NewSessionID() string {
	return uuid.New().String()[:sessionIDLength]
}

// Open opens or creates the ledger at opts.Path. A database that cannot be
// opened or initialised is deleted and recreated; only a second failure is
// returned. Rows older than the retention window are pruned once.
func Open(ctx context.Context, opts Options) (*Ledger, error) {
	if opts.Path == "" {
		return nil, ErrNoPath
	}
	if opts.SessionID == "" {
		opts.SessionID = NewSessionID()
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.FromContext(ctx)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	db, err := openDB(ctx, opts.Path, opts.BusyTimeout)
	if err != nil {
		opts.Logger.Warn(ctx, "ledger unusable, recreating",
			zap.String("path", opts.Path),
			zap.Error(err),
		)
		removeStore(opts.Path)
		db, err = openDB(ctx, opts.Path, opts.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to recreate ledger: %w", err)
		}
	}

	l := &Ledger{
		db:        db,
		path:      opts.Path,
		sessionID: opts.SessionID,
		logger:    opts.Logger,
		redactor:  opts.Redactor,
		now:       opts.Now,
	}
	l.prune(ctx, opts.RetentionDays)
	return l, nil
}

// openDB opens the database and creates the schema. The returned handle
// uses a single connection.
func openDB(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	return path + "?" + q.Encode()
}

// removeStore deletes the database and its WAL side files.
func removeStore(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

// prune deletes rows older than the retention window. Failures are logged.
// Callers hold mu.
func (l *Ledger) prune(ctx context.Context, retentionDays int) {
	cutoff := unixSeconds(l.now().Add(-time.Duration(retentionDays) * 24 * time.Hour))

	for _, stmt := range []string{pruneSavingsSQL, pruneSessionsSQL} {
		if _, err := l.db.ExecContext(ctx, stmt, cutoff); err != nil {
			l.logger.Warn(ctx, "ledger prune failed", zap.Error(err))
			return
		}
	}
}

// SessionID returns the session this ledger records under.
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Record appends one accepted compression and adds it to the session
// aggregate in a single transaction. Errors are logged and dropped so the
// caller's output is never affected.
func (l *Ledger) Record(ctx context.Context, command, processor string, originalSize, compressedSize int, platform string) {
	mu.Lock()
	defer mu.Unlock()

	if err := l.record(ctx, command, processor, originalSize, compressedSize, platform); err != nil {
		l.logger.Warn(ctx, "ledger write dropped",
			zap.String("processor", processor),
			zap.Error(err),
		)
	}
}

func (l *Ledger) record(ctx context.Context, command, processor string, originalSize, compressedSize int, platform string) (err error) {
	now := unixSeconds(l.now())

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, insertSavingSQL,
		now, l.sessionID, truncateRunes(l.redact(command), maxCommandRunes), processor,
		originalSize, compressedSize, platform,
	); err != nil {
		return fmt.Errorf("failed to insert saving: %w", err)
	}

	if _, err = tx.ExecContext(ctx, upsertSessionSQL,
		l.sessionID, now, now, originalSize, compressedSize,
	); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (l *Ledger) redact(command string) string {
	if l.redactor == nil {
		return command
	}
	return l.redactor.Redact(command)
}

// SessionStats returns the aggregate for sessionID, or for the ledger's own
// session when sessionID is empty. An unknown session yields zero values.
func (l *Ledger) SessionStats(ctx context.Context, sessionID string) (SessionStats, error) {
	if sessionID == "" {
		sessionID = l.sessionID
	}
	stats := SessionStats{SessionID: sessionID}

	mu.Lock()
	defer mu.Unlock()

	err := l.db.QueryRowContext(ctx, sessionStatsSQL, sessionID).
		Scan(&stats.Commands, &stats.Original, &stats.Compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return SessionStats{}, fmt.Errorf("failed to query session stats: %w", err)
	}

	stats.Saved = stats.Original - stats.Compressed
	stats.Ratio = savedRatio(stats.Saved, stats.Original)
	return stats, nil
}

// LifetimeStats sums every session aggregate.
func (l *Ledger) LifetimeStats(ctx context.Context) (LifetimeStats, error) {
	var stats LifetimeStats

	mu.Lock()
	defer mu.Unlock()

	if err := l.db.QueryRowContext(ctx, lifetimeStatsSQL).
		Scan(&stats.Sessions, &stats.Commands, &stats.Original, &stats.Compressed); err != nil {
		return LifetimeStats{}, fmt.Errorf("failed to query lifetime stats: %w", err)
	}

	stats.Saved = stats.Original - stats.Compressed
	stats.Ratio = savedRatio(stats.Saved, stats.Original)
	return stats, nil
}

// TopProcessors returns up to limit processors ordered by total bytes
// saved. limit <= 0 uses DefaultTopProcessors.
func (l *Ledger) TopProcessors(ctx context.Context, limit int) ([]ProcessorStats, error) {
	if limit <= 0 {
		limit = DefaultTopProcessors
	}

	mu.Lock()
	defer mu.Unlock()

	rows, err := l.db.QueryContext(ctx, topProcessorsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query processors: %w", err)
	}
	defer rows.Close()

	out := []ProcessorStats{}
	for rows.Next() {
		var p ProcessorStats
		if err := rows.Scan(&p.Processor, &p.Count, &p.Saved); err != nil {
			return nil, fmt.Errorf("failed to scan processor row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processor rows: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	mu.Lock()
	defer mu.Unlock()
	return l.db.Close()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// truncateRunes shortens s to at most n runes without splitting a UTF-8
// sequence.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
