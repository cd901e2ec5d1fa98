package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// maxZeroResultQueries bounds the persisted zero-result list.
const maxZeroResultQueries = 100

// SQLiteMetricsStore implements QueryMetricsStore using SQLite.
type SQLiteMetricsStore struct {
	db     *sql.DB
	ownsDB bool
}

// OpenSQLiteMetricsStore opens (creating if needed) the history database at
// path and ensures the schema exists.
func OpenSQLiteMetricsStore(path string) (*SQLiteMetricsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, dserrors.New(dserrors.ErrCodeHistoryStore, "cannot create history directory", err).
			WithDetail("path", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dserrors.New(dserrors.ErrCodeHistoryStore, "cannot open history database", err).
			WithDetail("path", path)
	}

	// Single writer; other ds processes wait on busy_timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas directly.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, dserrors.New(dserrors.ErrCodeHistoryStore, "failed to set pragma", err).
				WithDetail("pragma", pragma)
		}
	}

	if err := InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, dserrors.New(dserrors.ErrCodeHistoryStore, "cannot initialize history schema", err)
	}

	return &SQLiteMetricsStore{db: db, ownsDB: true}, nil
}

// NewSQLiteMetricsStore wraps an existing connection. The tables must
// already exist (see InitTelemetrySchema); the caller keeps ownership of db.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// InitTelemetrySchema creates the telemetry tables if they don't exist.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	-- Searches per path-restriction kind (aggregated daily)
	CREATE TABLE IF NOT EXISTS query_kind_stats (
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, kind)
	);

	-- Top query terms (with frequency count)
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result searches (bounded FIFO)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram (buckets: <50ms, 50-250ms, 250ms-1s, 1-5s, >=5s)
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// inTx runs fn in one transaction, committing only when fn succeeds.
func (s *SQLiteMetricsStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveBatch stores kind counts, terms, latencies and zero-result searches in
// a single transaction.
func (s *SQLiteMetricsStore) SaveBatch(date string, b Batch) error {
	return s.inTx(func(tx *sql.Tx) error {
		if err := saveKindCounts(tx, date, b.Kinds); err != nil {
			return err
		}
		if err := upsertTermCounts(tx, b.Terms); err != nil {
			return err
		}
		if err := saveLatencyCounts(tx, date, b.Latencies); err != nil {
			return err
		}
		for _, ev := range b.ZeroResults {
			if err := addZeroResultQuery(tx, ev.label(), ev.Timestamp); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveKindCounts upserts daily per-kind counts.
func (s *SQLiteMetricsStore) SaveKindCounts(date string, counts map[QueryKind]int64) error {
	if len(counts) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		return saveKindCounts(tx, date, counts)
	})
}

func saveKindCounts(tx *sql.Tx, date string, counts map[QueryKind]int64) error {
	if len(counts) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO query_kind_stats (date, kind, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, kind) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for kind, count := range counts {
		if _, err := stmt.Exec(date, string(kind), count); err != nil {
			return fmt.Errorf("insert kind count: %w", err)
		}
	}
	return nil
}

// GetKindCounts retrieves counts for a date range.
func (s *SQLiteMetricsStore) GetKindCounts(from, to string) (map[QueryKind]int64, error) {
	rows, err := s.db.Query(`
		SELECT kind, SUM(count) as total
		FROM query_kind_stats
		WHERE date >= ? AND date <= ?
		GROUP BY kind
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query kind counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[QueryKind]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[QueryKind(kind)] = count
	}
	return counts, rows.Err()
}

// UpsertTermCounts updates term frequency counts.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		return upsertTermCounts(tx, terms)
	})
}

func upsertTermCounts(tx *sql.Tx, terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}
	return nil
}

// GetTopTerms retrieves the top N terms by frequency.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQuery adds a query to the zero-result list, keeping the
// newest maxZeroResultQueries entries.
func (s *SQLiteMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	return s.inTx(func(tx *sql.Tx) error {
		return addZeroResultQuery(tx, query, timestamp)
	})
}

func addZeroResultQuery(tx *sql.Tx, query string, timestamp time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO zero_result_queries (query, timestamp)
		VALUES (?, ?)
	`, query, timestamp)
	if err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	_, err = tx.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, maxZeroResultQueries)
	if err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}

	return nil
}

// GetZeroResultQueries retrieves recent zero-result queries.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveLatencyCounts upserts daily latency histogram counts.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	if len(counts) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		return saveLatencyCounts(tx, date, counts)
	})
}

func saveLatencyCounts(tx *sql.Tx, date string, counts map[LatencyBucket]int64) error {
	if len(counts) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for bucket, count := range counts {
		if _, err := stmt.Exec(date, string(bucket), count); err != nil {
			return fmt.Errorf("insert latency count: %w", err)
		}
	}
	return nil
}

// GetLatencyCounts retrieves latency distribution for a date range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count) as total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// Close releases the database if this store opened it.
func (s *SQLiteMetricsStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
