// Package telemetry keeps local statistics about the searches ds runs.
// All data stays on the machine; nothing is reported anywhere.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Query Kinds
// =============================================================================

// QueryKind classifies a search by the path restriction it used.
type QueryKind string

const (
	KindAll      QueryKind = "all"      // pattern was "*"
	KindLike     QueryKind = "like"     // wildcard pattern
	KindContains QueryKind = "contains" // plain substring pattern
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
// Searches go through the OS indexer, so buckets are wider than an
// in-process index would need.
type LatencyBucket string

const (
	BucketP50   LatencyBucket = "p50"   // <50ms
	BucketP250  LatencyBucket = "p250"  // 50-250ms
	BucketP1000 LatencyBucket = "p1000" // 250ms-1s
	BucketP5000 LatencyBucket = "p5000" // 1-5s
	BucketSlow  LatencyBucket = "slow"  // >=5s
)

// Buckets lists every bucket in ascending order.
var Buckets = []LatencyBucket{BucketP50, BucketP250, BucketP1000, BucketP5000, BucketSlow}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 50:
		return BucketP50
	case ms < 250:
		return BucketP250
	case ms < 1000:
		return BucketP1000
	case ms < 5000:
		return BucketP5000
	default:
		return BucketSlow
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent represents a single search for telemetry recording.
type QueryEvent struct {
	Pattern     string
	Query       string
	Kind        QueryKind
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this search returned no rows.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// label is how the search is shown in the zero-result list.
func (e QueryEvent) label() string {
	if e.Query == "" {
		return e.Pattern
	}
	return e.Pattern + " " + e.Query
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int // Current number of items
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		// Buffer full - oldest item is at head
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms extracts the words of a user query worth counting.
// Terms are lowercased, stripped of quotes, negation and wildcards, and
// filtered to minimum length 3. Query keywords (AND, OR, NOT) are skipped.
func ExtractTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		switch w {
		case "AND", "OR", "NOT":
			continue
		}
		w = strings.ToLower(strings.Trim(w, `"*?-`))
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// =============================================================================
// Term Count
// =============================================================================

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// sortTermCounts orders by count descending, then term ascending.
func sortTermCounts(tc []TermCount) {
	sort.Slice(tc, func(i, j int) bool {
		if tc[i].Count != tc[j].Count {
			return tc[i].Count > tc[j].Count
		}
		return tc[i].Term < tc[j].Term
	})
}

// =============================================================================
// Query Metrics Snapshot
// =============================================================================

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	KindCounts          map[QueryKind]int64     `json:"kind_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	Since               time.Time               `json:"since"`

	ExactRepeatCount int64   `json:"exact_repeat_count"`
	ExactRepeatRate  float64 `json:"exact_repeat_rate"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Query Metrics Store (Interface)
// =============================================================================

// QueryMetricsStore defines persistence operations for query metrics.
type QueryMetricsStore interface {
	// SaveKindCounts adds to the daily per-kind counts.
	SaveKindCounts(date string, counts map[QueryKind]int64) error

	// GetKindCounts retrieves counts for a date range.
	GetKindCounts(from, to string) (map[QueryKind]int64, error)

	// UpsertTermCounts adds to the term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery appends to the bounded zero-result list.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries retrieves recent zero-result queries, newest first.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts adds to the daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts retrieves latency distribution for a date range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	// SaveBatch writes every part of b for date atomically: either all of
	// it is stored or none of it.
	SaveBatch(date string, b Batch) error

	// Close releases resources.
	Close() error
}

// Locker serializes flushes between ds processes sharing one store.
type Locker interface {
	Lock() error
	Unlock() error
}

// =============================================================================
// Query Metrics Configuration
// =============================================================================

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int           // Max terms to track (default: 100)
	ZeroResultsCapacity   int           // Max zero-result queries to track (default: 100)
	FlushInterval         time.Duration // Auto-flush period; 0 flushes only on Close
	RecentQueriesCapacity int           // Max queries to track for repetition (default: 500)
}

// DefaultQueryMetricsConfig returns sensible defaults for a short-lived CLI.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		FlushInterval:         0,
		RecentQueriesCapacity: 500,
	}
}

// =============================================================================
// Query Metrics
// =============================================================================

// Batch holds what has been recorded since the last flush.
type Batch struct {
	Kinds       map[QueryKind]int64
	Terms       map[string]int64
	Latencies   map[LatencyBucket]int64
	ZeroResults []QueryEvent
}

// NewBatch returns an empty batch.
func NewBatch() Batch {
	return Batch{
		Kinds:     make(map[QueryKind]int64),
		Terms:     make(map[string]int64),
		Latencies: make(map[LatencyBucket]int64),
	}
}

// Empty reports whether nothing was recorded.
func (b Batch) Empty() bool {
	return len(b.Kinds) == 0 && len(b.Terms) == 0 && len(b.Latencies) == 0 && len(b.ZeroResults) == 0
}

// merge adds other into b.
func (b Batch) merge(other Batch) Batch {
	for k, v := range other.Kinds {
		b.Kinds[k] += v
	}
	for k, v := range other.Terms {
		b.Terms[k] += v
	}
	for k, v := range other.Latencies {
		b.Latencies[k] += v
	}
	b.ZeroResults = append(b.ZeroResults, other.ZeroResults...)
	return b
}

// QueryMetrics collects search telemetry.
// Thread-safe for concurrent access.
type QueryMetrics struct {
	mu sync.RWMutex

	// flushMu keeps the ticker flush and the one in Close from overlapping.
	flushMu sync.Mutex

	// In-memory aggregates for the life of the process
	kinds           map[QueryKind]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	recentQueries    *lru.Cache[string, struct{}] // LRU of query hashes
	exactRepeatCount int64

	// Deltas not yet written to the store
	unflushed Batch

	// Persistence
	store       QueryMetricsStore
	lock        Locker
	config      QueryMetricsConfig
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

// Option configures a QueryMetrics.
type Option func(*QueryMetrics)

// WithLocker guards every flush with l.
func WithLocker(l Locker) Option {
	return func(m *QueryMetrics) {
		m.lock = l
	}
}

// NewQueryMetrics creates a new metrics collector with default configuration.
// If store is nil, metrics are only kept in memory.
func NewQueryMetrics(store QueryMetricsStore, opts ...Option) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig(), opts...)
}

// NewQueryMetricsWithConfig creates a new metrics collector with custom configuration.
func NewQueryMetricsWithConfig(store QueryMetricsStore, cfg QueryMetricsConfig, opts ...Option) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		kinds:         make(map[QueryKind]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		startTime:     time.Now(),
		recentQueries: recentQueries,
		unflushed:     NewBatch(),
		store:         store,
		config:        cfg,
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

// flushLoop periodically flushes metrics to storage.
func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures metrics from one search.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.kinds[event.Kind]++
	m.unflushed.Kinds[event.Kind]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.unflushed.Terms[term]++
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.label())
		m.zeroResultCount++
		m.unflushed.ZeroResults = append(m.unflushed.ZeroResults, event)
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.unflushed.Latencies[bucket]++

	queryHash := hashQuery(event.label())
	if _, exists := m.recentQueries.Get(queryHash); exists {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(queryHash, struct{}{})
}

// hashQuery creates a normalized hash of the query for repetition detection.
func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16])
}

// Snapshot returns current in-process metrics for reporting.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kinds := make(map[QueryKind]int64, len(m.kinds))
	for k, v := range m.kinds {
		kinds[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sortTermCounts(topTerms)

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var exactRepeatRate float64
	if m.totalQueries > 0 {
		exactRepeatRate = float64(m.exactRepeatCount) / float64(m.totalQueries)
	}

	return &QueryMetricsSnapshot{
		KindCounts:          kinds,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		Since:               m.startTime,
		ExactRepeatCount:    m.exactRepeatCount,
		ExactRepeatRate:     exactRepeatRate,
	}
}

// Flush writes everything recorded since the previous flush to the store
// in one transaction. Safe to call even if no store is configured. On
// failure nothing is stored and the batch is kept for the next attempt.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	batch := m.unflushed
	m.unflushed = NewBatch()
	m.mu.Unlock()

	if batch.Empty() {
		return nil
	}

	if err := m.write(batch); err != nil {
		m.mu.Lock()
		m.unflushed = batch.merge(m.unflushed)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *QueryMetrics) write(batch Batch) error {
	if m.lock != nil {
		if err := m.lock.Lock(); err != nil {
			return err
		}
		defer func() { _ = m.lock.Unlock() }()
	}

	return m.store.SaveBatch(time.Now().Format("2006-01-02"), batch)
}

// Close flushes and stops the auto-flush loop. The store itself is owned by
// the caller.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
