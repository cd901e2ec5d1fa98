package telemetry

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_Add_MultipleItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")

	assert.Equal(t, []string{"query1", "query2", "query3"}, buf.Items())
}

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")
	buf.Add("query4") // Evicts query1
	buf.Add("query5") // Evicts query2

	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"query3", "query4", "query5"}, buf.Items())
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	items := buf.Items()
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")
	buf.Clear()

	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Items())
}

func TestCircularBuffer_DefaultCapacity(t *testing.T) {
	buf := NewCircularBuffer[int](0)
	for i := 0; i < 150; i++ {
		buf.Add(i)
	}
	assert.Equal(t, 100, buf.Size())
}

// =============================================================================
// LatencyBucket Tests
// =============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency  time.Duration
		expected LatencyBucket
	}{
		{5 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP250},
		{249 * time.Millisecond, BucketP250},
		{250 * time.Millisecond, BucketP1000},
		{999 * time.Millisecond, BucketP1000},
		{1 * time.Second, BucketP5000},
		{4999 * time.Millisecond, BucketP5000},
		{5 * time.Second, BucketSlow},
		{time.Minute, BucketSlow},
	}

	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, LatencyToBucket(tt.latency))
		})
	}
}

// =============================================================================
// QueryMetrics Tests
// =============================================================================

func TestQueryMetrics_Record_IncrementsCounts(t *testing.T) {
	m := NewQueryMetrics(nil) // nil store = in-memory only
	defer m.Close()

	m.Record(QueryEvent{Pattern: "*.docx", Query: "budget", Kind: KindLike, ResultCount: 5, Latency: 25 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "report", Kind: KindContains, ResultCount: 3, Latency: 15 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "*.xlsx", Query: "forecast", Kind: KindLike, ResultCount: 8, Latency: 50 * time.Millisecond})

	snapshot := m.Snapshot()
	assert.Equal(t, int64(2), snapshot.KindCounts[KindLike])
	assert.Equal(t, int64(1), snapshot.KindCounts[KindContains])
	assert.Equal(t, int64(3), snapshot.TotalQueries)
}

func TestQueryMetrics_Record_TracksTopTerms(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(QueryEvent{Pattern: "*", Query: "invoice march", Kind: KindAll, ResultCount: 5})
	m.Record(QueryEvent{Pattern: "*", Query: "invoice april", Kind: KindAll, ResultCount: 3})
	m.Record(QueryEvent{Pattern: "*", Query: "invoice OR receipt", Kind: KindAll, ResultCount: 2})

	snapshot := m.Snapshot()

	require.NotEmpty(t, snapshot.TopTerms)
	assert.Equal(t, TermCount{Term: "invoice", Count: 3}, snapshot.TopTerms[0])
	for _, tc := range snapshot.TopTerms {
		assert.NotEqual(t, "or", tc.Term)
	}
}

func TestQueryMetrics_Record_CapturesZeroResults(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(QueryEvent{Pattern: "*.pst", Query: "archive", Kind: KindLike, ResultCount: 0})
	m.Record(QueryEvent{Pattern: "*.docx", Kind: KindLike, ResultCount: 5})
	m.Record(QueryEvent{Pattern: "missing", Kind: KindContains, ResultCount: 0})

	snapshot := m.Snapshot()
	assert.Equal(t, []string{"*.pst archive", "missing"}, snapshot.ZeroResultQueries)
	assert.Equal(t, int64(2), snapshot.ZeroResultCount)
}

func TestQueryMetrics_Record_BucketsLatency(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(QueryEvent{Pattern: "a", Kind: KindContains, ResultCount: 1, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "b", Kind: KindContains, ResultCount: 1, Latency: 100 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "c", Kind: KindContains, ResultCount: 1, Latency: 120 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "d", Kind: KindContains, ResultCount: 1, Latency: 6 * time.Second})

	snapshot := m.Snapshot()
	assert.Equal(t, int64(1), snapshot.LatencyDistribution[BucketP50])
	assert.Equal(t, int64(2), snapshot.LatencyDistribution[BucketP250])
	assert.Equal(t, int64(1), snapshot.LatencyDistribution[BucketSlow])
}

func TestQueryMetrics_Concurrent_ThreadSafe(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	var wg sync.WaitGroup
	numGoroutines := 50
	eventsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				m.Record(QueryEvent{Pattern: "*", Query: "test query", Kind: KindAll, ResultCount: 5})
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(numGoroutines*eventsPerGoroutine), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_ExactRepetition(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.Record(QueryEvent{Pattern: "*.md", Query: "notes", Kind: KindLike, ResultCount: 5})
	m.Record(QueryEvent{Pattern: "*.md", Query: "todo", Kind: KindLike, ResultCount: 3})
	m.Record(QueryEvent{Pattern: "*.MD", Query: "Notes", Kind: KindLike, ResultCount: 5}) // repeat, case-insensitive

	snapshot := m.Snapshot()
	assert.Equal(t, int64(1), snapshot.ExactRepeatCount)
	assert.InDelta(t, 1.0/3.0, snapshot.ExactRepeatRate, 0.01)
}

func TestQueryMetricsSnapshot_ZeroResultPercentage(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	for i := 0; i < 8; i++ {
		m.Record(QueryEvent{Pattern: "found", Kind: KindContains, ResultCount: 5})
	}
	for i := 0; i < 2; i++ {
		m.Record(QueryEvent{Pattern: "missed", Kind: KindContains, ResultCount: 0})
	}

	assert.InDelta(t, 20.0, m.Snapshot().ZeroResultPercentage(), 0.01)
	assert.Equal(t, 0.0, (&QueryMetricsSnapshot{}).ZeroResultPercentage())
}

func TestQueryMetrics_RecordAfterCloseIsNoOp(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Pattern: "after close", Kind: KindContains, ResultCount: 1})

	assert.Equal(t, int64(0), m.Snapshot().TotalQueries)
	assert.NoError(t, m.Close()) // idempotent
}

// =============================================================================
// Flush Tests
// =============================================================================

func TestQueryMetrics_Flush_WritesDeltasOnce(t *testing.T) {
	// Given: a collector backed by a real store
	store := setupTestStore(t)
	m := NewQueryMetrics(store)

	m.Record(QueryEvent{Pattern: "*.docx", Query: "budget", Kind: KindLike, ResultCount: 2, Latency: 10 * time.Millisecond})
	m.Record(QueryEvent{Pattern: "nothing", Kind: KindContains, ResultCount: 0, Latency: 10 * time.Millisecond})

	// When: flushing twice, then closing
	require.NoError(t, m.Flush())
	require.NoError(t, m.Flush())
	require.NoError(t, m.Close())

	// Then: nothing is counted twice
	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kinds[KindLike])
	assert.Equal(t, int64(1), kinds[KindContains])

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "budget", Count: 1}}, terms)

	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"nothing"}, zero)
}

type failingStore struct {
	QueryMetricsStore
	fail bool
}

func (f *failingStore) SaveBatch(date string, b Batch) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.QueryMetricsStore.SaveBatch(date, b)
}

func TestQueryMetrics_Flush_KeepsDeltasOnFailure(t *testing.T) {
	// Given: a store that fails the first write
	store := &failingStore{QueryMetricsStore: setupTestStore(t), fail: true}
	m := NewQueryMetrics(store)
	m.Record(QueryEvent{Pattern: "*", Kind: KindAll, ResultCount: 1})

	// When: the first flush fails and a later one succeeds
	require.Error(t, m.Flush())
	store.fail = false
	require.NoError(t, m.Flush())

	// Then: the event reaches the store exactly once
	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kinds[KindAll])
}

func TestQueryMetrics_Flush_PartialFailureStoresNothing(t *testing.T) {
	// Given: a store whose term table is missing, so the batch fails after
	// the kind counts were written inside the transaction
	store := setupTestStore(t)
	_, err := store.db.Exec("DROP TABLE query_terms")
	require.NoError(t, err)

	m := NewQueryMetrics(store)
	m.Record(QueryEvent{Pattern: "*.xlsx", Query: "budget", Kind: KindLike, ResultCount: 3})

	// When: the first flush fails and a later one succeeds
	require.Error(t, m.Flush())
	require.NoError(t, InitTelemetrySchema(store.db))
	require.NoError(t, m.Flush())

	// Then: the one search is counted once
	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kinds[KindLike])

	latencies, err := store.GetLatencyCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latencies[BucketP50])

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "budget", Count: 1}}, terms)
}

// overlapLocker fails the test if two holders are ever inside at once.
type overlapLocker struct {
	mu       sync.Mutex
	inside   int
	overlaps int
}

func (o *overlapLocker) Lock() error {
	o.mu.Lock()
	o.inside++
	if o.inside > 1 {
		o.overlaps++
	}
	o.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return nil
}

func (o *overlapLocker) Unlock() error {
	o.mu.Lock()
	o.inside--
	o.mu.Unlock()
	return nil
}

func TestQueryMetrics_Flush_Serialized(t *testing.T) {
	// Given: many writers flushing one collector concurrently
	locker := &overlapLocker{}
	store := setupTestStore(t)
	m := NewQueryMetrics(store, WithLocker(locker))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(QueryEvent{Pattern: "*", Kind: KindAll, ResultCount: 1})
			_ = m.Flush()
		}()
	}
	wg.Wait()
	require.NoError(t, m.Close())

	// Then: flushes never overlapped and every search was stored once
	assert.Zero(t, locker.overlaps)
	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(8), kinds[KindAll])
}

type countingLocker struct {
	locks, unlocks int
	err            error
}

func (c *countingLocker) Lock() error {
	if c.err != nil {
		return c.err
	}
	c.locks++
	return nil
}

func (c *countingLocker) Unlock() error {
	c.unlocks++
	return nil
}

func TestQueryMetrics_Flush_UsesLocker(t *testing.T) {
	locker := &countingLocker{}
	m := NewQueryMetrics(setupTestStore(t), WithLocker(locker))

	m.Record(QueryEvent{Pattern: "*", Kind: KindAll, ResultCount: 1})
	require.NoError(t, m.Flush())

	// Empty flushes do not take the lock
	require.NoError(t, m.Flush())

	assert.Equal(t, 1, locker.locks)
	assert.Equal(t, 1, locker.unlocks)
}

func TestQueryMetrics_Flush_LockError(t *testing.T) {
	locker := &countingLocker{err: errors.New("locked")}
	m := NewQueryMetrics(setupTestStore(t), WithLocker(locker))

	m.Record(QueryEvent{Pattern: "*", Kind: KindAll, ResultCount: 1})

	assert.EqualError(t, m.Flush(), "locked")
}

// =============================================================================
// Term Extraction Tests
// =============================================================================

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		query    string
		expected []string
	}{
		{"quarterly budget", []string{"quarterly", "budget"}},
		{"Invoice", []string{"invoice"}},
		{"  spaces  around  ", []string{"spaces", "around"}},
		{`"exact phrase"`, []string{"exact", "phrase"}},
		{"-draft budg*", []string{"draft", "budg"}},
		{"cat OR dog AND NOT bird", []string{"cat", "dog", "bird"}},
		{"", nil},
		{"ab", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTerms(tt.query))
		})
	}
}

func TestQueryEvent_IsZeroResult(t *testing.T) {
	assert.True(t, QueryEvent{ResultCount: 0}.IsZeroResult())
	assert.False(t, QueryEvent{ResultCount: 5}.IsZeroResult())
}
