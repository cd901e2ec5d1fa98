package cmd

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ds/internal/config"
	"github.com/Aman-CERP/ds/internal/telemetry"
)

// seedHistory records searches into the default history database.
func seedHistory(t *testing.T, events ...telemetry.QueryEvent) {
	t.Helper()
	store, err := telemetry.OpenSQLiteMetricsStore(config.NewConfig().History.Path)
	require.NoError(t, err)
	defer store.Close()

	metrics := telemetry.NewQueryMetrics(store)
	for _, e := range events {
		metrics.Record(e)
	}
	require.NoError(t, metrics.Close())
}

func TestStatsCmd_NoHistory(t *testing.T) {
	isolate(t)

	out, _, err := run(t, nil, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "No history database")
}

func TestStatsCmd_NoHistoryJSON(t *testing.T) {
	isolate(t)

	out, _, err := run(t, nil, "stats", "--json")

	require.NoError(t, err)
	var summary telemetry.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Zero(t, summary.TotalQueries)
	assert.Equal(t, time.Now().Format("2006-01-02"), summary.To)
}

func TestStatsCmd_RendersHistory(t *testing.T) {
	// Given: two recorded searches, one without results
	isolate(t)
	now := time.Now()
	seedHistory(t,
		telemetry.QueryEvent{Pattern: "*.xlsx", Query: "budget", Kind: telemetry.KindLike, ResultCount: 4, Latency: 30 * time.Millisecond, Timestamp: now},
		telemetry.QueryEvent{Pattern: "report", Query: "budget", Kind: telemetry.KindContains, Latency: 2 * time.Second, Timestamp: now},
	)

	// When: showing stats
	out, _, err := run(t, nil, "stats", "--days", "1")

	// Then: totals, terms and zero-result searches are shown
	require.NoError(t, err)
	assert.Contains(t, out, "Searches:")
	assert.Contains(t, out, "budget")
	assert.Contains(t, out, "report budget")
	assert.Contains(t, out, "Database")
}

func TestStatsCmd_JSON(t *testing.T) {
	isolate(t)
	seedHistory(t, telemetry.QueryEvent{Pattern: "*", Query: "tax", Kind: telemetry.KindAll, ResultCount: 1, Timestamp: time.Now()})

	out, _, err := run(t, nil, "stats", "--json")

	require.NoError(t, err)
	var summary telemetry.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, int64(1), summary.TotalQueries)
	assert.Equal(t, int64(1), summary.KindCounts[telemetry.KindAll])
}

func TestStatsCmd_RejectsBadDays(t *testing.T) {
	isolate(t)

	_, _, err := run(t, nil, "stats", "--days", "0")

	assert.Error(t, err)
}
