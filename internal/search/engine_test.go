package search

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/pattern"
	"github.com/Aman-CERP/ds/internal/query"
	"github.com/Aman-CERP/ds/internal/telemetry"
)

// recordingGenerator captures the request and returns fixed SQL.
type recordingGenerator struct {
	sql  string
	err  error
	last query.Request
}

func (g *recordingGenerator) Name() string { return "fake" }

func (g *recordingGenerator) GenerateSQL(_ context.Context, req query.Request) (string, error) {
	g.last = req
	return g.sql, g.err
}

func fixtureConnector(t *testing.T) Connector {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idx.db")
	openFixtureDB(t, path).Close()
	return ConnectorFunc(func(context.Context) (*sql.DB, error) {
		return sql.Open("sqlite", path)
	})
}

func TestNewEngine_RequiresGenerator(t *testing.T) {
	_, err := NewEngine(nil, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_Search_BuildsRequestAndScans(t *testing.T) {
	// Given: an engine over the fixture provider
	gen := &recordingGenerator{sql: "SELECT path, size FROM items ORDER BY modified DESC"}
	engine, err := NewEngine(gen, DefaultEngineConfig(), WithConnector(fixtureConnector(t)))
	require.NoError(t, err)

	// When: searching with a wildcard pattern and a user query
	resp, err := engine.Search(context.Background(), Options{Pattern: "*.xlsx", UserQuery: "budget", MaxResults: 3})

	// Then: the helper settings are passed through
	require.NoError(t, err)
	assert.Equal(t, query.DefaultCatalog, gen.last.Catalog)
	assert.Equal(t, 3, gen.last.MaxResults)
	assert.Equal(t, query.DefaultSelectColumns, gen.last.SelectColumns)
	assert.Equal(t, query.DefaultSorting, gen.last.Sorting)
	assert.Equal(t, "budget", gen.last.UserQuery)
	assert.Equal(t, "AND scope='file:' AND System.ItemPathDisplay LIKE '%.xlsx' ", gen.last.WhereRestrictions)

	// And: rows come back capped at the limit
	assert.Equal(t, pattern.KindLike, resp.Restriction.Kind)
	assert.Equal(t, "fake", resp.Generator)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, `C:\src\big.iso`, resp.Results[0].Path)
}

func TestEngine_Search_DefaultLimitFromConfig(t *testing.T) {
	gen := &recordingGenerator{sql: "SELECT path, size FROM items"}
	cfg := DefaultEngineConfig()
	cfg.MaxResults = 1
	engine, err := NewEngine(gen, cfg, WithConnector(fixtureConnector(t)))
	require.NoError(t, err)

	resp, err := engine.Search(context.Background(), Options{Pattern: "*"})

	require.NoError(t, err)
	assert.Equal(t, 1, gen.last.MaxResults)
	assert.Equal(t, "AND scope='file:'", gen.last.WhereRestrictions)
	assert.Len(t, resp.Results, 1)
}

func TestEngine_Search_RecordsMetrics(t *testing.T) {
	metrics := telemetry.NewQueryMetrics(nil)
	defer metrics.Close()

	gen := &recordingGenerator{sql: "SELECT path, size FROM items WHERE 0"}
	engine, err := NewEngine(gen, DefaultEngineConfig(),
		WithConnector(fixtureConnector(t)), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), Options{Pattern: "report", UserQuery: "quarterly"})
	require.NoError(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.KindCounts[telemetry.KindContains])
	assert.Equal(t, []string{"report quarterly"}, snap.ZeroResultQueries)
}

func TestEngine_Search_RetriesProvider(t *testing.T) {
	// Given: a provider that is busy twice before answering
	inner := fixtureConnector(t)
	attempts := 0
	connector := ConnectorFunc(func(ctx context.Context) (*sql.DB, error) {
		attempts++
		if attempts < 3 {
			return nil, dserrors.New(dserrors.ErrCodeProviderBusy, "busy", nil)
		}
		return inner.Connect(ctx)
	})

	cfg := DefaultEngineConfig()
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	engine, err := NewEngine(&recordingGenerator{sql: "SELECT path, size FROM items"}, cfg, WithConnector(connector))
	require.NoError(t, err)

	// When: searching
	resp, err := engine.Search(context.Background(), Options{Pattern: "*"})

	// Then: the third attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NotEmpty(t, resp.Results)
}

func TestEngine_Search_NonRetryableProviderError(t *testing.T) {
	attempts := 0
	connector := ConnectorFunc(func(context.Context) (*sql.DB, error) {
		attempts++
		return nil, dserrors.New(dserrors.ErrCodeUnsupportedPlatform, "no", nil)
	})
	engine, err := NewEngine(&recordingGenerator{sql: "SELECT 1"}, DefaultEngineConfig(), WithConnector(connector))
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), Options{Pattern: "*"})

	assert.Equal(t, dserrors.ErrCodeUnsupportedPlatform, dserrors.GetCode(err))
	assert.Equal(t, 1, attempts)
}

func TestEngine_Search_NoConnector(t *testing.T) {
	engine, err := NewEngine(&recordingGenerator{sql: "SELECT 1"}, DefaultEngineConfig())
	require.NoError(t, err)

	_, err = engine.Search(context.Background(), Options{Pattern: "*"})

	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_Execute_PreparedStatement(t *testing.T) {
	// Given: SQL generated ahead of execution
	gen := &recordingGenerator{sql: "SELECT path, size FROM items ORDER BY modified DESC"}
	engine, err := NewEngine(gen, DefaultEngineConfig(), WithConnector(fixtureConnector(t)))
	require.NoError(t, err)
	opts := Options{Pattern: "*", MaxResults: 2}

	prepared, err := engine.GenerateSQL(context.Background(), opts)
	require.NoError(t, err)

	// When: executing the prepared response
	resp, err := engine.Execute(context.Background(), prepared, opts)

	// Then: the statement is reused and rows are returned
	require.NoError(t, err)
	assert.Equal(t, prepared.SQL, resp.SQL)
	assert.Equal(t, "fake", resp.Generator)
	assert.Len(t, resp.Results, 2)
}

func TestEngine_Execute_RejectsEmptyStatement(t *testing.T) {
	engine, err := NewEngine(&recordingGenerator{}, DefaultEngineConfig(), WithConnector(fixtureConnector(t)))
	require.NoError(t, err)

	_, err = engine.Execute(context.Background(), &Response{}, Options{})

	assert.Equal(t, dserrors.ErrCodeInvalidInput, dserrors.GetCode(err))
}

func TestEngine_GenerateSQL_DryRun(t *testing.T) {
	engine, err := NewEngine(query.NewNative(), DefaultEngineConfig())
	require.NoError(t, err)

	resp, err := engine.GenerateSQL(context.Background(), Options{Pattern: "report", UserQuery: "budget"})

	require.NoError(t, err)
	assert.Equal(t, "native", resp.Generator)
	assert.Equal(t, pattern.KindContains, resp.Restriction.Kind)
	assert.Contains(t, resp.SQL, `CONTAINS(*,'"budget*"') AND scope='file:' AND Contains(System.ItemPathDisplay, 'report')`)
	assert.Empty(t, resp.Results)
}

func TestEngine_GenerateSQL_WrapsPlainErrors(t *testing.T) {
	engine, err := NewEngine(&recordingGenerator{err: errors.New("boom")}, DefaultEngineConfig())
	require.NoError(t, err)

	_, err = engine.GenerateSQL(context.Background(), Options{Pattern: "*"})

	assert.Equal(t, dserrors.ErrCodeSQLGeneration, dserrors.GetCode(err))
}

func TestEngine_GenerateSQL_InvalidPattern(t *testing.T) {
	engine, err := NewEngine(query.NewNative(), DefaultEngineConfig())
	require.NoError(t, err)

	_, err = engine.GenerateSQL(context.Background(), Options{Pattern: "a\x00b"})

	assert.Equal(t, dserrors.ErrCodeInvalidPattern, dserrors.GetCode(err))
}

func TestEngine_CustomScope(t *testing.T) {
	gen := &recordingGenerator{sql: "SELECT 1"}
	cfg := DefaultEngineConfig()
	cfg.Scope = "file:C:/Users"
	engine, err := NewEngine(gen, cfg)
	require.NoError(t, err)

	_, err = engine.GenerateSQL(context.Background(), Options{Pattern: "*"})

	require.NoError(t, err)
	assert.Equal(t, "AND scope='file:C:/Users'", gen.last.WhereRestrictions)
}

func TestNewGenerator(t *testing.T) {
	for _, mode := range []string{"", "auto", "helper", "native", "NATIVE"} {
		gen, err := NewGenerator(mode)
		require.NoError(t, err, mode)
		assert.NotNil(t, gen)
	}

	_, err := NewGenerator("magic")
	assert.Equal(t, dserrors.ErrCodeInvalidInput, dserrors.GetCode(err))
}
