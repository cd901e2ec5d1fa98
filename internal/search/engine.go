// Package search runs Windows Search queries end to end: path pattern
// translation, SQL generation, provider access and row scanning.
package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/pattern"
	"github.com/Aman-CERP/ds/internal/query"
	"github.com/Aman-CERP/ds/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Connector opens the data provider that executes generated SQL.
type Connector interface {
	Connect(ctx context.Context) (*sql.DB, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (*sql.DB, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (*sql.DB, error) {
	return f(ctx)
}

// EngineConfig holds the query helper settings applied to every search.
type EngineConfig struct {
	Catalog       string
	Scope         string
	SelectColumns []string
	Sorting       string
	MaxResults    int
	Timeout       time.Duration
	Retry         dserrors.RetryConfig
}

// DefaultEngineConfig returns the settings the tool has always used.
func DefaultEngineConfig() EngineConfig {
	req := query.DefaultRequest()
	return EngineConfig{
		Catalog:       req.Catalog,
		Scope:         pattern.DefaultScope,
		SelectColumns: req.SelectColumns,
		Sorting:       req.Sorting,
		MaxResults:    req.MaxResults,
		Retry:         dserrors.DefaultRetryConfig(),
	}
}

// Engine ties a SQL generator to a data provider.
type Engine struct {
	generator query.Generator
	connector Connector
	config    EngineConfig
	metrics   *telemetry.QueryMetrics
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics records every completed search into m.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConnector sets the data provider. Without one, only GenerateSQL works.
func WithConnector(c Connector) EngineOption {
	return func(e *Engine) {
		e.connector = c
	}
}

// NewEngine creates an engine. The generator is required.
func NewEngine(gen query.Generator, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: generator is required", ErrNilDependency)
	}

	defaults := DefaultEngineConfig()
	if config.Catalog == "" {
		config.Catalog = defaults.Catalog
	}
	if config.Scope == "" {
		config.Scope = defaults.Scope
	}
	if len(config.SelectColumns) == 0 {
		config.SelectColumns = defaults.SelectColumns
	}

	e := &Engine{
		generator: gen,
		config:    config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Generator returns the name of the SQL generator in use.
func (e *Engine) Generator() string {
	return e.generator.Name()
}

// GenerateSQL translates the pattern and produces SQL without running it.
func (e *Engine) GenerateSQL(ctx context.Context, opts Options) (*Response, error) {
	start := time.Now()

	restriction, stmt, err := e.prepare(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Response{
		SQL:         stmt,
		Generator:   e.generator.Name(),
		Restriction: restriction,
		Results:     []Result{},
		Duration:    time.Since(start),
	}, nil
}

// Search runs the full pipeline and returns the matching rows.
func (e *Engine) Search(ctx context.Context, opts Options) (*Response, error) {
	if e.connector == nil {
		return nil, fmt.Errorf("%w: no data provider configured", ErrNilDependency)
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	slog.Debug("search_started",
		slog.String("pattern", opts.Pattern),
		slog.String("query", opts.UserQuery),
		slog.String("generator", e.generator.Name()))

	prepared, err := e.GenerateSQL(ctx, opts)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, prepared, opts)
}

// Execute runs SQL produced by GenerateSQL. It lets callers show the
// statement before the provider is contacted.
func (e *Engine) Execute(ctx context.Context, prepared *Response, opts Options) (*Response, error) {
	if e.connector == nil {
		return nil, fmt.Errorf("%w: no data provider configured", ErrNilDependency)
	}
	if prepared == nil || prepared.SQL == "" {
		return nil, dserrors.ValidationError("no SQL statement to execute", nil)
	}
	start := time.Now().Add(-prepared.Duration)

	db, err := dserrors.RetryWithResult(ctx, e.config.Retry, func() (*sql.DB, error) {
		db, err := e.connector.Connect(ctx)
		if err != nil {
			slog.Debug("provider_connect_failed", slog.String("error", err.Error()))
		}
		return db, err
	})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results, err := NewExecutor(db).Run(ctx, prepared.SQL, e.limit(opts))
	if err != nil {
		slog.Error("search_failed",
			slog.String("sql", prepared.SQL),
			slog.String("error", err.Error()))
		return nil, err
	}

	elapsed := time.Since(start)
	slog.Info("search_complete",
		slog.String("pattern", opts.Pattern),
		slog.String("kind", prepared.Restriction.Kind.String()),
		slog.Int("results", len(results)),
		slog.Duration("duration", elapsed))

	if e.metrics != nil {
		e.metrics.Record(telemetry.QueryEvent{
			Pattern:     opts.Pattern,
			Query:       opts.UserQuery,
			Kind:        kindOf(prepared.Restriction),
			ResultCount: len(results),
			Latency:     elapsed,
			Timestamp:   start,
		})
	}

	return &Response{
		SQL:         prepared.SQL,
		Generator:   prepared.Generator,
		Restriction: prepared.Restriction,
		Results:     results,
		Duration:    elapsed,
	}, nil
}

// prepare runs pattern translation and SQL generation.
func (e *Engine) prepare(ctx context.Context, opts Options) (pattern.Restriction, string, error) {
	restriction, err := pattern.TranslateScoped(opts.Pattern, e.config.Scope)
	if err != nil {
		return pattern.Restriction{}, "", err
	}

	req := query.Request{
		Catalog:           e.config.Catalog,
		MaxResults:        e.limit(opts),
		SelectColumns:     e.config.SelectColumns,
		Sorting:           e.config.Sorting,
		WhereRestrictions: restriction.Where(),
		UserQuery:         opts.UserQuery,
	}

	stmt, err := e.generator.GenerateSQL(ctx, req)
	if err != nil {
		var de *dserrors.DSError
		if errors.As(err, &de) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return restriction, "", err
		}
		return restriction, "", dserrors.New(dserrors.ErrCodeSQLGeneration, "SQL generation failed", err)
	}

	slog.Debug("sql_generated",
		slog.String("generator", e.generator.Name()),
		slog.String("where", restriction.Where()),
		slog.String("sql", stmt))

	return restriction, stmt, nil
}

func (e *Engine) limit(opts Options) int {
	if opts.MaxResults > 0 {
		return opts.MaxResults
	}
	return e.config.MaxResults
}

func kindOf(r pattern.Restriction) telemetry.QueryKind {
	switch r.Kind {
	case pattern.KindLike:
		return telemetry.KindLike
	case pattern.KindContains:
		return telemetry.KindContains
	default:
		return telemetry.KindAll
	}
}
