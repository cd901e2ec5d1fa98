package search

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/query"
	"github.com/Aman-CERP/ds/internal/wsearch"
)

// Generator modes accepted by search.generator and --generator.
const (
	GeneratorAuto   = "auto"
	GeneratorHelper = "helper"
	GeneratorNative = "native"
)

// NewGenerator returns the SQL generator for mode.
//
//	auto    the query helper on Windows, falling back to native when COM or
//	        the catalog is unavailable; native elsewhere
//	helper  the query helper only
//	native  the portable generator only
func NewGenerator(mode string) (query.Generator, error) {
	switch strings.ToLower(mode) {
	case "", GeneratorAuto:
		if !wsearch.Supported() {
			return query.NewNative(), nil
		}
		return query.NewFallback(wsearch.NewHelper(), query.NewNative()), nil
	case GeneratorHelper:
		return wsearch.NewHelper(), nil
	case GeneratorNative:
		return query.NewNative(), nil
	default:
		return nil, dserrors.ValidationError(
			fmt.Sprintf("unknown generator %q", mode), nil).
			WithSuggestion("Use one of: auto, helper, native")
	}
}

// ConnectionSource supplies the provider connection string recommended for
// a catalog. *wsearch.Helper implements it.
type ConnectionSource interface {
	ConnectionString(ctx context.Context, catalog string) (string, error)
}

// ConnectionSourceFor returns the query helper for the auto and helper
// generator modes on Windows, and nil otherwise.
func ConnectionSourceFor(mode string) ConnectionSource {
	if !wsearch.Supported() {
		return nil
	}
	switch strings.ToLower(mode) {
	case "", GeneratorAuto, GeneratorHelper:
		return wsearch.NewHelper()
	default:
		return nil
	}
}

// ProviderConnector opens the Windows Search OLE DB provider.
// A non-empty connString is used as is. Otherwise the string is read from
// source, and wsearch.DefaultConnectionString is used when source is nil or
// fails.
func ProviderConnector(connString string, source ConnectionSource, catalog string) Connector {
	return providerConnector(connString, source, catalog, wsearch.Open)
}

func providerConnector(connString string, source ConnectionSource, catalog string,
	open func(context.Context, string) (*sql.DB, error)) Connector {
	return ConnectorFunc(func(ctx context.Context) (*sql.DB, error) {
		return open(ctx, resolveConnectionString(ctx, connString, source, catalog))
	})
}

// resolveConnectionString returns "" when Open should use its default.
func resolveConnectionString(ctx context.Context, connString string, source ConnectionSource, catalog string) string {
	if connString != "" || source == nil {
		return connString
	}

	conn, err := source.ConnectionString(ctx, catalog)
	if err != nil {
		slog.Debug("helper_connection_string_unavailable",
			slog.String("catalog", catalog),
			slog.String("error", err.Error()))
		return ""
	}
	slog.Debug("helper_connection_string",
		slog.String("catalog", catalog),
		slog.String("connection_string", conn))
	return conn
}
