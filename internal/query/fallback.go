package query

import (
	"context"
	"log/slog"
	"sync/atomic"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// Fallback tries Primary and switches to Secondary for the rest of its
// life once Primary fails for a platform reason (COM, catalog, OS).
// Validation errors are returned as is.
type Fallback struct {
	Primary   Generator
	Secondary Generator

	degraded atomic.Bool
}

// NewFallback returns a generator preferring primary.
func NewFallback(primary, secondary Generator) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

// Name reports the generator that will serve the next call.
func (f *Fallback) Name() string {
	if f.degraded.Load() {
		return f.Secondary.Name()
	}
	return f.Primary.Name()
}

// GenerateSQL implements Generator.
func (f *Fallback) GenerateSQL(ctx context.Context, req Request) (string, error) {
	if !f.degraded.Load() {
		sql, err := f.Primary.GenerateSQL(ctx, req)
		if err == nil || !shouldFallBack(err) {
			return sql, err
		}
		slog.Warn("generator_fallback",
			slog.String("from", f.Primary.Name()),
			slog.String("to", f.Secondary.Name()),
			slog.String("error", err.Error()))
		f.degraded.Store(true)
	}
	return f.Secondary.GenerateSQL(ctx, req)
}

func shouldFallBack(err error) bool {
	switch dserrors.GetCode(err) {
	case dserrors.ErrCodeUnsupportedPlatform,
		dserrors.ErrCodeCOMInit,
		dserrors.ErrCodeCatalogUnavailable:
		return true
	default:
		return false
	}
}
