//go:build !windows

package wsearch

import (
	"context"
	"database/sql"

	"github.com/Aman-CERP/ds/internal/query"
)

// Helper is unavailable outside Windows; every method returns
// ErrUnsupportedPlatform.
type Helper struct{}

// NewHelper returns a Helper.
func NewHelper() *Helper {
	return &Helper{}
}

// Name implements query.Generator.
func (h *Helper) Name() string {
	return "helper"
}

// GenerateSQL implements query.Generator.
func (h *Helper) GenerateSQL(context.Context, query.Request) (string, error) {
	return "", ErrUnsupportedPlatform
}

// ConnectionString returns ErrUnsupportedPlatform.
func (h *Helper) ConnectionString(context.Context, string) (string, error) {
	return "", ErrUnsupportedPlatform
}

// CatalogStatus returns ErrUnsupportedPlatform.
func (h *Helper) CatalogStatus(context.Context, string) (CatalogStatus, error) {
	return CatalogStatus{}, ErrUnsupportedPlatform
}

// Open returns ErrUnsupportedPlatform.
func Open(context.Context, string) (*sql.DB, error) {
	return nil, ErrUnsupportedPlatform
}

// ProviderRegistered returns ErrUnsupportedPlatform.
func ProviderRegistered(context.Context) (bool, error) {
	return false, ErrUnsupportedPlatform
}

// QueryService returns ErrUnsupportedPlatform.
func QueryService() (ServiceStatus, error) {
	return ServiceStatus{}, ErrUnsupportedPlatform
}
