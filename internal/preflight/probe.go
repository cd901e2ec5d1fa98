package preflight

import (
	"context"
	"runtime"

	"github.com/Aman-CERP/ds/internal/wsearch"
)

// Probe answers the platform questions the checks ask. The default probe
// talks to the real system; tests substitute a fake.
type Probe interface {
	Platform() (goos, goarch string, supported bool)
	Service() (wsearch.ServiceStatus, error)
	ProviderRegistered(ctx context.Context) (bool, error)
	CatalogStatus(ctx context.Context, catalog string) (wsearch.CatalogStatus, error)
	FreeDiskSpace(path string) (uint64, error)
}

type systemProbe struct {
	helper *wsearch.Helper
}

// SystemProbe returns the probe backed by the running host.
func SystemProbe() Probe {
	return systemProbe{helper: wsearch.NewHelper()}
}

func (systemProbe) Platform() (string, string, bool) {
	return runtime.GOOS, runtime.GOARCH, wsearch.Supported()
}

func (systemProbe) Service() (wsearch.ServiceStatus, error) {
	return wsearch.QueryService()
}

func (systemProbe) ProviderRegistered(ctx context.Context) (bool, error) {
	return wsearch.ProviderRegistered(ctx)
}

func (p systemProbe) CatalogStatus(ctx context.Context, catalog string) (wsearch.CatalogStatus, error) {
	return p.helper.CatalogStatus(ctx, catalog)
}

func (systemProbe) FreeDiskSpace(path string) (uint64, error) {
	return freeDiskSpace(path)
}
