package preflight

import (
	"context"
	"errors"
	"fmt"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// CheckPlatform verifies the host can reach Windows Search at all.
func (c *Checker) CheckPlatform() CheckResult {
	result := CheckResult{
		Name:     "platform",
		Required: true,
	}

	goos, goarch, supported := c.probe.Platform()
	if !supported {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s/%s has no Windows Search", goos, goarch)
		result.Details = "SQL generation still works offline: ds sql <pattern> [query]"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s/%s", goos, goarch)
	return result
}

// CheckService verifies the WSearch service is installed and running.
func (c *Checker) CheckService() CheckResult {
	result := CheckResult{
		Name:     "wsearch_service",
		Required: true,
	}

	status, err := c.probe.Service()
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot query service: %s", errorMessage(err))
		return result
	case !status.Installed:
		result.Status = StatusFail
		result.Message = "not installed"
		result.Details = "Enable the Windows Search feature in Windows Features"
		return result
	case !status.Running():
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s (start type: %s)", status.State, status.StartType)
		result.Details = "Start it with: sc start WSearch"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("running (start type: %s)", status.StartType)
	return result
}

// CheckProvider verifies the OLE DB provider is registered.
func (c *Checker) CheckProvider(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "search_provider",
		Required: true,
	}

	ok, err := c.probe.ProviderRegistered(ctx)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("lookup failed: %s", errorMessage(err))
		return result
	case !ok:
		result.Status = StatusFail
		result.Message = "Search.CollatorDSO is not registered"
		return result
	}

	result.Status = StatusPass
	result.Message = "Search.CollatorDSO registered"
	return result
}

// CheckCatalog reports the indexer state of the configured catalog. A
// paused or crawling catalog still answers queries, so it only warns.
func (c *Checker) CheckCatalog(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "catalog",
		Required: false,
	}

	status, err := c.probe.CatalogStatus(ctx, c.catalog)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s unavailable: %s", c.catalog, errorMessage(err))
		return result
	}

	msg := fmt.Sprintf("%s %s, %d items", c.catalog, status.State, status.Items)
	if status.PausedReason != "" {
		msg += fmt.Sprintf(" (paused: %s)", status.PausedReason)
	}
	result.Message = msg

	switch status.State {
	case "idle", "incremental crawl", "processing notifications":
		result.Status = StatusPass
	default:
		result.Status = StatusWarn
		result.Details = "Results may be incomplete until indexing finishes"
	}
	return result
}

// errorMessage prefers the DSError message over the wrapped chain.
func errorMessage(err error) string {
	var de *dserrors.DSError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
