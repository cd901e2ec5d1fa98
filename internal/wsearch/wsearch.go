// Package wsearch binds ds to the Windows Search service: the COM query
// helper that turns user queries into SQL, the OLE DB provider that runs
// that SQL, and the WSearch service that owns the index.
//
// Everything here is Windows only. Other platforms get the same API backed
// by stubs that return ErrUnsupportedPlatform.
package wsearch

import (
	"fmt"
	"runtime"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

const (
	// CatalogName is the system-wide catalog maintained by the indexer.
	CatalogName = "SystemIndex"

	// ProviderProgID is the OLE DB provider that executes Windows Search SQL.
	ProviderProgID = "Search.CollatorDSO"

	// DefaultConnectionString opens ProviderProgID for the current user.
	DefaultConnectionString = "Provider=Search.CollatorDSO;Extended Properties='Application=Windows';"

	// ServiceName is the Windows service hosting the indexer.
	ServiceName = "WSearch"

	// DriverName is the database/sql driver registered for OLE DB access.
	DriverName = "adodb"
)

// ErrUnsupportedPlatform is returned by every entry point on non-Windows hosts.
var ErrUnsupportedPlatform = dserrors.New(
	dserrors.ErrCodeUnsupportedPlatform,
	"Windows Search is only available on Windows",
	nil,
).WithSuggestion("Use 'ds sql' to preview the generated SQL on this platform")

// Supported reports whether the current build can talk to Windows Search.
func Supported() bool {
	return runtime.GOOS == "windows"
}

// ServiceStatus describes the WSearch service.
type ServiceStatus struct {
	Installed bool   `json:"installed"`
	State     string `json:"state"`
	StartType string `json:"start_type"`
}

// Running reports whether the indexer service is up.
func (s ServiceStatus) Running() bool {
	return s.Installed && s.State == "running"
}

// CatalogStatus describes the state of a search catalog.
type CatalogStatus struct {
	State        string `json:"state"`
	PausedReason string `json:"paused_reason,omitempty"`
	Items        int64  `json:"items"`
}

// Catalog status values returned by ISearchCatalogManager::GetCatalogStatus.
var catalogStates = []string{
	"idle", "paused", "recovering", "full crawl", "incremental crawl",
	"processing notifications", "shutting down",
}

var pausedReasons = []string{
	"", "high I/O", "high CPU", "high notification rate", "low battery",
	"low memory", "user active", "external", "upgrading",
}

func catalogStateName(v uint32) string {
	if int(v) < len(catalogStates) {
		return catalogStates[v]
	}
	return fmt.Sprintf("unknown (%d)", v)
}

func pausedReasonName(v uint32) string {
	if int(v) < len(pausedReasons) {
		return pausedReasons[v]
	}
	return fmt.Sprintf("unknown (%d)", v)
}

// Well-known HRESULTs worth a dedicated message.
const (
	hrClassNotRegistered = 0x80040154 // REGDB_E_CLASSNOTREG
	hrServiceNotRunning  = 0x80070422 // ERROR_SERVICE_DISABLED as HRESULT
	hrCatalogNotFound    = 0x80042103 // MSS_E_CATALOGNOTFOUND
	hrAccessDenied       = 0x80070005 // E_ACCESSDENIED
)

// HRESULTs returned while the indexer is starting or overloaded. They map to
// the retryable ErrCodeProviderBusy.
var busyHRESULTs = map[uint32]bool{
	0x8000000A: true, // E_PENDING
	0x80010001: true, // RPC_E_CALL_REJECTED
	0x8001010A: true, // RPC_E_SERVERCALL_RETRYLATER
	0x80080005: true, // CO_E_SERVER_EXEC_FAILURE
}

// isBusyHRESULT reports whether hr means "try again shortly".
func isBusyHRESULT(hr uintptr) bool {
	return busyHRESULTs[uint32(hr)]
}

// hresultFailed reports whether hr has the severity bit set.
func hresultFailed(hr uintptr) bool {
	return int32(uint32(hr)) < 0
}

// hresultError wraps a failed COM call with the HRESULT in Details.
// Busy HRESULTs become ErrCodeProviderBusy whatever code the caller passed.
func hresultError(code, op string, hr uintptr) *dserrors.DSError {
	h := uint32(hr)
	if isBusyHRESULT(hr) {
		code = dserrors.ErrCodeProviderBusy
	}
	e := dserrors.PlatformError(code, fmt.Sprintf("%s failed (HRESULT 0x%08X)", op, h), nil).
		WithDetail("hresult", fmt.Sprintf("0x%08X", h)).
		WithDetail("operation", op)

	switch h {
	case hrClassNotRegistered:
		e.WithSuggestion("Windows Search is not installed. Enable the 'Windows Search' feature")
	case hrServiceNotRunning:
		e.WithSuggestion("Start the WSearch service: sc start WSearch")
	case hrCatalogNotFound:
		e.WithSuggestion("Check the catalog name in the search.catalog setting")
	case hrAccessDenied:
		e.WithSuggestion("Run ds as the interactive user that owns the search index")
	default:
		if isBusyHRESULT(hr) {
			e.WithSuggestion("The search service is busy; try again in a moment")
		}
	}
	return e
}
