//go:build windows

package wsearch

import (
	"context"
	"errors"
	"runtime"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/query"
)

var (
	clsidSearchManager = ole.NewGUID("{7D096C5F-AC08-4F1F-BEB7-5C22C517CE39}")
	iidISearchManager  = ole.NewGUID("{AB310581-AC80-11D1-8DF3-00C04FB6EF69}")
)

// Vtable slots (IUnknown occupies 0-2).
const (
	// ISearchManager
	vtGetCatalog = 10

	// ISearchCatalogManager
	vtGetCatalogStatus = 6
	vtNumberOfItems    = 15
	vtGetQueryHelper   = 25

	// ISearchQueryHelper
	vtGetConnectionString       = 3
	vtPutQuerySelectColumns     = 14
	vtPutQueryWhereRestrictions = 16
	vtPutQuerySorting           = 18
	vtGenerateSQLFromUserQuery  = 20
	vtPutQueryMaxResults        = 22
)

// Helper generates SQL through the Windows Search query helper.
type Helper struct{}

// NewHelper returns a Helper. COM is initialized per call.
func NewHelper() *Helper {
	return &Helper{}
}

// Name implements query.Generator.
func (h *Helper) Name() string {
	return "helper"
}

// GenerateSQL configures the query helper from req and asks it to translate
// the user query into SQL.
func (h *Helper) GenerateSQL(ctx context.Context, req query.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	return runOnCOMThread(ctx, func() (string, error) {
		var sql string
		err := withCatalog(req.Catalog, func(catalog *ole.IUnknown) error {
			qh, err := queryHelper(catalog)
			if err != nil {
				return err
			}
			defer qh.Release()

			maxResults := int32(req.MaxResults)
			if maxResults <= 0 {
				maxResults = -1 // no limit
			}
			if hr := invoke(qh, vtPutQueryMaxResults, uintptr(maxResults)); hresultFailed(hr) {
				return hresultError(dserrors.ErrCodeSQLGeneration, "put_QueryMaxResults", hr)
			}
			if err := putString(qh, vtPutQuerySelectColumns, "put_QuerySelectColumns", req.ColumnList()); err != nil {
				return err
			}
			if err := putString(qh, vtPutQuerySorting, "put_QuerySorting", req.Sorting); err != nil {
				return err
			}
			if err := putString(qh, vtPutQueryWhereRestrictions, "put_QueryWhereRestrictions", req.WhereRestrictions); err != nil {
				return err
			}

			userQuery, err := windows.UTF16PtrFromString(req.UserQuery)
			if err != nil {
				return dserrors.ValidationError("user query contains a NUL character", err)
			}
			var out *uint16
			hr := invoke(qh, vtGenerateSQLFromUserQuery,
				uintptr(unsafe.Pointer(userQuery)), uintptr(unsafe.Pointer(&out)))
			runtime.KeepAlive(userQuery)
			if hresultFailed(hr) {
				return hresultError(dserrors.ErrCodeSQLGeneration, "GenerateSQLFromUserQuery", hr)
			}
			sql = takeString(out)
			return nil
		})
		return sql, err
	})
}

// ConnectionString returns the OLE DB connection string the helper recommends.
func (h *Helper) ConnectionString(ctx context.Context, catalogName string) (string, error) {
	return runOnCOMThread(ctx, func() (string, error) {
		var conn string
		err := withCatalog(catalogName, func(catalog *ole.IUnknown) error {
			qh, err := queryHelper(catalog)
			if err != nil {
				return err
			}
			defer qh.Release()

			var out *uint16
			if hr := invoke(qh, vtGetConnectionString, uintptr(unsafe.Pointer(&out))); hresultFailed(hr) {
				return hresultError(dserrors.ErrCodeProviderUnavailable, "get_ConnectionString", hr)
			}
			conn = takeString(out)
			return nil
		})
		return conn, err
	})
}

// CatalogStatus reports the indexing state and item count of a catalog.
func (h *Helper) CatalogStatus(ctx context.Context, catalogName string) (CatalogStatus, error) {
	return runOnCOMThread(ctx, func() (CatalogStatus, error) {
		var status CatalogStatus
		err := withCatalog(catalogName, func(catalog *ole.IUnknown) error {
			var state, reason uint32
			hr := invoke(catalog, vtGetCatalogStatus,
				uintptr(unsafe.Pointer(&state)), uintptr(unsafe.Pointer(&reason)))
			if hresultFailed(hr) {
				return hresultError(dserrors.ErrCodeCatalogUnavailable, "GetCatalogStatus", hr)
			}

			var items int32
			if hr := invoke(catalog, vtNumberOfItems, uintptr(unsafe.Pointer(&items))); hresultFailed(hr) {
				return hresultError(dserrors.ErrCodeCatalogUnavailable, "NumberOfItems", hr)
			}

			status = CatalogStatus{
				State:        catalogStateName(state),
				PausedReason: pausedReasonName(reason),
				Items:        int64(items),
			}
			return nil
		})
		return status, err
	})
}

// withCatalog creates the search manager, opens the named catalog and
// passes its ISearchCatalogManager to fn. Must run on a COM thread.
func withCatalog(name string, fn func(catalog *ole.IUnknown) error) error {
	if name == "" {
		name = CatalogName
	}

	manager, err := ole.CreateInstance(clsidSearchManager, iidISearchManager)
	if err != nil {
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) {
			return hresultError(dserrors.ErrCodeCatalogUnavailable, "CoCreateInstance(CSearchManager)", oleErr.Code())
		}
		return dserrors.PlatformError(dserrors.ErrCodeCatalogUnavailable, "cannot create search manager", err)
	}
	defer manager.Release()

	catalogName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return dserrors.ValidationError("catalog name contains a NUL character", err)
	}

	var catalog *ole.IUnknown
	hr := invoke(manager, vtGetCatalog, uintptr(unsafe.Pointer(catalogName)), uintptr(unsafe.Pointer(&catalog)))
	runtime.KeepAlive(catalogName)
	if hresultFailed(hr) {
		return hresultError(dserrors.ErrCodeCatalogUnavailable, "GetCatalog", hr).WithDetail("catalog", name)
	}
	defer catalog.Release()

	return fn(catalog)
}

func queryHelper(catalog *ole.IUnknown) (*ole.IUnknown, error) {
	var qh *ole.IUnknown
	if hr := invoke(catalog, vtGetQueryHelper, uintptr(unsafe.Pointer(&qh))); hresultFailed(hr) {
		return nil, hresultError(dserrors.ErrCodeSQLGeneration, "GetQueryHelper", hr)
	}
	return qh, nil
}

// putString calls a put_* property setter that takes an LPCWSTR.
func putString(obj *ole.IUnknown, slot int, op, value string) error {
	p, err := windows.UTF16PtrFromString(value)
	if err != nil {
		return dserrors.ValidationError(op+": value contains a NUL character", err)
	}
	hr := invoke(obj, slot, uintptr(unsafe.Pointer(p)))
	runtime.KeepAlive(p)
	if hresultFailed(hr) {
		return hresultError(dserrors.ErrCodeSQLGeneration, op, hr)
	}
	return nil
}

// takeString copies a callee-allocated LPWSTR and frees it.
func takeString(p *uint16) string {
	if p == nil {
		return ""
	}
	s := windows.UTF16PtrToString(p)
	windows.CoTaskMemFree(unsafe.Pointer(p))
	return s
}
