//go:build windows

package wsearch

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-ole/go-ole"
	_ "github.com/mattn/go-adodb" // registers the "adodb" database/sql driver

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// Open connects to the OLE DB provider through database/sql.
// An empty connString uses DefaultConnectionString.
func Open(ctx context.Context, connString string) (*sql.DB, error) {
	if connString == "" {
		connString = DefaultConnectionString
	}

	db, err := sql.Open(DriverName, connString)
	if err != nil {
		return nil, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot open "+ProviderProgID, err)
	}

	// ADO connections are apartment bound; keep one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) && isBusyHRESULT(oleErr.Code()) {
			return nil, hresultError(dserrors.ErrCodeProviderBusy, "connect to "+ProviderProgID, oleErr.Code())
		}
		return nil, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot connect to "+ProviderProgID, err).
			WithSuggestion("Check that the WSearch service is running: ds doctor")
	}
	return db, nil
}

// ProviderRegistered reports whether the ProviderProgID resolves to a class.
func ProviderRegistered(ctx context.Context) (bool, error) {
	return runOnCOMThread(ctx, func() (bool, error) {
		_, err := ole.CLSIDFromProgID(ProviderProgID)
		if err == nil {
			return true, nil
		}
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) {
			// CO_E_CLASSSTRING: the ProgID is not in the registry.
			return false, nil
		}
		return false, dserrors.PlatformError(dserrors.ErrCodeProviderUnavailable,
			"cannot resolve "+ProviderProgID, err)
	})
}
