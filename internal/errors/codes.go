// Package errors provides structured error handling for ds.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (history store, log files)
//   - 3XX: Platform errors (COM, search service, OLE DB provider)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryPlatform indicates failures in the OS search service or its data provider.
	CategoryPlatform Category = "PLATFORM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeHistoryStore   = "ERR_203_HISTORY_STORE"
	ErrCodeHistoryLocked  = "ERR_204_HISTORY_LOCKED"

	// Platform errors (300-399)
	ErrCodeUnsupportedPlatform = "ERR_301_UNSUPPORTED_PLATFORM"
	ErrCodeCOMInit             = "ERR_302_COM_INIT"
	ErrCodeCatalogUnavailable  = "ERR_303_CATALOG_UNAVAILABLE"
	ErrCodeProviderUnavailable = "ERR_304_PROVIDER_UNAVAILABLE"
	ErrCodeProviderBusy        = "ERR_305_PROVIDER_BUSY"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPattern = "ERR_402_INVALID_PATTERN"
	ErrCodeInvalidQuery   = "ERR_403_INVALID_QUERY"
	ErrCodeInvalidColumns = "ERR_404_INVALID_COLUMNS"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeSQLGeneration = "ERR_502_SQL_GENERATION"
	ErrCodeSearchFailed  = "ERR_503_SEARCH_FAILED"
	ErrCodeRowScan       = "ERR_504_ROW_SCAN"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryPlatform
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeUnsupportedPlatform, ErrCodeCOMInit:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// The indexer rejects connections while it is starting or rebuilding its
// catalog, so provider failures are worth another attempt.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderUnavailable, ErrCodeProviderBusy, ErrCodeHistoryLocked:
		return true
	default:
		return false
	}
}
