package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

func TestNative_GenerateSQL_Defaults(t *testing.T) {
	// Given: the default request with a Contains path restriction and one term
	req := DefaultRequest()
	req.WhereRestrictions = "AND scope='file:' AND Contains(System.ItemPathDisplay, 'report') "
	req.UserQuery = "budget"

	// When: generating SQL
	sql, err := NewNative().GenerateSQL(context.Background(), req)

	// Then: the statement has the helper's shape
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT TOP 10 "System.ItemPathDisplay","System.Size" FROM "SystemIndex" `+
			`WHERE CONTAINS(*,'"budget*"') AND scope='file:' AND Contains(System.ItemPathDisplay, 'report') `+
			`ORDER BY "System.DateModified" DESC`,
		sql)
}

func TestNative_GenerateSQL_EmptyUserQuery(t *testing.T) {
	// Given: no user query, only the base scope restriction
	req := DefaultRequest()
	req.WhereRestrictions = "AND scope='file:'"

	// When: generating SQL
	sql, err := NewNative().GenerateSQL(context.Background(), req)

	// Then: the leading AND is dropped
	require.NoError(t, err)
	assert.Contains(t, sql, `WHERE scope='file:' ORDER BY`)
}

func TestNative_GenerateSQL_NoLimitNoSortNoWhere(t *testing.T) {
	req := Request{
		Catalog:       DefaultCatalog,
		SelectColumns: []string{"System.ItemPathDisplay"},
	}

	sql, err := NewNative().GenerateSQL(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, `SELECT "System.ItemPathDisplay" FROM "SystemIndex"`, sql)
}

func TestNative_GenerateSQL_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Request)
		code string
	}{
		{"no columns", func(r *Request) { r.SelectColumns = nil }, dserrors.ErrCodeInvalidColumns},
		{"injected column", func(r *Request) { r.SelectColumns = []string{`x"; DROP`} }, dserrors.ErrCodeInvalidColumns},
		{"bad sort direction", func(r *Request) { r.Sorting = "System.Size SIDEWAYS" }, dserrors.ErrCodeInvalidQuery},
		{"bad sort property", func(r *Request) { r.Sorting = "1abc" }, dserrors.ErrCodeInvalidQuery},
		{"no catalog", func(r *Request) { r.Catalog = "" }, dserrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest()
			tt.mod(&req)

			_, err := NewNative().GenerateSQL(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, tt.code, dserrors.GetCode(err))
		})
	}
}

func TestNative_GenerateSQL_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNative().GenerateSQL(ctx, DefaultRequest())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNative_Sorting(t *testing.T) {
	req := DefaultRequest()
	req.Sorting = "System.ItemName, System.Size desc"

	sql, err := NewNative().GenerateSQL(context.Background(), req)

	require.NoError(t, err)
	assert.Contains(t, sql, `ORDER BY "System.ItemName" ASC, "System.Size" DESC`)
}

func TestUserQueryClause(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"single term", "budget", `CONTAINS(*,'"budget*"')`},
		{"two terms anded", "budget 2024", `CONTAINS(*,'"budget*"') AND CONTAINS(*,'"2024*"')`},
		{"phrase", `"quarterly report"`, `CONTAINS(*,'"quarterly report"')`},
		{"unterminated phrase", `"quarterly report`, `CONTAINS(*,'"quarterly report"')`},
		{"negation", "budget -draft", `CONTAINS(*,'"budget*"') AND NOT CONTAINS(*,'"draft*"')`},
		{"negated phrase", `budget -"draft copy"`, `CONTAINS(*,'"budget*"') AND NOT CONTAINS(*,'"draft copy"')`},
		{"negated phrase alone", `-"draft copy"`, `NOT CONTAINS(*,'"draft copy"')`},
		{"negated empty phrase", `-"" budget`, `CONTAINS(*,'"budget*"')`},
		{"dash inside word before phrase", `a-"b"`, `CONTAINS(*,'"a-*"') AND CONTAINS(*,'"b"')`},
		{"lone dash dropped", "budget -", `CONTAINS(*,'"budget*"')`},
		{"not keyword", "NOT draft", `NOT CONTAINS(*,'"draft*"')`},
		{"or", "cat OR dog", `(CONTAINS(*,'"cat*"') OR CONTAINS(*,'"dog*"'))`},
		{"leading or ignored", "OR dog", `CONTAINS(*,'"dog*"')`},
		{"and keyword ignored", "cat AND dog", `CONTAINS(*,'"cat*"') AND CONTAINS(*,'"dog*"')`},
		{"ext alias", "ext:go", `"System.FileExtension" = '.go'`},
		{"ext alias with dot", "ext:.md", `"System.FileExtension" = '.md'`},
		{"kind alias", "kind:Document", `"System.Kind" = 'document'`},
		{"name alias", "name:main", `"System.FileName" LIKE '%main%'`},
		{"name alias wildcard", "name:main*.go", `"System.FileName" LIKE 'main%.go'`},
		{"author alias", "author:smith", `CONTAINS("System.Author",'"smith*"')`},
		{"unknown prop is a term", "foo:bar", `CONTAINS(*,'"foo:bar*"')`},
		{"quote escaped", "o'brien", `CONTAINS(*,'"o''brien*"')`},
		{"trailing star", "budg*", `CONTAINS(*,'"budg*"')`},
		{"lone star dropped", "*", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userQueryClause(tt.query))
		})
	}
}

func TestRequest_ColumnList(t *testing.T) {
	assert.Equal(t, "System.ItemPathDisplay, System.Size", DefaultRequest().ColumnList())
}

func TestDefaultRequest_CopiesColumns(t *testing.T) {
	// Given: a request whose columns are modified
	req := DefaultRequest()
	req.SelectColumns[0] = "System.ItemName"

	// Then: the package default is unchanged
	assert.Equal(t, "System.ItemPathDisplay", DefaultSelectColumns[0])
}
