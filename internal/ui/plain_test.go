package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/pattern"
	"github.com/Aman-CERP/ds/internal/search"
)

func sampleResponse() *search.Response {
	return &search.Response{
		SQL:         `SELECT TOP 10 "System.ItemPathDisplay","System.Size" FROM "SystemIndex" WHERE scope='file:'`,
		Generator:   "native",
		Restriction: pattern.Restriction{Pattern: "*.go", Kind: pattern.KindLike},
		Results: []search.Result{
			{Path: `C:\src\main.go`, Size: 1204},
			{Path: `C:\src\util.go`, Size: 0},
		},
		Duration: 42 * time.Millisecond,
	}
}

func renderAll(r Renderer, resp *search.Response) error {
	r.Start(resp.Restriction.Pattern, "budget")
	r.SQL(resp.SQL)
	for _, res := range resp.Results {
		r.Result(res)
	}
	return r.Complete(resp)
}

func TestPlainRenderer_ClassicLines(t *testing.T) {
	// Given: a plain renderer with SQL echo enabled
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering a full search
	require.NoError(t, renderAll(r, sampleResponse()))

	// Then: the output matches the classic line format exactly
	want := "Starting search with path pattern: *.go and query: budget\n" +
		"Generated SQL query:\n" +
		`SELECT TOP 10 "System.ItemPathDisplay","System.Size" FROM "SystemIndex" WHERE scope='file:'` + "\n" +
		"File Name: C:\\src\\main.go, Size: 1204 bytes\n" +
		"File Name: C:\\src\\util.go, Size: 0 bytes\n" +
		"Search completed successfully.\n"
	assert.Equal(t, want, buf.String())
}

func TestPlainRenderer_NoSQL(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf, WithShowSQL(false)))

	require.NoError(t, renderAll(r, sampleResponse()))

	assert.NotContains(t, buf.String(), "Generated SQL query:")
	assert.NotContains(t, buf.String(), "SELECT")
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	require.NoError(t, renderAll(r, sampleResponse()))

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_ErrorGoesToErrorWriter(t *testing.T) {
	// Given: separate output and error writers
	out, errs := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(out, WithErrors(errs)))

	// When: reporting a provider failure
	r.Error(dserrors.New(dserrors.ErrCodeProviderUnavailable, "provider unavailable", nil).
		WithSuggestion("Start the Windows Search service"))

	// Then: stdout stays clean and stderr carries the CLI format
	assert.Empty(t, out.String())
	assert.Contains(t, errs.String(), "Error: provider unavailable")
	assert.Contains(t, errs.String(), "Hint: Start the Windows Search service")
	assert.Contains(t, errs.String(), "Code: "+dserrors.ErrCodeProviderUnavailable)
}
