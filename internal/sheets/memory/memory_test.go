package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/core"
	ports "fatura/internal/sheets"
)

func TestExporterReplacesByTitle(t *testing.T) {
	e := New()
	first := ports.InvoiceSheet{Title: "Roxinho 1234 2025-11", Rows: []ports.InvoiceRow{{Description: "a"}}}
	ref, err := e.ExportInvoice(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, "mem:Roxinho 1234 2025-11!A1:E3", ref)

	second := first
	second.Rows = nil
	second.Total = core.Money{Cents: 10}
	_, err = e.ExportInvoice(context.Background(), second)
	require.NoError(t, err)

	got, ok := e.Sheet(first.Title)
	require.True(t, ok)
	assert.Empty(t, got.Rows)
	assert.Equal(t, 2, e.Exports())
}
