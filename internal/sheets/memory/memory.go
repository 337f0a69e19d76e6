package memory

import (
	"context"
	"fmt"
	"sync"

	ports "fatura/internal/sheets"
)

var _ ports.InvoiceExporter = (*Exporter)(nil)

// Exporter keeps the last export of every tab in memory.
type Exporter struct {
	mu     sync.Mutex
	sheets map[string]ports.InvoiceSheet
	count  int
}

func New() *Exporter {
	return &Exporter{sheets: map[string]ports.InvoiceSheet{}}
}

func (e *Exporter) ExportInvoice(_ context.Context, sheet ports.InvoiceSheet) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[sheet.Title] = sheet
	e.count++
	return fmt.Sprintf("mem:%s!A1:E%d", sheet.Title, len(sheet.Rows)+2), nil
}

// Sheet returns the last export stored under title.
func (e *Exporter) Sheet(title string) (ports.InvoiceSheet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sheets[title]
	return s, ok
}

// Exports counts every ExportInvoice call.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
