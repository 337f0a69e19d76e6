package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"fatura/internal/amqp"
	"fatura/internal/ledger"
	"fatura/internal/log"
	"fatura/internal/services"
	"fatura/internal/sheets"
)

// InvoiceSource resolves the current state of an invoice.
type InvoiceSource interface {
	InvoiceSnapshot(ctx context.Context, id int64) (services.InvoiceView, error)
}

// ExportWorker mirrors invoices into a spreadsheet whenever an
// invoice.changed message arrives.
type ExportWorker struct {
	source   InvoiceSource
	exporter sheets.InvoiceExporter
	inflight singleflight.Group
}

func NewExportWorker(source InvoiceSource, exporter sheets.InvoiceExporter) *ExportWorker {
	return &ExportWorker{source: source, exporter: exporter}
}

// HandleInvoiceChanged exports the invoice named by msg. Invoices that no
// longer exist are acknowledged and skipped.
func (w *ExportWorker) HandleInvoiceChanged(ctx context.Context, msg *amqp.InvoiceChangedMessage) error {
	slog.InfoContext(ctx, "Processing invoice changed message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldInvoiceID, msg.InvoiceID,
		log.FieldCardID, msg.CardID,
		log.FieldReason, msg.Reason)

	ref, err := w.Export(ctx, msg.InvoiceID)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.WarnContext(ctx, "Invoice no longer exists, skipping export",
			log.FieldComponent, log.ComponentWorker,
			log.FieldInvoiceID, msg.InvoiceID)
		return nil
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Exported invoice",
		log.FieldComponent, log.ComponentWorker,
		log.FieldInvoiceID, msg.InvoiceID,
		log.FieldSheetsRef, ref)
	return nil
}

// Export writes one invoice. Concurrent calls for the same invoice share a
// single export.
func (w *ExportWorker) Export(ctx context.Context, invoiceID int64) (string, error) {
	v, err, shared := w.inflight.Do(strconv.FormatInt(invoiceID, 10), func() (any, error) {
		view, err := w.source.InvoiceSnapshot(ctx, invoiceID)
		if err != nil {
			return "", err
		}
		ref, err := w.exporter.ExportInvoice(ctx, sheets.BuildInvoiceSheet(view.Card, view.Summary))
		if err != nil {
			return "", fmt.Errorf("export invoice %d: %w", invoiceID, err)
		}
		return ref, nil
	})
	if shared {
		slog.DebugContext(ctx, "Joined in-flight export",
			log.FieldComponent, log.ComponentWorker,
			log.FieldInvoiceID, invoiceID)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
