package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/amqp"
	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/ledger"
	ledgermem "fatura/internal/ledger/memory"
	"fatura/internal/services"
	"fatura/internal/sheets"
	sheetsmem "fatura/internal/sheets/memory"
)

func seed(t *testing.T) (*services.LedgerService, int64) {
	t.Helper()
	ctx := context.Background()
	store := ledgermem.New()
	svc := services.NewLedgerService(store)
	u, err := store.CreateUser(ctx, core.User{Username: "maria"})
	require.NoError(t, err)
	card, err := svc.CreateCard(ctx, u.ID, api.CardRequest{
		Bank: "Nubank", EndNumbers: "1234", Nickname: "Roxinho",
		DueDate: 20, BillingPeriodStart: 10, BillingPeriodEnd: 9, TotalLimit: core.Money{Cents: 100000},
	})
	require.NoError(t, err)
	p, err := svc.CreatePurchase(ctx, u.ID, api.PurchaseRequest{
		Description: "Mercado", CreditCardID: card.ID, TotalInstallments: 1,
		Category: "Casa", PurchaseDateTime: "2025-10-12", Value: core.Money{Cents: 4590},
	})
	require.NoError(t, err)
	return svc, p.Installments[0].Invoice.ID
}

func TestHandleInvoiceChanged_Exports(t *testing.T) {
	svc, invoiceID := seed(t)
	exporter := sheetsmem.New()
	w := NewExportWorker(svc, exporter)

	err := w.HandleInvoiceChanged(context.Background(), amqp.NewInvoiceChangedMessage(invoiceID, 1, amqp.ReasonPurchaseCreated))
	require.NoError(t, err)

	sheet, ok := exporter.Sheet("Roxinho 1234 2025-11")
	require.True(t, ok)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "Mercado", sheet.Rows[0].Description)
	assert.Equal(t, int64(4590), sheet.Total.Cents)
}

func TestHandleInvoiceChanged_MissingInvoiceIsAcked(t *testing.T) {
	svc, _ := seed(t)
	exporter := sheetsmem.New()
	w := NewExportWorker(svc, exporter)

	err := w.HandleInvoiceChanged(context.Background(), amqp.NewInvoiceChangedMessage(9999, 1, amqp.ReasonPurchaseDeleted))
	require.NoError(t, err)
	assert.Zero(t, exporter.Exports())
}

type failingExporter struct{}

func (failingExporter) ExportInvoice(context.Context, sheets.InvoiceSheet) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleInvoiceChanged_ExportErrorRequeues(t *testing.T) {
	svc, invoiceID := seed(t)
	w := NewExportWorker(svc, failingExporter{})

	err := w.HandleInvoiceChanged(context.Background(), amqp.NewInvoiceChangedMessage(invoiceID, 1, amqp.ReasonStatusChanged))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

type slowSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowSource) InvoiceSnapshot(context.Context, int64) (services.InvoiceView, error) {
	s.calls.Add(1)
	<-s.release
	return services.InvoiceView{}, ledger.ErrNotFound
}

func TestExport_DeduplicatesConcurrentCalls(t *testing.T) {
	src := &slowSource{release: make(chan struct{})}
	w := NewExportWorker(src, sheetsmem.New())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Export(context.Background(), 42)
			assert.ErrorIs(t, err, ledger.ErrNotFound)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}
