package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/amqp"
	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/ledger"
	"fatura/internal/ledger/memory"
	"fatura/internal/validation"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []amqp.InvoiceChangedMessage
	err  error
}

func (p *recordingPublisher) PublishInvoiceChanged(_ context.Context, msg amqp.InvoiceChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) invoiceIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, len(p.msgs))
	for i, m := range p.msgs {
		ids[i] = m.InvoiceID
	}
	return ids
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = nil
}

type fixture struct {
	svc   *LedgerService
	store *memory.Store
	pub   *recordingPublisher
	user  int64
	card  core.CreditCard
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		pub:   &recordingPublisher{},
		now:   time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithPublisher(f.pub), WithClock(func() time.Time { return f.now })}, opts...)
	f.svc = NewLedgerService(f.store, opts...)

	u, err := f.store.CreateUser(context.Background(), core.User{Username: "maria", Name: "Maria"})
	require.NoError(t, err)
	f.user = u.ID

	f.card, err = f.svc.CreateCard(context.Background(), f.user, api.CardRequest{
		Bank: "Nubank", EndNumbers: "1234", Nickname: "Roxinho",
		DueDate: 20, BillingPeriodStart: 10, BillingPeriodEnd: 9,
		TotalLimit: core.Money{Cents: 500000},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) purchase(t *testing.T, desc string, cents int64, count int, date string) PurchaseView {
	t.Helper()
	v, err := f.svc.CreatePurchase(context.Background(), f.user, api.PurchaseRequest{
		Description: desc, CreditCardID: f.card.ID, TotalInstallments: count,
		Category: "Casa", PurchaseDateTime: date, Value: core.Money{Cents: cents},
	})
	require.NoError(t, err)
	return v
}

func TestCreatePurchase_AllocatesAndAssigns(t *testing.T) {
	f := newFixture(t)

	v := f.purchase(t, "Geladeira", 10000, 3, "2025-10-09T18:00:00")

	require.Len(t, v.Installments, 3)
	wantValues := []int64{3333, 3333, 3334}
	wantStarts := []string{"2025-09-10", "2025-10-10", "2025-11-10"}
	for i, in := range v.Installments {
		assert.Equal(t, i+1, in.Installment.Index)
		assert.Equal(t, 3, in.Installment.Total)
		assert.Equal(t, wantValues[i], in.Installment.Value.Cents)
		assert.Equal(t, wantStarts[i], in.Invoice.StartDate.String())
		assert.Equal(t, core.StatusOpen, in.Invoice.Status)
	}

	ids := f.pub.invoiceIDs()
	assert.Len(t, ids, 3)
	assert.ElementsMatch(t, []int64{v.Installments[0].Invoice.ID, v.Installments[1].Invoice.ID, v.Installments[2].Invoice.ID}, ids)
}

func TestCreatePurchase_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePurchase(context.Background(), f.user, api.PurchaseRequest{
		CreditCardID: f.card.ID, TotalInstallments: 40, PurchaseDateTime: "ontem",
	})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, validation.MsgRequired, verrs.Field("descricao"))
	assert.Equal(t, validation.MsgInstallments, verrs.Field("totalInstallments"))
	assert.Equal(t, validation.MsgInvalidDate, verrs.Field("purchaseDateTime"))
	assert.Equal(t, validation.MsgValue, verrs.Field("value"))
	assert.Empty(t, f.pub.invoiceIDs())
}

func TestGetInvoice_RecomputesFromSnapshot(t *testing.T) {
	f := newFixture(t)
	a := f.purchase(t, "Mercado", 15000, 1, "2025-10-12")
	f.purchase(t, "Cinema", 5000, 1, "2025-10-13T20:00:00Z")
	f.purchase(t, "Notebook", 300000, 10, "2025-10-11")

	inv := a.Installments[0].Invoice
	view, err := f.svc.GetInvoice(context.Background(), f.user, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(15000+5000+30000), view.Summary.Total.Cents)
	assert.Len(t, view.Summary.Charges, 3)
	assert.Equal(t, 1, view.Summary.TotalInstallments)
	assert.Equal(t, int64(320000), view.Panel.UsedLimit.Cents)
	assert.Equal(t, 10, view.Panel.TotalInstallments)
	assert.False(t, view.Progress.HasEstimate)
}

func TestChangeInvoiceStatus_PaidReleasesLimit(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "Sofá", 120000, 3, "2025-10-10")
	first := p.Installments[0].Invoice.ID
	f.pub.reset()

	for _, st := range []string{"CLOSED", "pending", "PAID"} {
		_, err := f.svc.ChangeInvoiceStatus(context.Background(), f.user, first, st)
		require.NoError(t, err)
	}
	assert.Equal(t, []int64{first, first, first}, f.pub.invoiceIDs())

	view, err := f.svc.GetInvoice(context.Background(), f.user, first)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, view.Summary.Invoice.Status)
	assert.Equal(t, int64(80000), view.Panel.UsedLimit.Cents)
	assert.Equal(t, 1, view.Panel.PaidInstallments)

	pv, err := f.svc.GetPurchase(context.Background(), f.user, p.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pv.PaidCount)

	_, err = f.svc.ChangeInvoiceStatus(context.Background(), f.user, first, "ARCHIVED")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)
}

func TestCreatePurchase_LongAccentedDescription(t *testing.T) {
	f := newFixture(t)
	desc := strings.TrimSpace(strings.Repeat("ção ", 40))
	require.Greater(t, len(desc), core.MaxDescriptionLength, "bytes")

	v := f.purchase(t, desc, 1000, 1, "2025-10-10")
	assert.Equal(t, desc, v.Purchase.Description)

	_, err := f.svc.CreatePurchase(context.Background(), f.user, api.PurchaseRequest{
		Description: strings.Repeat("é", core.MaxDescriptionLength+1), CreditCardID: f.card.ID, TotalInstallments: 1,
		Category: "Casa", PurchaseDateTime: "2025-10-10", Value: core.Money{Cents: 1000},
	})
	verrs, ok := IsValidation(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, validation.MsgMaxLength(core.MaxDescriptionLength), verrs.Field("descricao"))
}

func TestCreatePurchase_RejectsSettledInvoice(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "TV", 1000, 1, "2025-10-10")
	first := p.Installments[0].Invoice.ID
	_, err := f.svc.ChangeInvoiceStatus(context.Background(), f.user, first, "PAID")
	require.NoError(t, err)
	f.pub.reset()

	_, err = f.svc.CreatePurchase(context.Background(), f.user, api.PurchaseRequest{
		Description: "Cinema", CreditCardID: f.card.ID, TotalInstallments: 1,
		Category: "Lazer", PurchaseDateTime: "2025-10-13", Value: core.Money{Cents: 5000},
	})
	assert.ErrorIs(t, err, core.ErrInvoiceNotOpen)
	assert.Empty(t, f.pub.invoiceIDs())

	view, err := f.svc.GetInvoice(context.Background(), f.user, first)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.Summary.Total.Cents)
	assert.Zero(t, view.Panel.UsedLimit.Cents)

	_, err = f.svc.ChangeInvoiceStatus(context.Background(), f.user, first, "CLOSED")
	require.NoError(t, err)
	_, err = f.svc.UpdatePurchase(context.Background(), f.user, p.Purchase.ID, api.PurchaseRequest{
		Description: "TV", TotalInstallments: 2, Category: "Casa", Value: core.Money{Cents: 1000},
	})
	assert.ErrorIs(t, err, core.ErrInvoiceNotOpen)

	next := f.purchase(t, "Cinema", 5000, 1, "2025-11-12")
	assert.NotEqual(t, first, next.Installments[0].Invoice.ID)
}

func TestChangeInvoiceStatus_SequentialPolicy(t *testing.T) {
	f := newFixture(t, WithPolicy(core.Sequential{}))
	p := f.purchase(t, "Sofá", 1000, 1, "2025-10-10")

	_, err := f.svc.ChangeInvoiceStatus(context.Background(), f.user, p.Installments[0].Invoice.ID, "PAID")
	assert.ErrorIs(t, err, core.ErrIllegalTransition)

	inv, err := f.svc.ChangeInvoiceStatus(context.Background(), f.user, p.Installments[0].Invoice.ID, "CLOSED")
	require.NoError(t, err)
	assert.Equal(t, core.StatusClosed, inv.Status)
}

func TestUpdatePurchase_ReassignsAndPublishesOldAndNew(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "TV", 10000, 2, "2025-10-10")
	oldIDs := []int64{p.Installments[0].Invoice.ID, p.Installments[1].Invoice.ID}
	f.pub.reset()

	updated, err := f.svc.UpdatePurchase(context.Background(), f.user, p.Purchase.ID, api.PurchaseRequest{
		Description: "TV 55", Category: "Casa", TotalInstallments: 4, Value: core.Money{Cents: 10001},
	})
	require.NoError(t, err)

	require.Len(t, updated.Installments, 4)
	assert.Equal(t, p.Purchase.PurchasedAt, updated.Purchase.PurchasedAt)
	var sum core.Money
	for _, in := range updated.Installments {
		sum = sum.Add(in.Installment.Value)
	}
	assert.Equal(t, int64(10001), sum.Cents)
	assert.Equal(t, oldIDs[0], updated.Installments[0].Invoice.ID)

	published := f.pub.invoiceIDs()
	assert.Len(t, published, 4)
	assert.Subset(t, published, oldIDs)
}

func TestDeletePurchase(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "TV", 10000, 2, "2025-10-10")
	f.pub.reset()

	require.NoError(t, f.svc.DeletePurchase(context.Background(), f.user, p.Purchase.ID))
	assert.Len(t, f.pub.invoiceIDs(), 2)

	view, err := f.svc.GetInvoice(context.Background(), f.user, p.Installments[0].Invoice.ID)
	require.NoError(t, err)
	assert.True(t, view.Summary.Total.IsZero())

	err = f.svc.DeletePurchase(context.Background(), f.user, p.Purchase.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestOwnership(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "TV", 10000, 1, "2025-10-10")
	stranger, err := f.store.CreateUser(context.Background(), core.User{Username: "joao"})
	require.NoError(t, err)

	_, err = f.svc.GetCard(context.Background(), stranger.ID, f.card.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.svc.GetInvoice(context.Background(), stranger.ID, p.Installments[0].Invoice.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.svc.GetPurchase(context.Background(), stranger.ID, p.Purchase.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	cards, err := f.svc.ListCards(context.Background(), stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCurrentInvoiceAndSubscription(t *testing.T) {
	f := newFixture(t)

	cur, err := f.svc.CurrentInvoice(context.Background(), f.user, f.card.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-10", cur.Summary.Invoice.StartDate.String())
	assert.Equal(t, "2025-11-20", cur.Summary.Invoice.DueDate.String())
	assert.True(t, cur.Summary.Total.IsZero())

	sub, err := f.svc.CreateSubscription(context.Background(), f.user, api.SubscriptionRequest{
		Description: "Streaming", CreditCardID: f.card.ID, Category: "Lazer", Value: core.Money{Cents: 3990},
	})
	require.NoError(t, err)
	require.Len(t, sub.Installments, 1)
	assert.Equal(t, cur.Summary.Invoice.ID, sub.Installments[0].Invoice.ID)

	card, err := f.svc.GetCard(context.Background(), f.user, f.card.ID)
	require.NoError(t, err)
	require.NotNil(t, card.Current)
	assert.Equal(t, cur.Summary.Invoice.ID, card.Current.ID)
	assert.Equal(t, int64(3990), card.Panel.UsedLimit.Cents)
	assert.Equal(t, int64(500000-3990), card.Panel.AvailableLimit.Cents)
}

func TestUpdateEstimateLimit(t *testing.T) {
	f := newFixture(t)
	p := f.purchase(t, "Mercado", 45000, 1, "2025-10-12")
	id := p.Installments[0].Invoice.ID

	_, err := f.svc.UpdateEstimateLimit(context.Background(), f.user, id, api.EstimateLimitRequest{EstimateLimit: &core.Money{Cents: -1}})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)

	inv, err := f.svc.UpdateEstimateLimit(context.Background(), f.user, id, api.EstimateLimitRequest{EstimateLimit: &core.Money{Cents: 100000}})
	require.NoError(t, err)
	require.NotNil(t, inv.EstimateLimit)

	view, err := f.svc.GetInvoice(context.Background(), f.user, id)
	require.NoError(t, err)
	assert.True(t, view.Progress.HasEstimate)
	assert.Equal(t, 45, view.Progress.Percent)
	assert.Equal(t, "moderate", view.Progress.Band)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	v := f.purchase(t, "Mercado", 1000, 1, "2025-10-12")
	assert.NotZero(t, v.Purchase.ID)
}

func TestCreateCard_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCard(context.Background(), f.user, api.CardRequest{Bank: "X", EndNumbers: "12"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Mínimo 2 caracteres", verrs.Field("bank"))
	assert.Equal(t, validation.MsgEndNumbers, verrs.Field("endNumbers"))
	assert.Equal(t, validation.MsgRequired, verrs.Field("nickname"))
	assert.Equal(t, validation.MsgDayRange, verrs.Field("dueDate"))
	assert.Equal(t, validation.MsgTotalLimit, verrs.Field("totalLimit"))
}
