package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fatura/internal/core"
	"fatura/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fatura.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedCard(t *testing.T, repo *SQLiteRepository) core.CreditCard {
	t.Helper()
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, core.User{
		Username: "maria", Name: "Maria Silva", Email: "maria@example.com",
		Doc: "12345678909", PasswordHash: []byte("hash"),
	})
	require.NoError(t, err)

	est := core.Money{Cents: 150000}
	card, err := repo.CreateCard(ctx, core.CreditCard{
		UserID: user.ID, Nickname: "Roxinho", Bank: "Nubank", EndNumbers: "1234",
		DueDay: 20, BillingStartDay: 10, BillingEndDay: 9,
		TotalLimit: core.Money{Cents: 500000}, EstimateForInvoice: &est,
	})
	require.NoError(t, err)
	return card
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fatura.db")
	v1, err := RunMigrations(path)
	require.NoError(t, err)
	v2, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)
	assert.Equal(t, v1, v2)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.CreateUser(ctx, core.User{Username: "maria", Name: "Maria", Email: "m@example.com", PasswordHash: []byte("x")})
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	_, err = repo.CreateUser(ctx, core.User{Username: "MARIA", Name: "Outra", Email: "o@example.com", PasswordHash: []byte("x")})
	assert.ErrorIs(t, err, ledger.ErrDuplicate)

	got, err := repo.GetUserByUsername(ctx, "Maria")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []byte("x"), got.PasswordHash)

	_, err = repo.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCards(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := seedCard(t, repo)

	card.Nickname = "Roxo"
	card.EstimateForInvoice = nil
	require.NoError(t, repo.UpdateCard(ctx, card))

	got, err := repo.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roxo", got.Nickname)
	assert.Nil(t, got.EstimateForInvoice)
	assert.Equal(t, int64(500000), got.TotalLimit.Cents)

	list, err := repo.ListCards(ctx, card.UserID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetCard(ctx, 999)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestInvoiceForCycle_FindOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := seedCard(t, repo)

	cycle, err := core.CycleFor(time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), card.BillingStartDay)
	require.NoError(t, err)

	first, err := repo.InvoiceForCycle(ctx, card, cycle)
	require.NoError(t, err)
	assert.Equal(t, core.StatusOpen, first.Status)
	assert.Equal(t, "2025-09-10", first.StartDate.String())
	assert.Equal(t, "2025-10-10", first.EndDate.String())
	assert.Equal(t, "2025-10-20", first.DueDate.String())
	require.NotNil(t, first.EstimateLimit)
	assert.Equal(t, int64(150000), first.EstimateLimit.Cents)

	again, err := repo.InvoiceForCycle(ctx, card, cycle)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = repo.InvoiceForCycle(ctx, card, cycle.Next())
	require.NoError(t, err)

	list, err := repo.ListInvoices(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	require.NoError(t, repo.UpdateInvoiceStatus(ctx, first.ID, core.StatusPaid))
	require.NoError(t, repo.UpdateInvoiceEstimate(ctx, first.ID, nil))
	got, err := repo.GetInvoice(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, got.Status)
	assert.Nil(t, got.EstimateLimit)

	assert.ErrorIs(t, repo.UpdateInvoiceStatus(ctx, 999, core.StatusPaid), ledger.ErrNotFound)
}

func TestPurchaseLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	card := seedCard(t, repo)

	purchasedAt := time.Date(2025, 10, 12, 15, 30, 0, 0, time.UTC)
	cycles, err := core.AssignInstallments(purchasedAt, card.BillingStartDay, 2)
	require.NoError(t, err)
	var installments []core.Installment
	for i, c := range cycles {
		inv, err := repo.InvoiceForCycle(ctx, card, c)
		require.NoError(t, err)
		installments = append(installments, core.Installment{Index: i + 1, Total: 2, Value: core.Money{Cents: 5000}, InvoiceID: inv.ID})
	}

	p, saved, err := repo.SavePurchase(ctx, core.Purchase{
		CreditCardID: card.ID, Description: "Fone", Category: "Eletrônicos",
		TotalValue: core.Money{Cents: 10000}, PurchasedAt: purchasedAt, InstallmentCount: 2,
	}, installments)
	require.NoError(t, err)
	require.NotZero(t, p.ID)
	require.Len(t, saved, 2)

	got, gotInstallments, err := repo.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, purchasedAt.Equal(got.PurchasedAt))
	require.Len(t, gotInstallments, 2)
	assert.Equal(t, 1, gotInstallments[0].Index)
	assert.NotEqual(t, gotInstallments[0].InvoiceID, gotInstallments[1].InvoiceID)

	// Rewriting collapses the plan into one installment.
	p.InstallmentCount = 1
	_, saved, err = repo.SavePurchase(ctx, p, []core.Installment{{Index: 1, Total: 1, Value: core.Money{Cents: 10000}, InvoiceID: installments[0].InvoiceID}})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	charges, err := repo.ListCharges(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "Fone", charges[0].Purchase.Description)

	removed, err := repo.DeletePurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	_, _, err = repo.GetPurchase(ctx, p.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = repo.DeletePurchase(ctx, p.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSavePurchase_UnknownInvoice(t *testing.T) {
	repo := newTestRepo(t)
	card := seedCard(t, repo)
	_, _, err := repo.SavePurchase(context.Background(), core.Purchase{
		CreditCardID: card.ID, Description: "X", Category: "Y",
		TotalValue: core.Money{Cents: 100}, PurchasedAt: time.Now(), InstallmentCount: 1,
	}, []core.Installment{{Index: 1, Total: 1, Value: core.Money{Cents: 100}, InvoiceID: 999}})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
