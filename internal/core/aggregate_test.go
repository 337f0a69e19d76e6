package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func charge(invoiceID int64, category string, cents int64, index, total int) Charge {
	return Charge{
		Installment: Installment{Index: index, Total: total, Value: Money{Cents: cents}, InvoiceID: invoiceID},
		Purchase:    Purchase{Category: category, InstallmentCount: total, PurchasedAt: time.Now()},
	}
}

func TestAggregate(t *testing.T) {
	inv := Invoice{ID: 1, Status: StatusOpen}
	charges := []Charge{
		charge(1, "Mercado", 15000, 1, 1),
		charge(1, "Lazer", 3333, 1, 3),
		charge(1, "Mercado", 5000, 2, 10),
		charge(1, "", 700, 1, 1),
		charge(2, "Mercado", 99999, 1, 1),
	}

	sum := Aggregate(inv, charges)

	assert.Equal(t, int64(24033), sum.Total.Cents)
	assert.Len(t, sum.Charges, 4)
	assert.Equal(t, []CategoryAmount{
		{Name: "Mercado", Amount: Money{Cents: 20000}},
		{Name: "Lazer", Amount: Money{Cents: 3333}},
		{Name: DefaultCategory, Amount: Money{Cents: 700}},
	}, sum.Categories)
	assert.Equal(t, 2, sum.TotalInstallments)
	assert.Equal(t, 0, sum.PaidInstallments)

	var catTotal Money
	for _, c := range sum.Categories {
		catTotal = catTotal.Add(c.Amount)
	}
	assert.Equal(t, sum.Total, catTotal)
}

func TestAggregate_Empty(t *testing.T) {
	sum := Aggregate(Invoice{ID: 7}, nil)
	assert.True(t, sum.Total.IsZero())
	assert.Empty(t, sum.Categories)
	assert.Zero(t, sum.TotalInstallments)
}

func TestAggregate_PaidInvoiceCountsPaidInstallments(t *testing.T) {
	inv := Invoice{ID: 1, Status: StatusPaid}
	sum := Aggregate(inv, []Charge{charge(1, "A", 100, 1, 2), charge(1, "A", 100, 1, 1)})
	assert.Equal(t, 1, sum.TotalInstallments)
	assert.Equal(t, 1, sum.PaidInstallments)
}

func TestAggregate_MovingAnInstallmentUpdatesBothInvoices(t *testing.T) {
	a := Invoice{ID: 1}
	b := Invoice{ID: 2}
	charges := []Charge{charge(1, "A", 1000, 1, 2), charge(1, "B", 500, 1, 1), charge(2, "A", 1000, 2, 2)}

	before := Aggregate(a, charges).Total.Add(Aggregate(b, charges).Total)

	charges[1].Installment.InvoiceID = 2
	sa, sb := Aggregate(a, charges), Aggregate(b, charges)

	assert.Equal(t, int64(1000), sa.Total.Cents)
	assert.Equal(t, int64(1500), sb.Total.Cents)
	assert.Equal(t, before, sa.Total.Add(sb.Total))
}

func TestUsedLimitFollowsStatus(t *testing.T) {
	card := CreditCard{TotalLimit: Money{Cents: 100000}}
	inv := Invoice{ID: 1, Status: StatusOpen}
	other := Aggregate(Invoice{ID: 2, Status: StatusOpen}, []Charge{charge(2, "A", 2000, 1, 1)})
	charges := []Charge{charge(1, "A", 30000, 1, 3)}

	for _, st := range []InvoiceStatus{StatusOpen, StatusClosed, StatusPending} {
		next, err := Transition(inv.Status, st)
		assert.NoError(t, err)
		inv.Status = next
		sum := Aggregate(inv, charges)
		assert.Equal(t, int64(32000), UsedLimit([]InvoiceSummary{sum, other}).Cents, "status %s", st)
	}

	inv.Status = StatusPaid
	sum := Aggregate(inv, charges)
	panel := BuildCreditPanel(card, []InvoiceSummary{sum, other}, sum)
	assert.Equal(t, int64(2000), panel.UsedLimit.Cents)
	assert.Equal(t, int64(98000), panel.AvailableLimit.Cents)
	assert.Equal(t, 1, panel.TotalInstallments)
	assert.Equal(t, 1, panel.PaidInstallments)
	assert.Equal(t, sum.Categories, panel.Categories)
}

func TestBuildCreditPanel_CountsCardWideCategoriesFromFocus(t *testing.T) {
	card := CreditCard{TotalLimit: Money{Cents: 100000}}
	charges := []Charge{
		charge(1, "Casa", 1000, 1, 2),
		charge(1, "Mercado", 400, 1, 1),
		charge(2, "Casa", 1000, 2, 2),
		charge(2, "Lazer", 700, 1, 3),
	}
	first := Aggregate(Invoice{ID: 1, Status: StatusOpen}, charges)
	second := Aggregate(Invoice{ID: 2, Status: StatusOpen}, charges)

	panel := BuildCreditPanel(card, []InvoiceSummary{first, second}, second)
	assert.Equal(t, int64(3100), panel.UsedLimit.Cents)
	assert.Equal(t, 3, panel.TotalInstallments, "single payments are not installments")
	assert.Equal(t, []CategoryAmount{
		{Name: "Casa", Amount: Money{Cents: 1000}},
		{Name: "Lazer", Amount: Money{Cents: 700}},
	}, panel.Categories)
}

func TestBuildCreditPanel_AvailableNeverNegative(t *testing.T) {
	card := CreditCard{TotalLimit: Money{Cents: 1000}}
	sum := Aggregate(Invoice{ID: 1}, []Charge{charge(1, "A", 5000, 1, 1)})
	panel := BuildCreditPanel(card, []InvoiceSummary{sum}, sum)
	assert.Equal(t, int64(5000), panel.UsedLimit.Cents)
	assert.True(t, panel.AvailableLimit.IsZero())
}

func TestPlannedProgress(t *testing.T) {
	assert.Equal(t, Progress{}, PlannedProgress(Money{Cents: 100}, nil))

	est := Money{Cents: 100000}
	p := PlannedProgress(Money{Cents: 45000}, &est)
	assert.True(t, p.HasEstimate)
	assert.Equal(t, 45, p.Percent)
	assert.Equal(t, "moderate", p.Band)
	assert.False(t, p.Overage)

	p = PlannedProgress(Money{Cents: 120000}, &est)
	assert.Equal(t, 120, p.Percent)
	assert.Equal(t, "exceeded", p.Band)
	assert.True(t, p.Overage)

	zero := Money{}
	assert.Equal(t, 100, PlannedProgress(Money{Cents: 1}, &zero).Percent)
	assert.Equal(t, 0, PlannedProgress(Money{}, &zero).Percent)
}

func TestProgressBand(t *testing.T) {
	tests := map[int]string{0: "minimal", 19: "minimal", 20: "low", 39: "low", 40: "moderate", 60: "high", 80: "critical", 99: "critical", 100: "exceeded", 250: "exceeded"}
	for percent, want := range tests {
		assert.Equal(t, want, ProgressBand(percent), "percent %d", percent)
	}
}
