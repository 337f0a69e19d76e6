package core

import "strings"

// DefaultCategory labels charges whose purchase has no category.
const DefaultCategory = "Outros"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Charge is one installment together with the purchase it belongs to.
type Charge struct {
	Installment Installment
	Purchase    Purchase
}

// InvoiceSummary holds everything derived from the charges of one invoice.
// It is rebuilt from a snapshot on every read and never persisted.
type InvoiceSummary struct {
	Invoice           Invoice
	Total             Money
	Categories        []CategoryAmount // first-seen order
	TotalInstallments int              // charges that belong to installment plans
	PaidInstallments  int
	Charges           []Charge
}

// CreditPanel is the card-level dashboard shown next to an invoice.
type CreditPanel struct {
	UsedLimit         Money
	TotalLimit        Money
	AvailableLimit    Money
	TotalInstallments int
	PaidInstallments  int
	Categories        []CategoryAmount
}

// Aggregate folds the charges assigned to inv. Charges pointing at another
// invoice are ignored.
func Aggregate(inv Invoice, charges []Charge) InvoiceSummary {
	sum := InvoiceSummary{Invoice: inv}
	index := make(map[string]int)
	for _, c := range charges {
		if c.Installment.InvoiceID != inv.ID {
			continue
		}
		sum.Charges = append(sum.Charges, c)
		sum.Total = sum.Total.Add(c.Installment.Value)

		name := strings.TrimSpace(c.Purchase.Category)
		if name == "" {
			name = DefaultCategory
		}
		if i, ok := index[name]; ok {
			sum.Categories[i].Amount = sum.Categories[i].Amount.Add(c.Installment.Value)
		} else {
			index[name] = len(sum.Categories)
			sum.Categories = append(sum.Categories, CategoryAmount{Name: name, Amount: c.Installment.Value})
		}

		if c.Installment.Total > 1 {
			sum.TotalInstallments++
			if inv.Status.IsPaid() {
				sum.PaidInstallments++
			}
		}
	}
	return sum
}

// UsedLimit is the committed credit of a card: the totals of every invoice
// that is not PAID.
func UsedLimit(summaries []InvoiceSummary) Money {
	var used Money
	for _, s := range summaries {
		if s.Invoice.Status.IsPaid() {
			continue
		}
		used = used.Add(s.Total)
	}
	return used
}

// BuildCreditPanel combines card-wide limit and installment counts with the
// category breakdown of the focused invoice.
func BuildCreditPanel(card CreditCard, all []InvoiceSummary, focus InvoiceSummary) CreditPanel {
	panel := CreditPanel{
		UsedLimit:  UsedLimit(all),
		TotalLimit: card.TotalLimit,
		Categories: focus.Categories,
	}
	panel.AvailableLimit = card.TotalLimit.Sub(panel.UsedLimit)
	if panel.AvailableLimit.Cents < 0 {
		panel.AvailableLimit = Money{}
	}
	for _, s := range all {
		panel.TotalInstallments += s.TotalInstallments
		panel.PaidInstallments += s.PaidInstallments
	}
	return panel
}

// Progress compares actual spend with the planned ceiling of an invoice.
type Progress struct {
	HasEstimate bool
	Percent     int
	Overage     bool // projected overage; informational only
	Band        string
}

// PlannedProgress reports how much of estimate total already uses.
func PlannedProgress(total Money, estimate *Money) Progress {
	if estimate == nil {
		return Progress{}
	}
	p := Progress{HasEstimate: true, Overage: total.Cents > estimate.Cents}
	switch {
	case estimate.Cents > 0:
		p.Percent = int(total.Cents * 100 / estimate.Cents)
	case total.Cents > 0:
		p.Percent = 100
	}
	p.Band = ProgressBand(p.Percent)
	return p
}

// ProgressBand buckets a usage percentage into a presentation band.
func ProgressBand(percent int) string {
	switch {
	case percent < 20:
		return "minimal"
	case percent < 40:
		return "low"
	case percent < 60:
		return "moderate"
	case percent < 80:
		return "high"
	case percent < 100:
		return "critical"
	default:
		return "exceeded"
	}
}
