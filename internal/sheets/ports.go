package sheets

import (
	"context"
	"fmt"

	"fatura/internal/core"
)

// InvoiceExporter mirrors one invoice into a spreadsheet. Exporting the same
// invoice twice replaces the previous copy.
type InvoiceExporter interface {
	ExportInvoice(ctx context.Context, sheet InvoiceSheet) (ref string, err error)
}

// Header is the first row of every exported invoice.
var Header = []string{"Data", "Descrição", "Categoria", "Parcela", "Valor"}

type (
	InvoiceSheet struct {
		Title   string
		Invoice core.Invoice
		Rows    []InvoiceRow
		Total   core.Money
	}

	InvoiceRow struct {
		Date        core.Date
		Description string
		Category    string
		Installment string
		Value       core.Money
	}
)

// BuildInvoiceSheet lays out the charges of an invoice summary in purchase
// order, one row per installment.
func BuildInvoiceSheet(card core.CreditCard, sum core.InvoiceSummary) InvoiceSheet {
	sheet := InvoiceSheet{
		Title:   Title(card, sum.Invoice),
		Invoice: sum.Invoice,
		Rows:    make([]InvoiceRow, 0, len(sum.Charges)),
		Total:   sum.Total,
	}
	for _, c := range sum.Charges {
		category := c.Purchase.Category
		if category == "" {
			category = core.DefaultCategory
		}
		sheet.Rows = append(sheet.Rows, InvoiceRow{
			Date:        core.DateOf(c.Purchase.PurchasedAt),
			Description: c.Purchase.Description,
			Category:    category,
			Installment: c.Installment.Label(),
			Value:       c.Installment.Value,
		})
	}
	return sheet
}

// Title names the tab of an invoice, e.g. "Roxinho 1234 2025-10".
func Title(card core.CreditCard, inv core.Invoice) string {
	return fmt.Sprintf("%s %s %s", card.Nickname, card.EndNumbers, inv.DueDate.Format("2006-01"))
}

// Values renders the sheet as spreadsheet cells: header, rows and a total line.
func (s InvoiceSheet) Values() [][]any {
	out := make([][]any, 0, len(s.Rows)+2)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range s.Rows {
		out = append(out, []any{r.Date.String(), r.Description, r.Category, r.Installment, r.Value.Float()})
	}
	out = append(out, []any{"", "Total", "", "", s.Total.Float()})
	return out
}
