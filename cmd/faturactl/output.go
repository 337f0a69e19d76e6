package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/table"
)

type printer struct {
	out    io.Writer
	csv    bool
	styled bool
}

type renderer interface {
	RenderText(w io.Writer, styled bool) error
	RenderCSV(w io.Writer) error
}

func (p *printer) table(t renderer) error {
	if p.csv {
		return t.RenderCSV(p.out)
	}
	return t.RenderText(p.out, p.styled)
}

// fields prints "label: value" lines. CSV output skips them so that the
// following table stays machine readable.
func (p *printer) fields(pairs ...[2]string) error {
	if p.csv {
		return nil
	}
	width := 0
	for _, kv := range pairs {
		width = max(width, len(kv[0]))
	}
	for _, kv := range pairs {
		if _, err := fmt.Fprintf(p.out, "%-*s  %s\n", width+1, kv[0]+":", kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) line(format string, args ...any) error {
	if p.csv {
		return nil
	}
	_, err := fmt.Fprintf(p.out, format+"\n", args...)
	return err
}

func (p *printer) blank() error {
	return p.line("")
}

func field(label, value string) [2]string {
	return [2]string{label, value}
}

func optionalMoney(m *core.Money) string {
	if m == nil {
		return "-"
	}
	return core.FormatCurrency(*m)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}

// Tables

func cardSummaryTable(cards []api.CardSummary) *table.Table[api.CardSummary] {
	return table.New(
		table.Column[api.CardSummary]{Header: "ID", Value: func(c api.CardSummary) any { return c.CardID }},
		table.Column[api.CardSummary]{Header: "Nickname", Value: func(c api.CardSummary) any { return c.Nickname }},
		table.Column[api.CardSummary]{Header: "Bank", Value: func(c api.CardSummary) any { return c.Bank }},
		table.Column[api.CardSummary]{Header: "Card", Value: func(c api.CardSummary) any { return "•••• " + c.EndNumbers }},
		table.Column[api.CardSummary]{Header: "Used", Kind: table.Currency, Value: func(c api.CardSummary) any { return c.UsedLimit }},
		table.Column[api.CardSummary]{Header: "Available", Kind: table.Currency, Value: func(c api.CardSummary) any { return c.AvailableLimit }},
		table.Column[api.CardSummary]{Header: "Limit", Kind: table.Currency, Value: func(c api.CardSummary) any { return c.TotalLimit }},
		table.Column[api.CardSummary]{Header: "", Kind: table.Action, Value: func(c api.CardSummary) any {
			if c.CurrentInvoiceID == 0 {
				return ""
			}
			return fmt.Sprintf("invoice show %d", c.CurrentInvoiceID)
		}},
	).Append(cards...).WithTotal(4, "Total")
}

func cardListTable(cards []api.CardDetails) *table.Table[api.CardDetails] {
	return table.New(
		table.Column[api.CardDetails]{Header: "ID", Value: func(c api.CardDetails) any { return c.CardID }},
		table.Column[api.CardDetails]{Header: "Nickname", Value: func(c api.CardDetails) any { return c.Nickname }},
		table.Column[api.CardDetails]{Header: "Bank", Value: func(c api.CardDetails) any { return c.Bank }},
		table.Column[api.CardDetails]{Header: "Card", Value: func(c api.CardDetails) any { return "•••• " + c.EndNumbers }},
		table.Column[api.CardDetails]{Header: "Due", Value: func(c api.CardDetails) any { return c.DueDate }},
		table.Column[api.CardDetails]{Header: "Used", Kind: table.Currency, Value: func(c api.CardDetails) any { return c.UsedLimit }},
		table.Column[api.CardDetails]{Header: "Available", Kind: table.Currency, Value: func(c api.CardDetails) any { return c.AvailableLimit }},
		table.Column[api.CardDetails]{Header: "Limit", Kind: table.Currency, Value: func(c api.CardDetails) any { return c.TotalLimit }},
	).Append(cards...)
}

func invoiceSummaryTable(invoices []api.InvoiceSummary) *table.Table[api.InvoiceSummary] {
	return table.New(
		table.Column[api.InvoiceSummary]{Header: "ID", Value: func(i api.InvoiceSummary) any { return i.ID }},
		table.Column[api.InvoiceSummary]{Header: "Start", Kind: table.Date, Value: func(i api.InvoiceSummary) any { return i.StartDate }},
		table.Column[api.InvoiceSummary]{Header: "End", Kind: table.Date, Value: func(i api.InvoiceSummary) any { return i.EndDate }},
		table.Column[api.InvoiceSummary]{Header: "Due", Kind: table.Date, Value: func(i api.InvoiceSummary) any { return i.DueDate }},
		table.Column[api.InvoiceSummary]{Header: "Status", Kind: table.Badge, Value: func(i api.InvoiceSummary) any { return i.Status }},
		table.Column[api.InvoiceSummary]{Header: "Total", Kind: table.Currency, Value: func(i api.InvoiceSummary) any { return i.TotalAmount }},
	).Append(invoices...)
}

func invoicePurchaseTable(purchases []api.InvoicePurchase) *table.Table[api.InvoicePurchase] {
	return table.New(
		table.Column[api.InvoicePurchase]{Header: "Date", Kind: table.Date, Value: func(p api.InvoicePurchase) any { return p.PurchaseDateTime }},
		table.Column[api.InvoicePurchase]{Header: "Description", Value: func(p api.InvoicePurchase) any { return p.Description }},
		table.Column[api.InvoicePurchase]{Header: "Category", Value: func(p api.InvoicePurchase) any { return p.Category }},
		table.Column[api.InvoicePurchase]{Header: "Inst.", Value: func(p api.InvoicePurchase) any { return p.Installment.Label }},
		table.Column[api.InvoicePurchase]{Header: "Value", Kind: table.Currency, Value: func(p api.InvoicePurchase) any { return p.Installment.Value }},
		table.Column[api.InvoicePurchase]{Header: "", Kind: table.Action, Value: func(p api.InvoicePurchase) any {
			return fmt.Sprintf("purchase show %d", p.PurchaseID)
		}},
	).Append(purchases...).WithTotal(4, "Total")
}

func categoryTable(categories []api.CategoryAmount) *table.Table[api.CategoryAmount] {
	return table.New(
		table.Column[api.CategoryAmount]{Header: "Category", Value: func(c api.CategoryAmount) any { return c.Category }},
		table.Column[api.CategoryAmount]{Header: "Value", Kind: table.Currency, Value: func(c api.CategoryAmount) any { return c.Value }},
	).Append(categories...)
}

func installmentTable(installments []api.PurchaseInstallment) *table.Table[api.PurchaseInstallment] {
	return table.New(
		table.Column[api.PurchaseInstallment]{Header: "#", Value: func(i api.PurchaseInstallment) any {
			return fmt.Sprintf("%d/%d", i.CurrentInstallment, i.TotalInstallment)
		}},
		table.Column[api.PurchaseInstallment]{Header: "Invoice", Value: func(i api.PurchaseInstallment) any { return i.Invoice.InvoiceID }},
		table.Column[api.PurchaseInstallment]{Header: "Due", Kind: table.Date, Value: func(i api.PurchaseInstallment) any { return i.Invoice.DueDate }},
		table.Column[api.PurchaseInstallment]{Header: "Status", Kind: table.Badge, Value: func(i api.PurchaseInstallment) any { return i.Invoice.Status }},
		table.Column[api.PurchaseInstallment]{Header: "Value", Kind: table.Currency, Value: func(i api.PurchaseInstallment) any { return i.Value }},
	).Append(installments...).WithTotal(4, "Total")
}
