package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fatura/internal/api"
	"fatura/internal/core"
)

func (a *app) invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invoice",
		Aliases: []string{"invoices"},
		Short:   "Inspect invoices and move them through their lifecycle",
	}
	cmd.AddCommand(a.invoiceShowCmd(), a.invoiceCurrentCmd(), a.invoiceStatusCmd(), a.invoiceEstimateCmd())
	return cmd
}

func (a *app) invoiceShowCmd() *cobra.Command {
	var withCategories bool
	cmd := &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show an invoice with its charges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			inv, err := c.GetInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printInvoice(cmd, inv, withCategories)
		},
	}
	cmd.Flags().BoolVar(&withCategories, "categories", false, "also print the per-category breakdown")
	return cmd
}

func (a *app) invoiceCurrentCmd() *cobra.Command {
	var withCategories bool
	cmd := &cobra.Command{
		Use:   "current <card-id>",
		Short: "Show the invoice whose billing period contains today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cardID, err := parseID(args[0], "card")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			inv, err := c.CurrentInvoice(cmd.Context(), cardID)
			if err != nil {
				return err
			}
			return a.printInvoice(cmd, inv, withCategories)
		},
	}
	cmd.Flags().BoolVar(&withCategories, "categories", false, "also print the per-category breakdown")
	return cmd
}

func (a *app) invoiceStatusCmd() *cobra.Command {
	statuses := make([]string, 0, 4)
	for _, st := range core.Statuses() {
		statuses = append(statuses, st.String())
	}
	return &cobra.Command{
		Use:       "status <invoice-id> <status>",
		Short:     "Change the status of an invoice (" + strings.Join(statuses, ", ") + ")",
		Args:      cobra.ExactArgs(2),
		ValidArgs: statuses,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			status, err := core.ParseStatus(args[1])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.ChangeInvoiceStatus(cmd.Context(), id, status.String())
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Invoice %d is now %s", resp.InvoiceID, resp.Status)
		},
	}
}

func (a *app) invoiceEstimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <invoice-id> <value|none>",
		Short: "Set or clear the planned spending ceiling of an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			limit, err := parseOptionalMoney(args[1])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.UpdateEstimateLimit(cmd.Context(), id, api.EstimateLimitRequest{EstimateLimit: limit})
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Invoice %d estimate: %s", resp.InvoiceID, optionalMoney(resp.EstimateLimit))
		},
	}
}

func (a *app) printInvoice(cmd *cobra.Command, inv api.InvoiceDetails, withCategories bool) error {
	p := a.printer(cmd)
	progress := "-"
	if inv.Progress != nil {
		progress = fmt.Sprintf("%d%% (%s)", inv.Progress.Percent, inv.Progress.Band)
		if inv.Progress.Overage {
			progress += ", over the estimate"
		}
	}
	err := p.fields(
		field("Invoice", fmt.Sprintf("%d on %s", inv.InvoiceID, inv.CreditCard.Nickname)),
		field("Period", fmt.Sprintf("%s to %s", inv.StartDate, inv.EndDate)),
		field("Due", inv.DueDate.String()),
		field("Status", inv.Status.String()),
		field("Total", core.FormatCurrency(inv.TotalAmount)),
		field("Estimate", optionalMoney(inv.EstimateLimit)),
		field("Progress", progress),
		field("Card limit", fmt.Sprintf("%s used of %s, %s available",
			core.FormatCurrency(inv.CreditPanel.UsedLimit),
			core.FormatCurrency(inv.CreditPanel.TotalLimit),
			core.FormatCurrency(inv.CreditPanel.AvailableLimit))),
		field("Installments", fmt.Sprintf("%d of %d paid", inv.CreditPanel.PaidInstallments, inv.CreditPanel.TotalInstallments)),
	)
	if err != nil {
		return err
	}
	if err := p.blank(); err != nil {
		return err
	}
	if len(inv.Purchases) == 0 && !p.csv {
		return p.line("No charges on this invoice.")
	}
	if err := p.table(invoicePurchaseTable(inv.Purchases)); err != nil {
		return err
	}
	if !withCategories || p.csv {
		return nil
	}
	if err := p.blank(); err != nil {
		return err
	}
	return p.table(categoryTable(inv.CreditPanel.CategoryPanel))
}
