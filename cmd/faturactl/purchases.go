package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fatura/internal/api"
	"fatura/internal/core"
)

func (a *app) purchaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "purchase",
		Aliases: []string{"purchases"},
		Short:   "Record and inspect purchases",
	}
	cmd.AddCommand(a.purchaseAddCmd(), a.purchaseShowCmd(), a.purchaseUpdateCmd(), a.purchaseDeleteCmd())
	return cmd
}

type purchaseFlags struct {
	card         int64
	description  string
	category     string
	value        string
	installments int
	date         string
}

func (f *purchaseFlags) register(fs *pflag.FlagSet, withCardAndDate bool) {
	fs.StringVarP(&f.description, "description", "d", "", "what was bought")
	fs.StringVarP(&f.category, "category", "c", "", "spending category")
	fs.StringVarP(&f.value, "value", "v", "", "total value, e.g. 1210.50")
	fs.IntVarP(&f.installments, "installments", "n", 1, fmt.Sprintf("number of installments (1-%d)", core.MaxInstallments))
	if withCardAndDate {
		fs.Int64Var(&f.card, "card", 0, "credit card id")
		fs.StringVar(&f.date, "date", "", "purchase date, YYYY-MM-DD or RFC 3339 (default: now)")
	}
}

func (f *purchaseFlags) apply(fs *pflag.FlagSet, req *api.PurchaseRequest) error {
	if fs.Changed("description") {
		req.Description = f.description
	}
	if fs.Changed("category") {
		req.Category = f.category
	}
	if fs.Changed("value") {
		m, err := core.ParseDecimal(f.value)
		if err != nil {
			return fmt.Errorf("--value: %w", err)
		}
		req.Value = m
	}
	if fs.Changed("installments") {
		req.TotalInstallments = f.installments
	}
	return nil
}

func (a *app) purchaseAddCmd() *cobra.Command {
	var flags purchaseFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a purchase, optionally split in installments",
		Example: `  faturactl purchase add --card 1 -d "Geladeira" -c Casa -v 3600 -n 12
  faturactl purchase add --card 1 -d "Mercado" -c Mercado -v 210.37 --date 2025-10-12`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := api.PurchaseRequest{
				CreditCardID:      flags.card,
				TotalInstallments: flags.installments,
				PurchaseDateTime:  flags.date,
			}
			if req.PurchaseDateTime == "" {
				req.PurchaseDateTime = time.Now().Format(time.RFC3339)
			}
			if err := flags.apply(cmd.Flags(), &req); err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			purchase, err := c.CreatePurchase(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printPurchase(cmd, purchase)
		},
	}
	flags.register(cmd.Flags(), true)
	_ = cmd.MarkFlagRequired("card")
	return cmd
}

func (a *app) subscriptionCmd() *cobra.Command {
	var req api.SubscriptionRequest
	var value string
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Record a recurring charge dated today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := core.ParseDecimal(value)
			if err != nil {
				return fmt.Errorf("--value: %w", err)
			}
			req.Value = m
			c, err := a.client()
			if err != nil {
				return err
			}
			purchase, err := c.CreateSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printPurchase(cmd, purchase)
		},
	}
	cmd.Flags().Int64Var(&req.CreditCardID, "card", 0, "credit card id")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "service name")
	cmd.Flags().StringVarP(&req.Category, "category", "c", "", "spending category")
	cmd.Flags().StringVarP(&value, "value", "v", "", "monthly value")
	_ = cmd.MarkFlagRequired("card")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func (a *app) purchaseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <purchase-id>",
		Short: "Show a purchase and where its installments landed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "purchase")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			purchase, err := c.GetPurchase(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printPurchase(cmd, purchase)
		},
	}
}

func (a *app) purchaseUpdateCmd() *cobra.Command {
	var flags purchaseFlags
	cmd := &cobra.Command{
		Use:   "update <purchase-id>",
		Short: "Change description, category, value or installment count",
		Long: `Change description, category, value or installment count of a purchase.
The purchase keeps its date and card; its installments are rebuilt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "purchase")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			current, err := c.GetPurchase(cmd.Context(), id)
			if err != nil {
				return err
			}
			req := api.PurchaseRequest{
				Description:       current.Description,
				CreditCardID:      current.CreditCardID,
				TotalInstallments: max(len(current.Installments), 1),
				Category:          current.Category,
				PurchaseDateTime:  current.PurchaseDateTime.Format(time.RFC3339),
				Value:             current.Value,
			}
			if err := flags.apply(cmd.Flags(), &req); err != nil {
				return err
			}
			purchase, err := c.UpdatePurchase(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return a.printPurchase(cmd, purchase)
		},
	}
	flags.register(cmd.Flags(), false)
	return cmd
}

func (a *app) purchaseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <purchase-id>",
		Short: "Delete a purchase and all its installments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "purchase")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			if err := c.DeletePurchase(cmd.Context(), id); err != nil {
				return err
			}
			return a.printer(cmd).line("Purchase %d deleted", id)
		},
	}
}

func (a *app) printPurchase(cmd *cobra.Command, purchase api.PurchaseDetails) error {
	p := a.printer(cmd)
	plan := "single payment"
	if purchase.HasInstallment {
		plan = fmt.Sprintf("%d installments, %d paid", len(purchase.Installments), purchase.InstallmentPaid)
	}
	err := p.fields(
		field("Purchase", fmt.Sprintf("%d", purchase.PurchaseID)),
		field("Description", purchase.Description),
		field("Category", purchase.Category),
		field("Date", purchase.PurchaseDateTime.Format("2006-01-02 15:04")),
		field("Value", core.FormatCurrency(purchase.Value)),
		field("Plan", plan),
		field("First invoice", fmt.Sprintf("%d (due %s)", purchase.Invoice.InvoiceID, purchase.Invoice.DueDate)),
	)
	if err != nil {
		return err
	}
	if err := p.blank(); err != nil {
		return err
	}
	return p.table(installmentTable(purchase.Installments))
}
