package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fatura/internal/api"
	"fatura/internal/core"
)

func (a *app) cardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "card",
		Aliases: []string{"cards"},
		Short:   "Manage credit cards",
	}
	cmd.AddCommand(a.cardListCmd(), a.cardShowCmd(), a.cardCreateCmd(), a.cardUpdateCmd())
	return cmd
}

func (a *app) cardListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your credit cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			cards, err := c.ListCards(cmd.Context())
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			if len(cards) == 0 {
				return p.line("No credit cards yet. Use 'faturactl card create' to add one.")
			}
			return p.table(cardListTable(cards))
		},
	}
}

func (a *app) cardShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card and its invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "card")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			card, err := c.GetCard(cmd.Context(), id)
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			err = p.fields(
				field("Card", fmt.Sprintf("%s (%s •••• %s)", card.Nickname, card.Bank, card.EndNumbers)),
				field("Billing", fmt.Sprintf("day %d to day %d, due on day %d", card.BillingPeriodStart, card.BillingPeriodEnd, card.DueDate)),
				field("Limit", core.FormatCurrency(card.TotalLimit)),
				field("Used", core.FormatCurrency(card.UsedLimit)),
				field("Available", core.FormatCurrency(card.AvailableLimit)),
				field("Invoice estimate", optionalMoney(card.EstimateLimitForInvoices)),
			)
			if err != nil {
				return err
			}
			if len(card.Invoices) == 0 {
				return p.line("\nNo invoices yet.")
			}
			if err := p.blank(); err != nil {
				return err
			}
			return p.table(invoiceSummaryTable(card.Invoices))
		},
	}
}

// cardFlags holds the card attributes given as flags. Money values are plain
// decimals such as 1500.00.
type cardFlags struct {
	nickname, bank, endNumbers string
	dueDay, startDay, endDay   int
	limit, estimate            string
}

func (f *cardFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.nickname, "nickname", "", "card nickname")
	fs.StringVar(&f.bank, "bank", "", "issuing bank")
	fs.StringVar(&f.endNumbers, "end-numbers", "", "last four digits")
	fs.IntVar(&f.dueDay, "due-day", 0, "day of the month the invoice is due")
	fs.IntVar(&f.startDay, "billing-start", 0, "day of the month the billing period starts")
	fs.IntVar(&f.endDay, "billing-end", 0, "day of the month the billing period ends")
	fs.StringVar(&f.limit, "limit", "", "total credit limit")
	fs.StringVar(&f.estimate, "estimate", "", "planned ceiling for new invoices, or 'none'")
}

// apply copies every flag set on the command line into req.
func (f *cardFlags) apply(fs *pflag.FlagSet, req *api.CardRequest) error {
	if fs.Changed("nickname") {
		req.Nickname = f.nickname
	}
	if fs.Changed("bank") {
		req.Bank = f.bank
	}
	if fs.Changed("end-numbers") {
		req.EndNumbers = f.endNumbers
	}
	if fs.Changed("due-day") {
		req.DueDate = f.dueDay
	}
	if fs.Changed("billing-start") {
		req.BillingPeriodStart = f.startDay
	}
	if fs.Changed("billing-end") {
		req.BillingPeriodEnd = f.endDay
	}
	if fs.Changed("limit") {
		m, err := core.ParseDecimal(f.limit)
		if err != nil {
			return fmt.Errorf("--limit: %w", err)
		}
		req.TotalLimit = m
	}
	if fs.Changed("estimate") {
		m, err := parseOptionalMoney(f.estimate)
		if err != nil {
			return fmt.Errorf("--estimate: %w", err)
		}
		req.EstimateLimitForInvoices = m
	}
	return nil
}

// parseOptionalMoney maps "none" and "" to nil.
func parseOptionalMoney(s string) (*core.Money, error) {
	if s == "" || s == "none" {
		return nil, nil
	}
	m, err := core.ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (a *app) cardCreateCmd() *cobra.Command {
	var flags cardFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a credit card",
		Example: `  faturactl card create --nickname Roxinho --bank Nubank --end-numbers 1234 \
    --due-day 17 --billing-start 10 --billing-end 9 --limit 5000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req api.CardRequest
			if err := flags.apply(cmd.Flags(), &req); err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			card, err := c.CreateCard(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Card %d (%s) created", card.CardID, card.Nickname)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func (a *app) cardUpdateCmd() *cobra.Command {
	var flags cardFlags
	cmd := &cobra.Command{
		Use:   "update <card-id>",
		Short: "Change the attributes of a card",
		Long: `Change the attributes of a card. Only the flags given are changed; the
rest keep their current values. Existing installments stay on their invoices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "card")
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			current, err := c.GetCard(cmd.Context(), id)
			if err != nil {
				return err
			}
			req := api.CardRequest{
				Bank:                     current.Bank,
				EndNumbers:               current.EndNumbers,
				Nickname:                 current.Nickname,
				DueDate:                  current.DueDate,
				BillingPeriodStart:       current.BillingPeriodStart,
				BillingPeriodEnd:         current.BillingPeriodEnd,
				TotalLimit:               current.TotalLimit,
				EstimateLimitForInvoices: current.EstimateLimitForInvoices,
			}
			if err := flags.apply(cmd.Flags(), &req); err != nil {
				return err
			}
			card, err := c.UpdateCard(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return a.printer(cmd).line("Card %d updated", card.CardID)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
