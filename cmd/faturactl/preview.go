package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fatura/internal/core"
	"fatura/internal/table"
	"fatura/internal/validation"
)

// previewCmd groups commands that run the ledger arithmetic locally,
// without a server or a session.
func (a *app) previewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Simulate installment splits and billing cycles offline",
	}
	cmd.AddCommand(a.previewAllocateCmd(), a.previewPlanCmd())
	return cmd
}

type previewRow struct {
	Index int
	Total int
	Cycle core.Cycle
	Due   core.Date
	Value core.Money
}

func (a *app) previewAllocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "allocate <total> <count>",
		Short:   "Split a total into installments that add up exactly",
		Example: "  faturactl preview allocate 100 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := core.ParseDecimal(args[0])
			if err != nil {
				return fmt.Errorf("invalid total: %w", err)
			}
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count: %q", args[1])
			}
			rows, err := allocationRows(total, count)
			if err != nil {
				return err
			}
			t := table.New(
				table.Column[previewRow]{Header: "#", Value: func(r previewRow) any { return fmt.Sprintf("%d/%d", r.Index, r.Total) }},
				table.Column[previewRow]{Header: "Value", Kind: table.Currency, Value: func(r previewRow) any { return r.Value }},
			).Append(rows...).WithTotal(1, "Total")
			return a.printer(cmd).table(t)
		},
	}
}

func allocationRows(total core.Money, count int) ([]previewRow, error) {
	if count > core.MaxInstallments {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", core.ErrInvalidInstallmentCount, count, core.MaxInstallments)
	}
	parts, err := core.Allocate(total, count)
	if err != nil {
		return nil, err
	}
	rows := make([]previewRow, len(parts))
	for i, v := range parts {
		rows[i] = previewRow{Index: i + 1, Total: count, Value: v}
	}
	return rows, nil
}

func (a *app) previewPlanCmd() *cobra.Command {
	var (
		date             string
		startDay, dueDay int
		n                int
		value            string
	)
	cmd := &cobra.Command{
		Use:     "plan",
		Short:   "Show which billing cycle and due date each installment lands on",
		Example: `  faturactl preview plan --billing-start 10 --due-day 17 --date 2025-10-09 -n 3 -v 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			purchasedAt := time.Now()
			if date != "" {
				var err error
				if purchasedAt, err = validation.ParsePurchaseDate(date); err != nil {
					return fmt.Errorf("invalid --date: %q", date)
				}
			}
			total, err := core.ParseDecimal(value)
			if err != nil {
				return fmt.Errorf("--value: %w", err)
			}
			rows, err := planRows(purchasedAt, startDay, dueDay, n, total)
			if err != nil {
				return err
			}
			t := table.New(
				table.Column[previewRow]{Header: "#", Value: func(r previewRow) any { return fmt.Sprintf("%d/%d", r.Index, r.Total) }},
				table.Column[previewRow]{Header: "Start", Kind: table.Date, Value: func(r previewRow) any { return r.Cycle.Start }},
				table.Column[previewRow]{Header: "End", Kind: table.Date, Value: func(r previewRow) any { return r.Cycle.End }},
				table.Column[previewRow]{Header: "Due", Kind: table.Date, Value: func(r previewRow) any { return r.Due }},
				table.Column[previewRow]{Header: "Value", Kind: table.Currency, Value: func(r previewRow) any { return r.Value }},
			).Append(rows...).WithTotal(4, "Total")
			return a.printer(cmd).table(t)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "purchase date (default: today)")
	cmd.Flags().IntVar(&startDay, "billing-start", 1, "day of the month the billing period starts")
	cmd.Flags().IntVar(&dueDay, "due-day", 10, "day of the month the invoice is due")
	cmd.Flags().IntVarP(&n, "installments", "n", 1, "number of installments")
	cmd.Flags().StringVarP(&value, "value", "v", "0", "total value")
	return cmd
}

func planRows(purchasedAt time.Time, startDay, dueDay, count int, total core.Money) ([]previewRow, error) {
	rows, err := allocationRows(total, count)
	if err != nil {
		return nil, err
	}
	if dueDay < 1 || dueDay > 31 {
		return nil, fmt.Errorf("%w: due day %d", core.ErrInvalidDay, dueDay)
	}
	cycles, err := core.AssignInstallments(purchasedAt, startDay, count)
	if err != nil {
		return nil, err
	}
	for i, c := range cycles {
		rows[i].Cycle = c
		rows[i].Due = c.DueDate(dueDay)
	}
	return rows, nil
}
