package http

import (
	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/services"
)

func userResponse(u core.User) api.UserResponse {
	return api.UserResponse{ID: u.ID, Username: u.Username, Name: u.Name, Email: u.Email}
}

func panelResponse(v services.PanelView) api.PanelResponse {
	resp := api.PanelResponse{
		User:        userResponse(v.User),
		CreditCards: make([]api.CardSummary, 0, len(v.Cards)),
	}
	for _, c := range v.Cards {
		sum := api.CardSummary{
			CardID:         c.Card.ID,
			Nickname:       c.Card.Nickname,
			Bank:           c.Card.Bank,
			EndNumbers:     c.Card.EndNumbers,
			UsedLimit:      c.Panel.UsedLimit,
			TotalLimit:     c.Panel.TotalLimit,
			AvailableLimit: c.Panel.AvailableLimit,
		}
		if c.Current != nil {
			sum.CurrentInvoiceID = c.Current.ID
		}
		resp.CreditCards = append(resp.CreditCards, sum)
	}
	return resp
}

func cardDetails(v services.CardView) api.CardDetails {
	c := v.Card
	d := api.CardDetails{
		CardID:                   c.ID,
		Bank:                     c.Bank,
		Nickname:                 c.Nickname,
		EndNumbers:               c.EndNumbers,
		DueDate:                  c.DueDay,
		BillingPeriodStart:       c.BillingStartDay,
		BillingPeriodEnd:         c.BillingEndDay,
		UsedLimit:                v.Panel.UsedLimit,
		TotalLimit:               v.Panel.TotalLimit,
		AvailableLimit:           v.Panel.AvailableLimit,
		EstimateLimitForInvoices: c.EstimateForInvoice,
		CreatedAt:                c.CreatedAt,
		Invoices:                 make([]api.InvoiceSummary, 0, len(v.Invoices)),
	}
	if v.Current != nil {
		d.CurrentInvoiceID = v.Current.ID
	}
	for _, s := range v.Invoices {
		d.Invoices = append(d.Invoices, api.InvoiceSummary{
			ID:          s.Invoice.ID,
			StartDate:   s.Invoice.StartDate,
			EndDate:     s.Invoice.EndDate,
			DueDate:     s.Invoice.DueDate,
			TotalAmount: s.Total,
			Status:      s.Invoice.Status,
		})
	}
	return d
}

func invoiceDetails(v services.InvoiceView) api.InvoiceDetails {
	inv := v.Summary.Invoice
	d := api.InvoiceDetails{
		InvoiceID:     inv.ID,
		StartDate:     inv.StartDate,
		EndDate:       inv.EndDate,
		DueDate:       inv.DueDate,
		Status:        inv.Status,
		TotalAmount:   v.Summary.Total,
		EstimateLimit: inv.EstimateLimit,
		CreditCard:    api.CardRef{ID: v.Card.ID, Nickname: v.Card.Nickname},
		CreditPanel: api.CreditPanel{
			UsedLimit:         v.Panel.UsedLimit,
			TotalLimit:        v.Panel.TotalLimit,
			AvailableLimit:    v.Panel.AvailableLimit,
			TotalInstallments: v.Panel.TotalInstallments,
			PaidInstallments:  v.Panel.PaidInstallments,
			CategoryPanel:     make([]api.CategoryAmount, 0, len(v.Panel.Categories)),
		},
		Purchases: make([]api.InvoicePurchase, 0, len(v.Summary.Charges)),
	}
	if v.Progress.HasEstimate {
		d.Progress = &api.Progress{Percent: v.Progress.Percent, Band: v.Progress.Band, Overage: v.Progress.Overage}
	}
	for _, c := range v.Panel.Categories {
		d.CreditPanel.CategoryPanel = append(d.CreditPanel.CategoryPanel, api.CategoryAmount{Category: c.Name, Value: c.Amount})
	}
	for _, ch := range v.Summary.Charges {
		d.Purchases = append(d.Purchases, api.InvoicePurchase{
			PurchaseID:       ch.Purchase.ID,
			Description:      ch.Purchase.Description,
			Value:            ch.Purchase.TotalValue,
			PurchaseDateTime: ch.Purchase.PurchasedAt,
			Category:         ch.Purchase.Category,
			Installment: api.InstallmentRef{
				InstallmentID:      ch.Installment.ID,
				CurrentInstallment: ch.Installment.Index,
				TotalInstallment:   ch.Installment.Total,
				Value:              ch.Installment.Value,
				Label:              ch.Installment.Label(),
			},
		})
	}
	return d
}

func invoiceRef(inv core.Invoice) api.InvoiceRef {
	return api.InvoiceRef{InvoiceID: inv.ID, Status: inv.Status, DueDate: inv.DueDate}
}

// purchaseDetails reports the invoice of the first installment as the
// purchase's invoice.
func purchaseDetails(v services.PurchaseView) api.PurchaseDetails {
	p := v.Purchase
	d := api.PurchaseDetails{
		PurchaseID:       p.ID,
		CreditCardID:     p.CreditCardID,
		Description:      p.Description,
		HasInstallment:   p.IsInstallmentPlan(),
		Value:            p.TotalValue,
		PurchaseDateTime: p.PurchasedAt,
		Category:         p.Category,
		InstallmentPaid:  v.PaidCount,
		Installments:     make([]api.PurchaseInstallment, 0, len(v.Installments)),
	}
	for i, iv := range v.Installments {
		if i == 0 {
			d.Invoice = invoiceRef(iv.Invoice)
		}
		d.Installments = append(d.Installments, api.PurchaseInstallment{
			InstallmentID:      iv.Installment.ID,
			CurrentInstallment: iv.Installment.Index,
			TotalInstallment:   iv.Installment.Total,
			Value:              iv.Installment.Value,
			Invoice:            invoiceRef(iv.Invoice),
		})
	}
	return d
}

func invoiceStatusResponse(inv core.Invoice) api.InvoiceStatusResponse {
	return api.InvoiceStatusResponse{InvoiceID: inv.ID, Status: inv.Status, EstimateLimit: inv.EstimateLimit}
}
