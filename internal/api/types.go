// Package api holds the JSON shapes exchanged by the HTTP server and the
// REST client. Field names follow the wire format of the web client,
// including its historical spellings (paydInstallments, hasIinstallment).
package api

import (
	"strconv"
	"time"

	"fatura/internal/core"
	"fatura/internal/validation"
)

// Requests

type SignUpRequest struct {
	Doc             string `json:"doc"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r SignUpRequest) Form() validation.Form {
	return validation.Form{
		"doc":             r.Doc,
		"name":            r.Name,
		"username":        r.Username,
		"email":           r.Email,
		"password":        r.Password,
		"confirmPassword": r.ConfirmPassword,
	}
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r SignInRequest) Form() validation.Form {
	return validation.Form{"username": r.Username, "password": r.Password}
}

type CardRequest struct {
	Bank                     string      `json:"bank"`
	EndNumbers               string      `json:"endNumbers"`
	Nickname                 string      `json:"nickname"`
	DueDate                  int         `json:"dueDate"`
	BillingPeriodStart       int         `json:"billingPeriodStart"`
	BillingPeriodEnd         int         `json:"billingPeriodEnd"`
	TotalLimit               core.Money  `json:"totalLimit"`
	EstimateLimitForInvoices *core.Money `json:"estimateLimitForinvoices,omitempty"`
}

func (r CardRequest) Form() validation.Form {
	f := validation.Form{
		"bank":               r.Bank,
		"endNumbers":         r.EndNumbers,
		"nickname":           r.Nickname,
		"dueDate":            strconv.Itoa(r.DueDate),
		"billingPeriodStart": strconv.Itoa(r.BillingPeriodStart),
		"billingPeriodEnd":   strconv.Itoa(r.BillingPeriodEnd),
		"totalLimit":         r.TotalLimit.String(),
	}
	if r.EstimateLimitForInvoices != nil {
		f["estimateLimitForinvoices"] = r.EstimateLimitForInvoices.String()
	}
	return f
}

type PurchaseRequest struct {
	Description       string     `json:"descricao"`
	CreditCardID      int64      `json:"creditCardId"`
	TotalInstallments int        `json:"totalInstallments"`
	Category          string     `json:"category"`
	PurchaseDateTime  string     `json:"purchaseDateTime"`
	Value             core.Money `json:"value"`
}

func (r PurchaseRequest) Form() validation.Form {
	return validation.Form{
		"descricao":         r.Description,
		"creditCardId":      strconv.FormatInt(r.CreditCardID, 10),
		"totalInstallments": strconv.Itoa(r.TotalInstallments),
		"category":          r.Category,
		"purchaseDateTime":  r.PurchaseDateTime,
		"value":             r.Value.String(),
	}
}

// SubscriptionRequest records a recurring charge as a single-installment
// purchase dated today.
type SubscriptionRequest struct {
	Description  string     `json:"descricao"`
	CreditCardID int64      `json:"creditCardId"`
	Category     string     `json:"category"`
	Value        core.Money `json:"value"`
}

type EstimateLimitRequest struct {
	EstimateLimit *core.Money `json:"estimateLimit"`
}

func (r EstimateLimitRequest) Form() validation.Form {
	f := validation.Form{}
	if r.EstimateLimit != nil {
		f["estimateLimit"] = r.EstimateLimit.String()
	}
	return f
}

// Responses

type SessionResponse struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type PanelResponse struct {
	User        UserResponse  `json:"user"`
	CreditCards []CardSummary `json:"creditCards"`
}

type CardSummary struct {
	CardID           int64      `json:"cardId"`
	Nickname         string     `json:"nickname"`
	Bank             string     `json:"bank"`
	EndNumbers       string     `json:"endNumbers"`
	UsedLimit        core.Money `json:"usedLimit"`
	TotalLimit       core.Money `json:"totalLimit"`
	AvailableLimit   core.Money `json:"availableLimit"`
	CurrentInvoiceID int64      `json:"currentInvoiceId,omitempty"`
}

type InvoiceSummary struct {
	ID          int64              `json:"id"`
	StartDate   core.Date          `json:"startDate"`
	EndDate     core.Date          `json:"endDate"`
	DueDate     core.Date          `json:"dueDate"`
	TotalAmount core.Money         `json:"totalAmount"`
	Status      core.InvoiceStatus `json:"status"`
}

type CardDetails struct {
	CardID                   int64            `json:"cardId"`
	Bank                     string           `json:"bank"`
	Nickname                 string           `json:"nickname"`
	EndNumbers               string           `json:"endNumbers"`
	DueDate                  int              `json:"dueDate"`
	BillingPeriodStart       int              `json:"billingPeriodStart"`
	BillingPeriodEnd         int              `json:"billingPeriodEnd"`
	UsedLimit                core.Money       `json:"usedLimit"`
	TotalLimit               core.Money       `json:"totalLimit"`
	AvailableLimit           core.Money       `json:"availableLimit"`
	EstimateLimitForInvoices *core.Money      `json:"estimateLimitForinvoices,omitempty"`
	CurrentInvoiceID         int64            `json:"currentInvoiceId,omitempty"`
	CreatedAt                time.Time        `json:"cadastro"`
	Invoices                 []InvoiceSummary `json:"invoices"`
}

type CardRef struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

type CategoryAmount struct {
	Category string     `json:"category"`
	Value    core.Money `json:"value"`
}

type CreditPanel struct {
	UsedLimit         core.Money       `json:"usedLimit"`
	TotalLimit        core.Money       `json:"totalLimit"`
	AvailableLimit    core.Money       `json:"availableLimit"`
	TotalInstallments int              `json:"totalInstallments"`
	PaidInstallments  int              `json:"paydInstallments"`
	CategoryPanel     []CategoryAmount `json:"categoryPanel"`
}

type Progress struct {
	Percent int    `json:"percent"`
	Band    string `json:"band"`
	Overage bool   `json:"overage"`
}

type InstallmentRef struct {
	InstallmentID      int64      `json:"installmentId"`
	CurrentInstallment int        `json:"currentInstallment"`
	TotalInstallment   int        `json:"totalInstallment"`
	Value              core.Money `json:"value"`
	Label              string     `json:"label"`
}

type InvoicePurchase struct {
	PurchaseID       int64          `json:"purchaseId"`
	Description      string         `json:"descricao"`
	Value            core.Money     `json:"value"`
	PurchaseDateTime time.Time      `json:"purchaseDateTime"`
	Category         string         `json:"category"`
	Installment      InstallmentRef `json:"installment"`
}

type InvoiceDetails struct {
	InvoiceID     int64              `json:"invoiceId"`
	StartDate     core.Date          `json:"startDate"`
	EndDate       core.Date          `json:"endDate"`
	DueDate       core.Date          `json:"dueDate"`
	Status        core.InvoiceStatus `json:"status"`
	TotalAmount   core.Money         `json:"totalAmount"`
	EstimateLimit *core.Money        `json:"estimateLimit,omitempty"`
	Progress      *Progress          `json:"progress,omitempty"`
	CreditCard    CardRef            `json:"creditcard"`
	CreditPanel   CreditPanel        `json:"creditPanel"`
	Purchases     []InvoicePurchase  `json:"purchases"`
}

type InvoiceRef struct {
	InvoiceID int64              `json:"invoiceId"`
	Status    core.InvoiceStatus `json:"status"`
	DueDate   core.Date          `json:"dueDate"`
}

type PurchaseInstallment struct {
	InstallmentID      int64      `json:"installmentId"`
	CurrentInstallment int        `json:"currentInstallment"`
	TotalInstallment   int        `json:"totalInstallment"`
	Value              core.Money `json:"value"`
	Invoice            InvoiceRef `json:"invoice"`
}

type PurchaseDetails struct {
	PurchaseID       int64                 `json:"purchaseId"`
	CreditCardID     int64                 `json:"creditCardId"`
	Description      string                `json:"descricao"`
	HasInstallment   bool                  `json:"hasIinstallment"`
	Value            core.Money            `json:"value"`
	PurchaseDateTime time.Time             `json:"purchaseDateTime"`
	Category         string                `json:"category"`
	Invoice          InvoiceRef            `json:"invoice"`
	InstallmentPaid  int                   `json:"installmentPayd"`
	Installments     []PurchaseInstallment `json:"installments"`
}

type InvoiceStatusResponse struct {
	InvoiceID     int64              `json:"invoiceId"`
	Status        core.InvoiceStatus `json:"status"`
	EstimateLimit *core.Money        `json:"estimateLimit,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer. Errors is set for
// validation failures only.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}
