package ledger

import (
	"context"
	"errors"

	"fatura/internal/core"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type UserStore interface {
	// CreateUser fails with ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

type CardStore interface {
	CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
	UpdateCard(ctx context.Context, c core.CreditCard) error
	GetCard(ctx context.Context, id int64) (core.CreditCard, error)
	ListCards(ctx context.Context, userID int64) ([]core.CreditCard, error)
}

type InvoiceStore interface {
	// InvoiceForCycle returns the invoice of card covering cycle, creating an
	// OPEN one the first time the cycle is needed.
	InvoiceForCycle(ctx context.Context, card core.CreditCard, cycle core.Cycle) (core.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (core.Invoice, error)
	// ListInvoices returns the invoices of a card ordered by start date.
	ListInvoices(ctx context.Context, cardID int64) ([]core.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status core.InvoiceStatus) error
	UpdateInvoiceEstimate(ctx context.Context, id int64, estimate *core.Money) error
}

type PurchaseStore interface {
	// SavePurchase inserts p when p.ID is zero, otherwise overwrites it. In
	// both cases the installments of the purchase are replaced as a whole.
	SavePurchase(ctx context.Context, p core.Purchase, installments []core.Installment) (core.Purchase, []core.Installment, error)
	GetPurchase(ctx context.Context, id int64) (core.Purchase, []core.Installment, error)
	// DeletePurchase removes the purchase and returns the installments it had.
	DeletePurchase(ctx context.Context, id int64) ([]core.Installment, error)
	// ListCharges returns every installment of a card with its purchase.
	ListCharges(ctx context.Context, cardID int64) ([]core.Charge, error)
}

// Store is everything the ledger service persists.
type Store interface {
	UserStore
	CardStore
	InvoiceStore
	PurchaseStore
	Close() error
}
