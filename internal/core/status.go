package core

import (
	"errors"
	"fmt"
	"strings"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusOpen    InvoiceStatus = "OPEN"
	StatusClosed  InvoiceStatus = "CLOSED"
	StatusPending InvoiceStatus = "PENDING"
	StatusPaid    InvoiceStatus = "PAID"
)

var (
	ErrInvalidStatus     = errors.New("invalid invoice status")
	ErrIllegalTransition = errors.New("illegal invoice status transition")
	ErrInvoiceNotOpen    = errors.New("invoice no longer accepts charges")
)

// Statuses lists every state in lifecycle order.
func Statuses() []InvoiceStatus {
	return []InvoiceStatus{StatusOpen, StatusClosed, StatusPending, StatusPaid}
}

// ParseStatus accepts the four states case-insensitively.
func ParseStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusPending, StatusPaid:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the invoice no longer counts towards the used limit.
func (s InvoiceStatus) IsPaid() bool {
	return s == StatusPaid
}

// AcceptsCharges reports whether installments may still be booked into an
// invoice in this state. Only OPEN invoices do.
func (s InvoiceStatus) AcceptsCharges() bool {
	return s == StatusOpen
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// TransitionPolicy decides whether an invoice may move from one state to another.
type TransitionPolicy interface {
	Transition(from, to InvoiceStatus) (InvoiceStatus, error)
}

// PassThrough accepts any valid target state. Legality is left to whoever
// owns the authoritative invoice state.
type PassThrough struct{}

func (PassThrough) Transition(_, to InvoiceStatus) (InvoiceStatus, error) {
	if !to.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	return to, nil
}

// Sequential only allows OPEN -> CLOSED -> PENDING -> PAID, one step at a
// time. Re-applying the current state is a no-op.
type Sequential struct{}

func (Sequential) Transition(from, to InvoiceStatus) (InvoiceStatus, error) {
	if !to.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from == to {
		return to, nil
	}
	order := Statuses()
	for i, st := range order[:len(order)-1] {
		if st == from && order[i+1] == to {
			return to, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// Transition applies the default pass-through policy.
func Transition(from, to InvoiceStatus) (InvoiceStatus, error) {
	return PassThrough{}.Transition(from, to)
}

// PolicyFor maps a configuration name to a policy.
func PolicyFor(name string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "passthrough":
		return PassThrough{}, nil
	case "sequential":
		return Sequential{}, nil
	default:
		return nil, fmt.Errorf("unknown invoice status policy: %s", name)
	}
}
