package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"fatura/internal/core"
	"fatura/internal/ledger"
)

type cycleKey struct {
	cardID int64
	start  string
}

// Store keeps the whole ledger in process memory. It is used for local
// development and as the fake in service and HTTP tests.
type Store struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]core.User
	cards        map[int64]core.CreditCard
	invoices     map[int64]core.Invoice
	invoiceIndex map[cycleKey]int64
	purchases    map[int64]core.Purchase
	installments map[int64][]core.Installment // by purchase
}

func New() *Store {
	return &Store{
		users:        map[int64]core.User{},
		cards:        map[int64]core.CreditCard{},
		invoices:     map[int64]core.Invoice{},
		invoiceIndex: map[cycleKey]int64{},
		purchases:    map[int64]core.Purchase{},
		installments: map[int64][]core.Installment{},
	}
}

var _ ledger.Store = (*Store)(nil)

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return core.User{}, ledger.ErrDuplicate
		}
	}
	u.ID = s.id()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, ledger.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, ledger.ErrNotFound
}

func (s *Store) CreateCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c core.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.cards[c.ID]
	if !ok {
		return ledger.ErrNotFound
	}
	c.UserID = old.UserID
	c.CreatedAt = old.CreatedAt
	s.cards[c.ID] = c
	return nil
}

func (s *Store) GetCard(_ context.Context, id int64) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return core.CreditCard{}, ledger.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context, userID int64) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCard
	for _, c := range s.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.CreditCard) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) InvoiceForCycle(_ context.Context, card core.CreditCard, cycle core.Cycle) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; !ok {
		return core.Invoice{}, ledger.ErrNotFound
	}
	key := cycleKey{cardID: card.ID, start: cycle.Key()}
	if id, ok := s.invoiceIndex[key]; ok {
		return s.invoices[id], nil
	}
	inv := core.Invoice{
		ID:            s.id(),
		CreditCardID:  card.ID,
		StartDate:     core.Date{Time: cycle.Start},
		EndDate:       core.Date{Time: cycle.End},
		DueDate:       cycle.DueDate(card.DueDay),
		Status:        core.StatusOpen,
		EstimateLimit: cloneMoney(card.EstimateForInvoice),
	}
	s.invoices[inv.ID] = inv
	s.invoiceIndex[key] = inv.ID
	return inv, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return core.Invoice{}, ledger.ErrNotFound
	}
	return inv, nil
}

func (s *Store) ListInvoices(_ context.Context, cardID int64) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Invoice
	for _, inv := range s.invoices {
		if inv.CreditCardID == cardID {
			out = append(out, inv)
		}
	}
	slices.SortFunc(out, func(a, b core.Invoice) int { return a.StartDate.Compare(b.StartDate.Time) })
	return out, nil
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, id int64, status core.InvoiceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return ledger.ErrNotFound
	}
	inv.Status = status
	s.invoices[id] = inv
	return nil
}

func (s *Store) UpdateInvoiceEstimate(_ context.Context, id int64, estimate *core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return ledger.ErrNotFound
	}
	inv.EstimateLimit = cloneMoney(estimate)
	s.invoices[id] = inv
	return nil
}

func (s *Store) SavePurchase(_ context.Context, p core.Purchase, installments []core.Installment) (core.Purchase, []core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[p.CreditCardID]; !ok {
		return core.Purchase{}, nil, ledger.ErrNotFound
	}
	for _, in := range installments {
		if _, ok := s.invoices[in.InvoiceID]; !ok {
			return core.Purchase{}, nil, ledger.ErrNotFound
		}
	}
	if p.ID == 0 {
		p.ID = s.id()
	} else if _, ok := s.purchases[p.ID]; !ok {
		return core.Purchase{}, nil, ledger.ErrNotFound
	}
	saved := make([]core.Installment, len(installments))
	for i, in := range installments {
		in.ID = s.id()
		in.PurchaseID = p.ID
		saved[i] = in
	}
	s.purchases[p.ID] = p
	s.installments[p.ID] = saved
	return p, slices.Clone(saved), nil
}

func (s *Store) GetPurchase(_ context.Context, id int64) (core.Purchase, []core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return core.Purchase{}, nil, ledger.ErrNotFound
	}
	return p, slices.Clone(s.installments[id]), nil
}

func (s *Store) DeletePurchase(_ context.Context, id int64) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[id]; !ok {
		return nil, ledger.ErrNotFound
	}
	removed := s.installments[id]
	delete(s.purchases, id)
	delete(s.installments, id)
	return removed, nil
}

func (s *Store) ListCharges(_ context.Context, cardID int64) ([]core.Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Charge
	for id, p := range s.purchases {
		if p.CreditCardID != cardID {
			continue
		}
		for _, in := range s.installments[id] {
			out = append(out, core.Charge{Installment: in, Purchase: p})
		}
	}
	slices.SortFunc(out, func(a, b core.Charge) int {
		if c := a.Purchase.PurchasedAt.Compare(b.Purchase.PurchasedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Installment.ID, b.Installment.ID)
	})
	return out, nil
}

func cloneMoney(m *core.Money) *core.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}
