package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"fatura/internal/amqp"
	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/ledger"
	"fatura/internal/log"
	"fatura/internal/validation"
)

// Publisher announces invoices whose totals may have changed.
type Publisher interface {
	PublishInvoiceChanged(ctx context.Context, msg amqp.InvoiceChangedMessage) error
}

// LedgerService orchestrates the accounting core against a ledger store and
// publishes invoice.changed events after every committed write.
//
// Aggregates are never stored: every read folds the installments of the
// card again.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	policy    core.TransitionPolicy
	now       func() time.Time
	events    *log.Events
}

type Option func(*LedgerService)

func WithPolicy(p core.TransitionPolicy) Option {
	return func(s *LedgerService) { s.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

// WithPublisher enables invoice.changed events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		policy: core.PassThrough{},
		now:    time.Now,
		events: log.NewEvents(log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentLedger})),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Views returned by the service. The HTTP layer turns them into api types.
type (
	CardView struct {
		Card     core.CreditCard
		Invoices []core.InvoiceSummary
		Panel    core.CreditPanel
		Current  *core.Invoice
	}

	InvoiceView struct {
		Card     core.CreditCard
		Summary  core.InvoiceSummary
		Panel    core.CreditPanel
		Progress core.Progress
	}

	InstallmentView struct {
		Installment core.Installment
		Invoice     core.Invoice
	}

	PurchaseView struct {
		Purchase     core.Purchase
		Installments []InstallmentView
		PaidCount    int
	}

	PanelView struct {
		User  core.User
		Cards []CardView
	}
)

// Cards

func (s *LedgerService) CreateCard(ctx context.Context, userID int64, req api.CardRequest) (core.CreditCard, error) {
	card, err := cardFromRequest(req)
	if err != nil {
		return core.CreditCard{}, err
	}
	card.UserID = userID
	created, err := s.store.CreateCard(ctx, card)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create card: %w", err)
	}
	return created, nil
}

// UpdateCard rewrites the card settings. Installments already assigned keep
// their invoices; new billing days only affect later purchases.
func (s *LedgerService) UpdateCard(ctx context.Context, userID, id int64, req api.CardRequest) (core.CreditCard, error) {
	current, err := s.ownedCard(ctx, userID, id)
	if err != nil {
		return core.CreditCard{}, err
	}
	card, err := cardFromRequest(req)
	if err != nil {
		return core.CreditCard{}, err
	}
	card.ID = current.ID
	card.UserID = current.UserID
	card.CreatedAt = current.CreatedAt
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return core.CreditCard{}, fmt.Errorf("update card %d: %w", id, err)
	}
	return card, nil
}

func (s *LedgerService) GetCard(ctx context.Context, userID, id int64) (CardView, error) {
	card, err := s.ownedCard(ctx, userID, id)
	if err != nil {
		return CardView{}, err
	}
	return s.cardView(ctx, card)
}

func (s *LedgerService) ListCards(ctx context.Context, userID int64) ([]CardView, error) {
	cards, err := s.store.ListCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	views := make([]CardView, 0, len(cards))
	for _, card := range cards {
		v, err := s.cardView(ctx, card)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Panel returns the signed-in user with a summary of every card.
func (s *LedgerService) Panel(ctx context.Context, userID int64) (PanelView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return PanelView{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	cards, err := s.ListCards(ctx, userID)
	if err != nil {
		return PanelView{}, err
	}
	return PanelView{User: user, Cards: cards}, nil
}

func (s *LedgerService) cardView(ctx context.Context, card core.CreditCard) (CardView, error) {
	summaries, err := s.summaries(ctx, card.ID)
	if err != nil {
		return CardView{}, err
	}
	view := CardView{Card: card, Invoices: summaries}
	var focus core.InvoiceSummary
	if cur, ok := s.currentOf(card, summaries); ok {
		focus = cur
		view.Current = &cur.Invoice
	}
	view.Panel = core.BuildCreditPanel(card, summaries, focus)
	return view, nil
}

// currentOf finds the summary whose cycle contains today.
func (s *LedgerService) currentOf(card core.CreditCard, summaries []core.InvoiceSummary) (core.InvoiceSummary, bool) {
	today := s.now()
	for _, sum := range summaries {
		if sum.Invoice.Contains(today) {
			return sum, true
		}
	}
	return core.InvoiceSummary{}, false
}

// Purchases

func (s *LedgerService) CreatePurchase(ctx context.Context, userID int64, req api.PurchaseRequest) (PurchaseView, error) {
	if errs := validation.Purchase.ValidateForm(req.Form()); errs != nil {
		return PurchaseView{}, errs
	}
	card, err := s.ownedCard(ctx, userID, req.CreditCardID)
	if err != nil {
		return PurchaseView{}, err
	}
	purchasedAt, err := validation.ParsePurchaseDate(strings.TrimSpace(req.PurchaseDateTime))
	if err != nil {
		return PurchaseView{}, validation.Single("purchaseDateTime", validation.MsgInvalidDate)
	}

	p := core.Purchase{
		CreditCardID:     card.ID,
		Description:      strings.TrimSpace(req.Description),
		Category:         strings.TrimSpace(req.Category),
		TotalValue:       req.Value,
		PurchasedAt:      purchasedAt,
		InstallmentCount: req.TotalInstallments,
	}
	return s.savePurchase(ctx, card, p, nil, amqp.ReasonPurchaseCreated, log.OpCreate)
}

// CreateSubscription books a recurring charge for the current cycle: one
// installment dated now.
func (s *LedgerService) CreateSubscription(ctx context.Context, userID int64, req api.SubscriptionRequest) (PurchaseView, error) {
	return s.CreatePurchase(ctx, userID, api.PurchaseRequest{
		Description:       req.Description,
		CreditCardID:      req.CreditCardID,
		TotalInstallments: 1,
		Category:          req.Category,
		PurchaseDateTime:  s.now().UTC().Format(time.RFC3339),
		Value:             req.Value,
	})
}

// UpdatePurchase regenerates the allocation and invoice assignment. The card
// and the purchase date are kept from the stored purchase.
func (s *LedgerService) UpdatePurchase(ctx context.Context, userID, id int64, req api.PurchaseRequest) (PurchaseView, error) {
	existing, old, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return PurchaseView{}, fmt.Errorf("get purchase %d: %w", id, err)
	}
	card, err := s.ownedCard(ctx, userID, existing.CreditCardID)
	if err != nil {
		return PurchaseView{}, err
	}

	req.CreditCardID = existing.CreditCardID
	req.PurchaseDateTime = existing.PurchasedAt.UTC().Format(time.RFC3339)
	if errs := validation.Purchase.ValidateForm(req.Form()); errs != nil {
		return PurchaseView{}, errs
	}

	p := existing
	p.Description = strings.TrimSpace(req.Description)
	p.Category = strings.TrimSpace(req.Category)
	p.TotalValue = req.Value
	p.InstallmentCount = req.TotalInstallments
	return s.savePurchase(ctx, card, p, old, amqp.ReasonPurchaseUpdated, log.OpUpdate)
}

func (s *LedgerService) savePurchase(ctx context.Context, card core.CreditCard, p core.Purchase, previous []core.Installment, reason, op string) (PurchaseView, error) {
	if err := p.Validate(); err != nil {
		return PurchaseView{}, err
	}
	values, err := core.Allocate(p.TotalValue, p.InstallmentCount)
	if err != nil {
		return PurchaseView{}, err
	}
	cycles, err := core.AssignInstallments(p.PurchasedAt, card.BillingStartDay, p.InstallmentCount)
	if err != nil {
		return PurchaseView{}, err
	}

	installments := make([]core.Installment, p.InstallmentCount)
	for k := range installments {
		inv, err := s.store.InvoiceForCycle(ctx, card, cycles[k])
		if err != nil {
			return PurchaseView{}, fmt.Errorf("resolve invoice for %s: %w", cycles[k], err)
		}
		if !inv.Status.AcceptsCharges() {
			return PurchaseView{}, fmt.Errorf("installment %d/%d into invoice %d (%s): %w",
				k+1, p.InstallmentCount, inv.ID, inv.Status, core.ErrInvoiceNotOpen)
		}
		installments[k] = core.Installment{
			Index:     k + 1,
			Total:     p.InstallmentCount,
			Value:     values[k],
			InvoiceID: inv.ID,
		}
	}

	saved, savedInstallments, err := s.store.SavePurchase(ctx, p, installments)
	if err != nil {
		return PurchaseView{}, fmt.Errorf("save purchase: %w", err)
	}
	s.events.PurchaseSaved(ctx, op, saved.ID, card.ID, saved.TotalValue.Cents, len(savedInstallments), saved.Category)

	s.publishTouched(ctx, card.ID, reason, previous, savedInstallments)
	return s.purchaseView(ctx, saved, savedInstallments)
}

func (s *LedgerService) DeletePurchase(ctx context.Context, userID, id int64) error {
	p, _, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return fmt.Errorf("get purchase %d: %w", id, err)
	}
	if _, err := s.ownedCard(ctx, userID, p.CreditCardID); err != nil {
		return err
	}
	removed, err := s.store.DeletePurchase(ctx, id)
	if err != nil {
		return fmt.Errorf("delete purchase %d: %w", id, err)
	}
	s.publishTouched(ctx, p.CreditCardID, amqp.ReasonPurchaseDeleted, removed)
	return nil
}

func (s *LedgerService) GetPurchase(ctx context.Context, userID, id int64) (PurchaseView, error) {
	p, installments, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return PurchaseView{}, fmt.Errorf("get purchase %d: %w", id, err)
	}
	if _, err := s.ownedCard(ctx, userID, p.CreditCardID); err != nil {
		return PurchaseView{}, err
	}
	return s.purchaseView(ctx, p, installments)
}

func (s *LedgerService) purchaseView(ctx context.Context, p core.Purchase, installments []core.Installment) (PurchaseView, error) {
	view := PurchaseView{Purchase: p, Installments: make([]InstallmentView, len(installments))}
	invoices := map[int64]core.Invoice{}
	for i, in := range installments {
		inv, ok := invoices[in.InvoiceID]
		if !ok {
			var err error
			if inv, err = s.store.GetInvoice(ctx, in.InvoiceID); err != nil {
				return PurchaseView{}, fmt.Errorf("get invoice %d: %w", in.InvoiceID, err)
			}
			invoices[in.InvoiceID] = inv
		}
		view.Installments[i] = InstallmentView{Installment: in, Invoice: inv}
		if inv.Status.IsPaid() {
			view.PaidCount++
		}
	}
	return view, nil
}

// Invoices

func (s *LedgerService) GetInvoice(ctx context.Context, userID, id int64) (InvoiceView, error) {
	inv, card, err := s.ownedInvoice(ctx, userID, id)
	if err != nil {
		return InvoiceView{}, err
	}
	return s.invoiceView(ctx, card, inv.ID)
}

// CurrentInvoice returns the invoice whose cycle contains today, opening it
// when no purchase has needed it yet.
func (s *LedgerService) CurrentInvoice(ctx context.Context, userID, cardID int64) (InvoiceView, error) {
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return InvoiceView{}, err
	}
	cycle, err := core.CycleFor(s.now(), card.BillingStartDay)
	if err != nil {
		return InvoiceView{}, err
	}
	inv, err := s.store.InvoiceForCycle(ctx, card, cycle)
	if err != nil {
		return InvoiceView{}, fmt.Errorf("current invoice of card %d: %w", cardID, err)
	}
	return s.invoiceView(ctx, card, inv.ID)
}

func (s *LedgerService) invoiceView(ctx context.Context, card core.CreditCard, invoiceID int64) (InvoiceView, error) {
	summaries, err := s.summaries(ctx, card.ID)
	if err != nil {
		return InvoiceView{}, err
	}
	i := slices.IndexFunc(summaries, func(sum core.InvoiceSummary) bool { return sum.Invoice.ID == invoiceID })
	if i < 0 {
		return InvoiceView{}, ledger.ErrNotFound
	}
	focus := summaries[i]
	return InvoiceView{
		Card:     card,
		Summary:  focus,
		Panel:    core.BuildCreditPanel(card, summaries, focus),
		Progress: core.PlannedProgress(focus.Total, focus.Invoice.EstimateLimit),
	}, nil
}

// ChangeInvoiceStatus applies the configured transition policy and stores
// the new state.
func (s *LedgerService) ChangeInvoiceStatus(ctx context.Context, userID, id int64, status string) (core.Invoice, error) {
	inv, card, err := s.ownedInvoice(ctx, userID, id)
	if err != nil {
		return core.Invoice{}, err
	}
	target, err := core.ParseStatus(status)
	if err != nil {
		return core.Invoice{}, err
	}
	next, err := s.policy.Transition(inv.Status, target)
	if err != nil {
		return core.Invoice{}, err
	}
	if err := s.store.UpdateInvoiceStatus(ctx, id, next); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d status: %w", id, err)
	}
	s.events.InvoiceStatusChanged(ctx, id, card.ID, inv.Status.String(), next.String())

	previous := inv.Status
	inv.Status = next
	if previous != next {
		s.publish(ctx, id, card.ID, amqp.ReasonStatusChanged)
	}
	return inv, nil
}

// UpdateEstimateLimit sets the planned ceiling of an invoice.
func (s *LedgerService) UpdateEstimateLimit(ctx context.Context, userID, id int64, req api.EstimateLimitRequest) (core.Invoice, error) {
	if errs := validation.EstimateLimit.ValidateForm(req.Form()); errs != nil {
		return core.Invoice{}, errs
	}
	inv, card, err := s.ownedInvoice(ctx, userID, id)
	if err != nil {
		return core.Invoice{}, err
	}
	if err := s.store.UpdateInvoiceEstimate(ctx, id, req.EstimateLimit); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d estimate: %w", id, err)
	}
	inv.EstimateLimit = req.EstimateLimit
	s.publish(ctx, id, card.ID, amqp.ReasonEstimateUpdated)
	return inv, nil
}

// summaries folds every invoice of a card from a fresh snapshot.
func (s *LedgerService) summaries(ctx context.Context, cardID int64) ([]core.InvoiceSummary, error) {
	invoices, err := s.store.ListInvoices(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list invoices of card %d: %w", cardID, err)
	}
	charges, err := s.store.ListCharges(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list charges of card %d: %w", cardID, err)
	}
	byInvoice := make(map[int64][]core.Charge, len(invoices))
	for _, c := range charges {
		byInvoice[c.Installment.InvoiceID] = append(byInvoice[c.Installment.InvoiceID], c)
	}
	out := make([]core.InvoiceSummary, len(invoices))
	for i, inv := range invoices {
		out[i] = core.Aggregate(inv, byInvoice[inv.ID])
	}
	return out, nil
}

// Ownership

func (s *LedgerService) ownedCard(ctx context.Context, userID, cardID int64) (core.CreditCard, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get card %d: %w", cardID, err)
	}
	if card.UserID != userID {
		return core.CreditCard{}, fmt.Errorf("card %d: %w", cardID, ledger.ErrNotFound)
	}
	return card, nil
}

func (s *LedgerService) ownedInvoice(ctx context.Context, userID, invoiceID int64) (core.Invoice, core.CreditCard, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return core.Invoice{}, core.CreditCard{}, fmt.Errorf("get invoice %d: %w", invoiceID, err)
	}
	card, err := s.ownedCard(ctx, userID, inv.CreditCardID)
	if err != nil {
		return core.Invoice{}, core.CreditCard{}, err
	}
	return inv, card, nil
}

// Events

func (s *LedgerService) publishTouched(ctx context.Context, cardID int64, reason string, sets ...[]core.Installment) {
	seen := map[int64]bool{}
	for _, set := range sets {
		for _, in := range set {
			if seen[in.InvoiceID] {
				continue
			}
			seen[in.InvoiceID] = true
			s.publish(ctx, in.InvoiceID, cardID, reason)
		}
	}
}

func (s *LedgerService) publish(ctx context.Context, invoiceID, cardID int64, reason string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping invoice changed message",
			log.FieldComponent, log.ComponentLedger,
			log.FieldInvoiceID, invoiceID)
		return
	}
	msg := amqp.NewInvoiceChangedMessage(invoiceID, cardID, reason)
	if err := s.publisher.PublishInvoiceChanged(ctx, *msg); err != nil {
		// The write is committed; consumers catch up on the next change.
		slog.ErrorContext(ctx, "Failed to publish invoice changed message",
			log.FieldComponent, log.ComponentLedger,
			log.FieldInvoiceID, invoiceID,
			log.FieldReason, reason,
			log.FieldError, err)
	}
}

func cardFromRequest(req api.CardRequest) (core.CreditCard, error) {
	if errs := validation.CreditCard.ValidateForm(req.Form()); errs != nil {
		return core.CreditCard{}, errs
	}
	card := core.CreditCard{
		Nickname:           strings.TrimSpace(req.Nickname),
		Bank:               strings.TrimSpace(req.Bank),
		EndNumbers:         strings.TrimSpace(req.EndNumbers),
		DueDay:             req.DueDate,
		BillingStartDay:    req.BillingPeriodStart,
		BillingEndDay:      req.BillingPeriodEnd,
		TotalLimit:         req.TotalLimit,
		EstimateForInvoice: req.EstimateLimitForInvoices,
	}
	if err := card.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	return card, nil
}

// IsValidation reports whether err carries field messages for the user.
func IsValidation(err error) (*validation.Errors, bool) {
	var verrs *validation.Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

// InvoiceSnapshot returns an invoice view without an ownership check. It is
// meant for background consumers acting for the system, never for requests.
func (s *LedgerService) InvoiceSnapshot(ctx context.Context, id int64) (InvoiceView, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceView{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	card, err := s.store.GetCard(ctx, inv.CreditCardID)
	if err != nil {
		return InvoiceView{}, fmt.Errorf("get card %d: %w", inv.CreditCardID, err)
	}
	return s.invoiceView(ctx, card, inv.ID)
}
