package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fatura/internal/core"
	"fatura/internal/ledger"
	"fatura/internal/log"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

// SQLiteRepository implements ledger.Store on top of a SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool opens the file.
	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	id, err := r.queries.CreateUser(ctx, userRow{
		Username:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		Doc:          u.Doc,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.Format(timestampLayout),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ledger.ErrDuplicate
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "get user %d", id)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, notFound(err, "get user %q", username)
	}
	return row.toCore(), nil
}

// Credit cards

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	id, err := r.queries.CreateCard(ctx, cardToRow(c))
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	c.ID = id

	slog.InfoContext(ctx, "Credit card saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldCardID, c.ID,
		"nickname", c.Nickname)
	return c, nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.CreditCard) error {
	n, err := r.queries.UpdateCard(ctx, cardToRow(c))
	if err != nil {
		return fmt.Errorf("update credit card %d: %w", c.ID, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.CreditCard, error) {
	row, err := r.queries.GetCard(ctx, id)
	if err != nil {
		return core.CreditCard{}, notFound(err, "get credit card %d", id)
	}
	return row.toCore(), nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context, userID int64) ([]core.CreditCard, error) {
	rows, err := r.queries.ListCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	cards := make([]core.CreditCard, len(rows))
	for i, row := range rows {
		cards[i] = row.toCore()
	}
	return cards, nil
}

// Invoices

func (r *SQLiteRepository) InvoiceForCycle(ctx context.Context, card core.CreditCard, cycle core.Cycle) (core.Invoice, error) {
	start := cycle.Start.Format(dateLayout)
	row, err := r.queries.GetInvoiceByStart(ctx, card.ID, start)
	if err == nil {
		return row.toCore()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("find invoice for cycle %s: %w", cycle, err)
	}

	// The insert is a no-op when a concurrent request created the same cycle.
	err = r.queries.CreateInvoice(ctx, invoiceRow{
		CreditCardID:       card.ID,
		StartDate:          start,
		EndDate:            cycle.End.Format(dateLayout),
		DueDate:            cycle.DueDate(card.DueDay).Format(dateLayout),
		EstimateLimitCents: nullMoney(card.EstimateForInvoice),
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Invoice{}, ledger.ErrNotFound
		}
		return core.Invoice{}, fmt.Errorf("create invoice for cycle %s: %w", cycle, err)
	}

	row, err = r.queries.GetInvoiceByStart(ctx, card.ID, start)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("reload invoice for cycle %s: %w", cycle, err)
	}

	slog.InfoContext(ctx, "Invoice opened",
		log.FieldComponent, log.ComponentStorage,
		log.FieldCardID, card.ID,
		log.FieldInvoiceID, row.ID,
		log.FieldCycle, cycle.String())
	return row.toCore()
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row, err := r.queries.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, notFound(err, "get invoice %d", id)
	}
	return row.toCore()
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, cardID int64) ([]core.Invoice, error) {
	rows, err := r.queries.ListInvoices(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	invoices := make([]core.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := row.toCore()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (r *SQLiteRepository) UpdateInvoiceStatus(ctx context.Context, id int64, status core.InvoiceStatus) error {
	n, err := r.queries.UpdateInvoiceStatus(ctx, id, status.String())
	if err != nil {
		return fmt.Errorf("update invoice %d status: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateInvoiceEstimate(ctx context.Context, id int64, estimate *core.Money) error {
	n, err := r.queries.UpdateInvoiceEstimate(ctx, id, nullMoney(estimate))
	if err != nil {
		return fmt.Errorf("update invoice %d estimate: %w", id, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Purchases

func (r *SQLiteRepository) SavePurchase(ctx context.Context, p core.Purchase, installments []core.Installment) (core.Purchase, []core.Installment, error) {
	saved := make([]core.Installment, len(installments))
	err := r.inTx(ctx, func(q *Queries) error {
		row := purchaseToRow(p)
		if p.ID == 0 {
			id, err := q.CreatePurchase(ctx, row)
			if err != nil {
				return fmt.Errorf("create purchase: %w", err)
			}
			p.ID = id
		} else {
			n, err := q.UpdatePurchase(ctx, row)
			if err != nil {
				return fmt.Errorf("update purchase %d: %w", p.ID, err)
			}
			if n == 0 {
				return ledger.ErrNotFound
			}
			if err := q.DeleteInstallments(ctx, p.ID); err != nil {
				return fmt.Errorf("clear installments of purchase %d: %w", p.ID, err)
			}
		}

		for i, in := range installments {
			in.PurchaseID = p.ID
			id, err := q.CreateInstallment(ctx, installmentRow{
				PurchaseID: p.ID,
				Idx:        int64(in.Index),
				Total:      int64(in.Total),
				ValueCents: in.Value.Cents,
				InvoiceID:  in.InvoiceID,
			})
			if err != nil {
				return fmt.Errorf("create installment %d/%d: %w", in.Index, in.Total, err)
			}
			in.ID = id
			saved[i] = in
		}
		return nil
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Purchase{}, nil, ledger.ErrNotFound
		}
		return core.Purchase{}, nil, err
	}

	slog.InfoContext(ctx, "Purchase saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldPurchaseID, p.ID,
		log.FieldAmountCents, p.TotalValue.Cents,
		log.FieldInstallments, len(saved))
	return p, saved, nil
}

func (r *SQLiteRepository) GetPurchase(ctx context.Context, id int64) (core.Purchase, []core.Installment, error) {
	row, err := r.queries.GetPurchase(ctx, id)
	if err != nil {
		return core.Purchase{}, nil, notFound(err, "get purchase %d", id)
	}
	p, err := row.toCore()
	if err != nil {
		return core.Purchase{}, nil, err
	}
	rows, err := r.queries.ListInstallments(ctx, id)
	if err != nil {
		return core.Purchase{}, nil, fmt.Errorf("list installments of purchase %d: %w", id, err)
	}
	installments := make([]core.Installment, len(rows))
	for i, in := range rows {
		installments[i] = in.toCore()
	}
	return p, installments, nil
}

func (r *SQLiteRepository) DeletePurchase(ctx context.Context, id int64) ([]core.Installment, error) {
	var removed []core.Installment
	err := r.inTx(ctx, func(q *Queries) error {
		rows, err := q.ListInstallments(ctx, id)
		if err != nil {
			return fmt.Errorf("list installments of purchase %d: %w", id, err)
		}
		if err := q.DeleteInstallments(ctx, id); err != nil {
			return fmt.Errorf("delete installments of purchase %d: %w", id, err)
		}
		n, err := q.DeletePurchase(ctx, id)
		if err != nil {
			return fmt.Errorf("delete purchase %d: %w", id, err)
		}
		if n == 0 {
			return ledger.ErrNotFound
		}
		for _, in := range rows {
			removed = append(removed, in.toCore())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Purchase deleted",
		log.FieldComponent, log.ComponentStorage,
		log.FieldPurchaseID, id)
	return removed, nil
}

func (r *SQLiteRepository) ListCharges(ctx context.Context, cardID int64) ([]core.Charge, error) {
	rows, err := r.queries.ListCharges(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("list charges of card %d: %w", cardID, err)
	}
	charges := make([]core.Charge, 0, len(rows))
	for _, row := range rows {
		p, err := row.Purchase.toCore()
		if err != nil {
			return nil, err
		}
		charges = append(charges, core.Charge{Installment: row.Installment.toCore(), Purchase: p})
	}
	return charges, nil
}

// Row conversions

func (u userRow) toCore() core.User {
	created, _ := time.Parse(timestampLayout, u.CreatedAt)
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Email:        u.Email,
		Doc:          u.Doc,
		PasswordHash: u.PasswordHash,
		CreatedAt:    created,
	}
}

func cardToRow(c core.CreditCard) cardRow {
	return cardRow{
		ID:                 c.ID,
		UserID:             c.UserID,
		Nickname:           c.Nickname,
		Bank:               c.Bank,
		EndNumbers:         c.EndNumbers,
		DueDay:             int64(c.DueDay),
		BillingStartDay:    int64(c.BillingStartDay),
		BillingEndDay:      int64(c.BillingEndDay),
		TotalLimitCents:    c.TotalLimit.Cents,
		EstimateLimitCents: nullMoney(c.EstimateForInvoice),
		CreatedAt:          c.CreatedAt.Format(timestampLayout),
	}
}

func (c cardRow) toCore() core.CreditCard {
	created, _ := time.Parse(timestampLayout, c.CreatedAt)
	return core.CreditCard{
		ID:                 c.ID,
		UserID:             c.UserID,
		Nickname:           c.Nickname,
		Bank:               c.Bank,
		EndNumbers:         c.EndNumbers,
		DueDay:             int(c.DueDay),
		BillingStartDay:    int(c.BillingStartDay),
		BillingEndDay:      int(c.BillingEndDay),
		TotalLimit:         core.Money{Cents: c.TotalLimitCents},
		EstimateForInvoice: moneyFromNull(c.EstimateLimitCents),
		CreatedAt:          created,
	}
}

func (i invoiceRow) toCore() (core.Invoice, error) {
	inv := core.Invoice{
		ID:            i.ID,
		CreditCardID:  i.CreditCardID,
		EstimateLimit: moneyFromNull(i.EstimateLimitCents),
	}
	var err error
	if inv.StartDate, err = parseDate(i.StartDate); err != nil {
		return core.Invoice{}, err
	}
	if inv.EndDate, err = parseDate(i.EndDate); err != nil {
		return core.Invoice{}, err
	}
	if inv.DueDate, err = parseDate(i.DueDate); err != nil {
		return core.Invoice{}, err
	}
	if inv.Status, err = core.ParseStatus(i.Status); err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", i.ID, err)
	}
	return inv, nil
}

func purchaseToRow(p core.Purchase) purchaseRow {
	return purchaseRow{
		ID:               p.ID,
		CreditCardID:     p.CreditCardID,
		Description:      p.Description,
		Category:         p.Category,
		TotalValueCents:  p.TotalValue.Cents,
		PurchasedAt:      p.PurchasedAt.UTC().Format(timestampLayout),
		InstallmentCount: int64(p.InstallmentCount),
	}
}

func (p purchaseRow) toCore() (core.Purchase, error) {
	at, err := time.Parse(timestampLayout, p.PurchasedAt)
	if err != nil {
		return core.Purchase{}, fmt.Errorf("purchase %d date %q: %w", p.ID, p.PurchasedAt, err)
	}
	return core.Purchase{
		ID:               p.ID,
		CreditCardID:     p.CreditCardID,
		Description:      p.Description,
		Category:         p.Category,
		TotalValue:       core.Money{Cents: p.TotalValueCents},
		PurchasedAt:      at,
		InstallmentCount: int(p.InstallmentCount),
	}, nil
}

func (in installmentRow) toCore() core.Installment {
	return core.Installment{
		ID:         in.ID,
		PurchaseID: in.PurchaseID,
		Index:      int(in.Idx),
		Total:      int(in.Total),
		Value:      core.Money{Cents: in.ValueCents},
		InvoiceID:  in.InvoiceID,
	}
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func nullMoney(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func moneyFromNull(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	return &core.Money{Cents: n.Int64}
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
