package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

// Users

const createUser = `INSERT INTO users (username, name, email, doc, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

const userColumns = `id, username, name, email, doc, password_hash, created_at`

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = ? COLLATE NOCASE`

type userRow struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	Doc          string
	PasswordHash []byte
	CreatedAt    string
}

func scanUser(row scanner) (userRow, error) {
	var u userRow
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Doc, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (q *Queries) CreateUser(ctx context.Context, u userRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createUser, u.Username, u.Name, u.Email, u.Doc, u.PasswordHash, u.CreatedAt).Scan(&id)
	return id, err
}

func (q *Queries) GetUser(ctx context.Context, id int64) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

// Credit cards

const cardColumns = `id, user_id, nickname, bank, end_numbers, due_day, billing_start_day, billing_end_day,
total_limit_cents, estimate_limit_cents, created_at`

const createCard = `INSERT INTO credit_cards (user_id, nickname, bank, end_numbers, due_day, billing_start_day,
billing_end_day, total_limit_cents, estimate_limit_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

const updateCard = `UPDATE credit_cards
SET nickname = ?, bank = ?, end_numbers = ?, due_day = ?, billing_start_day = ?, billing_end_day = ?,
    total_limit_cents = ?, estimate_limit_cents = ?
WHERE id = ?`

const getCard = `SELECT ` + cardColumns + ` FROM credit_cards WHERE id = ?`

const listCards = `SELECT ` + cardColumns + ` FROM credit_cards WHERE user_id = ? ORDER BY id`

type cardRow struct {
	ID                 int64
	UserID             int64
	Nickname           string
	Bank               string
	EndNumbers         string
	DueDay             int64
	BillingStartDay    int64
	BillingEndDay      int64
	TotalLimitCents    int64
	EstimateLimitCents sql.NullInt64
	CreatedAt          string
}

func scanCard(row scanner) (cardRow, error) {
	var c cardRow
	err := row.Scan(&c.ID, &c.UserID, &c.Nickname, &c.Bank, &c.EndNumbers, &c.DueDay, &c.BillingStartDay,
		&c.BillingEndDay, &c.TotalLimitCents, &c.EstimateLimitCents, &c.CreatedAt)
	return c, err
}

func (q *Queries) CreateCard(ctx context.Context, c cardRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCard, c.UserID, c.Nickname, c.Bank, c.EndNumbers, c.DueDay,
		c.BillingStartDay, c.BillingEndDay, c.TotalLimitCents, c.EstimateLimitCents, c.CreatedAt).Scan(&id)
	return id, err
}

func (q *Queries) UpdateCard(ctx context.Context, c cardRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCard, c.Nickname, c.Bank, c.EndNumbers, c.DueDay,
		c.BillingStartDay, c.BillingEndDay, c.TotalLimitCents, c.EstimateLimitCents, c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetCard(ctx context.Context, id int64) (cardRow, error) {
	return scanCard(q.db.QueryRowContext(ctx, getCard, id))
}

func (q *Queries) ListCards(ctx context.Context, userID int64) ([]cardRow, error) {
	rows, err := q.db.QueryContext(ctx, listCards, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []cardRow
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Invoices

const invoiceColumns = `id, credit_card_id, start_date, end_date, due_date, status, estimate_limit_cents`

const createInvoice = `INSERT INTO invoices (credit_card_id, start_date, end_date, due_date, status, estimate_limit_cents)
VALUES (?, ?, ?, ?, 'OPEN', ?)
ON CONFLICT (credit_card_id, start_date) DO NOTHING`

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

const getInvoiceByStart = `SELECT ` + invoiceColumns + ` FROM invoices WHERE credit_card_id = ? AND start_date = ?`

const listInvoices = `SELECT ` + invoiceColumns + ` FROM invoices WHERE credit_card_id = ? ORDER BY start_date`

const updateInvoiceStatus = `UPDATE invoices SET status = ? WHERE id = ?`

const updateInvoiceEstimate = `UPDATE invoices SET estimate_limit_cents = ? WHERE id = ?`

type invoiceRow struct {
	ID                 int64
	CreditCardID       int64
	StartDate          string
	EndDate            string
	DueDate            string
	Status             string
	EstimateLimitCents sql.NullInt64
}

func scanInvoice(row scanner) (invoiceRow, error) {
	var i invoiceRow
	err := row.Scan(&i.ID, &i.CreditCardID, &i.StartDate, &i.EndDate, &i.DueDate, &i.Status, &i.EstimateLimitCents)
	return i, err
}

func (q *Queries) CreateInvoice(ctx context.Context, i invoiceRow) error {
	_, err := q.db.ExecContext(ctx, createInvoice, i.CreditCardID, i.StartDate, i.EndDate, i.DueDate, i.EstimateLimitCents)
	return err
}

func (q *Queries) GetInvoice(ctx context.Context, id int64) (invoiceRow, error) {
	return scanInvoice(q.db.QueryRowContext(ctx, getInvoice, id))
}

func (q *Queries) GetInvoiceByStart(ctx context.Context, cardID int64, start string) (invoiceRow, error) {
	return scanInvoice(q.db.QueryRowContext(ctx, getInvoiceByStart, cardID, start))
}

func (q *Queries) ListInvoices(ctx context.Context, cardID int64) ([]invoiceRow, error) {
	rows, err := q.db.QueryContext(ctx, listInvoices, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []invoiceRow
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, id int64, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateInvoiceStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) UpdateInvoiceEstimate(ctx context.Context, id int64, estimate sql.NullInt64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateInvoiceEstimate, estimate, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Purchases and installments

const purchaseColumns = `id, credit_card_id, description, category, total_value_cents, purchased_at, installment_count`

const createPurchase = `INSERT INTO purchases (credit_card_id, description, category, total_value_cents, purchased_at, installment_count)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

const updatePurchase = `UPDATE purchases
SET credit_card_id = ?, description = ?, category = ?, total_value_cents = ?, purchased_at = ?, installment_count = ?
WHERE id = ?`

const getPurchase = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = ?`

const deletePurchase = `DELETE FROM purchases WHERE id = ?`

const createInstallment = `INSERT INTO installments (purchase_id, idx, total, value_cents, invoice_id)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

const deleteInstallments = `DELETE FROM installments WHERE purchase_id = ?`

const listInstallments = `SELECT id, purchase_id, idx, total, value_cents, invoice_id
FROM installments WHERE purchase_id = ? ORDER BY idx`

const listCharges = `SELECT i.id, i.purchase_id, i.idx, i.total, i.value_cents, i.invoice_id,
       p.id, p.credit_card_id, p.description, p.category, p.total_value_cents, p.purchased_at, p.installment_count
FROM installments i
JOIN purchases p ON p.id = i.purchase_id
WHERE p.credit_card_id = ?
ORDER BY p.purchased_at, i.id`

type purchaseRow struct {
	ID               int64
	CreditCardID     int64
	Description      string
	Category         string
	TotalValueCents  int64
	PurchasedAt      string
	InstallmentCount int64
}

type installmentRow struct {
	ID         int64
	PurchaseID int64
	Idx        int64
	Total      int64
	ValueCents int64
	InvoiceID  int64
}

func (q *Queries) CreatePurchase(ctx context.Context, p purchaseRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createPurchase, p.CreditCardID, p.Description, p.Category,
		p.TotalValueCents, p.PurchasedAt, p.InstallmentCount).Scan(&id)
	return id, err
}

func (q *Queries) UpdatePurchase(ctx context.Context, p purchaseRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePurchase, p.CreditCardID, p.Description, p.Category,
		p.TotalValueCents, p.PurchasedAt, p.InstallmentCount, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetPurchase(ctx context.Context, id int64) (purchaseRow, error) {
	var p purchaseRow
	err := q.db.QueryRowContext(ctx, getPurchase, id).Scan(&p.ID, &p.CreditCardID, &p.Description,
		&p.Category, &p.TotalValueCents, &p.PurchasedAt, &p.InstallmentCount)
	return p, err
}

func (q *Queries) DeletePurchase(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deletePurchase, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) CreateInstallment(ctx context.Context, in installmentRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createInstallment, in.PurchaseID, in.Idx, in.Total, in.ValueCents, in.InvoiceID).Scan(&id)
	return id, err
}

func (q *Queries) DeleteInstallments(ctx context.Context, purchaseID int64) error {
	_, err := q.db.ExecContext(ctx, deleteInstallments, purchaseID)
	return err
}

func (q *Queries) ListInstallments(ctx context.Context, purchaseID int64) ([]installmentRow, error) {
	rows, err := q.db.QueryContext(ctx, listInstallments, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []installmentRow
	for rows.Next() {
		var in installmentRow
		if err := rows.Scan(&in.ID, &in.PurchaseID, &in.Idx, &in.Total, &in.ValueCents, &in.InvoiceID); err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

type chargeRow struct {
	Installment installmentRow
	Purchase    purchaseRow
}

func (q *Queries) ListCharges(ctx context.Context, cardID int64) ([]chargeRow, error) {
	rows, err := q.db.QueryContext(ctx, listCharges, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []chargeRow
	for rows.Next() {
		var c chargeRow
		in, p := &c.Installment, &c.Purchase
		if err := rows.Scan(&in.ID, &in.PurchaseID, &in.Idx, &in.Total, &in.ValueCents, &in.InvoiceID,
			&p.ID, &p.CreditCardID, &p.Description, &p.Category, &p.TotalValueCents, &p.PurchasedAt, &p.InstallmentCount); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
