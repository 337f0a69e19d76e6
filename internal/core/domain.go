package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxInstallments is the largest installment count a purchase may be split into.
	MaxInstallments = 36
	// MaxDescriptionLength counts characters, not bytes.
	MaxDescriptionLength = 200
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	CreditCard struct {
		ID                 int64
		UserID             int64
		Nickname           string
		Bank               string
		EndNumbers         string
		DueDay             int
		BillingStartDay    int
		BillingEndDay      int
		TotalLimit         Money
		EstimateForInvoice *Money // default planned ceiling for new invoices
		CreatedAt          time.Time
	}

	Purchase struct {
		ID               int64
		CreditCardID     int64
		Description      string
		Category         string
		TotalValue       Money
		PurchasedAt      time.Time
		InstallmentCount int
	}

	Installment struct {
		ID         int64
		PurchaseID int64
		Index      int // 1-based
		Total      int
		Value      Money
		InvoiceID  int64
	}

	User struct {
		ID           int64
		Username     string
		Name         string
		Email        string
		Doc          string // CPF
		PasswordHash []byte
		CreatedAt    time.Time
	}

	Invoice struct {
		ID            int64
		CreditCardID  int64
		StartDate     Date
		EndDate       Date // exclusive
		DueDate       Date
		Status        InvoiceStatus
		EstimateLimit *Money
	}
)

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrNegativeAmount          = errors.New("amount cannot be negative")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrEmptyDescription        = errors.New("empty description")
	ErrDescriptionTooLong      = fmt.Errorf("description longer than %d characters", MaxDescriptionLength)
	ErrZeroPurchaseDate        = errors.New("purchase date cannot be zero")
	ErrEmptyCategory           = errors.New("empty category")
	ErrEmptyNickname           = errors.New("empty nickname")
	ErrEmptyBank               = errors.New("empty bank")
	ErrInvalidEndNumbers       = errors.New("end numbers must be exactly 4 digits")
	ErrInvalidLimit            = errors.New("limit must be greater than zero")
)

var endNumbersPattern = regexp.MustCompile(`^\d{4}$`)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	*d = Date{Time: t}
	return nil
}

func validDay(day int) bool {
	return day >= 1 && day <= 31
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Nickname) == "" {
		return ErrEmptyNickname
	}
	if strings.TrimSpace(c.Bank) == "" {
		return ErrEmptyBank
	}
	if !endNumbersPattern.MatchString(strings.TrimSpace(c.EndNumbers)) {
		return ErrInvalidEndNumbers
	}
	days := []struct {
		name string
		day  int
	}{
		{"due day", c.DueDay},
		{"billing start day", c.BillingStartDay},
		{"billing end day", c.BillingEndDay},
	}
	for _, d := range days {
		if !validDay(d.day) {
			return fmt.Errorf("%w: %s %d", ErrInvalidDay, d.name, d.day)
		}
	}
	if c.TotalLimit.Cents <= 0 {
		return ErrInvalidLimit
	}
	if c.EstimateForInvoice != nil {
		if err := c.EstimateForInvoice.Validate(); err != nil {
			return fmt.Errorf("estimate limit: %w", err)
		}
	}
	return nil
}

func (p Purchase) Validate() error {
	if len(strings.TrimSpace(p.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	if p.TotalValue.Cents <= 0 {
		return ErrInvalidAmount
	}
	if p.InstallmentCount < 1 || p.InstallmentCount > MaxInstallments {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidInstallmentCount, p.InstallmentCount, MaxInstallments)
	}
	if p.PurchasedAt.IsZero() {
		return ErrZeroPurchaseDate
	}
	return nil
}

// IsInstallmentPlan reports whether the purchase was split in more than one installment.
func (p Purchase) IsInstallmentPlan() bool {
	return p.InstallmentCount > 1
}

// Contains reports whether t falls inside the invoice's billing window.
func (i Invoice) Contains(t time.Time) bool {
	day := DateOf(t).Time
	return !day.Before(i.StartDate.Time) && day.Before(i.EndDate.Time)
}

// Label renders the installment position as "2/10", or "-" for single payments.
func (in Installment) Label() string {
	if in.Total <= 1 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", in.Index, in.Total)
}
