package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleStudent      = "student"
	RoleProfessional = "professional"
)

type (
	Date struct {
		time.Time
	}

	// Expense is a single spending record owned by a user.
	Expense struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
	}

	// User carries the per-user values the analytics need: a monthly budget
	// and a role used for tailored insights.
	User struct {
		ID     int64           `json:"id"`
		Email  string          `json:"email"`
		Role   string          `json:"role"`
		Budget decimal.Decimal `json:"budget"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmptyRole          = errors.New("empty role")
	ErrInvalidBudget      = errors.New("invalid budget")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// DateLayout is the ISO form dates are stored and exchanged in.
const DateLayout = "2006-01-02"

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the ISO YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// ShortLabel returns the month-day suffix of the ISO form ("MM-DD").
func (d Date) ShortLabel() string {
	return d.String()[5:]
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays returns the date shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (u User) Validate() error {
	email := strings.TrimSpace(u.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.Role) == "" {
		return ErrEmptyRole
	}
	if u.Budget.IsNegative() {
		return ErrInvalidBudget
	}
	return nil
}

// DisplayName is the local part of the user's email.
func (u User) DisplayName() string {
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}
