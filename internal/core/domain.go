package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	General       Category = "general"
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Bills         Category = "bills"
	Entertainment Category = "entertainment"
	Health        Category = "health"
	Other         Category = "other"
)

type (
	Category string

	Money struct {
		Cents int64
	}

	// Expense is one logged transaction. Timestamp is the creation instant in
	// epoch milliseconds and is never updated.
	Expense struct {
		ID        string   `json:"id"`
		Amount    Money    `json:"amount"`
		Note      string   `json:"note"`
		Category  Category `json:"category"`
		Timestamp int64    `json:"timestamp"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrNotFound           = errors.New("expense not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrCorruptData        = errors.New("corrupt stored data")
)

var categories = []Category{General, Food, Transport, Shopping, Bills, Entertainment, Health, Other}

var categoryLabels = map[Category]string{
	General:       "Expense",
	Food:          "Food",
	Transport:     "Transport",
	Shopping:      "Shopping",
	Bills:         "Bills",
	Entertainment: "Entertainment",
	Health:        "Health",
	Other:         "Other",
}

var categoryEmojis = map[Category]string{
	General:       "💰",
	Food:          "🍔",
	Transport:     "🚌",
	Shopping:      "🛍️",
	Bills:         "📄",
	Entertainment: "🎬",
	Health:        "💊",
	Other:         "📦",
}

// Categories returns the fixed category set in form order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory maps user input to a Category. Empty input selects General.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return General, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human display name. Unknown categories read as "Expense"
// so records written by older clients still render.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "Expense"
}

func (c Category) Emoji() string {
	if e, ok := categoryEmojis[c]; ok {
		return e
	}
	return "💰"
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewExpenseID returns a fresh opaque identifier.
func NewExpenseID() string {
	return uuid.NewString()
}

// NewExpense builds a record stamped at now. A blank note falls back to the
// category label.
func NewExpense(amount Money, note string, cat Category, now time.Time) (Expense, error) {
	if err := amount.Validate(); err != nil {
		return Expense{}, err
	}
	if !cat.Valid() {
		return Expense{}, ErrInvalidCategory
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = cat.Label()
	}
	return Expense{
		ID:        NewExpenseID(),
		Amount:    amount,
		Note:      note,
		Category:  cat,
		Timestamp: now.UnixMilli(),
	}, nil
}

// Time returns the creation instant in loc.
func (e Expense) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(e.Timestamp).In(loc)
}
