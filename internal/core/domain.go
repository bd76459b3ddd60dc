package core

import (
	"errors"
	"sort"
	"strings"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

type (
	CategoryType string

	Transaction struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
	}

	Category struct {
		Name         string        `json:"name"`
		Type         CategoryType  `json:"type"`
		Transactions []Transaction `json:"transactions"`
	}

	// Collection is the root document: every category with its transactions.
	Collection []Category

	// TransactionInput is the raw, unvalidated form of a new transaction.
	TransactionInput struct {
		ID     string
		Name   string
		Amount string
		Date   string
	}
)

var (
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrInvalidCategoryType = errors.New("category type must be income or expense")
	ErrDuplicateCategory   = errors.New("a category with this name already exists")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidPeriod       = errors.New("invalid period")
)

const maxNameLength = 200

// ParseCategoryType accepts "income" or "expense" in any case.
func ParseCategoryType(s string) (CategoryType, error) {
	switch CategoryType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	default:
		return "", ErrInvalidCategoryType
	}
}

func (t CategoryType) IsValid() bool {
	return t == Income || t == Expense
}

// SameName reports whether two category names collide. Names are compared
// trimmed and case-insensitively everywhere in the ledger.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ValidateCategory checks a new category against the existing collection.
func ValidateCategory(c Collection, name string, typ CategoryType) error {
	verr := &ValidationError{}
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		verr.Add("name", ErrEmptyName)
	case len(name) > maxNameLength:
		verr.Add("name", ErrNameTooLong)
	}
	if !typ.IsValid() {
		verr.Add("type", ErrInvalidCategoryType)
	}
	if verr.HasErrors() {
		return verr
	}
	if c.Index(name) >= 0 {
		return ErrDuplicateCategory
	}
	return nil
}

// Validate converts the input into a Transaction. All field problems are
// reported together so a form can show them inline.
func (in TransactionInput) Validate() (Transaction, error) {
	verr := &ValidationError{}
	tx := Transaction{ID: strings.TrimSpace(in.ID), Name: strings.TrimSpace(in.Name)}

	switch {
	case tx.Name == "":
		verr.Add("name", ErrEmptyName)
	case len(tx.Name) > maxNameLength:
		verr.Add("name", ErrNameTooLong)
	}

	cents, err := ParseDecimalToCents(in.Amount)
	if err != nil {
		verr.Add("amount", err)
	} else {
		tx.Amount = Money{Cents: cents}
	}

	if strings.TrimSpace(in.Date) == "" {
		verr.Add("date", ErrMissingDate)
	} else if d, err := ParseDate(in.Date); err != nil {
		verr.Add("date", err)
	} else {
		tx.Date = d
	}

	if verr.HasErrors() {
		return Transaction{}, verr
	}
	return tx, nil
}

// Index returns the position of the category with the given name, or -1.
func (c Collection) Index(name string) int {
	for i := range c {
		if SameName(c[i].Name, name) {
			return i
		}
	}
	return -1
}

// Find returns a pointer into the collection, or nil.
func (c Collection) Find(name string) *Category {
	if i := c.Index(name); i >= 0 {
		return &c[i]
	}
	return nil
}

// Names lists category names in collection order.
func (c Collection) Names() []string {
	names := make([]string, len(c))
	for i := range c {
		names[i] = c[i].Name
	}
	return names
}

// Clone returns a deep copy so callers can mutate without touching the
// original slices.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	for i, cat := range c {
		out[i] = cat
		out[i].Transactions = make([]Transaction, len(cat.Transactions))
		copy(out[i].Transactions, cat.Transactions)
	}
	return out
}

// TransactionCount counts transactions across all categories.
func (c Collection) TransactionCount() int {
	n := 0
	for i := range c {
		n += len(c[i].Transactions)
	}
	return n
}

// Sorted returns a copy ordered by category name, each category's
// transactions newest first. Transactions with unparseable dates sink to
// the end.
func (c Collection) Sorted() Collection {
	out := c.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	for i := range out {
		txs := out[i].Transactions
		sort.SliceStable(txs, func(a, b int) bool {
			return txs[a].Date.After(txs[b].Date)
		})
	}
	return out
}

// TransactionIndex returns the position of the transaction with id, or -1.
func (c *Category) TransactionIndex(id string) int {
	for i := range c.Transactions {
		if c.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}
