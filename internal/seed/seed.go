// Package seed generates placeholder data so a fresh install has
// something to chart.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/log"
)

// Days is how many days back placeholder transactions span, today included.
const Days = 30

var categories = []struct {
	name string
	typ  core.CategoryType
}{
	{"Salary", core.Income},
	{"Freelance", core.Income},
	{"Food", core.Expense},
	{"Transportation", core.Expense},
	{"Entertainment", core.Expense},
	{"Utilities", core.Expense},
}

// Generate builds the placeholder collection. For every category and every
// one of the last Days days there is a 70% chance of 1 to 3 transactions;
// expenses are 100-999 and income 1000-4999 whole units. The same rng seed
// and day produce the same collection, ids included.
func Generate(now time.Time, rng *rand.Rand) core.Collection {
	today := core.DateOf(now)
	out := make(core.Collection, 0, len(categories))
	for _, c := range categories {
		cat := core.Category{Name: c.name, Type: c.typ, Transactions: []core.Transaction{}}
		for i := Days - 1; i >= 0; i-- {
			day := core.DateOf(today.AddDate(0, 0, -i))
			if rng.Float64() >= 0.7 {
				continue
			}
			n := rng.Intn(3) + 1
			for j := 0; j < n; j++ {
				cat.Transactions = append(cat.Transactions, core.Transaction{
					ID:     newID(rng),
					Name:   fmt.Sprintf("Sample Transaction %d", len(cat.Transactions)+1),
					Amount: core.Money{Cents: amount(c.typ, rng) * 100},
					Date:   day,
				})
			}
		}
		out = append(out, cat)
	}
	return out
}

func amount(typ core.CategoryType, rng *rand.Rand) int64 {
	if typ == core.Expense {
		return int64(rng.Intn(900) + 100)
	}
	return int64(rng.Intn(4000) + 1000)
}

func newID(rng *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Replacer stores a collection only when nothing is stored yet.
type Replacer interface {
	ReplaceIfEmpty(ctx context.Context, c core.Collection) (bool, error)
}

// IfEmpty writes placeholder data through r when the store is empty and
// reports whether it did.
func IfEmpty(ctx context.Context, r Replacer, now time.Time, rng *rand.Rand) (bool, error) {
	c := Generate(now, rng)
	written, err := r.ReplaceIfEmpty(ctx, c)
	if err != nil {
		return false, fmt.Errorf("seed placeholder data: %w", err)
	}
	if written {
		slog.InfoContext(ctx, "Placeholder data written",
			log.FieldComponent, log.ComponentSeed,
			"categories", len(c),
			"transactions", c.TransactionCount())
	}
	return written, nil
}
