package seed

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/services"
	"expenses/internal/storage"
)

var now = time.Date(2024, 5, 29, 18, 0, 0, 0, time.UTC)

func TestGenerateShape(t *testing.T) {
	c := Generate(now, rand.New(rand.NewSource(1)))

	want := []string{"Salary", "Freelance", "Food", "Transportation", "Entertainment", "Utilities"}
	if len(c) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(c))
	}

	first := core.DateOf(now).AddDate(0, 0, -(Days - 1))
	seen := map[string]bool{}
	for i, cat := range c {
		if cat.Name != want[i] {
			t.Fatalf("category %d = %q, want %q", i, cat.Name, want[i])
		}
		if cat.Transactions == nil {
			t.Fatalf("%s: transactions must not be nil", cat.Name)
		}
		for _, tx := range cat.Transactions {
			if seen[tx.ID] {
				t.Fatalf("duplicate id %s", tx.ID)
			}
			seen[tx.ID] = true

			units := tx.Amount.Cents / 100
			switch cat.Type {
			case core.Expense:
				if units < 100 || units > 999 {
					t.Fatalf("%s: expense amount %d out of range", cat.Name, units)
				}
			case core.Income:
				if units < 1000 || units > 4999 {
					t.Fatalf("%s: income amount %d out of range", cat.Name, units)
				}
			}
			if tx.Amount.Cents%100 != 0 {
				t.Fatalf("%s: amounts are whole units, got %d cents", cat.Name, tx.Amount.Cents)
			}
			if tx.Date.Before(first) || tx.Date.After(core.DateOf(now)) {
				t.Fatalf("%s: date %s outside the last %d days", cat.Name, tx.Date, Days)
			}
		}
	}
	if len(seen) == 0 {
		t.Fatal("expected some transactions")
	}
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	a := Generate(now, rand.New(rand.NewSource(42)))
	b := Generate(now, rand.New(rand.NewSource(42)))
	if a.TransactionCount() != b.TransactionCount() {
		t.Fatalf("counts differ: %d vs %d", a.TransactionCount(), b.TransactionCount())
	}
	for i := range a {
		for j := range a[i].Transactions {
			if a[i].Transactions[j] != b[i].Transactions[j] {
				t.Fatalf("transaction %d/%d differs", i, j)
			}
		}
	}
}

func TestIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewRepository(storage.NewMemoryBackend(), "")
	ledger := services.NewLedgerService(store)

	written, err := IfEmpty(ctx, ledger, now, rand.New(rand.NewSource(7)))
	if err != nil || !written {
		t.Fatalf("first seed: written=%v err=%v", written, err)
	}
	stored, _ := store.Load(ctx)
	if len(stored) != len(categories) {
		t.Fatalf("expected %d stored categories, got %d", len(categories), len(stored))
	}

	written, err = IfEmpty(ctx, ledger, now, rand.New(rand.NewSource(8)))
	if err != nil || written {
		t.Fatalf("second seed must be a no-op: written=%v err=%v", written, err)
	}
}
