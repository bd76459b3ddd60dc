// Package report computes derived views of a collection: period totals,
// bucketed time series and the per-category breakdowns used by charts.
//
// Every function is a pure scan of the collection. Transactions whose date
// or amount could not be parsed are skipped.
package report

import (
	"sort"
	"time"

	"expenses/internal/core"
)

// Totals is the income/expenses/balance triple for one period.
type Totals struct {
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
	Balance  core.Money `json:"balance"`
}

// Bucket selects the calendar unit of a series.
type Bucket string

const (
	ByDay   Bucket = "day"
	ByMonth Bucket = "month"
)

// Point is one bucket of a series.
type Point struct {
	Key string `json:"key"`
	Totals
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// Week is one rolling 7-day window of expense totals.
type Week struct {
	Start      core.Date             `json:"start"`
	ByCategory map[string]core.Money `json:"by_category"`
}

// Entry is a transaction annotated with its owning category.
type Entry struct {
	core.Transaction
	Category string            `json:"category"`
	Type     core.CategoryType `json:"type"`
}

func (t *Totals) add(typ core.CategoryType, m core.Money) {
	switch typ {
	case core.Income:
		t.Income = t.Income.Add(m)
	case core.Expense:
		t.Expenses = t.Expenses.Add(m)
	}
	t.Balance = t.Income.Sub(t.Expenses)
}

// Summarize sums transaction amounts inside period p, split by category
// type. Balance is always income minus expenses.
func Summarize(c core.Collection, p core.Period, now time.Time) (Totals, error) {
	checker, err := p.Checker()
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, cat := range c {
		for _, tx := range cat.Transactions {
			if !tx.Amount.Valid() {
				continue
			}
			// Total includes undated transactions; every other period needs a date.
			if p != core.Total && !tx.Date.Valid() {
				continue
			}
			if checker.Contains(tx.Date, now) {
				t.add(cat.Type, tx.Amount)
			}
		}
	}
	return t, nil
}

// Series buckets transactions by calendar day or month. Points are sorted
// ascending by key; when lastN > 0 only the most recent lastN are kept.
func Series(c core.Collection, unit Bucket, lastN int) []Point {
	key := core.Date.DayKey
	if unit == ByMonth {
		key = core.Date.MonthKey
	}

	buckets := make(map[string]*Totals)
	for _, cat := range c {
		for _, tx := range cat.Transactions {
			if !tx.Amount.Valid() || !tx.Date.Valid() {
				continue
			}
			k := key(tx.Date)
			b, ok := buckets[k]
			if !ok {
				b = &Totals{}
				buckets[k] = b
			}
			b.add(cat.Type, tx.Amount)
		}
	}

	points := make([]Point, 0, len(buckets))
	for k, b := range buckets {
		points = append(points, Point{Key: k, Totals: *b})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Key < points[j].Key })

	if lastN > 0 && len(points) > lastN {
		points = points[len(points)-lastN:]
	}
	return points
}

// ByCategory totals every category of the given type. Categories with a
// non-positive total are left out; order follows the collection.
func ByCategory(c core.Collection, typ core.CategoryType) []CategoryAmount {
	var out []CategoryAmount
	for _, cat := range c {
		if cat.Type != typ {
			continue
		}
		var sum core.Money
		for _, tx := range cat.Transactions {
			if tx.Amount.Valid() {
				sum = sum.Add(tx.Amount)
			}
		}
		if sum.Cents > 0 {
			out = append(out, CategoryAmount{Name: cat.Name, Amount: sum})
		}
	}
	return out
}

// WeeklyByCategory splits expense transactions into `weeks` rolling 7-day
// windows. The newest window starts today at 00:00; windows are returned
// oldest first. Every expense category appears in every window's map only
// when it has spending there.
func WeeklyByCategory(c core.Collection, now time.Time, weeks int) []Week {
	if weeks <= 0 {
		return nil
	}
	today := core.DateOf(now)
	out := make([]Week, weeks)
	for i := range out {
		start := today.AddDate(0, 0, -7*(weeks-1-i))
		out[i] = Week{Start: core.DateOf(start), ByCategory: map[string]core.Money{}}
	}

	for _, cat := range c {
		if cat.Type != core.Expense {
			continue
		}
		for _, tx := range cat.Transactions {
			if !tx.Amount.Valid() || !tx.Date.Valid() {
				continue
			}
			for i := range out {
				end := out[i].Start.AddDate(0, 0, 7)
				if !tx.Date.Before(out[i].Start.Time) && tx.Date.Before(end) {
					out[i].ByCategory[cat.Name] = out[i].ByCategory[cat.Name].Add(tx.Amount)
					break
				}
			}
		}
	}
	return out
}

// ExpenseCategories lists expense category names in collection order.
func ExpenseCategories(c core.Collection) []string {
	var names []string
	for _, cat := range c {
		if cat.Type == core.Expense {
			names = append(names, cat.Name)
		}
	}
	return names
}

// Recent returns up to limit transactions across all categories, newest
// first. limit <= 0 returns everything.
func Recent(c core.Collection, limit int) []Entry {
	var all []Entry
	for _, cat := range c {
		for _, tx := range cat.Transactions {
			all = append(all, Entry{Transaction: tx, Category: cat.Name, Type: cat.Type})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
