package services

import (
	"context"
	"fmt"
	"strconv"

	"expenses/internal/core"
	"expenses/internal/report"
)

// WeeklyView is the rolling weekly spending breakdown with the expense
// categories that may appear in it.
type WeeklyView struct {
	Categories []string      `json:"categories"`
	Weeks      []report.Week `json:"weeks"`
}

// Summary returns totals for period p relative to the current day.
func (s *LedgerService) Summary(ctx context.Context, p core.Period) (report.Totals, error) {
	now := s.Now()
	return view(ctx, s, "summary:"+string(p)+":"+core.DateOf(now).DayKey(), func(c core.Collection) (report.Totals, error) {
		return report.Summarize(c, p, now)
	})
}

// Series returns day or month buckets, the most recent lastN when lastN > 0.
func (s *LedgerService) Series(ctx context.Context, unit report.Bucket, lastN int) ([]report.Point, error) {
	if unit != report.ByDay && unit != report.ByMonth {
		return nil, fmt.Errorf("unknown series unit %q", unit)
	}
	return view(ctx, s, "series:"+string(unit)+":"+strconv.Itoa(lastN), func(c core.Collection) ([]report.Point, error) {
		return report.Series(c, unit, lastN), nil
	})
}

// Distribution returns per-category totals for one category type.
func (s *LedgerService) Distribution(ctx context.Context, typ core.CategoryType) ([]report.CategoryAmount, error) {
	return view(ctx, s, "distribution:"+string(typ), func(c core.Collection) ([]report.CategoryAmount, error) {
		return report.ByCategory(c, typ), nil
	})
}

// Weekly returns expense totals per category for the last `weeks` rolling
// weeks, oldest first.
func (s *LedgerService) Weekly(ctx context.Context, weeks int) (WeeklyView, error) {
	now := s.Now()
	key := "weekly:" + strconv.Itoa(weeks) + ":" + core.DateOf(now).DayKey()
	return view(ctx, s, key, func(c core.Collection) (WeeklyView, error) {
		return WeeklyView{
			Categories: report.ExpenseCategories(c),
			Weeks:      report.WeeklyByCategory(c, now, weeks),
		}, nil
	})
}

// Recent returns up to limit transactions across categories, newest first.
func (s *LedgerService) Recent(ctx context.Context, limit int) ([]report.Entry, error) {
	return view(ctx, s, "recent:"+strconv.Itoa(limit), func(c core.Collection) ([]report.Entry, error) {
		return report.Recent(c, limit), nil
	})
}

// view computes a read model from the stored collection. With a cache and
// a store that exposes revisions, results are memoized per document
// revision, so writes by other processes are never served stale. Keys that
// depend on "today" embed the day.
func view[T any](ctx context.Context, s *LedgerService, key string, compute func(core.Collection) (T, error)) (T, error) {
	var zero T
	if s.views == nil || s.snapshots == nil {
		c, err := s.store.Load(ctx)
		if err != nil {
			return zero, fmt.Errorf("load collection: %w", err)
		}
		return compute(c)
	}

	gen := s.views.Generation()
	snap, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return zero, fmt.Errorf("load collection: %w", err)
	}
	key += "@" + snap.Revision
	if v, ok := s.views.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	c, err := snap.Collection(ctx)
	if err != nil {
		return zero, fmt.Errorf("load collection: %w", err)
	}
	out, err := compute(c)
	if err != nil {
		return zero, err
	}
	s.views.SetIfGeneration(key, out, gen)
	return out, nil
}
