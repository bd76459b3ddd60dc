// Package core provides the ledger's data model and its parsing rules.
//
// This file implements the Strategy Pattern for period membership.
// Each period (total, daily, weekly, monthly, yearly) has its own checker
// that decides whether a transaction date falls inside the window around
// "now".

package core

import (
	"strings"
	"time"
)

const (
	Total   Period = "total"
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// Period is a user-selected time window for summary totals.
type Period string

// PeriodChecker is the strategy interface for period membership.
type PeriodChecker interface {
	// Contains reports whether d falls inside the period relative to now.
	// The calendar day of now is taken in now's location.
	Contains(d Date, now time.Time) bool
}

// TotalChecker includes every date.
type TotalChecker struct{}

func (TotalChecker) Contains(Date, time.Time) bool { return true }

// DailyChecker matches the same calendar day as now.
type DailyChecker struct{}

func (DailyChecker) Contains(d Date, now time.Time) bool {
	return d.Equal(DateOf(now).Time)
}

// WeeklyChecker matches from the most recent Sunday through today.
type WeeklyChecker struct{}

func (WeeklyChecker) Contains(d Date, now time.Time) bool {
	today := DateOf(now)
	start := today.AddDate(0, 0, -int(now.Weekday()))
	return !d.Before(start) && !d.After(today)
}

// MonthlyChecker matches the same calendar month and year.
type MonthlyChecker struct{}

func (MonthlyChecker) Contains(d Date, now time.Time) bool {
	return d.Year() == now.Year() && d.Month() == now.Month()
}

// YearlyChecker matches the same calendar year.
type YearlyChecker struct{}

func (YearlyChecker) Contains(d Date, now time.Time) bool {
	return d.Year() == now.Year()
}

var checkers = map[Period]PeriodChecker{
	Total:   TotalChecker{},
	Daily:   DailyChecker{},
	Weekly:  WeeklyChecker{},
	Monthly: MonthlyChecker{},
	Yearly:  YearlyChecker{},
}

// Periods lists every supported period in display order.
func Periods() []Period {
	return []Period{Total, Daily, Weekly, Monthly, Yearly}
}

// ParsePeriod accepts a period name in any case; empty means Total.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Total, nil
	}
	p := Period(s)
	if _, ok := checkers[p]; !ok {
		return "", ErrInvalidPeriod
	}
	return p, nil
}

// Checker returns the membership strategy for p.
func (p Period) Checker() (PeriodChecker, error) {
	c, ok := checkers[p]
	if !ok {
		return nil, ErrInvalidPeriod
	}
	return c, nil
}

// Label is the heading shown next to period totals.
func (p Period) Label() string {
	switch p {
	case Daily:
		return "Today"
	case Weekly:
		return "This Week"
	case Monthly:
		return "This Month"
	case Yearly:
		return "This Year"
	default:
		return "Total"
	}
}
