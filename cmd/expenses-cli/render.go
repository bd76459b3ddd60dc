package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"expenses/internal/core"
	"expenses/internal/report"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bbbbbb"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
)

func typeStyle(t core.CategoryType) lipgloss.Style {
	if t == core.Income {
		return incomeStyle
	}
	return expenseStyle
}

func renderCategories(w io.Writer, c core.Collection, currency string) {
	if len(c) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No categories yet."))
		return
	}
	width := 0
	for _, cat := range c {
		width = max(width, lipgloss.Width(cat.Name))
	}
	name := lipgloss.NewStyle().Width(width + 2)
	for _, cat := range c {
		var total core.Money
		for _, tx := range cat.Transactions {
			if tx.Amount.Valid() {
				total = total.Add(tx.Amount)
			}
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top,
			name.Render(cat.Name),
			typeStyle(cat.Type).Width(9).Render(string(cat.Type)),
			mutedStyle.Width(6).Align(lipgloss.Right).Render(fmt.Sprint(len(cat.Transactions))),
			"  ",
			total.Format(currency),
		))
	}
}

func renderSummary(w io.Writer, p core.Period, t report.Totals, currency string) {
	balance := incomeStyle
	if t.Balance.Cents < 0 {
		balance = expenseStyle
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		headingStyle.Render(p.Label()),
		"",
		"Income   "+incomeStyle.Render(t.Income.Format(currency)),
		"Expenses "+expenseStyle.Render(t.Expenses.Format(currency)),
		"Balance  "+balance.Render(t.Balance.Format(currency)),
	)
	fmt.Fprintln(w, summaryStyle.Render(body))
}

func renderSeries(w io.Writer, points []report.Point, currency string) {
	if len(points) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No data available."))
		return
	}
	key := lipgloss.NewStyle().Width(12)
	cell := lipgloss.NewStyle().Width(16).Align(lipgloss.Right)
	fmt.Fprintln(w, headingStyle.Render(key.Render("period")+cell.Render("income")+cell.Render("expenses")+cell.Render("balance")))
	for _, p := range points {
		fmt.Fprintln(w, key.Render(p.Key)+
			incomeStyle.Inherit(cell).Render(p.Income.Format(currency))+
			expenseStyle.Inherit(cell).Render(p.Expenses.Format(currency))+
			cell.Render(p.Balance.Format(currency)))
	}
}

func renderRecent(w io.Writer, entries []report.Entry, currency string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No transactions yet."))
		return
	}
	for _, e := range entries {
		amount := e.Amount.Format(currency)
		if e.Type == core.Expense {
			amount = "-" + amount
		}
		fmt.Fprintln(w, strings.Join([]string{
			mutedStyle.Render(e.Date.String()),
			typeStyle(e.Type).Width(14).Align(lipgloss.Right).Render(amount),
			e.Name,
			mutedStyle.Render("(" + e.Category + ")"),
			mutedStyle.Render(e.ID),
		}, "  "))
	}
}

func renderError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("error:")+" "+err.Error())
}
