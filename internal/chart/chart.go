// Package chart turns report output into labelled datasets ready for a
// charting front end. Empty inputs produce a single placeholder label with
// value 1 so the chart still renders.
package chart

import (
	"fmt"
	"math"
	"strconv"

	"expenses/internal/core"
	"expenses/internal/report"
)

type Kind string

const (
	CashFlow     Kind = "cashflow"
	Monthly      Kind = "monthly"
	Distribution Kind = "distribution"
	Donut        Kind = "donut"
	Weekly       Kind = "weekly"
)

const (
	NoData     = "No data yet"
	NoExpenses = "No expenses yet"
	NoIncome   = "No income"
	NoSpending = "No expenses"
)

// MonthlyWindow and WeeklyWindow are how many buckets those charts show.
const (
	MonthlyWindow = 6
	WeeklyWindow  = 4
)

// Kinds lists every chart in display order.
func Kinds() []Kind {
	return []Kind{CashFlow, Monthly, Distribution, Donut, Weekly}
}

// ParseKind validates a chart name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart %q", s)
}

type Dataset struct {
	Label       string    `json:"label"`
	Labels      []string  `json:"labels,omitempty"`
	Data        []float64 `json:"data"`
	Colors      []string  `json:"colors,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

type Chart struct {
	Kind        Kind      `json:"kind"`
	Labels      []string  `json:"labels"`
	Datasets    []Dataset `json:"datasets"`
	Placeholder bool      `json:"placeholder"`
}

func placeholder(kind Kind, label string) Chart {
	return Chart{
		Kind:        kind,
		Labels:      []string{label},
		Datasets:    []Dataset{{Label: label, Data: []float64{1}, Colors: []string{placeholderColor}, Placeholder: true}},
		Placeholder: true,
	}
}

// BuildCashFlow charts income, expenses and net (income minus expenses) for
// each day on its own; the net is not carried over between days.
func BuildCashFlow(points []report.Point) Chart {
	if len(points) == 0 {
		return placeholder(CashFlow, NoData)
	}
	c := Chart{Kind: CashFlow, Labels: make([]string, len(points))}
	income, expenses, balance := seriesValues(points)
	for i, p := range points {
		c.Labels[i] = dayLabel(p.Key)
	}
	c.Datasets = []Dataset{
		{Label: "Income", Data: income, Colors: []string{incomeColor}},
		{Label: "Expenses", Data: expenses, Colors: []string{expenseColor}},
		{Label: "Balance", Data: balance, Colors: []string{balanceColor}},
	}
	return c
}

// BuildMonthly compares income and expenses for the given month buckets.
func BuildMonthly(points []report.Point) Chart {
	if len(points) == 0 {
		return placeholder(Monthly, NoData)
	}
	c := Chart{Kind: Monthly, Labels: make([]string, len(points))}
	income, expenses, _ := seriesValues(points)
	for i, p := range points {
		c.Labels[i] = monthLabel(p.Key)
	}
	c.Datasets = []Dataset{
		{Label: "Income", Data: income, Colors: []string{incomeColor}},
		{Label: "Expenses", Data: expenses, Colors: []string{expenseColor}},
	}
	return c
}

// BuildDistribution shows each expense category's share of spending.
func BuildDistribution(expenses []report.CategoryAmount) Chart {
	if len(expenses) == 0 {
		return placeholder(Distribution, NoExpenses)
	}
	labels, data := amounts(expenses)
	return Chart{
		Kind:     Distribution,
		Labels:   labels,
		Datasets: []Dataset{{Label: "Expenses", Labels: labels, Data: data, Colors: Palette(len(labels))}},
	}
}

// BuildDonut puts income and expense categories in two rings. Each ring
// gets its own placeholder when empty.
func BuildDonut(income, expenses []report.CategoryAmount) Chart {
	in := donutRing("Income", NoIncome, income, incomePalette, 120)
	out := donutRing("Expenses", NoSpending, expenses, expensePalette, 0)
	return Chart{
		Kind:        Donut,
		Labels:      append(append([]string{}, in.Labels...), out.Labels...),
		Datasets:    []Dataset{in, out},
		Placeholder: in.Placeholder && out.Placeholder,
	}
}

func donutRing(label, empty string, items []report.CategoryAmount, base []string, hue float64) Dataset {
	if len(items) == 0 {
		return Dataset{Label: label, Labels: []string{empty}, Data: []float64{1}, Colors: []string{placeholderColor}, Placeholder: true}
	}
	labels, data := amounts(items)
	return Dataset{Label: label, Labels: labels, Data: data, Colors: shades(base, len(labels), hue)}
}

// BuildWeekly stacks spending per expense category across rolling weeks.
func BuildWeekly(categories []string, weeks []report.Week) Chart {
	if len(categories) == 0 || len(weeks) == 0 {
		return placeholder(Weekly, NoData)
	}
	c := Chart{Kind: Weekly, Labels: make([]string, len(weeks))}
	for i, w := range weeks {
		c.Labels[i] = weekLabel(w.Start)
	}
	colors := Palette(len(categories))
	for i, name := range categories {
		data := make([]float64, len(weeks))
		for j, w := range weeks {
			data[j] = w.ByCategory[name].Float()
		}
		c.Datasets = append(c.Datasets, Dataset{Label: name, Data: data, Colors: []string{colors[i]}})
	}
	return c
}

func seriesValues(points []report.Point) (income, expenses, balance []float64) {
	income = make([]float64, len(points))
	expenses = make([]float64, len(points))
	balance = make([]float64, len(points))
	for i, p := range points {
		income[i] = p.Income.Float()
		expenses[i] = p.Expenses.Float()
		balance[i] = p.Balance.Float()
	}
	return income, expenses, balance
}

func amounts(items []report.CategoryAmount) ([]string, []float64) {
	labels := make([]string, len(items))
	data := make([]float64, len(items))
	for i, it := range items {
		labels[i] = it.Name
		data[i] = it.Amount.Float()
	}
	return labels, data
}

func dayLabel(key string) string {
	d, err := core.ParseDate(key)
	if err != nil {
		return key
	}
	return d.Format("Jan 2")
}

func monthLabel(key string) string {
	d, err := core.ParseDate(key + "-01")
	if err != nil {
		return key
	}
	return d.Format("Jan 06")
}

func weekLabel(start core.Date) string {
	end := start.AddDate(0, 0, 6)
	return start.Format("Jan 2") + " - " + strconv.Itoa(end.Day())
}

const (
	placeholderColor = "#3f3f46"
	incomeColor      = "#4ade80"
	expenseColor     = "#f87171"
	balanceColor     = "#60a5fa"
)

var basePalette = []string{
	"#4ade80", "#f87171", "#60a5fa", "#fbbf24", "#a78bfa",
	"#34d399", "#f472b6", "#818cf8", "#fb923c", "#2dd4bf",
}

var incomePalette = []string{"#4ade80", "#34d399", "#2dd4bf", "#22c55e", "#10b981", "#14b8a6"}

var expensePalette = []string{"#f87171", "#fb923c", "#fbbf24", "#ef4444", "#f97316", "#f59e0b"}

// Palette returns n distinct colors: the base palette, then hues spaced by
// the golden angle.
func Palette(n int) []string {
	out := make([]string, 0, max(n, 0))
	for i := 0; i < n; i++ {
		if i < len(basePalette) {
			out = append(out, basePalette[i])
			continue
		}
		hue := math.Mod(float64(i)*137.508, 360)
		out = append(out, hsl(hue))
	}
	return out
}

// shades extends base with hues inside a 60 degree band starting at hue.
func shades(base []string, n int, hue float64) []string {
	out := make([]string, 0, max(n, 0))
	for i := 0; i < n; i++ {
		if i < len(base) {
			out = append(out, base[i])
			continue
		}
		out = append(out, hsl(hue+float64((i*20)%60)))
	}
	return out
}

func hsl(hue float64) string {
	hue = math.Round(hue*1000) / 1000
	return "hsl(" + strconv.FormatFloat(hue, 'f', -1, 64) + ", 70%, 60%)"
}
