package http

import (
	"net/http"

	"expenses/internal/chart"
	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/report"
)

// SummaryResponse is the period totals plus display strings.
type SummaryResponse struct {
	Period core.Period `json:"period"`
	Label  string      `json:"label"`
	report.Totals
	Formatted FormattedTotals `json:"formatted"`
}

type FormattedTotals struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Balance  string `json:"balance"`
}

// handleSummary answers GET /api/summary?period=total|daily|weekly|monthly|yearly.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := core.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		BadRequestError("period must be one of total, daily, weekly, monthly, yearly").Write(w)
		return
	}
	totals, err := s.ledger.Summary(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(SummaryResponse{
		Period: p,
		Label:  p.Label(),
		Totals: totals,
		Formatted: FormattedTotals{
			Income:   totals.Income.Format(s.currency),
			Expenses: totals.Expenses.Format(s.currency),
			Balance:  totals.Balance.Format(s.currency),
		},
	}).Write(w)
}

// handleSeries answers GET /api/series?unit=day|month&last=N.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unit := report.Bucket(q.Get("unit"))
	if unit == "" {
		unit = report.ByDay
	}
	if unit != report.ByDay && unit != report.ByMonth {
		BadRequestError("unit must be day or month").Write(w)
		return
	}
	points, err := s.ledger.Series(r.Context(), unit, QueryInt(q, "last", 0, 0))
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	if points == nil {
		points = []report.Point{}
	}
	NewJSONResponse().Body(points).Write(w)
}

// handleChart answers GET /api/charts/{kind} with a ready-to-plot dataset.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, err := chart.ParseKind(r.PathValue("kind"))
	if err != nil {
		NotFoundError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	var c chart.Chart
	switch kind {
	case chart.CashFlow:
		var points []report.Point
		if points, err = s.ledger.Series(ctx, report.ByDay, 0); err == nil {
			c = chart.BuildCashFlow(points)
		}
	case chart.Monthly:
		var points []report.Point
		if points, err = s.ledger.Series(ctx, report.ByMonth, chart.MonthlyWindow); err == nil {
			c = chart.BuildMonthly(points)
		}
	case chart.Distribution:
		var expenses []report.CategoryAmount
		if expenses, err = s.ledger.Distribution(ctx, core.Expense); err == nil {
			c = chart.BuildDistribution(expenses)
		}
	case chart.Donut:
		var income, expenses []report.CategoryAmount
		if income, err = s.ledger.Distribution(ctx, core.Income); err == nil {
			if expenses, err = s.ledger.Distribution(ctx, core.Expense); err == nil {
				c = chart.BuildDonut(income, expenses)
			}
		}
	case chart.Weekly:
		weekly, werr := s.ledger.Weekly(ctx, chart.WeeklyWindow)
		if err = werr; err == nil {
			c = chart.BuildWeekly(weekly.Categories, weekly.Weeks)
		}
	}
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}
