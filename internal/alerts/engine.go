// Package alerts evaluates category limits, goal deadlines and the month-end
// spending projection against the budget state.
package alerts

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/store"
)

// Gate is the minimum time between two runs of the same check.
const Gate = time.Hour

// Usage tiers, in percent of a category limit.
var (
	exceededAt  = decimal.NewFromInt(100)
	nearLimitAt = decimal.NewFromInt(90)
	highUsageAt = decimal.NewFromInt(75)
)

const (
	deadlineWarnDays = 7
	// projectionFromDay is the day of month after which the projection can fire.
	projectionFromDay = 15
)

var (
	deadlineWarnProgress = decimal.NewFromInt(80)
	hundred              = decimal.NewFromInt(100)
)

// Engine runs the checks in priority order, each at most once per Gate.
// Run times are kept per check and calendar month in local storage.
type Engine struct {
	local *store.LocalStore
	gate  time.Duration
}

func NewEngine(local *store.LocalStore) *Engine {
	return &Engine{local: local, gate: Gate}
}

type check struct {
	name model.Check
	eval func(budget.State, time.Time) []model.Alert
}

var checks = []check{
	{model.CheckCategoryLimits, CategoryAlerts},
	{model.CheckGoalDeadlines, GoalAlerts},
	{model.CheckProjection, ProjectionAlerts},
}

// Evaluate returns the alerts due at now. A check that ran within the gate is
// skipped; every check that runs is marked, whether or not it alerted.
func (e *Engine) Evaluate(now time.Time, st budget.State) ([]model.Alert, error) {
	var out []model.Alert
	for _, c := range checks {
		last, err := e.local.LastCheck(c.name, now)
		if err != nil {
			return out, fmt.Errorf("read %s marker: %w", c.name, err)
		}
		if !last.IsZero() && now.Sub(last) < e.gate {
			continue
		}
		out = append(out, c.eval(st, now)...)
		if err := e.local.MarkCheck(c.name, now); err != nil {
			return out, fmt.Errorf("mark %s: %w", c.name, err)
		}
	}
	return out, nil
}

// CategoryAlerts reports limited categories at or above 75% of their limit
// this month.
func CategoryAlerts(st budget.State, now time.Time) []model.Alert {
	var out []model.Alert
	for _, u := range budget.Usage(st, now) {
		pct := u.Percent.Round(1)
		a := model.Alert{
			Check:     model.CheckCategoryLimits,
			Subject:   u.Category.Name,
			Percent:   pct,
			Remaining: u.Remaining,
			At:        now,
		}
		switch {
		case u.Percent.GreaterThanOrEqual(exceededAt):
			a.Tier = model.TierExceeded
			a.Kind = model.NotifyError
			a.Overage = u.Percent.Sub(hundred).Round(1)
			a.Message = fmt.Sprintf("Limit %q exceeded by %s%% (%s of %s)",
				u.Category.Name, a.Overage.StringFixed(1), u.Spent.StringFixed(2), u.Category.Limit.StringFixed(2))
		case u.Percent.GreaterThanOrEqual(nearLimitAt):
			a.Tier = model.TierNearLimit
			a.Kind = model.NotifyWarning
			a.Message = fmt.Sprintf("Limit %q almost reached: %s%% (%s left)",
				u.Category.Name, pct.StringFixed(1), u.Remaining.StringFixed(2))
		case u.Percent.GreaterThanOrEqual(highUsageAt):
			a.Tier = model.TierHighUsage
			a.Kind = model.NotifyWarning
			a.Message = fmt.Sprintf("Used %s%% of the %q limit (%s left)",
				pct.StringFixed(1), u.Category.Name, u.Remaining.StringFixed(2))
		default:
			continue
		}
		out = append(out, a)
	}
	return out
}

// DaysLeft is the number of started days until deadline; zero or less means
// the deadline has passed.
func DaysLeft(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// GoalAlerts warns about goals under 80% within a week of their deadline and
// reports goals whose deadline passed before reaching the target.
func GoalAlerts(st budget.State, now time.Time) []model.Alert {
	var out []model.Alert
	for _, g := range st.Goals {
		if g.Deadline == nil {
			continue
		}
		days := DaysLeft(*g.Deadline, now)
		progress := g.Progress().Round(1)
		a := model.Alert{
			Check:     model.CheckGoalDeadlines,
			Subject:   g.Title,
			Percent:   progress,
			Remaining: g.Target.Sub(g.Current),
			At:        now,
		}
		switch {
		case days > 0 && days <= deadlineWarnDays && g.Progress().LessThan(deadlineWarnProgress):
			a.Tier = model.TierDeadline
			a.Kind = model.NotifyWarning
			a.Message = fmt.Sprintf("Goal %q ends in %d days. Progress: %s%%", g.Title, days, progress.StringFixed(1))
		case days <= 0 && g.Progress().LessThan(hundred):
			a.Tier = model.TierMissed
			a.Kind = model.NotifyError
			a.Message = fmt.Sprintf("Goal %q deadline has passed. Reached: %s%%", g.Title, progress.StringFixed(1))
		default:
			continue
		}
		out = append(out, a)
	}
	return out
}

// ProjectionAlerts extrapolates this month's expenses to the whole month and
// reports when the result exceeds the total balance after the 15th.
func ProjectionAlerts(st budget.State, now time.Time) []model.Alert {
	day := now.Day()
	if day <= projectionFromDay {
		return nil
	}
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()

	spent := budget.MonthExpenses(st.Transactions, now)
	projected := spent.Div(decimal.NewFromInt(int64(day))).Mul(decimal.NewFromInt(int64(daysInMonth)))
	total := st.Balances.Total()
	if !projected.GreaterThan(total) {
		return nil
	}

	over := projected.Sub(total)
	var pct decimal.Decimal
	if total.IsPositive() {
		pct = projected.Div(total).Mul(hundred).Round(1)
	}
	return []model.Alert{{
		Check:     model.CheckProjection,
		Tier:      model.TierOverspend,
		Kind:      model.NotifyError,
		Subject:   now.Format("2006-01"),
		Percent:   pct,
		Remaining: total.Sub(projected),
		Message:   fmt.Sprintf("Projected spending this month may exceed the balance by %s", over.StringFixed(2)),
		At:        now,
	}}
}
