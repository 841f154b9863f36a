package budget

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/famfund/internal/model"
)

// TrendMonths is how many months of expenses the trend covers.
const TrendMonths = 6

// RunwayCap is the runway above which only "12+" is shown.
var RunwayCap = decimal.NewFromInt(12)

type CategoryTotal struct {
	Category string          `json:"category"`
	Color    string          `json:"color"`
	Amount   decimal.Decimal `json:"amount"`
}

type OwnerTotal struct {
	Owner  model.Owner     `json:"owner"`
	Amount decimal.Decimal `json:"amount"`
}

type MonthTotal struct {
	Month    string          `json:"month"`
	Expenses decimal.Decimal `json:"expenses"`
}

type CategoryUsage struct {
	Category  model.Category  `json:"category"`
	Spent     decimal.Decimal `json:"spent"`
	Percent   decimal.Decimal `json:"percent"`
	Remaining decimal.Decimal `json:"remaining"`
}

type Analytics struct {
	TotalIncome        decimal.Decimal `json:"totalIncome"`
	TotalExpenses      decimal.Decimal `json:"totalExpenses"`
	TotalBalance       decimal.Decimal `json:"totalBalance"`
	ExpensesByCategory []CategoryTotal `json:"expensesByCategory"`
	IncomeByOwner      []OwnerTotal    `json:"incomeByOwner"`
	Trend              []MonthTotal    `json:"trend"`
	CategoryUsage      []CategoryUsage `json:"categoryUsage"`
	AvgDailyExpense    decimal.Decimal `json:"avgDailyExpense"`
	AvgMonthlyExpenses decimal.Decimal `json:"avgMonthlyExpenses"`
	RunwayMonths       decimal.Decimal `json:"runwayMonths"`
	Runway             string          `json:"runway"`
}

var hundred = decimal.NewFromInt(100)

// MonthSpend sums expenses in the named category during now's calendar month.
func MonthSpend(txs []model.Transaction, category string, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == model.KindExpense && tx.Category == category && tx.InMonth(now) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// MonthExpenses sums all expenses during now's calendar month.
func MonthExpenses(txs []model.Transaction, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Kind == model.KindExpense && tx.InMonth(now) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Usage reports this month's spend against each limited category.
func Usage(st State, now time.Time) []CategoryUsage {
	var out []CategoryUsage
	for _, c := range st.Categories {
		if !c.HasLimit() {
			continue
		}
		spent := MonthSpend(st.Transactions, c.Name, now)
		out = append(out, CategoryUsage{
			Category:  c,
			Spent:     spent,
			Percent:   spent.Div(c.Limit).Mul(hundred),
			Remaining: c.Limit.Sub(spent),
		})
	}
	return out
}

// Analyze derives the analytics view from st. partners lists the individual
// owners in display order.
func Analyze(st State, partners []model.Owner, now time.Time) Analytics {
	a := Analytics{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		TotalBalance:  st.Balances.Total(),
		CategoryUsage: Usage(st, now),
	}

	byCategory := make(map[string]decimal.Decimal)
	byOwner := make(map[model.Owner]decimal.Decimal)
	byMonth := make(map[string]decimal.Decimal)
	activeMonths := make(map[string]bool)
	var earliest time.Time

	for _, tx := range st.Transactions {
		month := tx.CreatedAt.In(now.Location()).Format("2006-01")
		activeMonths[month] = true
		if earliest.IsZero() || tx.CreatedAt.Before(earliest) {
			earliest = tx.CreatedAt
		}
		switch tx.Kind {
		case model.KindIncome:
			a.TotalIncome = a.TotalIncome.Add(tx.Amount)
			byOwner[tx.Owner] = byOwner[tx.Owner].Add(tx.Amount)
		case model.KindExpense:
			a.TotalExpenses = a.TotalExpenses.Add(tx.Amount)
			byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
			byMonth[month] = byMonth[month].Add(tx.Amount)
		}
	}

	for _, c := range st.Categories {
		if amount := byCategory[c.Name]; amount.IsPositive() {
			a.ExpensesByCategory = append(a.ExpensesByCategory, CategoryTotal{Category: c.Name, Color: c.Color, Amount: amount})
		}
	}
	for _, p := range partners {
		if amount := byOwner[p]; amount.IsPositive() {
			a.IncomeByOwner = append(a.IncomeByOwner, OwnerTotal{Owner: p, Amount: amount})
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > TrendMonths {
		months = months[len(months)-TrendMonths:]
	}
	for _, m := range months {
		a.Trend = append(a.Trend, MonthTotal{Month: m, Expenses: byMonth[m]})
	}

	days := 1
	if !earliest.IsZero() {
		days = max(1, int(math.Ceil(now.Sub(earliest).Hours()/24)))
	}
	a.AvgDailyExpense = a.TotalExpenses.Div(decimal.NewFromInt(int64(days)))
	a.AvgMonthlyExpenses = a.TotalExpenses.Div(decimal.NewFromInt(int64(max(1, len(activeMonths)))))

	a.RunwayMonths = a.TotalBalance.Div(decimal.Max(a.AvgMonthlyExpenses, decimal.NewFromInt(1)))
	if a.RunwayMonths.GreaterThan(RunwayCap) {
		a.Runway = "12+"
	} else {
		a.Runway = a.RunwayMonths.StringFixed(1)
	}
	return a
}

// Analytics computes the analytics view of the current state.
func (s *Store) Analytics() Analytics {
	return Analyze(s.Snapshot(), s.local.Partners(), s.now())
}
