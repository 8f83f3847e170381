package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finreport/internal/core"
)

// Dimension selects the attribute records are grouped by.
type Dimension string

const (
	DimensionCategory      Dimension = "category"
	DimensionPaymentMethod Dimension = "payment_method"
)

// ParseDimension maps user input onto a grouping dimension.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "category", "type":
		return DimensionCategory, nil
	case "payment_method", "paymentmethod", "method":
		return DimensionPaymentMethod, nil
	default:
		return "", fmt.Errorf("unknown dimension %q", s)
	}
}

// Item is one record inside a CategoryGroup.
type Item struct {
	ID            string             `json:"id"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          string             `json:"date"`
	Category      string             `json:"category"`
	PaymentMethod string             `json:"payment_method"`
	PaymentStatus core.PaymentStatus `json:"payment_status,omitempty"`
	JobID         *string            `json:"job_id,omitempty"`
	Description   string             `json:"description,omitempty"`

	at    time.Time
	dated bool
}

// CategoryGroup is the drill-down of the records sharing one dimension value.
// PaidAmount + UnpaidAmount always equals TotalAmount.
type CategoryGroup struct {
	Name         string          `json:"name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	UnpaidAmount decimal.Decimal `json:"unpaid_amount"`
	TotalCount   int             `json:"total_count"`
	PaidCount    int             `json:"paid_count"`
	UnpaidCount  int             `json:"unpaid_count"`
	Items        []Item          `json:"items"`
}

func (g *CategoryGroup) add(it Item, paid bool) {
	g.TotalAmount = g.TotalAmount.Add(it.Amount)
	g.TotalCount++
	if paid {
		g.PaidAmount = g.PaidAmount.Add(it.Amount)
		g.PaidCount++
	} else {
		g.UnpaidAmount = g.UnpaidAmount.Add(it.Amount)
		g.UnpaidCount++
	}
	g.Items = append(g.Items, it)
}

// GroupExpenses groups expenses by the given dimension. Only expenses with an
// explicit paid status count towards the paid split.
func GroupExpenses(expenses []core.Expense, dim Dimension, loc *time.Location) []CategoryGroup {
	g := newGrouper(loc)
	for _, e := range expenses {
		name := e.Category
		if dim == DimensionPaymentMethod {
			name = e.PaymentMethod
		}
		desc := e.Supplier
		if desc == "" {
			desc = e.Notes
		}
		g.add(name, Item{
			ID:            e.ID,
			Amount:        e.Amount,
			Date:          e.Date,
			Category:      e.Category,
			PaymentMethod: e.PaymentMethod,
			PaymentStatus: e.PaymentStatus,
			JobID:         e.JobID,
			Description:   desc,
		}, e.PaymentStatus.IsPaid())
	}
	return g.groups()
}

// GroupIncomes groups incomes by the given dimension. Incomes carry no
// payment status and are always counted as paid.
func GroupIncomes(incomes []core.Income, dim Dimension, loc *time.Location) []CategoryGroup {
	g := newGrouper(loc)
	for _, i := range incomes {
		name := i.Category
		if dim == DimensionPaymentMethod {
			name = i.PaymentMethod
		}
		g.add(name, Item{
			ID:            i.ID,
			Amount:        i.Amount,
			Date:          i.Date,
			Category:      i.Category,
			PaymentMethod: i.PaymentMethod,
			JobID:         i.JobID,
			Description:   i.Notes,
		}, true)
	}
	return g.groups()
}

// GroupTotal sums TotalAmount over groups.
func GroupTotal(groups []CategoryGroup) decimal.Decimal {
	total := decimal.Zero
	for _, g := range groups {
		total = total.Add(g.TotalAmount)
	}
	return total
}

type grouper struct {
	loc    *time.Location
	byName map[string]*CategoryGroup
}

func newGrouper(loc *time.Location) *grouper {
	return &grouper{loc: loc, byName: make(map[string]*CategoryGroup)}
}

func (g *grouper) add(name string, it Item, paid bool) {
	if t, err := core.ParseDate(it.Date, g.loc); err == nil {
		it.at, it.dated = t, true
	}
	grp, ok := g.byName[name]
	if !ok {
		grp = &CategoryGroup{
			Name:         name,
			TotalAmount:  decimal.Zero,
			PaidAmount:   decimal.Zero,
			UnpaidAmount: decimal.Zero,
		}
		g.byName[name] = grp
	}
	grp.add(it, paid)
}

// groups returns the groups ordered by total descending, then name. Items
// are ordered newest first; undated items go last.
func (g *grouper) groups() []CategoryGroup {
	out := make([]CategoryGroup, 0, len(g.byName))
	for _, grp := range g.byName {
		sort.SliceStable(grp.Items, func(i, j int) bool {
			a, b := grp.Items[i], grp.Items[j]
			if a.dated != b.dated {
				return a.dated
			}
			if a.dated && !a.at.Equal(b.at) {
				return a.at.After(b.at)
			}
			return a.ID < b.ID
		})
		out = append(out, *grp)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}
