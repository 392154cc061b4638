package dataprocessing

import (
	"context"
	"fmt"
	"sort"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// PeriodKey formats the YYYY-MM period of a line. It fails when year or month
// is null.
func PeriodKey(year, month any) (string, bool) {
	y, okY := table.ToInt(year)
	m, okM := table.ToInt(month)
	if !okY || !okM {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d", y, m), true
}

// SalesByTime groups validated lines by calendar month in ascending order.
// AvgOrderValue is the mean line total of the month. Lines without a
// timestamp have no period and are not counted.
func SalesByTime(t *table.Table) ([]domain.PeriodSales, error) {
	if err := requireColumns(t, domain.ColYear, domain.ColMonth, domain.ColInvoiceID,
		domain.ColCustomerID, domain.ColQuantity, domain.ColTotalPrice); err != nil {
		return nil, err
	}

	keys := make([]any, t.Len())
	for i := range keys {
		if k, ok := PeriodKey(t.Value(domain.ColYear, i), t.Value(domain.ColMonth, i)); ok {
			keys[i] = k
		}
	}
	// Group on a side table so the shared validated table is never modified.
	keyed := table.New()
	if err := keyed.SetColumn(domain.ColYearMonth, keys); err != nil {
		return nil, err
	}
	groups, err := keyed.GroupBy(domain.ColYearMonth)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PeriodSales, 0, len(groups))
	for _, group := range groups {
		revenue := sumDecimal(t, domain.ColTotalPrice, group.Rows)
		out = append(out, domain.PeriodSales{
			YearMonth:       group.Key[0].(string),
			TotalOrders:     t.CountDistinct(domain.ColInvoiceID, group.Rows),
			UniqueCustomers: t.CountDistinct(domain.ColCustomerID, group.Rows),
			TotalRevenue:    toFloat(revenue),
			AvgOrderValue:   div(revenue, int64(len(group.Rows))),
			TotalQuantity:   sumInt(t, domain.ColQuantity, group.Rows),
		})
	}

	sort.Slice(out, func(a, b int) bool { return out[a].YearMonth < out[b].YearMonth })
	return out, nil
}

// PeriodTable converts period rows into the sales_by_time table.
func PeriodTable(rows []domain.PeriodSales) *table.Table {
	t := table.New(domain.ColYearMonth, domain.ColTotalOrders, domain.ColUniqueCustomers,
		domain.ColTotalRevenue, domain.ColAvgOrderValue, domain.ColTotalQuantity)
	for _, r := range rows {
		_ = t.AppendRow(r.YearMonth, int64(r.TotalOrders), int64(r.UniqueCustomers),
			r.TotalRevenue, r.AvgOrderValue, r.TotalQuantity)
	}
	return t
}

type periodAggregator struct{}

func (periodAggregator) Name() string { return domain.ViewSalesByTime }

func (periodAggregator) Aggregate(_ context.Context, t *table.Table) (*table.Table, error) {
	rows, err := SalesByTime(t)
	if err != nil {
		return nil, err
	}
	return PeriodTable(rows), nil
}
