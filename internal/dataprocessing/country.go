package dataprocessing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// SalesByCountry groups validated lines by country and sorts the groups by
// revenue, highest first. Lines without a country are not counted.
func SalesByCountry(t *table.Table) ([]domain.CountrySales, error) {
	if err := requireColumns(t, domain.ColCountry, domain.ColInvoiceID, domain.ColCustomerID,
		domain.ColQuantity, domain.ColTotalPrice); err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(domain.ColCountry)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CountrySales, len(groups))
	revenue := make([]decimal.Decimal, len(groups))
	for g, group := range groups {
		country, _ := table.ToString(group.Key[0])
		orders := t.CountDistinct(domain.ColInvoiceID, group.Rows)
		revenue[g] = sumDecimal(t, domain.ColTotalPrice, group.Rows)
		out[g] = domain.CountrySales{
			Country:         country,
			TotalOrders:     orders,
			UniqueCustomers: t.CountDistinct(domain.ColCustomerID, group.Rows),
			TotalQuantity:   sumInt(t, domain.ColQuantity, group.Rows),
			TotalRevenue:    toFloat(revenue[g]),
			AvgOrderValue:   div(revenue[g], int64(orders)),
		}
	}

	order := revenueOrder(revenue)
	sorted := make([]domain.CountrySales, len(out))
	for k, g := range order {
		sorted[k] = out[g]
	}
	return sorted, nil
}

// CountryTable converts country rows into the sales_by_country table.
func CountryTable(rows []domain.CountrySales) *table.Table {
	t := table.New(domain.ColCountry, domain.ColTotalOrders, domain.ColUniqueCustomers,
		domain.ColTotalQuantity, domain.ColTotalRevenue, domain.ColAvgOrderValue)
	for _, r := range rows {
		_ = t.AppendRow(r.Country, int64(r.TotalOrders), int64(r.UniqueCustomers),
			r.TotalQuantity, r.TotalRevenue, r.AvgOrderValue)
	}
	return t
}

// revenueOrder returns group positions sorted by revenue descending. Ties keep
// first-appearance order.
func revenueOrder(revenue []decimal.Decimal) []int {
	order := make([]int, len(revenue))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return revenue[order[a]].GreaterThan(revenue[order[b]])
	})
	return order
}

type countryAggregator struct{}

func (countryAggregator) Name() string { return domain.ViewSalesByCountry }

func (countryAggregator) Aggregate(_ context.Context, t *table.Table) (*table.Table, error) {
	rows, err := SalesByCountry(t)
	if err != nil {
		return nil, err
	}
	return CountryTable(rows), nil
}
