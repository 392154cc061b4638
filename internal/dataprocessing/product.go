package dataprocessing

import (
	"context"

	"github.com/shopspring/decimal"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

// DefaultTopProducts is the product count kept when none is configured.
const DefaultTopProducts = 50

// TopProducts groups validated lines by (stockCode, description), sorts the
// products by revenue, highest first, and keeps the first n. Fewer products
// than n are all returned. Lines without a description are not counted.
func TopProducts(t *table.Table, n int) ([]domain.ProductSales, error) {
	if n <= 0 {
		n = DefaultTopProducts
	}
	if err := requireColumns(t, domain.ColStockCode, domain.ColDescription, domain.ColInvoiceID,
		domain.ColCustomerID, domain.ColQuantity, domain.ColTotalPrice); err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(domain.ColStockCode, domain.ColDescription)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProductSales, len(groups))
	revenue := make([]decimal.Decimal, len(groups))
	for g, group := range groups {
		stockCode, _ := table.ToString(group.Key[0])
		description, _ := table.ToString(group.Key[1])
		qty := sumInt(t, domain.ColQuantity, group.Rows)
		orders := t.CountDistinct(domain.ColInvoiceID, group.Rows)
		revenue[g] = sumDecimal(t, domain.ColTotalPrice, group.Rows)

		avgQty := 0.0
		if orders > 0 {
			avgQty = float64(qty) / float64(orders)
		}
		out[g] = domain.ProductSales{
			StockCode:           stockCode,
			Description:         description,
			TotalQuantitySold:   qty,
			TotalRevenue:        toFloat(revenue[g]),
			TotalOrders:         orders,
			UniqueCustomers:     t.CountDistinct(domain.ColCustomerID, group.Rows),
			AvgPricePerUnit:     div(revenue[g], qty),
			AvgQuantityPerOrder: avgQty,
		}
	}

	order := revenueOrder(revenue)
	if len(order) > n {
		order = order[:n]
	}
	top := make([]domain.ProductSales, len(order))
	for k, g := range order {
		top[k] = out[g]
	}
	return top, nil
}

// ProductTable converts product rows into the top_products table.
func ProductTable(rows []domain.ProductSales) *table.Table {
	t := table.New(domain.ColStockCode, domain.ColDescription, domain.ColTotalQuantitySold,
		domain.ColTotalRevenue, domain.ColTotalOrders, domain.ColUniqueCustomers,
		domain.ColAvgPricePerUnit, domain.ColAvgQuantityPerOrder)
	for _, r := range rows {
		_ = t.AppendRow(r.StockCode, r.Description, r.TotalQuantitySold, r.TotalRevenue,
			int64(r.TotalOrders), int64(r.UniqueCustomers), r.AvgPricePerUnit, r.AvgQuantityPerOrder)
	}
	return t
}

type productAggregator struct {
	topN int
}

func (productAggregator) Name() string { return domain.ViewTopProducts }

func (a productAggregator) Aggregate(_ context.Context, t *table.Table) (*table.Table, error) {
	rows, err := TopProducts(t, a.topN)
	if err != nil {
		return nil, err
	}
	return ProductTable(rows), nil
}
