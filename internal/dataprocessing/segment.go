package dataprocessing

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

var (
	lowValueCeiling    = decimal.NewFromInt(1000)
	mediumValueCeiling = decimal.NewFromInt(5000)
)

// SegmentFor buckets a lifetime spend: [0,1000] low, (1000,5000] medium,
// above 5000 high.
func SegmentFor(spent decimal.Decimal) domain.Segment {
	switch {
	case spent.LessThanOrEqual(lowValueCeiling):
		return domain.SegmentLow
	case spent.LessThanOrEqual(mediumValueCeiling):
		return domain.SegmentMedium
	default:
		return domain.SegmentHigh
	}
}

// CustomerSegments summarizes validated lines per customer, ordered by
// customer id.
func CustomerSegments(t *table.Table) ([]domain.CustomerSegment, error) {
	if err := requireColumns(t, domain.ColCustomerID, domain.ColInvoiceID, domain.ColTotalPrice,
		domain.ColQuantity, domain.ColInvoiceTimestamp); err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(domain.ColCustomerID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.CustomerSegment, 0, len(groups))
	for _, group := range groups {
		id, _ := table.ToInt(group.Key[0])
		orders := t.CountDistinct(domain.ColInvoiceID, group.Rows)
		spent := sumDecimal(t, domain.ColTotalPrice, group.Rows)
		first, last, _ := timeRange(t, domain.ColInvoiceTimestamp, group.Rows)

		out = append(out, domain.CustomerSegment{
			CustomerID:           id,
			TotalOrders:          orders,
			TotalSpent:           toFloat(spent),
			TotalItems:           sumInt(t, domain.ColQuantity, group.Rows),
			FirstPurchase:        first,
			LastPurchase:         last,
			AvgOrderValue:        div(spent, int64(orders)),
			CustomerLifetimeDays: int(last.Sub(first) / (24 * time.Hour)),
			Segment:              SegmentFor(spent),
		})
	}

	sort.Slice(out, func(a, b int) bool { return out[a].CustomerID < out[b].CustomerID })
	return out, nil
}

// SegmentTable converts customer rows into the customer_segments table.
func SegmentTable(rows []domain.CustomerSegment) *table.Table {
	t := table.New(domain.ColCustomerID, domain.ColTotalOrders, domain.ColTotalSpent,
		domain.ColTotalItems, domain.ColFirstPurchase, domain.ColLastPurchase,
		domain.ColAvgOrderValue, domain.ColCustomerLifetimeDays, domain.ColSegment)
	for _, r := range rows {
		_ = t.AppendRow(r.CustomerID, int64(r.TotalOrders), r.TotalSpent, r.TotalItems,
			timeOrNull(r.FirstPurchase), timeOrNull(r.LastPurchase), r.AvgOrderValue,
			int64(r.CustomerLifetimeDays), string(r.Segment))
	}
	return t
}

type segmentAggregator struct{}

func (segmentAggregator) Name() string { return domain.ViewCustomerSegments }

func (segmentAggregator) Aggregate(_ context.Context, t *table.Table) (*table.Table, error) {
	rows, err := CustomerSegments(t)
	if err != nil {
		return nil, err
	}
	return SegmentTable(rows), nil
}
