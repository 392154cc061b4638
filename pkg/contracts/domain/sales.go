package domain

import (
	"time"
)

// Gold view names as they appear in the aggregation result and in the store.
const (
	ViewSalesByCountry   = "sales_by_country"
	ViewSalesByTime      = "sales_by_time"
	ViewTopProducts      = "top_products"
	ViewCustomerSegments = "customer_segments"
)

// GoldViews lists the gold views in their canonical order.
var GoldViews = []string{
	ViewSalesByCountry,
	ViewSalesByTime,
	ViewTopProducts,
	ViewCustomerSegments,
}

// CountrySales is one row of the sales_by_country view.
type CountrySales struct {
	Country         string  `json:"country"`
	TotalOrders     int     `json:"total_orders"`
	UniqueCustomers int     `json:"unique_customers"`
	TotalQuantity   int64   `json:"total_quantity"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgOrderValue   float64 `json:"avg_order_value"`
}

// PeriodSales is one row of the sales_by_time view. AvgOrderValue is the mean
// line total within the period.
type PeriodSales struct {
	YearMonth       string  `json:"year_month"`
	TotalOrders     int     `json:"total_orders"`
	UniqueCustomers int     `json:"unique_customers"`
	TotalRevenue    float64 `json:"total_revenue"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	TotalQuantity   int64   `json:"total_quantity"`
}

// ProductSales is one row of the top_products view.
type ProductSales struct {
	StockCode           string  `json:"stock_code"`
	Description         string  `json:"description"`
	TotalQuantitySold   int64   `json:"total_quantity_sold"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalOrders         int     `json:"total_orders"`
	UniqueCustomers     int     `json:"unique_customers"`
	AvgPricePerUnit     float64 `json:"avg_price_per_unit"`
	AvgQuantityPerOrder float64 `json:"avg_quantity_per_order"`
}

// Segment is a customer value bucket.
type Segment string

const (
	SegmentLow    Segment = "Low Value"
	SegmentMedium Segment = "Medium Value"
	SegmentHigh   Segment = "High Value"
)

// CustomerSegment is one row of the customer_segments view. FirstPurchase and
// LastPurchase are zero when none of the customer's lines has a timestamp.
type CustomerSegment struct {
	CustomerID           int64     `json:"customer_id"`
	TotalOrders          int       `json:"total_orders"`
	TotalSpent           float64   `json:"total_spent"`
	TotalItems           int64     `json:"total_items"`
	FirstPurchase        time.Time `json:"first_purchase"`
	LastPurchase         time.Time `json:"last_purchase"`
	AvgOrderValue        float64   `json:"avg_order_value"`
	CustomerLifetimeDays int       `json:"customer_lifetime_days"`
	Segment              Segment   `json:"segment"`
}
