package domain

// Raw and validated transaction columns.
const (
	ColInvoiceID        = "invoiceId"
	ColStockCode        = "stockCode"
	ColDescription      = "description"
	ColQuantity         = "quantity"
	ColInvoiceTimestamp = "invoiceTimestamp"
	ColUnitPrice        = "unitPrice"
	ColCustomerID       = "customerId"
	ColCountry          = "country"
)

// Columns derived by the cleaner. They never appear in a raw table.
const (
	ColTotalPrice = "totalPrice"
	ColYear       = "year"
	ColMonth      = "month"
	ColDayOfWeek  = "dayOfWeek"
	ColHour       = "hour"
)

// Gold view columns.
const (
	ColYearMonth            = "yearMonth"
	ColTotalOrders          = "totalOrders"
	ColUniqueCustomers      = "uniqueCustomers"
	ColTotalQuantity        = "totalQuantity"
	ColTotalQuantitySold    = "totalQuantitySold"
	ColTotalRevenue         = "totalRevenue"
	ColAvgOrderValue        = "avgOrderValue"
	ColAvgPricePerUnit      = "avgPricePerUnit"
	ColAvgQuantityPerOrder  = "avgQuantityPerOrder"
	ColTotalSpent           = "totalSpent"
	ColTotalItems           = "totalItems"
	ColFirstPurchase        = "firstPurchase"
	ColLastPurchase         = "lastPurchase"
	ColCustomerLifetimeDays = "customerLifetimeDays"
	ColSegment              = "segmentLabel"
)

// RawColumns is the column contract of a raw (bronze) table.
var RawColumns = []string{
	ColInvoiceID,
	ColStockCode,
	ColDescription,
	ColQuantity,
	ColInvoiceTimestamp,
	ColUnitPrice,
	ColCustomerID,
	ColCountry,
}
