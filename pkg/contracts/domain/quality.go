package domain

// QualityReport holds the data-quality metrics of a raw table.
type QualityReport struct {
	TotalRows        int `json:"total_rows"`
	Duplicates       int `json:"duplicates"`
	MissingInvoice   int `json:"missing_invoice"`
	MissingCustomer  int `json:"missing_customer"`
	NegativeQuantity int `json:"negative_quantity"`
	ZeroPrice        int `json:"zero_price"`
	InvalidDates     int `json:"invalid_dates"`
}

// QualityMetric is a named metric value.
type QualityMetric struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Metrics returns the issue metrics in report order (total_rows excluded).
func (q QualityReport) Metrics() []QualityMetric {
	return []QualityMetric{
		{Name: "duplicates", Value: q.Duplicates},
		{Name: "missing_invoice", Value: q.MissingInvoice},
		{Name: "missing_customer", Value: q.MissingCustomer},
		{Name: "negative_quantity", Value: q.NegativeQuantity},
		{Name: "zero_price", Value: q.ZeroPrice},
		{Name: "invalid_dates", Value: q.InvalidDates},
	}
}

// Percent returns value as a percentage of the total row count.
func (q QualityReport) Percent(value int) float64 {
	if q.TotalRows == 0 {
		return 0
	}
	return float64(value) / float64(q.TotalRows) * 100
}

// StageCount records the row counts around one cleaning stage.
type StageCount struct {
	Stage             string `json:"stage"`
	RowsIn            int    `json:"rows_in"`
	RowsOut           int    `json:"rows_out"`
	CumulativeRemoved int    `json:"cumulative_removed"`
}

// TransformSummary describes what the cleaner did to a raw table.
type TransformSummary struct {
	InitialRows       int          `json:"initial_rows"`
	FinalRows         int          `json:"final_rows"`
	RowsRemoved       int          `json:"rows_removed"`
	RemovalRatio      float64      `json:"removal_ratio"`
	InvalidTimestamps int          `json:"invalid_timestamps"`
	Stages            []StageCount `json:"stages"`
}
