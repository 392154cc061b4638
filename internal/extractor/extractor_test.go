package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/domain"
)

var sourceHeader = []interface{}{
	"InvoiceNo", "StockCode", "Description", "Quantity",
	"InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

func writeWorkbook(t *testing.T, dir string, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &sourceHeader))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(dir, "online_retail.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

const sampleCSV = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
	"536365,85123A,WHITE HANGING HEART,6,2010-12-01 08:26:00,2.55,17850,United Kingdom\n" +
	"536366,22633,HAND WARMER,,2010-12-01 08:28:00,1.85,,United Kingdom\n"

func sourceConfig(location string) config.SourceConfig {
	return config.SourceConfig{
		Location:   location,
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

func TestExtract_Workbook(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(),
		[]interface{}{"536365", "85123A", "WHITE HANGING HEART", 6, 40513.5, 2.55, 17850, "United Kingdom"},
		[]interface{}{"536366", "22633", nil, 3, 40513.5, 1.85},
	)
	logger, _ := testutil.NewTestLogger(t)

	raw, err := New(sourceConfig(path), logger).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RawColumns, raw.Columns())
	require.Equal(t, 2, raw.Len())

	assert.Equal(t, "536365", raw.Value(domain.ColInvoiceID, 0))
	assert.Equal(t, "85123A", raw.Value(domain.ColStockCode, 0))
	assert.Equal(t, float64(6), raw.Value(domain.ColQuantity, 0))
	assert.Equal(t, 40513.5, raw.Value(domain.ColInvoiceTimestamp, 0))
	assert.Equal(t, 2.55, raw.Value(domain.ColUnitPrice, 0))
	assert.Equal(t, float64(17850), raw.Value(domain.ColCustomerID, 0))

	assert.Nil(t, raw.Value(domain.ColDescription, 1))
	assert.Nil(t, raw.Value(domain.ColCustomerID, 1))
	assert.Nil(t, raw.Value(domain.ColCountry, 1))
}

func TestExtract_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	raw, err := New(sourceConfig(path), nil).Extract(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, raw.Len())
	assert.Equal(t, "2010-12-01 08:26:00", raw.Value(domain.ColInvoiceTimestamp, 0))
	assert.Equal(t, "WHITE HANGING HEART", raw.Value(domain.ColDescription, 0))
	assert.Nil(t, raw.Value(domain.ColQuantity, 1))
	assert.Nil(t, raw.Value(domain.ColCustomerID, 1))
}

func TestExtract_CorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retail.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o600))

	_, err := New(sourceConfig(path), nil).Extract(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeExtraction, errors.TypeOf(err))
	assert.Contains(t, err.Error(), string(errors.ErrTypeParsing))
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		location string
	}{
		{name: "missing file", location: filepath.Join(t.TempDir(), "absent.xlsx")},
		{name: "unsupported extension", location: "retail.parquet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(sourceConfig(tt.location), nil).Extract(context.Background())
			require.Error(t, err)
			assert.Equal(t, errors.ErrTypeExtraction, errors.TypeOf(err))
		})
	}
}

func TestExtract_DownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	logger, logs := testutil.NewTestLogger(t)
	raw, err := New(sourceConfig(srv.URL+"/files/retail.csv"), logger).Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, raw.Len())
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, logs.ContainsMessage("download failed, retrying"))
}

func TestExtract_DownloadGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(sourceConfig(srv.URL+"/retail.csv"), nil).Extract(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeExtraction, errors.TypeOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestExtract_DownloadClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(sourceConfig(srv.URL+"/retail.xlsx"), nil).Extract(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, err.Error(), "404")
}

func TestExtract_DownloadHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := sourceConfig(srv.URL + "/retail.csv")
	cfg.RetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(cfg, nil).Extract(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		column string
		in     string
		want   any
	}{
		{domain.ColStockCode, "00123", "00123"},
		{domain.ColStockCode, "1E5", "1E5"},
		{domain.ColInvoiceID, "536365", "536365"},
		{domain.ColDescription, "NaN", "NaN"},
		{domain.ColDescription, "  ", nil},
		{domain.ColQuantity, "6", 6.0},
		{domain.ColUnitPrice, " 2.55 ", 2.55},
		{domain.ColUnitPrice, "NaN", "NaN"},
		{domain.ColCustomerID, "Inf", "Inf"},
		{domain.ColInvoiceTimestamp, "40513.5", 40513.5},
		{domain.ColInvoiceTimestamp, "2010-12-01 08:26:00", "2010-12-01 08:26:00"},
	}
	for _, tt := range tests {
		t.Run(tt.column+"/"+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCell(tt.column, tt.in))
		})
	}
}

func TestCanonicalColumn(t *testing.T) {
	tests := map[string]string{
		"InvoiceNo":       domain.ColInvoiceID,
		" invoice_no ":    domain.ColInvoiceID,
		"Invoice":         domain.ColInvoiceID,
		"InvoiceDate":     domain.ColInvoiceTimestamp,
		"Customer ID":     domain.ColCustomerID,
		"Price":           domain.ColUnitPrice,
		"UNITPRICE":       domain.ColUnitPrice,
		"country":         domain.ColCountry,
		"Warehouse":       "Warehouse",
		"\ufeffInvoiceNo": domain.ColInvoiceID,
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalColumn(in), in)
	}
}

func TestCanonicalHeaders_DisambiguatesRepeats(t *testing.T) {
	got := canonicalHeaders([]string{"Country", "country", "", "Notes"})
	assert.Equal(t, []string{"country", "country_1", "column_3", "Notes"}, got)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("https://example.com/data/Online%20Retail.xlsx?raw=1")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)

	f, err = DetectFormat(strings.ToUpper("/tmp/retail.csv"))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = DetectFormat("retail.json")
	assert.Error(t, err)
}
