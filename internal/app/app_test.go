package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/config"
	"retailpulse/internal/operations"
	"retailpulse/internal/shared/testutil"
	"retailpulse/pkg/contracts/domain"
)

const sampleCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536366,22633,HAND WARMER UNION JACK,6,2010-12-01 08:28:00,1.85,,United Kingdom
C536379,D,Discount,-1,2010-12-01 09:41:00,27.5,14527,United Kingdom
536370,22728,ALARM CLOCK BAKELIKE PINK,24,2010-12-01 08:45:00,3.75,12583,France
539000,21730,GLASS STAR FROSTED T-LIGHT HOLDER,12,2011-01-05 10:00:00,4.25,12662,Germany
`

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "online_retail.csv")
	require.NoError(t, os.WriteFile(source, []byte(sampleCSV), 0o600))

	cfg := config.Default()
	cfg.Source.Location = source
	cfg.Storage.Backend = backend
	cfg.Storage.Root = filepath.Join(root, "data")
	cfg.Storage.SQLitePath = filepath.Join(root, "data", "retailpulse.db")
	cfg.Telemetry.TraceExporter = "none"
	cfg.Telemetry.MetricExporter = "prometheus"
	cfg.Server.Port = 0
	return cfg
}

func newTestApp(t *testing.T, backend string) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(testConfig(t, backend), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)
}

func TestNewApplication_CreatesLayerDirectories(t *testing.T) {
	a := newTestApp(t, "file")

	for _, dir := range []string{a.Paths.BronzeDir, a.Paths.SilverDir, a.Paths.GoldDir, a.Paths.ReportDir} {
		assert.DirExists(t, dir)
	}
	assert.NotNil(t, a.Server)
	assert.Equal(t, ":0", a.Server.Addr)
}

func TestRunPipeline_EndToEnd(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			a := newTestApp(t, backend)

			resp, err := a.RunPipeline(context.Background())
			require.NoError(t, err)
			require.True(t, resp.Succeeded(), resp.Error)
			assert.Equal(t, operations.RunStatusCompleted, resp.Status)
			assert.Empty(t, resp.Warnings)

			require.NotNil(t, resp.Summary)
			assert.Equal(t, 7, resp.Summary.InitialRows)
			assert.Greater(t, resp.Summary.FinalRows, 0)
			require.NotNil(t, resp.Quality)
			assert.Equal(t, 1, resp.Quality.Duplicates)

			for _, view := range []string{
				domain.ViewSalesByCountry,
				domain.ViewSalesByTime,
				domain.ViewTopProducts,
				domain.ViewCustomerSegments,
			} {
				status, ok := resp.GoldTables[view]
				require.True(t, ok, view)
				assert.True(t, status.Available, view)
				assert.NotEmpty(t, status.Location, view)
			}

			require.NotEmpty(t, resp.Report)
			assert.True(t, strings.HasSuffix(resp.Report, ".xlsx"))
			assert.FileExists(t, resp.Report)

			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gold/sales_by_country", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Data struct {
					Rows  []map[string]any `json:"rows"`
					Total int              `json:"total"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, 3, body.Data.Total)
			assert.Equal(t, "France", body.Data.Rows[0][domain.ColCountry])
		})
	}
}

func TestRunPipeline_WorkbookDisabled(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, "file")
	cfg.Storage.Workbook = false

	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	defer a.Close(context.Background())

	resp, err := a.RunPipeline(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Empty(t, resp.Report)
}

func TestRunPipeline_MissingSource(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := testConfig(t, "file")
	cfg.Source.Location = filepath.Join(t.TempDir(), "missing.csv")

	a, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	defer a.Close(context.Background())

	resp, err := a.RunPipeline(context.Background())
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, operations.RunStatusFailed, resp.Status)
}

func TestStartStop(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(testConfig(t, "file"), logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Start(ctx, cancel))
	assert.NoError(t, a.Stop(context.Background()))
}
