package operations

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/internal/dataprocessing"
	"retailpulse/internal/errors"
	"retailpulse/internal/shared/testutil"
	"retailpulse/internal/storage"
	"retailpulse/internal/table"
	"retailpulse/pkg/contracts/domain"
)

type extractorFunc func(ctx context.Context) (*table.Table, error)

func (f extractorFunc) Extract(ctx context.Context) (*table.Table, error) { return f(ctx) }

func staticExtractor(t *table.Table) extractorFunc {
	return func(context.Context) (*table.Table, error) { return t, nil }
}

// memStore is an in-memory TableStore. failLayers makes writes to a layer fail.
type memStore struct {
	mu         sync.Mutex
	tables     map[string]*table.Table
	failLayers map[storage.Layer]bool
}

func newMemStore(failing ...storage.Layer) *memStore {
	s := &memStore{tables: map[string]*table.Table{}, failLayers: map[storage.Layer]bool{}}
	for _, l := range failing {
		s.failLayers[l] = true
	}
	return s
}

func (s *memStore) Write(_ context.Context, t *table.Table, layer storage.Layer, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLayers[layer] {
		return "", errors.NewStorageError("disk full", nil)
	}
	key := string(layer) + "/" + name
	s.tables[key] = t
	return "mem://" + key, nil
}

func (s *memStore) ReadLatest(_ context.Context, layer storage.Layer, name string) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[string(layer)+"/"+name]
	if !ok {
		return nil, errors.NewNotFoundError(name)
	}
	return t, nil
}

func (s *memStore) List(context.Context, storage.Layer) ([]string, error) { return nil, nil }

func (s *memStore) Close() error { return nil }

func (s *memStore) has(layer storage.Layer, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[string(layer)+"/"+name]
	return ok
}

type fakeWorkbook struct {
	sheets []string
	err    error
}

func (w *fakeWorkbook) Export(_ context.Context, tables []storage.NamedTable) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	for _, nt := range tables {
		w.sheets = append(w.sheets, nt.Name)
	}
	return "reports/gold_report.xlsx", nil
}

func newTestManager(t *testing.T, ext extractorFunc, store storage.TableStore, wb WorkbookWriter, aggs ...dataprocessing.Aggregator) *Manager {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewManager(Dependencies{
		Extractor: ext,
		Cleaner:   dataprocessing.NewCleaner(dataprocessing.DefaultCleanerConfig(), logger),
		Engine:    dataprocessing.NewEngine(dataprocessing.EngineConfig{TopProducts: 50, Parallel: true}, logger, aggs...),
		Store:     store,
		Exporter:  wb,
		Logger:    logger,
	})
}

func stepStatuses(resp *RunResponse) map[string]StepStatus {
	out := make(map[string]StepStatus, len(resp.Steps))
	for _, st := range resp.Steps {
		out[st.ID] = st.Status
	}
	return out
}

func TestManager_RegistersStepsInOrder(t *testing.T) {
	m := newTestManager(t, staticExtractor(nil), newMemStore(), nil)
	assert.Equal(t,
		[]string{StepIDExtract, StepIDBronze, StepIDClean, StepIDSilver, StepIDAggregate, StepIDGold},
		m.Registry().ListIDs())
}

func TestManager_ExecuteSuccess(t *testing.T) {
	store := newMemStore()
	wb := &fakeWorkbook{}
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	m := newTestManager(t, staticExtractor(raw), store, wb)

	resp, err := m.Execute(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Succeeded())
	assert.NotEmpty(t, resp.RunID)
	assert.Empty(t, resp.Warnings)
	for id, status := range stepStatuses(resp) {
		assert.Equal(t, StepStatusCompleted, status, id)
	}

	require.NotNil(t, resp.Summary)
	assert.Equal(t, 10, resp.Summary.InitialRows)
	assert.Equal(t, 6, resp.Summary.FinalRows)
	require.NotNil(t, resp.Quality)
	assert.Equal(t, 1, resp.Quality.Duplicates)

	assert.True(t, store.has(storage.Bronze, TableRawSales))
	assert.True(t, store.has(storage.Silver, TableValidatedSales))

	require.Len(t, resp.GoldTables, 4)
	for _, view := range []string{domain.ViewSalesByCountry, domain.ViewSalesByTime, domain.ViewTopProducts, domain.ViewCustomerSegments} {
		gs := resp.GoldTables[view]
		assert.True(t, gs.Available, view)
		assert.Equal(t, "mem://gold/"+view, gs.Location)
		assert.True(t, store.has(storage.Gold, view))
	}
	assert.Equal(t, 3, resp.GoldTables[domain.ViewSalesByCountry].Rows)

	assert.Equal(t, "reports/gold_report.xlsx", resp.Report)
	assert.Len(t, wb.sheets, 4)
}

func TestManager_ExtractionFailureSkipsEverything(t *testing.T) {
	store := newMemStore()
	ext := extractorFunc(func(context.Context) (*table.Table, error) {
		return nil, errors.NewExtractionError("source unreachable", nil)
	})
	m := newTestManager(t, ext, store, nil)

	resp, err := m.Execute(context.Background())
	require.Error(t, err)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StepIDExtract, opErr.Step)
	assert.Equal(t, errors.ErrTypeExtraction, errors.TypeOf(err))

	assert.Equal(t, RunStatusFailed, resp.Status)
	assert.False(t, resp.Succeeded())
	statuses := stepStatuses(resp)
	assert.Equal(t, StepStatusFailed, statuses[StepIDExtract])
	for _, id := range []string{StepIDBronze, StepIDClean, StepIDSilver, StepIDAggregate, StepIDGold} {
		assert.Equal(t, StepStatusSkipped, statuses[id], id)
	}
	assert.Nil(t, resp.Summary)
	assert.False(t, store.has(storage.Bronze, TableRawSales))
}

func TestManager_SchemaErrorIsFatal(t *testing.T) {
	store := newMemStore()
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	cols := raw.Columns()
	var keep []string
	for _, c := range cols {
		if c != domain.ColCustomerID {
			keep = append(keep, c)
		}
	}
	partial := table.New(keep...)
	for i := 0; i < raw.Len(); i++ {
		row := make([]any, 0, len(keep))
		for _, c := range keep {
			row = append(row, raw.Value(c, i))
		}
		require.NoError(t, partial.AppendRow(row...))
	}

	m := newTestManager(t, staticExtractor(partial), store, nil)
	resp, err := m.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))

	statuses := stepStatuses(resp)
	assert.Equal(t, StepStatusCompleted, statuses[StepIDBronze])
	assert.Equal(t, StepStatusFailed, statuses[StepIDClean])
	assert.Equal(t, StepStatusSkipped, statuses[StepIDSilver])
	assert.Equal(t, StepStatusSkipped, statuses[StepIDGold])
	assert.True(t, store.has(storage.Bronze, TableRawSales))
	assert.False(t, store.has(storage.Silver, TableValidatedSales))
}

func TestManager_StorageFailuresAreWarnings(t *testing.T) {
	store := newMemStore(storage.Bronze, storage.Gold)
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	m := newTestManager(t, staticExtractor(raw), store, nil)

	resp, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())

	statuses := stepStatuses(resp)
	assert.Equal(t, StepStatusFailed, statuses[StepIDBronze])
	assert.Equal(t, StepStatusCompleted, statuses[StepIDSilver])
	assert.Equal(t, StepStatusFailed, statuses[StepIDGold])

	require.Len(t, resp.Warnings, 2)
	assert.Contains(t, resp.Warnings[0], StepIDBronze)
	assert.Contains(t, resp.Warnings[1], StepIDGold)
	assert.True(t, resp.GoldTables[domain.ViewSalesByCountry].Available)
	assert.Empty(t, resp.GoldTables[domain.ViewSalesByCountry].Location)
}

func TestManager_FailedViewIsReportedNotFatal(t *testing.T) {
	store := newMemStore()
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	broken := dataprocessing.AggregatorFunc{
		View: "broken_view",
		Fn: func(context.Context, *table.Table) (*table.Table, error) {
			return nil, fmt.Errorf("grouping column missing")
		},
	}
	aggs := append(dataprocessing.DefaultAggregators(50), broken)
	m := newTestManager(t, staticExtractor(raw), store, nil, aggs...)

	resp, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())

	gs := resp.GoldTables["broken_view"]
	assert.False(t, gs.Available)
	assert.Contains(t, gs.Error, "grouping column missing")
	assert.True(t, resp.GoldTables[domain.ViewTopProducts].Available)
	require.Len(t, resp.Warnings, 1)
	assert.False(t, store.has(storage.Gold, "broken_view"))
}

func TestManager_WorkbookFailureIsWarning(t *testing.T) {
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	m := newTestManager(t, staticExtractor(raw), newMemStore(), &fakeWorkbook{err: stderrors.New("read-only filesystem")})

	resp, err := m.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, resp.Report)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "read-only filesystem")
}

func TestManager_CancelledContext(t *testing.T) {
	raw := testutil.RawTable(t, testutil.SampleLines()...)
	m := newTestManager(t, staticExtractor(raw), newMemStore(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := m.Execute(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, RunStatusCancelled, resp.Status)
	for id, status := range stepStatuses(resp) {
		assert.Equal(t, StepStatusSkipped, status, id)
	}
}

func TestManager_StepPanicIsFatal(t *testing.T) {
	ext := extractorFunc(func(context.Context) (*table.Table, error) {
		panic("driver crashed")
	})
	m := newTestManager(t, ext, newMemStore(), nil)

	resp, err := m.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver crashed")
	assert.Equal(t, RunStatusFailed, resp.Status)
}
