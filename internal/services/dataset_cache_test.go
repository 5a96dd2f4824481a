package services

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cardash/internal/dataprocessing"
	"cardash/internal/shared/testutil"
	"cardash/pkg/contracts/domain"
)

// gatedLoader blocks every load until release is closed
type gatedLoader struct {
	calls   atomic.Int32
	release chan struct{}
	result  *dataprocessing.LoadResult
}

func (l *gatedLoader) Load(ctx context.Context, path string) (*dataprocessing.LoadResult, error) {
	l.calls.Add(1)
	<-l.release
	return l.result, nil
}

func sampleResult() *dataprocessing.LoadResult {
	records := []domain.TransactionRecord{
		{TransactionDate: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), CarBrand: "Toyota"},
		{TransactionDate: time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), CarBrand: "Honda"},
	}
	return &dataprocessing.LoadResult{
		Source:  "memory.csv",
		Records: records,
		Report:  domain.CleanReport{RowsRead: 3, DroppedMissing: 1, Kept: 2},
	}
}

func TestDatasetCache_LoadsSampleExport(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	path := testutil.WriteSampleDataset(t)

	cache := NewDatasetCache(path, nil, nil, logger)
	assert.False(t, cache.Loaded())

	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, cache.Loaded())
	assert.Equal(t, len(testutil.SampleRows), ds.Len())

	info := ds.Info()
	assert.Equal(t, path, info.Source)
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), info.FirstDate)
	assert.Equal(t, time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), info.LastDate)
	assert.Equal(t, len(testutil.SampleRows), info.Report.Kept)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
	testutil.AssertLogAttr(t, handler, "component", "dataset_cache")
}

func TestDatasetCache_ReturnsSameSnapshot(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("Load", mock.Anything, "export.csv").Return(sampleResult(), nil).Once()

	cache := NewDatasetCache("export.csv", loader, nil, nil)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	loader.AssertNumberOfCalls(t, "Load", 1)
}

func TestDatasetCache_ConcurrentFirstCallsShareLoad(t *testing.T) {
	loader := &gatedLoader{release: make(chan struct{}), result: sampleResult()}
	cache := NewDatasetCache("export.csv", loader, nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Dataset, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(loader.release)
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestDatasetCache_FailureIsNotCached(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	cause := errors.New("disk unplugged")

	loader := new(MockDatasetLoader)
	loader.On("Load", mock.Anything, "export.csv").Return(nil, cause).Once()
	loader.On("Load", mock.Anything, "export.csv").Return(sampleResult(), nil).Once()

	cache := NewDatasetCache("export.csv", loader, nil, logger)

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.False(t, cache.Loaded())
	assert.True(t, handler.ContainsMessage("dataset load failed"))

	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	loader.AssertExpectations(t)
}

func TestDatasetCache_MissingFile(t *testing.T) {
	cache := NewDatasetCache(filepath.Join(t.TempDir(), "absent.csv"), nil, nil, nil)

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatasetUnavailable)
	assert.ErrorIs(t, err, dataprocessing.ErrSourceNotFound)
}

func TestDatasetCache_CallerCancellation(t *testing.T) {
	loader := &gatedLoader{release: make(chan struct{}), result: sampleResult()}
	cache := NewDatasetCache("export.csv", loader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return loader.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// the abandoned load still completes for later callers
	close(loader.release)
	ds, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestDataset_RecordsAreCopied(t *testing.T) {
	src := sampleResult()
	ds := NewDataset("memory.csv", src.Records, src.Report)

	src.Records[0].CarBrand = "Changed"
	assert.Equal(t, "Toyota", ds.Records()[0].CarBrand)

	out := ds.Records()
	out[0].CarBrand = "Changed"
	assert.Equal(t, "Toyota", ds.Records()[0].CarBrand)
}
