package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cardash/internal/dataprocessing"
	"cardash/internal/infrastructure"
	"cardash/pkg/contracts/domain"
)

// DatasetLoader reads and cleans a transaction export
type DatasetLoader interface {
	Load(ctx context.Context, path string) (*dataprocessing.LoadResult, error)
}

// Dataset is an immutable snapshot of the cleaned transaction records
type Dataset struct {
	source   string
	loadedAt time.Time
	records  []domain.TransactionRecord
	report   domain.CleanReport
}

// NewDataset wraps records in a snapshot. The slice is copied.
func NewDataset(source string, records []domain.TransactionRecord, report domain.CleanReport) *Dataset {
	return &Dataset{
		source:   source,
		loadedAt: time.Now(),
		records:  slices.Clone(records),
		report:   report,
	}
}

// Records returns a copy of the snapshot's records
func (d *Dataset) Records() []domain.TransactionRecord {
	return slices.Clone(d.records)
}

// Len returns the number of records
func (d *Dataset) Len() int {
	return len(d.records)
}

// Info describes the snapshot
func (d *Dataset) Info() DatasetInfo {
	info := DatasetInfo{
		Source:   d.source,
		LoadedAt: d.loadedAt,
		Records:  len(d.records),
		Report:   d.report,
	}
	for i, r := range d.records {
		if i == 0 || r.TransactionDate.Before(info.FirstDate) {
			info.FirstDate = r.TransactionDate
		}
		if r.TransactionDate.After(info.LastDate) {
			info.LastDate = r.TransactionDate
		}
	}
	return info
}

// DatasetInfo is the provenance block attached to every view
type DatasetInfo struct {
	Source    string             `json:"source"`
	LoadedAt  time.Time          `json:"loaded_at"`
	Records   int                `json:"records"`
	FirstDate time.Time          `json:"first_date"`
	LastDate  time.Time          `json:"last_date"`
	Report    domain.CleanReport `json:"clean_report"`
}

// DatasetCache loads the export once per process and hands out the same
// snapshot afterwards. Concurrent first calls share a single load. A failed
// load is not remembered, so the next call retries.
type DatasetCache struct {
	path    string
	loader  DatasetLoader
	metrics *infrastructure.DashboardMetrics
	logger  *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *Dataset
}

// NewDatasetCache creates a cache for the export at path. metrics may be nil.
func NewDatasetCache(path string, loader DatasetLoader, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DatasetCache {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = dataprocessing.NewLoader(logger)
	}
	return &DatasetCache{
		path:    path,
		loader:  loader,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "dataset_cache")),
	}
}

// Path returns the export location
func (c *DatasetCache) Path() string {
	return c.path
}

// Loaded reports whether a snapshot is held
func (c *DatasetCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot != nil
}

// Get returns the snapshot, loading it on first use. Load failures are
// returned wrapped in ErrDatasetUnavailable.
func (c *DatasetCache) Get(ctx context.Context) (*Dataset, error) {
	c.mu.RLock()
	snapshot := c.snapshot
	c.mu.RUnlock()
	if snapshot != nil {
		return snapshot, nil
	}

	ch := c.group.DoChan(c.path, func() (interface{}, error) {
		c.mu.RLock()
		existing := c.snapshot
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		// the shared load must not die with the first caller's request
		return c.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

func (c *DatasetCache) load(ctx context.Context) (*Dataset, error) {
	start := time.Now()

	result, err := c.loader.Load(ctx, c.path)
	if err != nil {
		infrastructure.RecordDatasetLoad(ctx, c.metrics, 0, 0, err)
		c.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("path", c.path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}

	snapshot := &Dataset{
		source:   result.Source,
		loadedAt: time.Now(),
		records:  result.Records,
		report:   result.Report,
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	infrastructure.RecordDatasetLoad(ctx, c.metrics, result.Report.Kept, result.Report.Dropped(), nil)
	c.logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", c.path),
		slog.Int("kept", result.Report.Kept),
		slog.Int("dropped", result.Report.Dropped()),
		slog.Duration("duration", time.Since(start)),
	)
	return snapshot, nil
}
