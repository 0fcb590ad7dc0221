package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/domain/sync"
)

// SyncMetrics publishes sync engine metrics: run counts and durations,
// per-table row outcomes, and file migration volume.
type SyncMetrics struct {
	runsTotal     metric.Int64Counter
	runDuration   metric.Float64Histogram
	rowsTotal     metric.Int64Counter
	filesMigrated metric.Int64Counter
	fileBytes     metric.Int64Counter
	logger        *zap.Logger
}

// NewSyncMetrics creates sync metrics on the given meter provider.
func NewSyncMetrics(mp *MeterProvider, logger *zap.Logger) (*SyncMetrics, error) {
	meter := mp.Meter("solarops.sync")

	runsTotal, err := meter.Int64Counter("sync.runs.total",
		metric.WithDescription("Completed sync runs by kind and status"))
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram("sync.run.duration",
		metric.WithDescription("Sync run duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	rowsTotal, err := meter.Int64Counter("sync.rows.total",
		metric.WithDescription("Rows processed by outcome"))
	if err != nil {
		return nil, err
	}

	filesMigrated, err := meter.Int64Counter("sync.files.migrated",
		metric.WithDescription("Files migrated to local storage"))
	if err != nil {
		return nil, err
	}

	fileBytes, err := meter.Int64Counter("sync.files.bytes",
		metric.WithDescription("Bytes downloaded during file migration"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		rowsTotal:     rowsTotal,
		filesMigrated: filesMigrated,
		fileBytes:     fileBytes,
		logger:        logger,
	}, nil
}

// ObserveRun records one finished sync run.
func (m *SyncMetrics) ObserveRun(ctx context.Context, run *sync.Run) {
	if run == nil || run.FinishedAt == nil {
		return
	}

	runAttrs := metric.WithAttributes(
		attribute.String("kind", string(run.Kind)),
		attribute.String("status", string(run.Status)),
	)
	m.runsTotal.Add(ctx, 1, runAttrs)
	m.runDuration.Record(ctx, run.Duration().Seconds(), runAttrs)

	if run.Detail == nil {
		return
	}
	for _, table := range run.Detail.Tables {
		tableAttr := attribute.String("table", table.Table)
		m.rowsTotal.Add(ctx, int64(table.Created), metric.WithAttributes(tableAttr, attribute.String("outcome", "created")))
		m.rowsTotal.Add(ctx, int64(table.Updated), metric.WithAttributes(tableAttr, attribute.String("outcome", "updated")))
		m.rowsTotal.Add(ctx, int64(table.Skipped), metric.WithAttributes(tableAttr, attribute.String("outcome", "skipped")))
		m.rowsTotal.Add(ctx, int64(table.Failed), metric.WithAttributes(tableAttr, attribute.String("outcome", "failed")))
	}
	if run.Detail.Files != nil {
		m.filesMigrated.Add(ctx, int64(run.Detail.Files.Migrated))
		m.fileBytes.Add(ctx, run.Detail.Files.BytesRead)
	}
}

// Ensure SyncMetrics implements RunObserver
var _ syncapp.RunObserver = (*SyncMetrics)(nil)
