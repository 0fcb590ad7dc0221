package syncapp

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/persistence"
)

// PageFetcher pulls one page of a remote collection. *bubble.Client
// implements it; tests substitute a stub.
type PageFetcher interface {
	FetchPage(ctx context.Context, objectType string, cursor int, since *time.Time) (*bubble.Page, error)
}

// TableSyncer pages through one remote collection and reconciles every
// record into the local mirror table.
type TableSyncer struct {
	client PageFetcher
	store  *persistence.TableStore
	logger *zap.Logger
}

// NewTableSyncer creates a table syncer
func NewTableSyncer(client PageFetcher, store *persistence.TableStore, logger *zap.Logger) *TableSyncer {
	return &TableSyncer{client: client, store: store, logger: logger}
}

// Sync mirrors one collection. A non-nil since limits the fetch to
// records modified after that time. Record-level failures (bad record,
// failed upsert) are counted and the loop continues; a fetch failure
// ends the table with whatever landed so far.
func (s *TableSyncer) Sync(ctx context.Context, desc TableDescriptor, since *time.Time) sync.TableReport {
	report := sync.TableReport{Table: string(desc.Table)}
	log := s.logger.With(zap.String("table", string(desc.Table)))

	cursor := 0
	for {
		select {
		case <-ctx.Done():
			report.Err = ctx.Err().Error()
			return report
		default:
		}

		page, err := s.client.FetchPage(ctx, desc.RemoteType, cursor, since)
		if err != nil {
			log.Error("Failed to fetch page",
				zap.Int("cursor", cursor),
				zap.Error(err),
			)
			report.Err = err.Error()
			return report
		}

		report.Fetched += len(page.Results)

		for _, rec := range page.Results {
			row, err := desc.Map(rec)
			if err != nil {
				log.Warn("Failed to map record",
					zap.String("bubble_id", rec.ID()),
					zap.Error(err),
				)
				report.Failed++
				continue
			}

			result, err := s.store.UpsertFromRemote(ctx, row, desc.NewRow())
			if err != nil {
				log.Warn("Failed to upsert record",
					zap.String("bubble_id", rec.ID()),
					zap.Error(err),
				)
				report.Failed++
				continue
			}

			switch result {
			case persistence.UpsertCreated:
				report.Created++
			case persistence.UpsertUpdated:
				report.Updated++
			case persistence.UpsertSkipped:
				report.Skipped++
			}
		}

		log.Debug("Processed page",
			zap.Int("cursor", cursor),
			zap.Int("in_page", len(page.Results)),
			zap.Int("remaining", page.Remaining),
		)

		if page.Remaining <= 0 || len(page.Results) == 0 {
			break
		}
		cursor += len(page.Results)
	}

	log.Info("Table sync finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report
}
