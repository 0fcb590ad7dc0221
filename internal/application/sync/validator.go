package syncapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/persistence"
)

// maxDanglingExamples caps the sample IDs kept per dangling column.
const maxDanglingExamples = 5

// refColumn names one foreign-key-shaped column: where it lives, which
// table its values must exist in, and what repair does with dangling
// rows. Only invoice items are deleted; an orphan line item means
// nothing without its invoice. Everything else has the reference
// cleared.
type refColumn struct {
	table            string
	column           string
	refersTo         string
	deleteOnDangling bool
}

// refColumns is every unconstrained reference the validator checks.
var refColumns = []refColumn{
	{table: "users", column: "agent_bid", refersTo: "agents"},
	{table: "customers", column: "agent_bid", refersTo: "agents"},
	{table: "customers", column: "user_bid", refersTo: "users"},
	{table: "invoices", column: "customer_bid", refersTo: "customers"},
	{table: "invoices", column: "template_bid", refersTo: "invoice_templates"},
	{table: "invoice_items", column: "invoice_bid", refersTo: "invoices", deleteOnDangling: true},
	{table: "payments", column: "invoice_bid", refersTo: "invoices"},
	{table: "seda_registrations", column: "customer_bid", refersTo: "customers"},
	{table: "seda_registrations", column: "invoice_bid", refersTo: "invoices"},
	{table: "submitted_payments", column: "invoice_bid", refersTo: "invoices"},
	{table: "submitted_payments", column: "payment_bid", refersTo: "payments"},
}

// Validator detects references to Bubble IDs that never arrived. The
// mirrored tables have no database constraints; sync order plus this
// pass is what keeps the graph consistent.
type Validator struct {
	store  *persistence.TableStore
	logger *zap.Logger
}

// NewValidator creates a relationship validator
func NewValidator(store *persistence.TableStore, logger *zap.Logger) *Validator {
	return &Validator{store: store, logger: logger}
}

// Validate checks every reference column against the in-memory ID set
// of its target table. With repair enabled, dangling references are
// cleared (or the row deleted, for invoice items).
func (v *Validator) Validate(ctx context.Context, repair bool) (*sync.ValidationReport, error) {
	idSets := make(map[string]map[string]struct{})
	for _, ref := range refColumns {
		if _, ok := idSets[ref.refersTo]; ok {
			continue
		}
		ids, err := v.store.AllBubbleIDs(ctx, ref.refersTo)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s ids: %w", ref.refersTo, err)
		}
		idSets[ref.refersTo] = ids
	}

	report := &sync.ValidationReport{}
	for _, ref := range refColumns {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		refs, err := v.store.ColumnRefs(ctx, ref.table, ref.column)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s: %w", ref.table, ref.column, err)
		}

		targets := idSets[ref.refersTo]
		var dangling []string
		var examples []string
		for _, r := range refs {
			report.Checked++
			if _, ok := targets[r.Value]; ok {
				continue
			}
			dangling = append(dangling, r.BubbleID)
			if len(examples) < maxDanglingExamples {
				examples = append(examples, r.Value)
			}
		}

		if len(dangling) == 0 {
			continue
		}
		report.Dangling += len(dangling)
		report.Columns = append(report.Columns, sync.DanglingColumns{
			Table:    ref.table,
			Column:   ref.column,
			Refers:   ref.refersTo,
			Count:    len(dangling),
			Examples: examples,
		})

		v.logger.Warn("Dangling references found",
			zap.String("table", ref.table),
			zap.String("column", ref.column),
			zap.String("refers_to", ref.refersTo),
			zap.Int("count", len(dangling)),
		)

		if !repair {
			continue
		}

		var repaired int64
		if ref.deleteOnDangling {
			repaired, err = v.store.DeleteByBubbleIDs(ctx, ref.table, dangling)
		} else {
			repaired, err = v.store.ClearColumn(ctx, ref.table, ref.column, dangling)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to repair %s.%s: %w", ref.table, ref.column, err)
		}
		report.Repaired += int(repaired)
	}

	return report, nil
}
