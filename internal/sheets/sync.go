// Package sheets applies reconciled deltas to a Google Sheets ledger and
// keeps the per-credential sync cursors in a companion worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// LastRunKey labels the first row of the cursor worksheet.
const LastRunKey = "last_run_time_utc"

const meterName = "github.com/dvloznov/ledger-sync/internal/sheets"

// ApplyStats counts the row-level effects of PushDelta.
type ApplyStats struct {
	Deleted         int `json:"deleted"`
	DeleteMisses    int `json:"delete_misses"` // deletions whose row was not in the sheet
	Updated         int `json:"updated"`
	ModifyFallbacks int `json:"modify_fallbacks"` // modifications appended because their row was missing
	Appended        int `json:"appended"`
	Cursors         int `json:"cursors"`
}

// Ledger ties the transactions worksheet to the cursor worksheet.
type Ledger struct {
	transactions Worksheet
	meta         Worksheet
	lookupMisses metric.Int64Counter
	now          func() time.Time
}

// NewLedger creates a Ledger over the two worksheets. Lookup misses are
// reported through the global meter provider.
func NewLedger(transactions, meta Worksheet) *Ledger {
	return newLedger(transactions, meta, otel.GetMeterProvider())
}

func newLedger(transactions, meta Worksheet, provider metric.MeterProvider) *Ledger {
	misses, err := provider.Meter(meterName).Int64Counter(
		"ledgersync.sheets.lookup_misses",
		metric.WithDescription("Rows the destination could not find for a delete or modify"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return &Ledger{
		transactions: transactions,
		meta:         meta,
		lookupMisses: misses,
		now:          time.Now,
	}
}

// LoadCursors reads the cursor worksheet. Rows shorter than two cells are
// ignored; an unparseable last-run timestamp is logged and left zero.
func (l *Ledger) LoadCursors(ctx context.Context) (*domain.CursorState, error) {
	log := logger.FromContext(ctx)

	rows, err := l.meta.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("LoadCursors: %w", err)
	}

	state := &domain.CursorState{Cursors: make(map[string]string)}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		if row[0] == LastRunKey {
			ts, err := time.Parse(time.RFC3339Nano, row[1])
			if err != nil {
				log.Warn().Err(err).Str("value", row[1]).Msg("Ignoring unreadable last run time")
				continue
			}
			state.LastRun = ts
			continue
		}
		state.Cursors[row[0]] = row[1]
	}

	ev := log.Info().Int("cursors", len(state.Cursors))
	if !state.LastRun.IsZero() {
		ev = ev.Time("last_run", state.LastRun)
	}
	ev.Msg("Loaded cursor state")

	return state, nil
}

// PushDelta applies delta to the transactions worksheet and then saves the
// cursors. Deletions of missing rows are skipped and modifications of missing
// rows become appends; both are counted. Any write error is returned before
// the cursors are saved so the next run fetches the same changes again.
//
// On success delta describes what was written: skipped deletions are removed
// from Deleted and appended modifications are moved from Modified to Added.
func (l *Ledger) PushDelta(ctx context.Context, delta *domain.Delta) (*ApplyStats, error) {
	log := logger.FromContext(ctx)
	stats := &ApplyStats{}

	for _, id := range delta.Deleted.Sorted() {
		row, err := l.transactions.Find(ctx, id)
		if errors.Is(err, ErrNotFound) {
			delta.Deleted.Remove(id)
			stats.DeleteMisses++
			l.countMiss(ctx, "delete")
			log.Warn().Str("transaction_id", id).Msg("Transaction not found in sheet for deletion")
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("PushDelta: %w", err)
		}
		if err := l.transactions.DeleteRow(ctx, row); err != nil {
			return stats, fmt.Errorf("PushDelta: deleting %s: %w", id, err)
		}
		stats.Deleted++
		log.Info().Str("transaction_id", id).Int("row", row).Msg("Deleted transaction")
	}

	updated := delta.Modified[:0:0]
	for _, tx := range delta.Modified {
		row, err := l.transactions.Find(ctx, tx.ID)
		if errors.Is(err, ErrNotFound) {
			delta.Added.Put(tx)
			stats.ModifyFallbacks++
			l.countMiss(ctx, "modify")
			log.Info().Str("transaction_id", tx.ID).Msg("Transaction not found for modification, adding as new")
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("PushDelta: %w", err)
		}
		if err := l.transactions.UpdateRow(ctx, row, tx.Row()); err != nil {
			return stats, fmt.Errorf("PushDelta: updating %s: %w", tx.ID, err)
		}
		updated = append(updated, tx)
		stats.Updated++
		log.Info().Str("transaction_id", tx.ID).Int("row", row).Msg("Updated transaction")
	}
	delta.Modified = updated

	if delta.Added.Len() > 0 {
		added := delta.Added.Values()
		rows := make([][]interface{}, 0, len(added))
		for _, tx := range added {
			rows = append(rows, tx.Row())
		}
		if err := l.transactions.AppendRows(ctx, rows); err != nil {
			return stats, fmt.Errorf("PushDelta: appending %d rows: %w", len(rows), err)
		}
		stats.Appended = len(rows)
		log.Info().Int("count", len(rows)).Msg("Appended new transactions")
	}

	if err := l.SaveCursors(ctx, delta.Cursors); err != nil {
		return stats, fmt.Errorf("PushDelta: %w", err)
	}
	stats.Cursors = len(delta.Cursors)

	return stats, nil
}

// SaveCursors overwrites the cursor worksheet with the run timestamp and one
// row per credential hash, sorted by hash.
func (l *Ledger) SaveCursors(ctx context.Context, cursors map[string]string) error {
	hashes := make([]string, 0, len(cursors))
	for h := range cursors {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	rows := [][]interface{}{{LastRunKey, l.now().UTC().Format(time.RFC3339Nano)}}
	for _, h := range hashes {
		rows = append(rows, []interface{}{h, cursors[h]})
	}

	if err := l.meta.Replace(ctx, rows); err != nil {
		return fmt.Errorf("SaveCursors: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Int("cursors", len(cursors)).Msg("Saved cursor state")
	return nil
}

func (l *Ledger) countMiss(ctx context.Context, op string) {
	if l.lookupMisses == nil {
		return
	}
	l.lookupMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
