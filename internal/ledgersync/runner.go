// Package ledgersync runs one end-to-end sync: load cursors, fetch every
// credential, reconcile locally, apply to the ledger and record the run.
package ledgersync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/plaidsync"
	"github.com/dvloznov/ledger-sync/internal/reconcile"
	"github.com/dvloznov/ledger-sync/internal/sheets"
)

// RunReport describes a completed run.
type RunReport struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	LastRun    time.Time                `json:"previous_run,omitempty"`
	Fetches    []*plaidsync.FetchResult `json:"fetches"`
	Reconcile  reconcile.Result         `json:"reconcile"`
	Apply      *sheets.ApplyStats       `json:"apply"`

	// Delta is the change set as applied: deletions of missing rows are
	// dropped and modifications of missing rows appear under Added.
	Delta *domain.Delta `json:"-"`
}

// Runner sequences a run. It is not safe for concurrent use.
type Runner struct {
	dest      Destination
	fetcher   DeltaFetcher
	tokens    []string
	recorders []Recorder

	now   func() time.Time
	newID func() string
}

// NewRunner creates a Runner that syncs the given access tokens, in order,
// into dest.
func NewRunner(dest Destination, fetcher DeltaFetcher, tokens []string, recorders ...Recorder) *Runner {
	return &Runner{
		dest:      dest,
		fetcher:   fetcher,
		tokens:    tokens,
		recorders: recorders,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run performs one sync. Any error before the ledger is committed aborts the
// run and leaves the stored cursors untouched. Recorder failures are logged
// only.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     r.newID(),
		StartedAt: r.now().UTC(),
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{"run_id": report.RunID})
	ctx = logger.WithContext(ctx, log)

	log.Info().Int("credentials", len(r.tokens)).Msg("Starting ledger sync")

	state, err := r.dest.LoadCursors(ctx)
	if err != nil {
		return nil, fmt.Errorf("Run: loading cursors: %w", err)
	}
	report.LastRun = state.LastRun

	delta := domain.NewDelta()
	for i, token := range r.tokens {
		cursor := state.Cursors[domain.HashCredential(token)]

		res, err := r.fetcher.FetchDelta(ctx, token, cursor, delta)
		if err != nil {
			return nil, fmt.Errorf("Run: credential %d: %w", i+1, err)
		}
		report.Fetches = append(report.Fetches, res)
	}

	log.Info().
		Int("added", delta.Added.Len()).
		Int("modified", len(delta.Modified)).
		Int("deleted", len(delta.Deleted)).
		Msg("Fetched changes")

	report.Reconcile = reconcile.Reconcile(ctx, delta)

	stats, err := r.dest.PushDelta(ctx, delta)
	if err != nil {
		return nil, fmt.Errorf("Run: applying changes: %w", err)
	}
	report.Apply = stats
	report.Delta = delta
	report.FinishedAt = r.now().UTC()

	log.Info().
		Int("deleted", stats.Deleted).
		Int("updated", stats.Updated).
		Int("appended", stats.Appended).
		Int("delete_misses", stats.DeleteMisses).
		Int("modify_fallbacks", stats.ModifyFallbacks).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Ledger sync completed")

	for _, rec := range r.recorders {
		if err := rec.Record(logger.WithComponent(ctx, rec.Name()), report); err != nil {
			log.Error().Err(err).Str("recorder", rec.Name()).Msg("Failed to record run")
			continue
		}
		log.Debug().Str("recorder", rec.Name()).Msg("Recorded run")
	}

	return report, nil
}
