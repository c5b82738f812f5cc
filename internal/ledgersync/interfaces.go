package ledgersync

import (
	"context"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/plaidsync"
	"github.com/dvloznov/ledger-sync/internal/sheets"
)

// Destination is the ledger a run writes to. It also owns the cursor state,
// so cursors are only advanced together with a successful apply.
type Destination interface {
	LoadCursors(ctx context.Context) (*domain.CursorState, error)
	PushDelta(ctx context.Context, delta *domain.Delta) (*sheets.ApplyStats, error)
}

// DeltaFetcher merges the changes of one credential into a run-wide delta.
type DeltaFetcher interface {
	FetchDelta(ctx context.Context, accessToken, cursor string, delta *domain.Delta) (*plaidsync.FetchResult, error)
}

// Recorder keeps a secondary record of a completed run, such as an archived
// report or an audit table. Recorders run after the ledger is committed.
type Recorder interface {
	Name() string
	Record(ctx context.Context, report *RunReport) error
}

// Ensure the concrete implementations satisfy the interfaces
var (
	_ Destination  = (*sheets.Ledger)(nil)
	_ DeltaFetcher = (*plaidsync.Fetcher)(nil)
)
