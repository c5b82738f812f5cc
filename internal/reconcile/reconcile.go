// Package reconcile collapses changes that reference rows not yet written to
// the ledger, so that a Delta describes exactly the net effect to apply.
package reconcile

import (
	"context"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// Result summarizes a reconciliation pass.
type Result struct {
	ResolvedDeletes  int `json:"resolved_deletes"`  // add+delete pairs dropped from both sides
	ResolvedModifies int `json:"resolved_modifies"` // modifications folded into pending additions
	ToAdd            int `json:"to_add"`
	ToModify         int `json:"to_modify"`
	ToDelete         int `json:"to_delete"`
}

// Reconcile mutates delta in place:
//   - an ID that is both added and deleted is removed from both;
//   - a modification of a pending addition replaces the added value and is
//     dropped from Modified, in encounter order so the last one wins;
//   - everything else is left for the destination.
//
// Afterwards Added and Deleted are disjoint and no Modified ID is in Added,
// so running it again changes nothing.
func Reconcile(ctx context.Context, delta *domain.Delta) Result {
	log := logger.FromContext(ctx)
	var res Result

	for _, id := range delta.Deleted.Sorted() {
		if delta.Added.Delete(id) {
			delta.Deleted.Remove(id)
			res.ResolvedDeletes++
			log.Debug().Str("transaction_id", id).Msg("Deleted transaction resolved locally")
		}
	}

	unresolved := delta.Modified[:0:0]
	for _, tx := range delta.Modified {
		if delta.Added.Has(tx.ID) {
			delta.Added.Put(tx)
			res.ResolvedModifies++
			log.Debug().Str("transaction_id", tx.ID).Msg("Modified transaction resolved locally")
			continue
		}
		unresolved = append(unresolved, tx)
	}
	delta.Modified = unresolved

	res.ToAdd = delta.Added.Len()
	res.ToModify = len(delta.Modified)
	res.ToDelete = len(delta.Deleted)

	log.Info().
		Int("to_add", res.ToAdd).
		Int("to_modify", res.ToModify).
		Int("to_delete", res.ToDelete).
		Int("resolved_deletes", res.ResolvedDeletes).
		Int("resolved_modifies", res.ResolvedModifies).
		Msg("Local reconciliation complete")

	return res
}
