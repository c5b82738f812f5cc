// Package plaidsync pulls incremental transaction changes from Plaid into a
// run-wide Delta.
package plaidsync

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// FetchResult summarizes what one credential contributed to the delta.
type FetchResult struct {
	CredentialHash string   `json:"credential"`
	Accounts       []string `json:"accounts"`
	Added          int      `json:"added"`
	Modified       int      `json:"modified"`
	Removed        int      `json:"removed"`
	Pages          int      `json:"pages"`
	Cursor         string   `json:"-"`
}

// Fetcher paginates the sync endpoint for one credential at a time.
type Fetcher struct {
	syncer Syncer
}

// NewFetcher creates a Fetcher backed by syncer.
func NewFetcher(syncer Syncer) *Fetcher {
	return &Fetcher{syncer: syncer}
}

// FetchDelta consumes every page available for accessToken starting at
// cursor and merges the changes into delta. The cursor for the credential is
// recorded in delta.Cursors only after the last page; on error nothing is
// recorded and the caller is expected to abort the run.
func (f *Fetcher) FetchDelta(ctx context.Context, accessToken, cursor string, delta *domain.Delta) (*FetchResult, error) {
	tokenHash := domain.HashCredential(accessToken)
	log := logger.FromContext(ctx).With().Str("credential", tokenHash).Logger()

	res := &FetchResult{CredentialHash: tokenHash}
	accounts := make(map[string]string)
	current := cursor

	if current == "" {
		log.Info().Msg("No stored cursor, starting initial sync")
	}

	for {
		page, err := f.syncer.SyncTransactions(ctx, accessToken, current)
		if err != nil {
			return nil, fmt.Errorf("FetchDelta %s: page %d: %w", tokenHash, res.Pages+1, err)
		}
		res.Pages++

		for _, acc := range page.Accounts {
			accounts[acc.AccountID] = acc.DisplayName()
		}

		for _, raw := range page.Added {
			tx, err := ToTransaction(raw, accountName(accounts, raw.AccountID))
			if err != nil {
				return nil, fmt.Errorf("FetchDelta %s: %w", tokenHash, err)
			}
			delta.Added.Put(tx)
			res.Added++
		}

		for _, raw := range page.Modified {
			tx, err := ToTransaction(raw, accountName(accounts, raw.AccountID))
			if err != nil {
				return nil, fmt.Errorf("FetchDelta %s: %w", tokenHash, err)
			}
			delta.Modified = append(delta.Modified, tx)
			res.Modified++
		}

		for _, id := range page.Removed {
			delta.Deleted.Add(id)
			res.Removed++
		}

		log.Debug().
			Int("page", res.Pages).
			Int("added", len(page.Added)).
			Int("modified", len(page.Modified)).
			Int("removed", len(page.Removed)).
			Bool("has_more", page.HasMore).
			Msg("Fetched sync page")

		current = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	delta.Cursors[tokenHash] = current
	res.Cursor = current

	for _, name := range accounts {
		res.Accounts = append(res.Accounts, name)
	}
	sort.Strings(res.Accounts)

	log.Info().
		Strs("accounts", res.Accounts).
		Int("pages", res.Pages).
		Int("added", res.Added).
		Int("modified", res.Modified).
		Int("deleted", res.Removed).
		Msg("Fetched delta")

	return res, nil
}

func accountName(accounts map[string]string, accountID string) string {
	if name, ok := accounts[accountID]; ok && name != "" {
		return name
	}
	return domain.UnknownAccount
}
