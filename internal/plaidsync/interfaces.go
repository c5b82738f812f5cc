package plaidsync

import (
	"context"
)

// Syncer defines the single aggregator operation the fetcher needs: one page
// of incremental transaction sync. An empty cursor requests the initial sync.
// This interface enables substituting the Plaid API with fakes in tests.
type Syncer interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncPage, error)
}

// SyncPage is one page returned by the incremental sync endpoint.
type SyncPage struct {
	Accounts   []Account
	Added      []RawTransaction
	Modified   []RawTransaction
	Removed    []string // transaction IDs
	NextCursor string
	HasMore    bool
}

// Account is an account description returned alongside a page.
type Account struct {
	AccountID    string
	Name         string
	OfficialName string // empty when the institution does not provide one
}

// DisplayName prefers the official name and falls back to the display name.
func (a Account) DisplayName() string {
	if a.OfficialName != "" {
		return a.OfficialName
	}
	return a.Name
}

// RawTransaction is an added or modified record in aggregator shape.
type RawTransaction struct {
	TransactionID    string
	AccountID        string
	Amount           float64
	Date             string // YYYY-MM-DD
	MerchantName     string
	Name             string
	CategoryPrimary  string
	CategoryDetailed string
}
