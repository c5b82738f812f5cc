package plaidsync

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/plaid/plaid-go/v29/plaid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// pageFromResponse converts a Plaid sync response into a SyncPage.
func pageFromResponse(resp plaid.TransactionsSyncResponse) *SyncPage {
	page := &SyncPage{
		NextCursor: resp.GetNextCursor(),
		HasMore:    resp.GetHasMore(),
	}

	for _, acc := range resp.GetAccounts() {
		page.Accounts = append(page.Accounts, Account{
			AccountID:    acc.GetAccountId(),
			Name:         acc.GetName(),
			OfficialName: acc.GetOfficialName(),
		})
	}
	for _, tx := range resp.GetAdded() {
		page.Added = append(page.Added, rawFromPlaid(tx))
	}
	for _, tx := range resp.GetModified() {
		page.Modified = append(page.Modified, rawFromPlaid(tx))
	}
	for _, removed := range resp.GetRemoved() {
		page.Removed = append(page.Removed, removed.GetTransactionId())
	}

	return page
}

func rawFromPlaid(tx plaid.Transaction) RawTransaction {
	raw := RawTransaction{
		TransactionID: tx.GetTransactionId(),
		AccountID:     tx.GetAccountId(),
		Amount:        tx.GetAmount(),
		Date:          tx.GetDate(),
		MerchantName:  tx.GetMerchantName(),
		Name:          tx.GetName(),
	}
	if pfc, ok := tx.GetPersonalFinanceCategoryOk(); ok && pfc != nil {
		raw.CategoryPrimary = pfc.GetPrimary()
		raw.CategoryDetailed = pfc.GetDetailed()
	}
	return raw
}

// ToTransaction normalizes a raw record into a ledger transaction.
// The merchant falls back to the raw name.
func ToTransaction(raw RawTransaction, accountName string) (domain.Transaction, error) {
	date, err := civil.ParseDate(raw.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: parsing date %q: %w", raw.TransactionID, raw.Date, err)
	}

	merchant := raw.MerchantName
	if merchant == "" {
		merchant = raw.Name
	}

	return domain.Transaction{
		ID:               raw.TransactionID,
		AccountName:      accountName,
		Amount:           decimal.NewFromFloat(raw.Amount),
		Date:             date,
		MerchantName:     merchant,
		CategoryPrimary:  raw.CategoryPrimary,
		CategoryDetailed: raw.CategoryDetailed,
	}, nil
}
