package domain

import (
	"crypto/sha256"
	"encoding/hex"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// UnknownAccount is used when a transaction references an account the
// aggregator did not describe.
const UnknownAccount = "Unknown"

// ColumnCount is the number of columns in a ledger row.
const ColumnCount = 7

// Transaction represents one normalized transaction as stored in the ledger.
// Values are never mutated; a later modification replaces the whole value.
type Transaction struct {
	// ID is the aggregator transaction_id, globally unique.
	ID string `json:"transaction_id"`

	// AccountName is the official account name, the display name or UnknownAccount.
	AccountName string `json:"account_name"`

	// Amount is positive when money leaves the account (aggregator convention).
	Amount decimal.Decimal `json:"amount"`

	// Date is the posted or authorized date.
	Date civil.Date `json:"date"`

	// MerchantName falls back to the raw transaction name.
	MerchantName     string `json:"merchant_name"`
	CategoryPrimary  string `json:"category_primary"`
	CategoryDetailed string `json:"category_detailed"`
}

// Row renders the transaction as a ledger row in column order:
// transaction_id, account_name, amount, date, merchant_name,
// category_primary, category_detailed.
func (t Transaction) Row() []interface{} {
	return []interface{}{
		t.ID,
		t.AccountName,
		t.Amount.InexactFloat64(),
		t.Date.String(),
		t.MerchantName,
		t.CategoryPrimary,
		t.CategoryDetailed,
	}
}

// HashCredential returns the identifier under which a credential's cursor
// is persisted: the first 16 hex characters of its SHA-256.
func HashCredential(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}
