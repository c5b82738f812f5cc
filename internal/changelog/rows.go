package changelog

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

// Change operations.
const (
	OpAdd    = "add"
	OpModify = "modify"
	OpDelete = "delete"
)

// ChangeRow is one applied change in the change log table.
//
// Schema:
//
//	run_id            STRING    REQUIRED
//	seq               INTEGER   REQUIRED
//	op                STRING    REQUIRED
//	transaction_id    STRING    REQUIRED
//	account_name      STRING    NULLABLE
//	amount            NUMERIC   NULLABLE
//	transaction_date  DATE      NULLABLE
//	merchant_name     STRING    NULLABLE
//	category_primary  STRING    NULLABLE
//	category_detailed STRING    NULLABLE
//	recorded_ts       TIMESTAMP REQUIRED
type ChangeRow struct {
	RunID         string
	Seq           int // position within the run
	Op            string
	TransactionID string
	Transaction   *domain.Transaction // nil for deletions
	RecordedTS    time.Time
}

// Ensure ChangeRow implements bigquery.ValueSaver
var _ bigquery.ValueSaver = (*ChangeRow)(nil)

// Save implements bigquery.ValueSaver. The insert ID is unique per change
// within a run, so retried inserts of the same run are de-duplicated without
// collapsing repeated changes of one transaction.
func (r *ChangeRow) Save() (map[string]bigquery.Value, string, error) {
	row := map[string]bigquery.Value{
		"run_id":         r.RunID,
		"seq":            r.Seq,
		"op":             r.Op,
		"transaction_id": r.TransactionID,
		"recorded_ts":    r.RecordedTS,
	}
	if tx := r.Transaction; tx != nil {
		row["account_name"] = tx.AccountName
		row["amount"] = numeric(tx.Amount)
		row["transaction_date"] = tx.Date
		row["merchant_name"] = tx.MerchantName
		row["category_primary"] = tx.CategoryPrimary
		row["category_detailed"] = tx.CategoryDetailed
	}
	return row, fmt.Sprintf("%s:%d:%s:%s", r.RunID, r.Seq, r.Op, r.TransactionID), nil
}

// numeric converts an amount to the value BigQuery expects for NUMERIC.
func numeric(d decimal.Decimal) bigquery.Value {
	return d.Rat()
}

// Rows lists the changes of an applied delta: deletions in ID order,
// in-place updates in the order they were written, then appends. The delta
// must be the one PushDelta left behind, in which deletions of missing rows
// are already dropped and modifications of missing rows are already additions.
func Rows(runID string, delta *domain.Delta, recorded time.Time) []*ChangeRow {
	if delta == nil {
		return nil
	}

	var rows []*ChangeRow
	add := func(op, id string, tx *domain.Transaction) {
		rows = append(rows, &ChangeRow{
			RunID:         runID,
			Seq:           len(rows),
			Op:            op,
			TransactionID: id,
			Transaction:   tx,
			RecordedTS:    recorded,
		})
	}

	for _, id := range delta.Deleted.Sorted() {
		add(OpDelete, id, nil)
	}
	for _, tx := range delta.Modified {
		add(OpModify, tx.ID, &tx)
	}
	for _, tx := range delta.Added.Values() {
		add(OpAdd, tx.ID, &tx)
	}
	return rows
}
