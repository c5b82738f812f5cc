package sheets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Worksheet.Find when no row carries the key.
var ErrNotFound = errors.New("row not found")

// Worksheet defines the tabular store primitives the ledger sync relies on.
// Rows are 1-based. There is no atomicity across calls.
// This interface enables mocking and testing of spreadsheet operations.
type Worksheet interface {
	// Find returns the row whose first column equals key, or ErrNotFound.
	Find(ctx context.Context, key string) (int, error)

	// DeleteRow removes a row, shifting the following rows up.
	DeleteRow(ctx context.Context, row int) error

	// UpdateRow overwrites the cells of a row starting at column A.
	UpdateRow(ctx context.Context, row int, values []interface{}) error

	// AppendRows adds rows after the last non-empty row in one call.
	AppendRows(ctx context.Context, rows [][]interface{}) error

	// Values returns every non-empty row rendered as strings.
	Values(ctx context.Context) ([][]string, error)

	// Replace makes rows, starting at A1, the only contents of the worksheet.
	// It either succeeds or leaves the worksheet unchanged.
	Replace(ctx context.Context, rows [][]interface{}) error
}
