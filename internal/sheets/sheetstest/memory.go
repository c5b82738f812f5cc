// Package sheetstest provides an in-memory sheets.Worksheet for tests.
package sheetstest

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-sync/internal/sheets"
)

// MemoryWorksheet is an in-memory Worksheet. Cells are stored rendered with
// fmt.Sprint. Non-nil Err* fields make the matching call fail.
type MemoryWorksheet struct {
	Rows [][]string

	FindErr    error
	DeleteErr  error
	UpdateErr  error
	AppendErr  error
	ValuesErr  error
	ReplaceErr error

	// Appends counts successful AppendRows calls.
	Appends int
}

var _ sheets.Worksheet = (*MemoryWorksheet)(nil)

// Render formats a row the way MemoryWorksheet stores it.
func Render(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func (m *MemoryWorksheet) Find(ctx context.Context, key string) (int, error) {
	if m.FindErr != nil {
		return 0, m.FindErr
	}
	for i, row := range m.Rows {
		if len(row) > 0 && row[0] == key {
			return i + 1, nil
		}
	}
	return 0, sheets.ErrNotFound
}

func (m *MemoryWorksheet) DeleteRow(ctx context.Context, row int) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if row < 1 || row > len(m.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	m.Rows = append(m.Rows[:row-1], m.Rows[row:]...)
	return nil
}

func (m *MemoryWorksheet) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if row < 1 || row > len(m.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	m.Rows[row-1] = Render(values)
	return nil
}

func (m *MemoryWorksheet) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appends++
	for _, r := range rows {
		m.Rows = append(m.Rows, Render(r))
	}
	return nil
}

func (m *MemoryWorksheet) Values(ctx context.Context) ([][]string, error) {
	if m.ValuesErr != nil {
		return nil, m.ValuesErr
	}
	return m.Rows, nil
}

func (m *MemoryWorksheet) Replace(ctx context.Context, rows [][]interface{}) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.Rows = nil
	for _, r := range rows {
		m.Rows = append(m.Rows, Render(r))
	}
	return nil
}
