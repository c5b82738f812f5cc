package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	// dimensions of a worksheet created on first use
	newSheetRows    = 1000
	newSheetColumns = 20

	valueInputOption = "RAW"
	lastColumn       = "G"
)

// Spreadsheet is a handle on one Google Sheets document.
type Spreadsheet struct {
	svc *sheetsapi.Service
	id  string
}

// Open authenticates with a service-account JSON file and returns a handle
// on the spreadsheet identified by key.
func Open(ctx context.Context, credentialsFile, key string) (*Spreadsheet, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets.Open: creating service: %w", err)
	}
	return &Spreadsheet{svc: svc, id: key}, nil
}

// NewSpreadsheet wraps an existing service, e.g. one built with custom options.
func NewSpreadsheet(svc *sheetsapi.Service, key string) *Spreadsheet {
	return &Spreadsheet{svc: svc, id: key}
}

// Worksheet returns the worksheet with the given title, creating it when it
// does not exist yet.
func (s *Spreadsheet) Worksheet(ctx context.Context, title string) (*GoogleWorksheet, error) {
	doc, err := s.svc.Spreadsheets.Get(s.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("Worksheet: spreadsheet %s not found: %w", s.id, err)
		}
		return nil, fmt.Errorf("Worksheet: reading spreadsheet: %w", err)
	}

	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return s.worksheet(title, sh.Properties.SheetId), nil
		}
	}

	resp, err := s.svc.Spreadsheets.BatchUpdate(s.id, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{
					Title: title,
					GridProperties: &sheetsapi.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Worksheet: creating %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("Worksheet: creating %q: empty reply", title)
	}

	return s.worksheet(title, resp.Replies[0].AddSheet.Properties.SheetId), nil
}

func (s *Spreadsheet) worksheet(title string, sheetID int64) *GoogleWorksheet {
	return &GoogleWorksheet{svc: s.svc, spreadsheetID: s.id, title: title, sheetID: sheetID}
}

// GoogleWorksheet is the concrete implementation of Worksheet backed by the
// Sheets API. It caches the key column between lookups and keeps the cache
// in step with row deletions; appends invalidate it.
type GoogleWorksheet struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	title         string
	sheetID       int64

	keys       []string
	keysLoaded bool
}

// Ensure GoogleWorksheet implements Worksheet
var _ Worksheet = (*GoogleWorksheet)(nil)

// a1 returns an A1 range on this worksheet, quoting the title.
func (w *GoogleWorksheet) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(w.title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func (w *GoogleWorksheet) loadKeys(ctx context.Context) error {
	if w.keysLoaded {
		return nil
	}
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading key column: %w", err)
	}
	w.keys = w.keys[:0]
	for _, row := range resp.Values {
		key := ""
		if len(row) > 0 {
			key = fmt.Sprint(row[0])
		}
		w.keys = append(w.keys, key)
	}
	w.keysLoaded = true
	return nil
}

// Find implements Worksheet.
func (w *GoogleWorksheet) Find(ctx context.Context, key string) (int, error) {
	if err := w.loadKeys(ctx); err != nil {
		return 0, fmt.Errorf("Find %s: %w", key, err)
	}
	for i, k := range w.keys {
		if k == key {
			return i + 1, nil
		}
	}
	return 0, ErrNotFound
}

// DeleteRow implements Worksheet.
func (w *GoogleWorksheet) DeleteRow(ctx context.Context, row int) error {
	dimRange := &sheetsapi.DimensionRange{
		SheetId:    w.sheetID,
		Dimension:  "ROWS",
		StartIndex: int64(row - 1),
		EndIndex:   int64(row),
	}
	// the first sheet has id 0 and row 1 starts at index 0
	dimRange.ForceSendFields = []string{"SheetId", "StartIndex"}

	_, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{Range: dimRange},
		}},
	}).Context(ctx).Do()
	if err != nil {
		w.keysLoaded = false
		return fmt.Errorf("DeleteRow %d: %w", row, err)
	}

	if w.keysLoaded && row >= 1 && row <= len(w.keys) {
		w.keys = append(w.keys[:row-1], w.keys[row:]...)
	}
	return nil
}

// UpdateRow implements Worksheet.
func (w *GoogleWorksheet) UpdateRow(ctx context.Context, row int, values []interface{}) error {
	rng := w.a1(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, rng, &sheetsapi.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		w.keysLoaded = false
		return fmt.Errorf("UpdateRow %d: %w", row, err)
	}
	if w.keysLoaded && row >= 1 && row <= len(w.keys) && len(values) > 0 {
		w.keys[row-1] = fmt.Sprint(values[0])
	}
	return nil
}

// AppendRows implements Worksheet.
func (w *GoogleWorksheet) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	w.keysLoaded = false
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, w.a1("A1"), &sheetsapi.ValueRange{
		Values: rows,
	}).ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("AppendRows: %w", err)
	}
	return nil
}

// Values implements Worksheet.
func (w *GoogleWorksheet) Values(ctx context.Context) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, w.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Values: %w", err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

// Replace implements Worksheet. The rows are written and every other cell is
// cleared in a single updateCells request, so a failed call leaves the
// previous contents in place.
func (w *GoogleWorksheet) Replace(ctx context.Context, rows [][]interface{}) error {
	w.keysLoaded = false

	grid := &sheetsapi.GridRange{SheetId: w.sheetID}
	// a range with only a sheet id covers the whole sheet
	grid.ForceSendFields = []string{"SheetId"}

	data := make([]*sheetsapi.RowData, 0, len(rows))
	for _, row := range rows {
		cells := make([]*sheetsapi.CellData, 0, len(row))
		for _, v := range row {
			cells = append(cells, &sheetsapi.CellData{UserEnteredValue: cellValue(v)})
		}
		data = append(data, &sheetsapi.RowData{Values: cells})
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			UpdateCells: &sheetsapi.UpdateCellsRequest{
				Range:  grid,
				Rows:   data,
				Fields: "userEnteredValue",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("Replace: %w", err)
	}
	return nil
}

// cellValue stores v without parsing, like the RAW value input option.
func cellValue(v interface{}) *sheetsapi.ExtendedValue {
	switch x := v.(type) {
	case nil:
		return nil
	case bool:
		return &sheetsapi.ExtendedValue{BoolValue: &x}
	case float64:
		return &sheetsapi.ExtendedValue{NumberValue: &x}
	case int:
		f := float64(x)
		return &sheetsapi.ExtendedValue{NumberValue: &f}
	case int64:
		f := float64(x)
		return &sheetsapi.ExtendedValue{NumberValue: &f}
	case string:
		return &sheetsapi.ExtendedValue{StringValue: &x}
	default:
		str := fmt.Sprint(x)
		return &sheetsapi.ExtendedValue{StringValue: &str}
	}
}
