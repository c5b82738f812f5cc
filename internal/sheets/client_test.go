package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// request is one call received by fakeSheetsAPI.
type request struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// fakeSheetsAPI serves the handful of Sheets REST calls GoogleWorksheet makes.
type fakeSheetsAPI struct {
	titles     map[string]int64
	values     [][]interface{}
	valueReads int
	batchErr   bool

	requests []request
	batches  []string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: string(body)})
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		f.batches = append(f.batches, string(body))
		if f.batchErr {
			http.Error(w, `{"error":{"code":400,"message":"invalid range"}}`, http.StatusBadRequest)
			return
		}

		var req sheetsapi.BatchUpdateSpreadsheetRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := sheetsapi.BatchUpdateSpreadsheetResponse{}
		for _, rq := range req.Requests {
			reply := &sheetsapi.Response{}
			if rq.AddSheet != nil {
				reply.AddSheet = &sheetsapi.AddSheetResponse{
					Properties: &sheetsapi.SheetProperties{SheetId: 42, Title: rq.AddSheet.Properties.Title},
				}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		_ = json.NewEncoder(w).Encode(resp)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		_ = json.NewEncoder(w).Encode(sheetsapi.AppendValuesResponse{})

	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
		_ = json.NewEncoder(w).Encode(sheetsapi.UpdateValuesResponse{})

	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		f.valueReads++
		_ = json.NewEncoder(w).Encode(sheetsapi.ValueRange{Values: f.values})

	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/key":
		doc := sheetsapi.Spreadsheet{}
		for title, id := range f.titles {
			doc.Sheets = append(doc.Sheets, &sheetsapi.Sheet{
				Properties: &sheetsapi.SheetProperties{SheetId: id, Title: title},
			})
		}
		_ = json.NewEncoder(w).Encode(doc)

	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

// since returns the requests received after the first n.
func (f *fakeSheetsAPI) since(n int) []request {
	return f.requests[n:]
}

func newTestSpreadsheet(t *testing.T, api *fakeSheetsAPI) *Spreadsheet {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewSpreadsheet(svc, "key")
}

func TestWorksheet_Existing(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"transactions": 7}}

	ws, err := newTestSpreadsheet(t, api).Worksheet(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("Worksheet() error = %v", err)
	}
	if ws.sheetID != 7 {
		t.Errorf("sheetID = %d, want 7", ws.sheetID)
	}
	if len(api.batches) != 0 {
		t.Errorf("unexpected batch updates: %v", api.batches)
	}
}

func TestWorksheet_CreatesMissing(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"transactions": 0}}

	ws, err := newTestSpreadsheet(t, api).Worksheet(context.Background(), "_meta")
	if err != nil {
		t.Fatalf("Worksheet() error = %v", err)
	}
	if ws.sheetID != 42 {
		t.Errorf("sheetID = %d, want 42", ws.sheetID)
	}
	if len(api.batches) != 1 {
		t.Fatalf("batch updates = %d, want 1", len(api.batches))
	}
	for _, want := range []string{`"title":"_meta"`, `"rowCount":1000`, `"columnCount":20`} {
		if !strings.Contains(api.batches[0], want) {
			t.Errorf("addSheet request %s missing %s", api.batches[0], want)
		}
	}
}

func TestGoogleWorksheet_FindAndDelete(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{
		titles:    map[string]int64{"transactions": 0},
		values:    [][]interface{}{{"t1"}, {"t2"}, {"t3"}},
	}
	ws, err := newTestSpreadsheet(t, api).Worksheet(ctx, "transactions")
	if err != nil {
		t.Fatalf("Worksheet() error = %v", err)
	}

	row, err := ws.Find(ctx, "t2")
	if err != nil || row != 2 {
		t.Fatalf("Find(t2) = %d, %v", row, err)
	}

	if err := ws.DeleteRow(ctx, row); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	for _, want := range []string{`"sheetId":0`, `"startIndex":1`, `"endIndex":2`, `"dimension":"ROWS"`} {
		if !strings.Contains(api.batches[0], want) {
			t.Errorf("deleteDimension request %s missing %s", api.batches[0], want)
		}
	}

	// later rows shift up without re-reading the column
	row, err = ws.Find(ctx, "t3")
	if err != nil || row != 2 {
		t.Errorf("Find(t3) after delete = %d, %v", row, err)
	}
	if _, err := ws.Find(ctx, "t2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(t2) after delete error = %v, want ErrNotFound", err)
	}
	if api.valueReads != 1 {
		t.Errorf("key column read %d times, want 1", api.valueReads)
	}
}

func TestGoogleWorksheet_A1(t *testing.T) {
	ws := &GoogleWorksheet{title: "Bob's sheet"}
	if got := ws.a1("A1:G1"); got != "'Bob''s sheet'!A1:G1" {
		t.Errorf("a1() = %q", got)
	}
	if got := ws.a1(""); got != "'Bob''s sheet'" {
		t.Errorf("a1(\"\") = %q", got)
	}
}

func openWorksheet(t *testing.T, api *fakeSheetsAPI, title string) *GoogleWorksheet {
	t.Helper()
	ws, err := newTestSpreadsheet(t, api).Worksheet(context.Background(), title)
	if err != nil {
		t.Fatalf("Worksheet() error = %v", err)
	}
	return ws
}

func TestGoogleWorksheet_UpdateRow(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"transactions": 0}}
	ws := openWorksheet(t, api, "transactions")
	n := len(api.requests)

	if err := ws.UpdateRow(context.Background(), 5, []interface{}{"t5", "Checking", 1.25}); err != nil {
		t.Fatalf("UpdateRow() error = %v", err)
	}

	reqs := api.since(n)
	if len(reqs) != 1 {
		t.Fatalf("requests = %+v, want 1", reqs)
	}
	got := reqs[0]
	if got.Method != http.MethodPut || got.Path != "/v4/spreadsheets/key/values/'transactions'!A5:G5" {
		t.Errorf("request = %s %s", got.Method, got.Path)
	}
	if got.Query.Get("valueInputOption") != "RAW" {
		t.Errorf("valueInputOption = %q", got.Query.Get("valueInputOption"))
	}
	if !strings.Contains(got.Body, `[["t5","Checking",1.25]]`) {
		t.Errorf("body = %s", got.Body)
	}
}

func TestGoogleWorksheet_AppendRows(t *testing.T) {
	ctx := context.Background()
	api := &fakeSheetsAPI{
		titles: map[string]int64{"transactions": 0},
		values: [][]interface{}{{"t1"}},
	}
	ws := openWorksheet(t, api, "transactions")

	if _, err := ws.Find(ctx, "t1"); err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	n := len(api.requests)

	if err := ws.AppendRows(ctx, [][]interface{}{{"t2", "Checking"}, {"t3", "Savings"}}); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}

	reqs := api.since(n)
	if len(reqs) != 1 {
		t.Fatalf("requests = %+v, want 1", reqs)
	}
	got := reqs[0]
	if got.Method != http.MethodPost || got.Path != "/v4/spreadsheets/key/values/'transactions'!A1:append" {
		t.Errorf("request = %s %s", got.Method, got.Path)
	}
	if got.Query.Get("insertDataOption") != "INSERT_ROWS" || got.Query.Get("valueInputOption") != "RAW" {
		t.Errorf("query = %v", got.Query)
	}
	if !strings.Contains(got.Body, `[["t2","Checking"],["t3","Savings"]]`) {
		t.Errorf("body = %s", got.Body)
	}

	// appended rows are only visible after re-reading the key column
	api.values = append(api.values, []interface{}{"t2"}, []interface{}{"t3"})
	if row, err := ws.Find(ctx, "t3"); err != nil || row != 3 {
		t.Errorf("Find(t3) = %d, %v", row, err)
	}
	if api.valueReads != 2 {
		t.Errorf("key column read %d times, want 2", api.valueReads)
	}
}

func TestGoogleWorksheet_Values(t *testing.T) {
	api := &fakeSheetsAPI{
		titles: map[string]int64{"_meta": 3},
		values: [][]interface{}{{"last_run_time_utc", "2024-06-01T12:00:00Z"}, {"abcd", 12.5}},
	}
	ws := openWorksheet(t, api, "_meta")
	n := len(api.requests)

	rows, err := ws.Values(context.Background())
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}

	want := [][]string{{"last_run_time_utc", "2024-06-01T12:00:00Z"}, {"abcd", "12.5"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	reqs := api.since(n)
	if len(reqs) != 1 || reqs[0].Method != http.MethodGet || reqs[0].Path != "/v4/spreadsheets/key/values/'_meta'" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestGoogleWorksheet_Replace(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"transactions": 0}}
	ws := openWorksheet(t, api, "_meta")
	n := len(api.requests)

	rows := [][]interface{}{{"last_run_time_utc", "2024-06-01T12:00:00Z"}, {"abcd", "cursor-1"}}
	if err := ws.Replace(context.Background(), rows); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	reqs := api.since(n)
	if len(reqs) != 1 {
		t.Fatalf("requests = %+v, want a single atomic call", reqs)
	}
	got := reqs[0]
	if got.Method != http.MethodPost || got.Path != "/v4/spreadsheets/key:batchUpdate" {
		t.Errorf("request = %s %s", got.Method, got.Path)
	}

	var req sheetsapi.BatchUpdateSpreadsheetRequest
	if err := json.Unmarshal([]byte(got.Body), &req); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(req.Requests) != 1 || req.Requests[0].UpdateCells == nil {
		t.Fatalf("body = %s, want one updateCells request", got.Body)
	}
	uc := req.Requests[0].UpdateCells
	if uc.Fields != "userEnteredValue" || uc.Range == nil || uc.Range.SheetId != 42 {
		t.Errorf("updateCells = fields %q range %+v", uc.Fields, uc.Range)
	}
	if uc.Range.StartRowIndex != 0 || uc.Range.EndRowIndex != 0 || uc.Range.EndColumnIndex != 0 {
		t.Errorf("range %+v should cover the whole sheet", uc.Range)
	}

	var cells [][]string
	for _, row := range uc.Rows {
		var line []string
		for _, c := range row.Values {
			line = append(line, *c.UserEnteredValue.StringValue)
		}
		cells = append(cells, line)
	}
	want := [][]string{{"last_run_time_utc", "2024-06-01T12:00:00Z"}, {"abcd", "cursor-1"}}
	if diff := cmp.Diff(want, cells); diff != "" {
		t.Errorf("cells mismatch (-want +got):\n%s", diff)
	}
}

func TestGoogleWorksheet_ReplaceFirstSheet(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"_meta": 0}}
	ws := openWorksheet(t, api, "_meta")

	if err := ws.Replace(context.Background(), nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if !strings.Contains(api.batches[0], `"sheetId":0`) {
		t.Errorf("body %s must name sheet 0 explicitly", api.batches[0])
	}
}

func TestGoogleWorksheet_ReplaceFailureSendsNothingElse(t *testing.T) {
	api := &fakeSheetsAPI{titles: map[string]int64{"_meta": 3}, batchErr: true}
	ws := openWorksheet(t, api, "_meta")
	n := len(api.requests)

	err := ws.Replace(context.Background(), [][]interface{}{{"last_run_time_utc", "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if reqs := api.since(n); len(reqs) != 1 {
		t.Errorf("requests = %+v, want only the failed batch update", reqs)
	}
}

func TestCellValue(t *testing.T) {
	if v := cellValue("abc"); v.StringValue == nil || *v.StringValue != "abc" {
		t.Errorf("string = %+v", v)
	}
	if v := cellValue(1.5); v.NumberValue == nil || *v.NumberValue != 1.5 {
		t.Errorf("float = %+v", v)
	}
	if v := cellValue(3); v.NumberValue == nil || *v.NumberValue != 3 {
		t.Errorf("int = %+v", v)
	}
	if v := cellValue(true); v.BoolValue == nil || !*v.BoolValue {
		t.Errorf("bool = %+v", v)
	}
	if v := cellValue(nil); v != nil {
		t.Errorf("nil = %+v", v)
	}
}
