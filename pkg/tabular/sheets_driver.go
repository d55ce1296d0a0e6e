package tabular

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	sheetsInitialRows    = 1000
	sheetsInitialColumns = 26
)

// SheetsBackend stores each collection as a worksheet of one spreadsheet.
type SheetsBackend struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheetsBackend authenticates with a service account key file and binds
// to the given spreadsheet.
func NewSheetsBackend(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*SheetsBackend, error) {
	if spreadsheetID == "" {
		return nil, errors.New("tabular/sheets: spreadsheet id is empty")
	}

	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tabular/sheets: new service: %w", err)
	}
	return &SheetsBackend{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (b *SheetsBackend) Collection(ctx context.Context, name string) (Collection, error) {
	ss, err := b.svc.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsErr("get spreadsheet", err)
	}

	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return &sheetsCollection{b: b, title: name, sheetID: sh.Properties.SheetId}, nil
		}
	}
	return nil, fmt.Errorf("tabular/sheets: %q: %w", name, ErrCollectionNotFound)
}

func (b *SheetsBackend) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	c, err := b.Collection(ctx, name)
	if err == nil || !errors.Is(err, ErrCollectionNotFound) {
		return c, err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: name,
					GridProperties: &sheets.GridProperties{
						RowCount:    sheetsInitialRows,
						ColumnCount: sheetsInitialColumns,
					},
				},
			},
		}},
	}
	resp, err := b.svc.Spreadsheets.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, sheetsErr("add sheet", err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return nil, fmt.Errorf("tabular/sheets: add sheet %q: empty reply: %w", name, ErrUnavailable)
	}

	props := resp.Replies[0].AddSheet.Properties
	return &sheetsCollection{b: b, title: name, sheetID: props.SheetId}, nil
}

func (b *SheetsBackend) Ping(ctx context.Context) error {
	_, err := b.svc.Spreadsheets.Get(b.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return sheetsErr("ping", err)
	}
	return nil
}

func (b *SheetsBackend) Close(context.Context) error { return nil }

// ─── Collection ──────────────────────────────────────────────────────────────

type sheetsCollection struct {
	b       *SheetsBackend
	title   string
	sheetID int64
}

func (c *sheetsCollection) Name() string { return c.title }

func (c *sheetsCollection) ReadHeader(ctx context.Context) ([]string, error) {
	vr, err := c.b.svc.Spreadsheets.Values.Get(c.b.spreadsheetID, a1(c.title, "1:1")).Context(ctx).Do()
	if err != nil {
		return nil, sheetsErr("read header", err)
	}
	if len(vr.Values) == 0 {
		return []string{}, nil
	}
	return cellsToStrings(vr.Values[0]), nil
}

func (c *sheetsCollection) WriteHeader(ctx context.Context, header []string) error {
	return c.writeRange(ctx, "write header", rowRange(c.title, HeaderRow, len(header)), header)
}

func (c *sheetsCollection) ReadAllRows(ctx context.Context) ([][]string, error) {
	vr, err := c.b.svc.Spreadsheets.Values.Get(c.b.spreadsheetID, quoteTitle(c.title)).Context(ctx).Do()
	if err != nil {
		return nil, sheetsErr("read rows", err)
	}
	if len(vr.Values) <= 1 {
		return [][]string{}, nil
	}

	out := make([][]string, 0, len(vr.Values)-1)
	for _, row := range vr.Values[1:] {
		out = append(out, cellsToStrings(row))
	}
	return out, nil
}

func (c *sheetsCollection) AppendRow(ctx context.Context, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	_, err := c.b.svc.Spreadsheets.Values.Append(c.b.spreadsheetID, a1(c.title, "A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return sheetsErr("append row", err)
	}
	return nil
}

func (c *sheetsCollection) UpdateCell(ctx context.Context, row, col int, value string) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("tabular/sheets: cell %d,%d: %w", row, col, ErrRowOutOfRange)
	}
	cell := a1(c.title, ColumnLetter(col)+strconv.Itoa(row))
	return c.writeRange(ctx, "update cell", cell, []string{value})
}

func (c *sheetsCollection) UpdateRow(ctx context.Context, row int, values []string) error {
	if row <= HeaderRow {
		return fmt.Errorf("tabular/sheets: row %d: %w", row, ErrRowOutOfRange)
	}
	return c.writeRange(ctx, "update row", rowRange(c.title, row, len(values)), values)
}

func (c *sheetsCollection) DeleteRow(ctx context.Context, row int) error {
	if row <= HeaderRow {
		return fmt.Errorf("tabular/sheets: row %d: %w", row, ErrRowOutOfRange)
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    c.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// sheet 0 and index 0 are valid values and must not be omitted.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.b.svc.Spreadsheets.BatchUpdate(c.b.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return sheetsErr("delete row", err)
	}
	return nil
}

func (c *sheetsCollection) writeRange(ctx context.Context, op, rng string, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	_, err := c.b.svc.Spreadsheets.Values.Update(c.b.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return sheetsErr(op, err)
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// ColumnLetter converts a 1-based column index to A1 notation (1 → A, 27 → AA).
func ColumnLetter(col int) string {
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func a1(title, rng string) string {
	return quoteTitle(title) + "!" + rng
}

func rowRange(title string, row, width int) string {
	if width < 1 {
		width = 1
	}
	return a1(title, fmt.Sprintf("A%d:%s%d", row, ColumnLetter(width), row))
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, v := range cells {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// sheetsErr classifies a Sheets API failure. A range that no longer parses
// means the worksheet was renamed or removed.
func sheetsErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range") {
			return fmt.Errorf("tabular/sheets: %s: %w: %w", op, ErrStaleHandle, err)
		}
		if gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "No grid with id") {
			return fmt.Errorf("tabular/sheets: %s: %w: %w", op, ErrStaleHandle, err)
		}
	}
	return fmt.Errorf("tabular/sheets: %s: %w: %w", op, ErrUnavailable, err)
}
