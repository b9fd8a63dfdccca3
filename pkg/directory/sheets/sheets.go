// Package sheets reads directory records from a Google Sheets table.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"jamalekbot/pkg/directory"
)

const DefaultRange = "Businesses!A2:H"

// Column order of the Businesses sheet.
const (
	colID = iota
	colName
	colAddress
	colPhone
	colDescription
	colPhotos
	colCategory
	colKeywords
)

type Config struct {
	SpreadsheetID string
	Range         string
}

// Directory fetches the full table on every call; there is no cache.
type Directory struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	readRange     string
	log           *slog.Logger
}

var _ directory.Directory = (*Directory)(nil)

func New(ctx context.Context, cfg Config, log *slog.Logger, opts ...option.ClientOption) (*Directory, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("directory.spreadsheet_id is required")
	}

	readRange := strings.TrimSpace(cfg.Range)
	if readRange == "" {
		readRange = DefaultRange
	}

	if log == nil {
		log = slog.Default()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize sheets service: %w", err)
	}

	return &Directory{
		values:        service.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		log:           log.With("component", "directory.sheets"),
	}, nil
}

func (d *Directory) Search(ctx context.Context, keyword string) ([]directory.Record, error) {
	records, err := d.fetch(ctx)
	if err != nil {
		d.log.Error("Directory search failed", "keyword", keyword, "error", err)
		return nil, err
	}

	return directory.Filter(records, keyword), nil
}

func (d *Directory) GetOne(ctx context.Context, idOrName string) (*directory.Record, error) {
	records, err := d.fetch(ctx)
	if err != nil {
		d.log.Error("Directory lookup failed", "query", idOrName, "error", err)
		return nil, err
	}

	return directory.Find(records, idOrName), nil
}

func (d *Directory) fetch(ctx context.Context) ([]directory.Record, error) {
	resp, err := d.values.Get(d.spreadsheetID, d.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.readRange, err)
	}

	records := make([]directory.Record, 0, len(resp.Values))
	for _, row := range resp.Values {
		record, ok := recordFromRow(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	d.log.Debug("Fetched directory rows", "rows", len(resp.Values), "records", len(records))
	return records, nil
}

// recordFromRow maps one sheet row. Trailing empty cells are omitted by the API,
// so short rows are valid; rows without id and name are skipped.
func recordFromRow(row []any) (directory.Record, bool) {
	record := directory.Record{
		ID:          cell(row, colID),
		Name:        cell(row, colName),
		Address:     cell(row, colAddress),
		Phone:       cell(row, colPhone),
		Description: cell(row, colDescription),
		PhotoURLs:   directory.SplitPhotos(cell(row, colPhotos)),
		Category:    cell(row, colCategory),
		Keywords:    cell(row, colKeywords),
	}

	if record.ID == "" && record.Name == "" {
		return directory.Record{}, false
	}

	return record, true
}

func cell(row []any, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}

	if value, ok := row[index].(string); ok {
		return strings.TrimSpace(value)
	}

	return strings.TrimSpace(fmt.Sprint(row[index]))
}
