// Package sheets reads tariff and manager sheets and appends saved
// calculations through the Google Sheets v4 API.
package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client accesses a single spreadsheet
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewClient creates a client authorized with a service-account credentials file
func NewClient(ctx context.Context, credentialsFile, spreadsheetID string) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return NewClientWithOptions(ctx, spreadsheetID, option.WithTokenSource(jwt.TokenSource(ctx)))
}

// NewClientWithOptions creates a client with explicit API options
func NewClientWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Values returns every row of a sheet as strings, header included
func (c *Client) Values(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return toStrings(resp.Values), nil
}

// AppendRow appends one row after the last filled row of a sheet
func (c *Client) AppendRow(ctx context.Context, sheet string, row []string) error {
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quoteSheet(sheet), &sheets.ValueRange{
		Values: [][]any{values},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheet %s: %w", sheet, err)
	}
	return nil
}

// ManagerIDs returns the numeric Telegram ids from the first column of a sheet.
// The header and non-numeric cells are skipped.
func (c *Client) ManagerIDs(ctx context.Context, sheet string) ([]int64, error) {
	rows, err := c.Values(ctx, sheet)
	if err != nil {
		return nil, err
	}
	return parseIDColumn(rows), nil
}

func parseIDColumn(rows [][]string) []int64 {
	if len(rows) < 2 {
		return nil
	}
	var ids []int64
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func toStrings(values [][]any) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rows[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return rows
}

// quoteSheet turns a sheet title into an A1 range covering the whole sheet
func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
