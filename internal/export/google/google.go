// Package google exports settlement reports to a Google Sheets spreadsheet
// using a Service Account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	ports "saldo/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Settlements"),
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS for auth.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	reportSheet := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if reportSheet == "" {
		reportSheet = "Settlements"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "sheet", "service account")
	return service, nil
}

// WriteSettlement appends a settlement report to the report sheet: one summary
// row followed by one row per transfer instruction. Re-exports of the same
// month append a newer block; the version column disambiguates.
func (c *Client) WriteSettlement(ctx context.Context, st core.Settlement) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	status := "open"
	if st.IsSettled {
		status = "settled"
	}

	rows := [][]any{
		{st.Month.String(), st.HouseholdID, st.Total.Units(), status, st.SyncVersion, ""},
	}
	for _, t := range st.Transfers {
		rows = append(rows, []any{st.Month.String(), st.HouseholdID, t.Amount.Units(), "transfer", st.SyncVersion,
			fmt.Sprintf("%s -> %s", t.From, t.To)})
	}

	// Find the next empty row by getting the sheet dimensions first
	rng := fmt.Sprintf("%s!A:A", c.reportSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.reportSheet, err)
	}

	nextRow := len(resp.Values) + 1
	lastRow := nextRow + len(rows) - 1

	dataRange := fmt.Sprintf("%s!A%d:F%d", c.reportSheet, nextRow, lastRow)
	vr := &gsheet.ValueRange{Values: rows}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}
