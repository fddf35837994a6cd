package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fondi/internal/config"
	"fondi/internal/services"
	ports "fondi/internal/sheets"
)

// Client writes month reports to a Google spreadsheet. Each budget month
// gets its own tab named "<sheet name> <month key>" and a write replaces
// the whole tab range, so re-exports stay idempotent.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromConfig creates a Sheets client from the export settings, using the
// OAuth client and token produced by the oauth-init command.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.GoogleSpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetBase := strings.TrimSpace(cfg.GoogleSheetName)
	if sheetBase == "" {
		sheetBase = "Budget"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}, nil
}

func newSheetsService(ctx context.Context, cfg *config.Config) (*gsheet.Service, error) {
	clientJSON, err := readCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing OAuth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	oauthCfg, err := googleauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing OAuth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, or run oauth-init)")
	}
	token, err := parseToken(tokenJSON)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	httpClient := oauthCfg.Client(ctx, token)
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// readCredential prefers inline JSON over a file path. Both empty is not an
// error so the caller can distinguish missing from unreadable.
func readCredential(inline, file string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(file) != "" {
		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return buf, nil
	}
	return nil, nil
}

func parseToken(raw []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("token has neither access nor refresh token")
	}
	return &tok, nil
}

// WriteMonthReport renders the report and replaces the month's tab content.
func (c *Client) WriteMonthReport(ctx context.Context, report services.MonthReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheetName := fmt.Sprintf("%s %s", c.sheetBase, report.Budget.BudgetMonthKey)
	if err := c.ensureSheet(ctx, sheetName); err != nil {
		return "", err
	}

	rows := reportRows(report)

	clearRange := fmt.Sprintf("%s!A:E", sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1:E%d", sheetName, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", writeRange, err)
	}
	return writeRange, nil
}

// ensureSheet adds the tab when it does not exist yet.
func (c *Client) ensureSheet(ctx context.Context, sheetName string) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == sheetName {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: sheetName},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheetName, err)
	}
	return nil
}

// reportRows renders the report as rows for a A:E range. Amounts are
// converted from minor units to decimal strings.
func reportRows(r services.MonthReport) [][]any {
	rows := [][]any{
		{"Budget month", string(r.Budget.BudgetMonthKey), "", "", ""},
		{"Income month", string(r.Budget.IncomeMonthKey), "", "", ""},
		{"Total income", minorToDecimal(r.TotalIncomeMinor), "", "", ""},
		{"Spendable pool", minorToDecimal(r.SpendablePoolMinor), "", "", ""},
		{"Planned total", minorToDecimal(r.PlannedTotalMinor), "", "", ""},
		{"Spent total", minorToDecimal(r.SpentTotalMinor), "", "", ""},
		{"Remaining", minorToDecimal(r.RemainingMinor), "", "", ""},
		{"Surplus base", minorToDecimal(r.SurplusBaseMinor), "", "", ""},
		{"", "", "", "", ""},
		{"Category", "Planned", "Spent", "Leftover", ""},
	}
	for _, c := range r.Categories {
		rows = append(rows, []any{
			c.CategoryName,
			minorToDecimal(c.PlannedMinor),
			minorToDecimal(c.SpentMinor),
			minorToDecimal(c.LeftoverMinor),
			"",
		})
	}
	return rows
}

func minorToDecimal(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
