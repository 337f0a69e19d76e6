package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fatura/internal/log"
	ports "fatura/internal/sheets"
)

var _ ports.InvoiceExporter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	TabPrefix       string
	CredentialsJSON string
	CredentialsFile string
}

// Client writes every invoice to its own tab of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string

	mu   sync.Mutex
	tabs map[string]bool // known tab titles
}

// New creates a Sheets client authenticated with a service account. Extra
// client options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentials, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}
	if credentials != nil {
		opts = append([]goption.ClientOption{
			goption.WithCredentialsJSON(credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, opts...)
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		log.FieldComponent, log.ComponentSheets,
		"spreadsheet_id", cfg.SpreadsheetID)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		prefix:        strings.TrimSpace(cfg.TabPrefix),
		tabs:          map[string]bool{},
	}, nil
}

// readCredentials returns nil when neither source is configured, leaving
// authentication to the caller's options.
func readCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, nil
	}
}

// ExportInvoice clears the invoice tab and writes the sheet from A1.
func (c *Client) ExportInvoice(ctx context.Context, sheet ports.InvoiceSheet) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := c.tabTitle(sheet.Title)
	if err := c.ensureTab(ctx, title); err != nil {
		return "", err
	}

	all := fmt.Sprintf("%s!A:E", quote(title))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", all, err)
	}

	values := sheet.Values()
	rng := fmt.Sprintf("%s!A1:E%d", quote(title), len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

func (c *Client) tabTitle(title string) string {
	if c.prefix == "" {
		return title
	}
	return c.prefix + " " + title
}

// ensureTab adds the tab unless the spreadsheet already has it.
func (c *Client) ensureTab(ctx context.Context, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tabs[title] {
		return nil
	}

	doc, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range doc.Sheets {
		if s.Properties != nil {
			c.tabs[s.Properties.Title] = true
		}
	}
	if c.tabs[title] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %q: %w", title, err)
	}
	c.tabs[title] = true
	slog.DebugContext(ctx, "Added spreadsheet tab",
		log.FieldComponent, log.ComponentSheets,
		"tab", title)
	return nil
}

// quote wraps a tab title for A1 notation.
func quote(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
