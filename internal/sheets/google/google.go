package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendwise/internal/core"
	"spendwise/internal/ports"
)

const defaultCacheValidDuration = 2 * time.Minute

var _ ports.ExpenseExporter = (*Exporter)(nil)

// Options configures the Sheets exporter. Credentials are taken from
// CredentialsJSON, then CredentialsFile, then Application Default Credentials
// when UseADC is set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	UseADC          bool

	// ClientOptions are appended to the credential options, mainly for tests.
	ClientOptions []goption.ClientOption
}

// Exporter appends expenses to a yearly sheet ("<year> <SheetName>").
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu                 sync.Mutex
	exportedIDs        map[string]map[int64]struct{} // sheet name -> expense ids
	cacheExpiresAt     map[string]time.Time
	cacheValidDuration time.Duration
}

func New(ctx context.Context, opts Options) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetBase := strings.TrimSpace(opts.SheetName)
	if sheetBase == "" {
		sheetBase = "Expenses"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newExporter(svc, spreadsheetID, sheetBase), nil
}

func newExporter(svc *gsheet.Service, spreadsheetID, sheetBase string) *Exporter {
	return &Exporter{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetBase:          sheetBase,
		exportedIDs:        map[string]map[int64]struct{}{},
		cacheExpiresAt:     map[string]time.Time{},
		cacheValidDuration: defaultCacheValidDuration,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	clientOpts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	switch {
	case len(opts.ClientOptions) > 0:
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	case strings.TrimSpace(opts.CredentialsFile) != "":
		credentialsJSON, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read credentials file", "path", opts.CredentialsFile, "size", len(credentialsJSON))
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(credentialsJSON))
	case opts.UseADC:
		slog.InfoContext(ctx, "Using application default credentials")
	default:
		return nil, errors.New("missing service account credentials")
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	service, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export implements ports.ExpenseExporter. An expense already present in the
// sheet is not appended again and its existing sheet name is returned.
func (x *Exporter) Export(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if x.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(x.sheetBase, e.Date.Year())

	ids, err := x.exported(ctx, sheet)
	if err != nil {
		return "", err
	}
	if _, ok := ids[e.ID]; ok && e.ID != 0 {
		slog.InfoContext(ctx, "Expense already exported, skipping", "expense_id", e.ID, "sheet", sheet)
		return sheet, nil
	}

	rng := fmt.Sprintf("%s!A:F", sheet)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}
	resp, err := x.svc.Spreadsheets.Values.Append(x.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	x.mu.Lock()
	if set, ok := x.exportedIDs[sheet]; ok {
		set[e.ID] = struct{}{}
	}
	x.mu.Unlock()

	ref := rng
	if resp != nil && resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// exported returns the expense ids present in sheet, reading it when the
// cached copy has expired.
func (x *Exporter) exported(ctx context.Context, sheet string) (map[int64]struct{}, error) {
	x.mu.Lock()
	if ids, ok := x.exportedIDs[sheet]; ok && time.Now().Before(x.cacheExpiresAt[sheet]) {
		x.mu.Unlock()
		return ids, nil
	}
	x.mu.Unlock()

	rows, err := x.readRows(ctx, sheet)
	if err != nil {
		return nil, err
	}

	ids := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		if id, ok := parseExpenseID(row); ok {
			ids[id] = struct{}{}
		}
	}

	x.mu.Lock()
	x.exportedIDs[sheet] = ids
	x.cacheExpiresAt[sheet] = time.Now().Add(x.cacheValidDuration)
	x.mu.Unlock()
	return ids, nil
}

func (x *Exporter) readRows(ctx context.Context, sheet string) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:F", sheet)
	resp, err := x.svc.Spreadsheets.Values.Get(x.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ReadExpenses parses the rows previously exported for year.
func (x *Exporter) ReadExpenses(ctx context.Context, year int) ([]core.Expense, error) {
	if x.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rows, err := x.readRows(ctx, yearPrefixedName(x.sheetBase, year))
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := parseExpenseRow(row)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
