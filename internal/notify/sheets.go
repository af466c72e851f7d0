package notify

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/iliyamo/league-registration/internal/queue"
)

type rowAppender interface {
	Append(ctx context.Context, row []interface{}) error
}

// SheetsSink appends one row per registration to a spreadsheet range.
type SheetsSink struct {
	rows rowAppender
}

// NewSheetsSink authenticates with a service account JSON file.
func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID, rng string) (*SheetsSink, error) {
	if _, err := os.Stat(credentialsFile); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return &SheetsSink{rows: &sheetsAppender{srv: srv, spreadsheetID: spreadsheetID, rng: rng}}, nil
}

func (s *SheetsSink) Name() string { return "sheets" }

func (s *SheetsSink) Send(ctx context.Context, ev queue.RegistrationConfirmed) error {
	return s.rows.Append(ctx, sheetRow(ev))
}

// sheetRow is created_at, team, email, league, then one cell per regular
// venue.
func sheetRow(ev queue.RegistrationConfirmed) []interface{} {
	email := ""
	if ev.Email != nil {
		email = ev.Email.To
	}
	league, regular := splitSelections(ev.Selections)
	row := []interface{}{ev.CreatedAt, ev.TeamNumber, email, league}
	for _, r := range regular {
		row = append(row, r)
	}
	return row
}

type sheetsAppender struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	rng           string
}

func (a *sheetsAppender) Append(ctx context.Context, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := a.srv.Spreadsheets.Values.Append(a.spreadsheetID, a.rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
