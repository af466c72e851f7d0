package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/iliyamo/league-registration/internal/model"
)

// minVenueColumns is the number of "Venue N Day" columns always present.
const minVenueColumns = 3

// ExportRow is one team's line in the registrations sheet.
type ExportRow struct {
	TeamNumber string
	League     string
	Days       []string // one entry per regular venue column
}

// BuildExportRows folds ledger rows into one row per team. Regular venue
// columns follow the sorted distinct regular venue names found in regs;
// there are never fewer than three, and more are added when needed.
func BuildExportRows(regs []model.RegistrationDetail) (venues []string, rows []ExportRow) {
	seen := make(map[string]bool)
	byTeam := make(map[string]*struct {
		league  string
		regular map[string]string
	})
	order := make([]string, 0)

	for _, r := range regs {
		entry, ok := byTeam[r.TeamNumber]
		if !ok {
			entry = &struct {
				league  string
				regular map[string]string
			}{regular: make(map[string]string)}
			byTeam[r.TeamNumber] = entry
			order = append(order, r.TeamNumber)
		}
		switch r.VenueKind {
		case model.VenueChampionship:
			entry.league = r.VenueName
		case model.VenueRegular:
			if r.VenueName == "" {
				continue
			}
			if !seen[r.VenueName] {
				seen[r.VenueName] = true
				venues = append(venues, r.VenueName)
			}
			if r.DayLabel != "" {
				entry.regular[r.VenueName] = r.DayLabel
			}
		}
	}
	sort.Strings(venues)

	cols := len(venues)
	if cols < minVenueColumns {
		cols = minVenueColumns
	}
	rows = make([]ExportRow, 0, len(order))
	for _, team := range order {
		e := byTeam[team]
		days := make([]string, cols)
		for i, v := range venues {
			days[i] = e.regular[v]
		}
		rows = append(rows, ExportRow{TeamNumber: team, League: e.league, Days: days})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ni, nj := teamNumberValue(rows[i].TeamNumber), teamNumberValue(rows[j].TeamNumber)
		if ni != nj {
			return ni < nj
		}
		return rows[i].TeamNumber < rows[j].TeamNumber
	})
	return venues, rows
}

// teamNumberValue parses the team number for sorting; non-numeric is 0.
func teamNumberValue(team string) int64 {
	n, err := strconv.ParseInt(team, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ExportHeader returns the header row for n venue columns.
func ExportHeader(n int) []string {
	if n < minVenueColumns {
		n = minVenueColumns
	}
	h := []string{"Team Number", "League"}
	for i := 1; i <= n; i++ {
		h = append(h, fmt.Sprintf("Venue %d Day", i))
	}
	return h
}

// WriteRegistrationsCSV writes the team-per-row sheet for regs to w.
func WriteRegistrationsCSV(w io.Writer, regs []model.RegistrationDetail) error {
	venues, rows := BuildExportRows(regs)
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader(len(venues))); err != nil {
		return err
	}
	for _, r := range rows {
		rec := append([]string{r.TeamNumber, r.League}, r.Days...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the download after the given day.
func ExportFilename(now time.Time) string {
	return "registrations-" + now.Format("2006-01-02") + ".csv"
}
