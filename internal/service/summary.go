package service

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/league-registration/internal/model"
)

// Normalized day names.
const (
	Saturday = "saturday"
	Sunday   = "sunday"
)

// NormalizeDay maps weekday names and legacy "Day 1"/"Day 2" labels onto
// saturday or sunday. Unknown labels yield "".
func NormalizeDay(label string) string {
	d := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.HasPrefix(d, "sun"), d == "day 2", d == "2":
		return Sunday
	case strings.HasPrefix(d, "sat"), d == "day 1", d == "1":
		return Saturday
	}
	return ""
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// SelectionDate is the calendar date of a selection: the slot's own date,
// else the venue's base date moved forward a day for Sunday slots.
func SelectionDate(sel model.Selection) (time.Time, bool) {
	if t, ok := parseDate(sel.Date); ok {
		return t, true
	}
	t, ok := parseDate(sel.VenueDate)
	if !ok {
		return time.Time{}, false
	}
	if NormalizeDay(sel.DayLabel) == Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

func summaryLine(sel model.Selection) string {
	line := sel.VenueName + " - " + sel.DayLabel
	if t, ok := SelectionDate(sel); ok {
		line += " (" + t.Format("Jan 2") + ")"
	}
	return line
}

// SummaryLines lists the championship selection first, prefixed with
// "League: ", followed by regular selections ordered by venue name.
func SummaryLines(selections []model.Selection) []string {
	var champ []string
	regular := make([]model.Selection, 0, len(selections))
	for _, sel := range selections {
		if sel.VenueKind == model.VenueChampionship {
			champ = append(champ, "League: "+summaryLine(sel))
			continue
		}
		regular = append(regular, sel)
	}
	sort.SliceStable(regular, func(i, j int) bool { return regular[i].VenueName < regular[j].VenueName })
	lines := champ
	for _, sel := range regular {
		lines = append(lines, summaryLine(sel))
	}
	return lines
}

// BuildSummary joins SummaryLines with newlines.
func BuildSummary(selections []model.Selection) string {
	return strings.Join(SummaryLines(selections), "\n")
}

// ConfirmationMessage is the one-line text returned to the team.
func ConfirmationMessage(team string, selections []model.Selection) string {
	parts := make([]string, 0, len(selections))
	for _, sel := range selections {
		parts = append(parts, sel.VenueName+" - "+sel.DayLabel)
	}
	return fmt.Sprintf("Team %s successfully registered for: %s", team, strings.Join(parts, ", "))
}

var summaryTmpl = template.Must(template.New("summary").Parse(
	`<p>Team <strong>{{.Team}}</strong> is registered for:</p>
<ul>{{range .Lines}}
  <li>{{.}}</li>{{end}}
</ul>
`))

// RenderSummaryHTML renders the summary lines as an escaped HTML list.
func RenderSummaryHTML(team string, lines []string) (string, error) {
	var buf bytes.Buffer
	err := summaryTmpl.Execute(&buf, struct {
		Team  string
		Lines []string
	}{team, lines})
	return buf.String(), err
}
