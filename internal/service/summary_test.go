package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/iliyamo/league-registration/internal/model"
)

func TestNormalizeDay(t *testing.T) {
	cases := map[string]string{
		"Saturday": Saturday,
		" sat ":    Saturday,
		"Day 1":    Saturday,
		"1":        Saturday,
		"SUNDAY":   Sunday,
		"day 2":    Sunday,
		"2":        Sunday,
		"Day 3":    "",
		"":         "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeDay(in), "label %q", in)
	}
}

func TestSelectionDate(t *testing.T) {
	own := model.Selection{DayLabel: "Day 2", Date: "2026-03-08", VenueDate: "2026-01-01"}
	d, ok := SelectionDate(own)
	require.True(t, ok)
	require.Equal(t, "Mar 8", d.Format("Jan 2"), "slot date wins over venue date")

	sunday := model.Selection{DayLabel: "Sunday", VenueDate: "2026-03-07"}
	d, ok = SelectionDate(sunday)
	require.True(t, ok)
	require.Equal(t, "Mar 8", d.Format("Jan 2"))

	saturday := model.Selection{DayLabel: "Day 1", VenueDate: "2026-03-07T00:00:00Z"}
	d, ok = SelectionDate(saturday)
	require.True(t, ok)
	require.Equal(t, "Mar 7", d.Format("Jan 2"))

	_, ok = SelectionDate(model.Selection{DayLabel: "Day 1"})
	require.False(t, ok)
}

func TestBuildSummary(t *testing.T) {
	sels := []model.Selection{
		{VenueName: "Venue B", VenueKind: model.VenueRegular, DayLabel: "Day 2", VenueDate: "2026-03-07"},
		{VenueName: "Venue A", VenueKind: model.VenueRegular, DayLabel: "Day 1"},
		{VenueName: "Gauss", VenueKind: model.VenueChampionship, DayLabel: "Day 1", Date: "2026-04-11"},
	}
	require.Equal(t, "League: Gauss - Day 1 (Apr 11)\nVenue A - Day 1\nVenue B - Day 2 (Mar 8)", BuildSummary(sels))
	require.Equal(t, "Team 9 successfully registered for: Venue B - Day 2, Venue A - Day 1, Gauss - Day 1",
		ConfirmationMessage("9", sels))
}

func TestRenderSummaryHTML_Escapes(t *testing.T) {
	html, err := RenderSummaryHTML("<7>", []string{"A & B - Day 1"})
	require.NoError(t, err)
	require.Contains(t, html, "&lt;7&gt;")
	require.Contains(t, html, "<li>A &amp; B - Day 1</li>")
}

func TestSummaryLines_ChampionshipFirstRegularSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "regular")
		sels := make([]model.Selection, 0, n+1)
		for i := 0; i < n; i++ {
			sels = append(sels, model.Selection{
				VenueName: rapid.StringMatching(`[A-Z][a-z]{0,6}`).Draw(t, "venue"),
				VenueKind: model.VenueRegular,
				DayLabel:  rapid.SampledFrom([]string{"Day 1", "Day 2"}).Draw(t, "day"),
			})
		}
		at := rapid.IntRange(0, n).Draw(t, "champ_at")
		champ := model.Selection{VenueName: "Euclid", VenueKind: model.VenueChampionship, DayLabel: "Day 1"}
		sels = append(sels[:at], append([]model.Selection{champ}, sels[at:]...)...)

		lines := SummaryLines(sels)
		if len(lines) != n+1 {
			t.Fatalf("got %d lines for %d selections", len(lines), n+1)
		}
		if lines[0] != "League: Euclid - Day 1" {
			t.Fatalf("first line %q", lines[0])
		}
		for i := 2; i < len(lines); i++ {
			prev := strings.SplitN(lines[i-1], " - ", 2)[0]
			cur := strings.SplitN(lines[i], " - ", 2)[0]
			if prev > cur {
				t.Fatalf("regular lines out of order: %q before %q", lines[i-1], lines[i])
			}
		}
	})
}
