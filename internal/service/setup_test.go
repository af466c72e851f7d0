package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/testutil"
)

func TestSetup_SeedsOnceThenConflicts(t *testing.T) {
	db := testutil.NewDB(t)
	settings := repository.NewSettingRepo(db)
	svc := NewSetupService(db, repository.NewVenueRepo(db), repository.NewTimeSlotRepo(db, database.SQLite), settings)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	res, err := svc.Setup(ctx)
	require.NoError(t, err)
	require.Equal(t, SetupResult{Venues: 7, Slots: 10, Settings: 2}, res)
	require.Equal(t, 7, testutil.CountRows(t, db, "venues"))
	require.Equal(t, 10, testutil.CountRows(t, db, "time_slots"))

	w, err := settings.Window(ctx)
	require.NoError(t, err)
	require.True(t, w.Open)
	require.True(t, w.Deadline.Equal(now.Add(30*24*time.Hour)))

	_, err = svc.Setup(ctx)
	require.True(t, errors.Is(err, ErrCatalogExists))
	require.True(t, errors.Is(err, repository.ErrConflict))
	require.Equal(t, 7, testutil.CountRows(t, db, "venues"))

	n, err := svc.InitSettings(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "existing settings are kept")
}

func TestSetup_SeededCatalogAcceptsASubmission(t *testing.T) {
	db := testutil.NewDB(t)
	venues := repository.NewVenueRepo(db)
	slots := repository.NewTimeSlotRepo(db, database.SQLite)
	settings := repository.NewSettingRepo(db)
	ctx := context.Background()
	_, err := NewSetupService(db, venues, slots, settings).Setup(ctx)
	require.NoError(t, err)

	avail, err := NewAvailabilityService(slots).Available(ctx)
	require.NoError(t, err)
	picked := map[uint64]bool{}
	var regular []uint64
	var champ uint64
	for _, a := range avail {
		switch {
		case a.VenueKind == "regular" && !picked[a.VenueID]:
			picked[a.VenueID] = true
			regular = append(regular, a.SlotID)
		case a.VenueKind == "championship" && champ == 0:
			champ = a.SlotID
		}
	}

	svc := NewRegistrationService(db, venues, slots, repository.NewRegistrationRepo(db, database.SQLite), settings)
	res, err := svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: regular, ChampionshipSlotID: champ})
	require.NoError(t, err)
	require.Len(t, res.RegistrationIDs, 4)
}
