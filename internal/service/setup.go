package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
)

// Default catalog seeded by Setup.
var (
	defaultRegularVenues      = []string{"Venue 1", "Venue 2", "Venue 3"}
	defaultRegularDays        = []string{"Day 1", "Day 2"}
	defaultChampionshipVenues = []string{"Descartes", "Euclid", "Gauss", "Turing"}
)

const (
	defaultRegularCapacity      = 36
	defaultChampionshipCapacity = 18
	defaultWindowLength         = 30 * 24 * time.Hour
)

// SetupResult counts what Setup created.
type SetupResult struct {
	Venues   int `json:"venues"`
	Slots    int `json:"slots"`
	Settings int `json:"settings"`
}

// SetupService seeds an empty catalog.
type SetupService struct {
	db       *sql.DB
	venues   *repository.VenueRepo
	slots    *repository.TimeSlotRepo
	settings *repository.SettingRepo
	now      func() time.Time
}

// NewSetupService returns a SetupService.
func NewSetupService(db *sql.DB, venues *repository.VenueRepo, slots *repository.TimeSlotRepo, settings *repository.SettingRepo) *SetupService {
	return &SetupService{db: db, venues: venues, slots: slots, settings: settings, now: time.Now}
}

// DefaultSettings returns the window defaults: open, closing 30 days
// after now.
func DefaultSettings(now time.Time) []model.Setting {
	return []model.Setting{
		{Key: model.SettingRegistrationOpen, Value: "true", Description: "Whether registration is currently open"},
		{
			Key:         model.SettingRegistrationDeadline,
			Value:       strconv.FormatInt(now.Add(defaultWindowLength).UnixMilli(), 10),
			Description: "Registration deadline timestamp",
		},
	}
}

// Setup creates three regular venues with two days each and four
// championship venues with one day each, plus default settings. It fails
// with ErrCatalogExists if any venue is already present.
func (s *SetupService) Setup(ctx context.Context) (SetupResult, error) {
	var res SetupResult
	n, err := s.venues.Count(ctx)
	if err != nil {
		return res, err
	}
	if n > 0 {
		return res, fmt.Errorf("%w: %w", repository.ErrConflict, ErrCatalogExists)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	add := func(name string, kind model.VenueKind, days []string, capacity int) error {
		v := &model.Venue{Name: name, Kind: kind, IsActive: true}
		if err := s.venues.CreateTx(ctx, tx, v); err != nil {
			return err
		}
		res.Venues++
		for _, d := range days {
			ts := &model.TimeSlot{VenueID: v.ID, DayLabel: d, Capacity: capacity, IsActive: true}
			if err := s.slots.CreateTx(ctx, tx, ts); err != nil {
				return err
			}
			res.Slots++
		}
		return nil
	}
	for _, name := range defaultRegularVenues {
		if err := add(name, model.VenueRegular, defaultRegularDays, defaultRegularCapacity); err != nil {
			return res, err
		}
	}
	for _, name := range defaultChampionshipVenues {
		if err := add(name, model.VenueChampionship, []string{"Day 1"}, defaultChampionshipCapacity); err != nil {
			return res, err
		}
	}
	if res.Settings, err = s.settings.InitDefaultsTx(ctx, tx, DefaultSettings(s.now())); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	committed = true
	log.Info(log.CatDB, "catalog seeded", "venues", res.Venues, "slots", res.Slots, "settings", res.Settings)
	return res, nil
}

// InitSettings inserts the default window settings that are missing.
func (s *SetupService) InitSettings(ctx context.Context) (int, error) {
	return s.settings.InitDefaults(ctx, DefaultSettings(s.now()))
}
