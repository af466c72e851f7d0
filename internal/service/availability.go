package service

import (
	"context"
	"sort"

	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
)

// AvailabilityService derives per-slot occupancy from the ledger on every
// read. Nothing here is persisted.
type AvailabilityService struct {
	slots *repository.TimeSlotRepo
}

// NewAvailabilityService returns a service reading through slots.
func NewAvailabilityService(slots *repository.TimeSlotRepo) *AvailabilityService {
	return &AvailabilityService{slots: slots}
}

// Available lists active slots of active venues, regular venues first,
// then by venue name and day label.
func (s *AvailabilityService) Available(ctx context.Context) ([]model.SlotAvailability, error) {
	return s.list(ctx, true)
}

// All lists every slot including inactive ones, in the same order.
func (s *AvailabilityService) All(ctx context.Context) ([]model.SlotAvailability, error) {
	return s.list(ctx, false)
}

func (s *AvailabilityService) list(ctx context.Context, activeOnly bool) ([]model.SlotAvailability, error) {
	rows, err := s.slots.ListAvailability(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]model.SlotAvailability, 0, len(rows))
	for _, r := range rows {
		out = append(out, derive(*r))
	}
	SortAvailability(out)
	return out, nil
}

// Slot returns one slot with its derived counters.
func (s *AvailabilityService) Slot(ctx context.Context, id uint64) (model.SlotAvailability, error) {
	r, err := s.slots.GetAvailability(ctx, id)
	if err != nil {
		return model.SlotAvailability{}, err
	}
	return derive(*r), nil
}

func derive(a model.SlotAvailability) model.SlotAvailability {
	a.SpotsRemaining = a.Capacity - a.CurrentCount
	a.IsAvailable = a.CurrentCount < a.Capacity
	return a
}

// SortAvailability orders rows regular-first, then by venue name, then by
// day label, comparing strings byte-wise. Slot id breaks remaining ties.
func SortAvailability(rows []model.SlotAvailability) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		ar, br := a.VenueKind == model.VenueRegular, b.VenueKind == model.VenueRegular
		if ar != br {
			return ar
		}
		if a.VenueName != b.VenueName {
			return a.VenueName < b.VenueName
		}
		if a.DayLabel != b.DayLabel {
			return a.DayLabel < b.DayLabel
		}
		return a.SlotID < b.SlotID
	})
}
