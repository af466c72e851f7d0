package model

import "time"

// VenueKind distinguishes regular league meets from the championship.
type VenueKind string

const (
	VenueRegular      VenueKind = "regular"
	VenueChampionship VenueKind = "championship"
)

// Valid reports whether k is one of the known kinds.
func (k VenueKind) Valid() bool {
	return k == VenueRegular || k == VenueChampionship
}

// Venue is a location hosting one weekend of play. Kind is fixed at
// creation; IsActive gates whether the venue is shown to teams and whether
// its slots may be selected.
//
// Fields:
//
//	ID        – venues.id
//	Name      – display name, also used as the CSV column key.
//	Kind      – regular or championship.
//	IsActive  – visible and selectable when true.
//	Location  – free-text city or area (optional).
//	Address   – street address (optional).
//	Date      – weekend start date (YYYY-MM-DD); slots without their own
//	            date fall back to it.
type Venue struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Kind      VenueKind `json:"kind"`
	IsActive  bool      `json:"is_active"`
	Location  string    `json:"location,omitempty"`
	Address   string    `json:"address,omitempty"`
	Date      string    `json:"date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRegular reports whether the venue hosts a regular meet.
func (v Venue) IsRegular() bool { return v.Kind == VenueRegular }
