package model

import "time"

// TimeSlot is a day at a venue with a static capacity ceiling. The number
// of teams in a slot is never stored; it is counted from registrations.
type TimeSlot struct {
	ID        uint64    `json:"id"`
	VenueID   uint64    `json:"venue_id"`
	DayLabel  string    `json:"day_label"`
	Date      string    `json:"date,omitempty"`
	Capacity  int       `json:"capacity"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SlotAvailability is a slot joined with its venue and the derived
// occupancy counters. SpotsRemaining goes negative when an admin lowers
// capacity below the number of teams already registered.
type SlotAvailability struct {
	SlotID         uint64    `json:"slot_id"`
	VenueID        uint64    `json:"venue_id"`
	VenueName      string    `json:"venue_name"`
	VenueKind      VenueKind `json:"venue_type"`
	Location       string    `json:"location,omitempty"`
	Address        string    `json:"address,omitempty"`
	VenueDate      string    `json:"venue_date,omitempty"`
	DayLabel       string    `json:"day_label"`
	Date           string    `json:"date,omitempty"`
	Capacity       int       `json:"capacity"`
	CurrentCount   int       `json:"current_count"`
	SpotsRemaining int       `json:"spots_remaining"`
	IsAvailable    bool      `json:"is_available"`
	IsActive       bool      `json:"is_active"`
	VenueIsActive  bool      `json:"venue_is_active"`
}
