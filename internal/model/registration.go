package model

import "time"

// Registration is one ledger row: a team occupying one slot. A complete
// submission produces one row per active regular venue plus one
// championship row, all sharing CreatedAt.
type Registration struct {
	ID         uint64    `json:"id"`
	TeamNumber string    `json:"team_number"`
	VenueID    uint64    `json:"venue_id"`
	TimeSlotID uint64    `json:"time_slot_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegistrationDetail is a ledger row joined with its venue and slot for
// admin listings, exports and summaries.
type RegistrationDetail struct {
	Registration
	VenueName string    `json:"venue_name"`
	VenueKind VenueKind `json:"venue_type"`
	VenueDate string    `json:"venue_date,omitempty"`
	DayLabel  string    `json:"day_label"`
	SlotDate  string    `json:"slot_date,omitempty"`
}

// Selection is one chosen slot as echoed back to the team and carried on
// confirmation events.
type Selection struct {
	SlotID    uint64    `json:"slot_id"`
	VenueID   uint64    `json:"venue_id"`
	VenueName string    `json:"venue_name"`
	VenueKind VenueKind `json:"venue_type"`
	DayLabel  string    `json:"day_label"`
	Date      string    `json:"date,omitempty"`
	VenueDate string    `json:"venue_date,omitempty"`
}
