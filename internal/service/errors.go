package service

import "errors"

// Rejection kinds returned by Submit. Match them with errors.Is; the
// error's message is the text shown to the team.
var (
	ErrRegistrationClosed               = errors.New("registration closed")
	ErrAlreadyRegistered                = errors.New("already registered")
	ErrChampionshipNotConfigured        = errors.New("championship not configured")
	ErrWrongSelectionCount              = errors.New("wrong selection count")
	ErrInvalidSlot                      = errors.New("invalid slot")
	ErrDuplicateOrMissingVenueSelection = errors.New("duplicate or missing venue selection")
	ErrInvalidChampionshipSlot          = errors.New("invalid championship slot")
	ErrSlotFull                         = errors.New("slot full")
)

// ErrCatalogExists is returned by Setup when venues are already present.
var ErrCatalogExists = errors.New("venues already exist")

var codes = []struct {
	kind error
	code string
}{
	{ErrRegistrationClosed, "registration_closed"},
	{ErrAlreadyRegistered, "already_registered"},
	{ErrChampionshipNotConfigured, "championship_not_configured"},
	{ErrWrongSelectionCount, "wrong_selection_count"},
	{ErrInvalidSlot, "invalid_slot"},
	{ErrDuplicateOrMissingVenueSelection, "duplicate_or_missing_venue_selection"},
	{ErrInvalidChampionshipSlot, "invalid_championship_slot"},
	{ErrSlotFull, "slot_full"},
}

// rejection carries a user-facing message and unwraps to its kind.
type rejection struct {
	kind error
	msg  string
}

func (r *rejection) Error() string { return r.msg }
func (r *rejection) Unwrap() error { return r.kind }

func reject(kind error, msg string) error {
	return &rejection{kind: kind, msg: msg}
}

// Code returns the snake_case name of a rejection kind, or "" when err is
// not a rejection.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return ""
}
