package model

import "time"

// Setting keys with typed meaning.
const (
	SettingRegistrationOpen     = "registration_open"
	SettingRegistrationDeadline = "registration_deadline"
)

// Setting is a raw key/value row.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RegistrationWindow is the typed view of the two window settings.
// A missing open flag means open; a missing deadline means no deadline.
type RegistrationWindow struct {
	Open     bool       `json:"is_open"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// DefaultWindow is the window in effect before any setting is written.
func DefaultWindow() RegistrationWindow {
	return RegistrationWindow{Open: true}
}

// IsOpenAt reports whether submissions are accepted at now. The deadline
// instant itself is still open.
func (w RegistrationWindow) IsOpenAt(now time.Time) bool {
	if !w.Open {
		return false
	}
	if w.Deadline != nil && now.After(*w.Deadline) {
		return false
	}
	return true
}
