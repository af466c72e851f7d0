package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
)

const windowCacheKey = "window"

// WindowStatus is the public view of the registration window.
type WindowStatus struct {
	IsOpen            bool       `json:"is_open"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	DeadlineFormatted string     `json:"deadline_formatted,omitempty"`
}

// WindowService serves the registration window to read paths from a short
// in-process cache. Submit never goes through it; it reads the settings
// inside its own transaction.
type WindowService struct {
	settings *repository.SettingRepo
	cache    *gocache.Cache
	now      func() time.Time
}

// NewWindowService caches the window for ttl.
func NewWindowService(settings *repository.SettingRepo, ttl time.Duration) *WindowService {
	return &WindowService{
		settings: settings,
		cache:    gocache.New(ttl, 2*ttl),
		now:      time.Now,
	}
}

// Window returns the (possibly cached) window.
func (s *WindowService) Window(ctx context.Context) (model.RegistrationWindow, error) {
	if v, ok := s.cache.Get(windowCacheKey); ok {
		return v.(model.RegistrationWindow), nil
	}
	w, err := s.settings.Window(ctx)
	if err != nil {
		return w, err
	}
	s.cache.SetDefault(windowCacheKey, w)
	return w, nil
}

// Status evaluates the window at the current time.
func (s *WindowService) Status(ctx context.Context) (WindowStatus, error) {
	w, err := s.Window(ctx)
	if err != nil {
		return WindowStatus{}, err
	}
	st := WindowStatus{IsOpen: w.IsOpenAt(s.now()), Deadline: w.Deadline}
	if w.Deadline != nil {
		st.DeadlineFormatted = w.Deadline.UTC().Format("Mon, Jan 2 2006 15:04 MST")
	}
	return st, nil
}

// Set persists the window and drops the cached copy.
func (s *WindowService) Set(ctx context.Context, w model.RegistrationWindow) error {
	defer s.Invalidate()
	return s.settings.SetWindow(ctx, w)
}

// Invalidate drops the cached window after any settings write.
func (s *WindowService) Invalidate() {
	s.cache.Delete(windowCacheKey)
}
