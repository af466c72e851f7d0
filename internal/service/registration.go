package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/queue"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/tracing"
)

const (
	defaultMaxAttempts   = 5
	defaultNotifyTimeout = 10 * time.Second

	retryInitialInterval = 10 * time.Millisecond
	retryMaxInterval     = 200 * time.Millisecond
)

// Notifier receives one confirmation event per successful submission.
type Notifier interface {
	Enqueue(ctx context.Context, ev queue.RegistrationConfirmed) error
}

// SubmitRequest is one team's full selection set.
type SubmitRequest struct {
	TeamNumber         string
	RegularSlotIDs     []uint64
	ChampionshipSlotID uint64
	Email              string
}

// SubmitResult describes a committed registration.
type SubmitResult struct {
	RegistrationIDs []uint64
	Selections      []model.Selection
	Summary         string
	Message         string
	CreatedAt       time.Time
}

// TeamAvailability answers whether a team number is still free.
type TeamAvailability struct {
	IsAvailable          bool                      `json:"is_available"`
	ExistingRegistration *model.RegistrationDetail `json:"existing_registration,omitempty"`
}

// RegistrationService runs the registration transaction.
type RegistrationService struct {
	db       *sql.DB
	venues   *repository.VenueRepo
	slots    *repository.TimeSlotRepo
	regs     *repository.RegistrationRepo
	settings *repository.SettingRepo

	notifier      Notifier
	tracer        trace.Tracer
	now           func() time.Time
	maxAttempts   int
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

// Option configures a RegistrationService.
type Option func(*RegistrationService)

// WithNotifier sets where confirmation events go.
func WithNotifier(n Notifier) Option { return func(s *RegistrationService) { s.notifier = n } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *RegistrationService) { s.now = now } }

// WithTracer sets the tracer used for submit spans.
func WithTracer(t trace.Tracer) Option { return func(s *RegistrationService) { s.tracer = t } }

// WithMaxAttempts bounds how often a deadlocked transaction is re-run.
func WithMaxAttempts(n int) Option {
	return func(s *RegistrationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewRegistrationService wires the repositories used by Submit.
func NewRegistrationService(db *sql.DB, venues *repository.VenueRepo, slots *repository.TimeSlotRepo,
	regs *repository.RegistrationRepo, settings *repository.SettingRepo, opts ...Option) *RegistrationService {
	s := &RegistrationService{
		db:            db,
		venues:        venues,
		slots:         slots,
		regs:          regs,
		settings:      settings,
		tracer:        tracing.Noop(),
		now:           time.Now,
		maxAttempts:   defaultMaxAttempts,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates req against the current window, catalog and ledger and
// writes one row per selected slot in a single transaction. On failure it
// returns one of the rejection kinds (or a storage error) and writes
// nothing. Exactly one confirmation event is enqueued per success.
func (s *RegistrationService) Submit(ctx context.Context, req SubmitRequest) (res *SubmitResult, err error) {
	team := strings.TrimSpace(req.TeamNumber)
	ctx, span := s.tracer.Start(ctx, tracing.SpanSubmit)
	span.SetAttributes(
		attribute.String(tracing.AttrTeamNumber, team),
		attribute.Int(tracing.AttrSlotCount, len(req.RegularSlotIDs)+1),
	)
	defer func() { tracing.End(span, err) }()

	bo := newRetryBackOff()
	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int(tracing.AttrAttempt, attempt))
		res, err = s.submitOnce(ctx, team, req)
		if err == nil || !repository.IsRetryable(err) || attempt >= s.maxAttempts {
			break
		}
		wait := bo.NextBackOff()
		log.Warn(log.CatRegister, "transaction conflict; retrying", "team", team, "attempt", attempt,
			"retry_in", wait.String(), "error", err.Error())
		// Contenders that deadlocked together would collide again if they
		// restarted in lockstep.
		if !sleep(ctx, wait) {
			break
		}
	}
	if err != nil {
		if Code(err) != "" {
			log.Info(log.CatRegister, "submission rejected", "team", team, "code", Code(err), "reason", err.Error())
		} else {
			log.ErrorErr(log.CatRegister, "submission failed", err, "team", team)
		}
		return nil, err
	}

	log.Info(log.CatRegister, "registration committed", "team", team, "rows", len(res.RegistrationIDs))
	s.notify(team, strings.TrimSpace(req.Email), res)
	return res, nil
}

// newRetryBackOff spaces deadlock retries: 10ms doubling up to 200ms, each
// pause randomized by half its length either way.
func newRetryBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.5
	bo.Reset()
	return bo
}

// sleep waits for d or until ctx is done; false means ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *RegistrationService) submitOnce(ctx context.Context, team string, req SubmitRequest) (*SubmitResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := s.now()

	// 1. window
	w, err := s.settings.WindowTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !w.IsOpenAt(now) {
		return nil, reject(ErrRegistrationClosed, "Registration is currently closed")
	}

	// Lock the requested slot rows up front, in id order, so competing
	// submissions for the same slots queue here rather than deadlocking
	// later on the ledger indexes.
	ids := make([]uint64, 0, len(req.RegularSlotIDs)+1)
	ids = append(ids, req.RegularSlotIDs...)
	ids = append(ids, req.ChampionshipSlotID)
	slots, err := s.slots.LockByIDsTx(ctx, tx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	// 2. one-shot
	exists, err := s.regs.TeamExistsTx(ctx, tx, team)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, reject(ErrAlreadyRegistered, fmt.Sprintf("Team %s has already submitted selections", team))
	}

	// 3. catalog
	venues, err := s.venues.ListActiveTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	activeByID := make(map[uint64]*model.Venue, len(venues))
	regularCount, champCount := 0, 0
	for _, v := range venues {
		activeByID[v.ID] = v
		switch v.Kind {
		case model.VenueRegular:
			regularCount++
		case model.VenueChampionship:
			champCount++
		}
	}
	if champCount == 0 {
		return nil, reject(ErrChampionshipNotConfigured, "Championship venue is not configured")
	}

	// 4. shape
	if len(req.RegularSlotIDs) != regularCount {
		return nil, reject(ErrWrongSelectionCount,
			fmt.Sprintf("You must select one day for each regular venue (%d total)", regularCount))
	}

	// 5. slot validity
	for _, id := range req.RegularSlotIDs {
		if ts, ok := slots[id]; !ok || !ts.IsActive {
			return nil, reject(ErrInvalidSlot, "One or more selected regular venue time slots are invalid or inactive")
		}
	}
	champSlot, ok := slots[req.ChampionshipSlotID]
	if !ok || !champSlot.IsActive {
		return nil, reject(ErrInvalidSlot, "Selected championship time slot is invalid or inactive")
	}

	// 6. one slot per regular venue
	distinct := make(map[uint64]struct{}, regularCount)
	for _, id := range req.RegularSlotIDs {
		v, ok := activeByID[slots[id].VenueID]
		if !ok || v.Kind != model.VenueRegular {
			return nil, reject(ErrDuplicateOrMissingVenueSelection, "Selected regular slot is not from an active regular venue")
		}
		distinct[v.ID] = struct{}{}
	}
	if len(distinct) != regularCount {
		return nil, reject(ErrDuplicateOrMissingVenueSelection, "Please select exactly one day for each regular venue (no duplicates)")
	}

	// 7. championship venue
	champVenue, ok := activeByID[champSlot.VenueID]
	if !ok || champVenue.Kind != model.VenueChampionship {
		return nil, reject(ErrInvalidChampionshipSlot, "Selected championship slot must belong to an active championship venue")
	}

	// 8. capacity, counted under lock
	counts, err := s.regs.CountBySlotsTx(ctx, tx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		ts := slots[id]
		if counts[id] >= ts.Capacity {
			return nil, reject(ErrSlotFull, fmt.Sprintf("%s - %s is full (%d/%d teams)",
				activeByID[ts.VenueID].Name, ts.DayLabel, ts.Capacity, ts.Capacity))
		}
	}

	createdAt := now.UTC().Truncate(time.Millisecond)
	rows := make([]model.Registration, 0, len(ids))
	selections := make([]model.Selection, 0, len(ids))
	for _, id := range ids {
		ts := slots[id]
		v := activeByID[ts.VenueID]
		rows = append(rows, model.Registration{TeamNumber: team, VenueID: v.ID, TimeSlotID: ts.ID, CreatedAt: createdAt})
		selections = append(selections, model.Selection{
			SlotID:    ts.ID,
			VenueID:   v.ID,
			VenueName: v.Name,
			VenueKind: v.Kind,
			DayLabel:  ts.DayLabel,
			Date:      ts.Date,
			VenueDate: v.Date,
		})
	}
	regIDs, err := s.regs.InsertBulkTx(ctx, tx, rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	return &SubmitResult{
		RegistrationIDs: regIDs,
		Selections:      selections,
		Summary:         BuildSummary(selections),
		Message:         ConfirmationMessage(team, selections),
		CreatedAt:       createdAt,
	}, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// notify enqueues the confirmation event on a tracked goroutine so the
// caller's response never waits on the broker.
func (s *RegistrationService) notify(team, email string, res *SubmitResult) {
	if s.notifier == nil {
		return
	}
	ev := queue.RegistrationConfirmed{
		EventID:         uuid.NewString(),
		TeamNumber:      team,
		RegistrationIDs: res.RegistrationIDs,
		Selections:      res.Selections,
		Summary:         res.Summary,
		CreatedAt:       res.CreatedAt.Format(time.RFC3339),
	}
	if email != "" {
		html, err := RenderSummaryHTML(team, SummaryLines(res.Selections))
		if err != nil {
			log.ErrorErr(log.CatNotify, "render summary html", err, "team", team)
		}
		ev.Email = &queue.EmailJob{
			To:      email,
			Subject: fmt.Sprintf("Registration confirmed for team %s", team),
			Text:    res.Summary,
			HTML:    html,
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.Enqueue(ctx, ev); err != nil {
			log.ErrorErr(log.CatNotify, "enqueue confirmation failed", err, "team", team, "event_id", ev.EventID)
		}
	}()
}

// Wait blocks until every pending confirmation enqueue has returned.
func (s *RegistrationService) Wait() {
	s.wg.Wait()
}

// CheckTeam reports whether team has registered, with its first row if so.
func (s *RegistrationService) CheckTeam(ctx context.Context, team string) (TeamAvailability, error) {
	rows, err := s.regs.ListByTeam(ctx, strings.TrimSpace(team))
	if err != nil {
		return TeamAvailability{}, err
	}
	if len(rows) == 0 {
		return TeamAvailability{IsAvailable: true}, nil
	}
	return TeamAvailability{IsAvailable: false, ExistingRegistration: &rows[0]}, nil
}
