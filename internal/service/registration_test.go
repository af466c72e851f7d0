package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/league-registration/internal/database"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/queue"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/testutil"
)

type countingNotifier struct {
	mu     sync.Mutex
	events []queue.RegistrationConfirmed
	err    error
}

func (n *countingNotifier) Enqueue(_ context.Context, ev queue.RegistrationConfirmed) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type fixture struct {
	db       *sql.DB
	svc      *RegistrationService
	notifier *countingNotifier
	settings *repository.SettingRepo
	avail    *AvailabilityService
	regular  []uint64 // one Day 1 slot per regular venue
	regular2 []uint64 // Day 2 slots
	champ    uint64
}

// newFixture builds three regular venues with two days each and one
// championship venue with one day, all at the given capacity.
func newFixture(t *testing.T, capacity int, opts ...Option) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, notifier: &countingNotifier{}}
	for i := 1; i <= 3; i++ {
		v := testutil.InsertVenue(t, db, fmt.Sprintf("Venue %d", i), "regular", true)
		f.regular = append(f.regular, testutil.InsertSlot(t, db, v, "Day 1", capacity, true))
		f.regular2 = append(f.regular2, testutil.InsertSlot(t, db, v, "Day 2", capacity, true))
	}
	c := testutil.InsertVenue(t, db, "Gauss", "championship", true)
	f.champ = testutil.InsertSlot(t, db, c, "Day 1", capacity, true)

	f.settings = repository.NewSettingRepo(db)
	slots := repository.NewTimeSlotRepo(db, database.SQLite)
	f.avail = NewAvailabilityService(slots)
	f.svc = NewRegistrationService(db,
		repository.NewVenueRepo(db), slots,
		repository.NewRegistrationRepo(db, database.SQLite), f.settings,
		append([]Option{WithNotifier(f.notifier)}, opts...)...)
	return f
}

func (f *fixture) submit(team string) (*SubmitResult, error) {
	return f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         team,
		RegularSlotIDs:     f.regular,
		ChampionshipSlotID: f.champ,
	})
}

func TestSubmit_Scenario(t *testing.T) {
	f := newFixture(t, 2)

	res, err := f.submit("101")
	require.NoError(t, err)
	require.Len(t, res.RegistrationIDs, 4)
	require.Equal(t, "Team 101 successfully registered for: Venue 1 - Day 1, Venue 2 - Day 1, Venue 3 - Day 1, Gauss - Day 1", res.Message)

	_, err = f.submit("101")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	require.Equal(t, "Team 101 has already submitted selections", err.Error())

	_, err = f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         "102",
		RegularSlotIDs:     f.regular[:2],
		ChampionshipSlotID: f.champ,
	})
	require.ErrorIs(t, err, ErrWrongSelectionCount)
	require.Contains(t, err.Error(), "(3 total)")

	_, err = f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         "102",
		RegularSlotIDs:     f.regular2,
		ChampionshipSlotID: f.champ,
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         "103",
		RegularSlotIDs:     f.regular2,
		ChampionshipSlotID: f.champ,
	})
	require.ErrorIs(t, err, ErrSlotFull)

	f.svc.Wait()
	require.Equal(t, 2, f.notifier.count(), "one event per success, none per failure")
	require.Equal(t, 8, testutil.CountRows(t, f.db, "registrations"))
}

func TestSubmit_SlotFullNamesVenueAndDay(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.submit("1")
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         "2",
		RegularSlotIDs:     []uint64{f.regular2[0], f.regular[1], f.regular2[2]},
		ChampionshipSlotID: f.champ,
	})
	require.ErrorIs(t, err, ErrSlotFull)
	require.Equal(t, "Venue 2 - Day 1 is full (1/1 teams)", err.Error(), "regular slots are checked in submitted order")
	require.Equal(t, "slot_full", Code(err))
}

func TestSubmit_CompletenessCreatesOneRowPerVenue(t *testing.T) {
	f := newFixture(t, 5)
	res, err := f.submit("7")
	require.NoError(t, err)

	rows, err := repository.NewRegistrationRepo(f.db, database.SQLite).ListByTeam(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	venues := map[uint64]bool{}
	for i, r := range rows {
		require.Equal(t, res.RegistrationIDs[i], r.ID)
		require.True(t, r.CreatedAt.Equal(res.CreatedAt), "rows share one timestamp")
		venues[r.VenueID] = true
	}
	require.Len(t, venues, 4)
	require.Equal(t, model.VenueChampionship, rows[3].VenueKind, "championship row is written last")
}

func TestSubmit_ConcurrentSubmissionsRespectCapacity(t *testing.T) {
	const capacity = 4
	db := testutil.NewDB(t)
	c := testutil.InsertVenue(t, db, "Euclid", "championship", true)
	slot := testutil.InsertSlot(t, db, c, "Day 1", capacity, true)
	svc := NewRegistrationService(db,
		repository.NewVenueRepo(db), repository.NewTimeSlotRepo(db, database.SQLite),
		repository.NewRegistrationRepo(db, database.SQLite), repository.NewSettingRepo(db))

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		full      atomic.Int32
		other     = make(chan error, capacity+1)
	)
	for i := 0; i < capacity+1; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), SubmitRequest{
				TeamNumber:         fmt.Sprintf("%d", 100+i),
				ChampionshipSlotID: slot,
			})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrSlotFull):
				full.Add(1)
			default:
				other <- err
			}
		}(i)
	}
	wg.Wait()
	close(other)
	for err := range other {
		require.NoError(t, err)
	}
	require.EqualValues(t, capacity, successes.Load())
	require.EqualValues(t, 1, full.Load())
	require.Equal(t, capacity, testutil.CountRows(t, db, "registrations"))
}

func TestSubmit_DeadlineBoundary(t *testing.T) {
	deadline := time.UnixMilli(1_760_000_000_000).UTC()
	var now atomic.Value
	now.Store(deadline)
	f := newFixture(t, 5, WithClock(func() time.Time { return now.Load().(time.Time) }))
	require.NoError(t, f.settings.SetWindow(context.Background(), model.RegistrationWindow{Open: true, Deadline: &deadline}))

	_, err := f.submit("1")
	require.NoError(t, err, "the deadline instant is still open")

	now.Store(deadline.Add(time.Millisecond))
	_, err = f.submit("2")
	require.ErrorIs(t, err, ErrRegistrationClosed)
	require.Equal(t, "registration_closed", Code(err))
}

func TestSubmit_ClosedFlag(t *testing.T) {
	f := newFixture(t, 5)
	require.NoError(t, f.settings.Set(context.Background(), model.SettingRegistrationOpen, "false", ""))

	_, err := f.submit("1")
	require.ErrorIs(t, err, ErrRegistrationClosed)
	f.svc.Wait()
	require.Zero(t, f.notifier.count())
}

func TestSubmit_ValidationOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("no championship venue", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.db.Exec(`UPDATE venues SET is_active = 0 WHERE kind = 'championship'`)
		require.NoError(t, err)
		_, err = f.submit("1")
		require.ErrorIs(t, err, ErrChampionshipNotConfigured)
	})

	t.Run("unknown slot", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: []uint64{f.regular[0], f.regular[1], 9999}, ChampionshipSlotID: f.champ})
		require.ErrorIs(t, err, ErrInvalidSlot)
	})

	t.Run("inactive championship slot", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.db.Exec(`UPDATE time_slots SET is_active = 0 WHERE id = ?`, f.champ)
		require.NoError(t, err)
		_, err = f.submit("1")
		require.ErrorIs(t, err, ErrInvalidSlot)
		require.Equal(t, "Selected championship time slot is invalid or inactive", err.Error())
	})

	t.Run("two days of one venue", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: []uint64{f.regular[0], f.regular2[0], f.regular[2]}, ChampionshipSlotID: f.champ})
		require.ErrorIs(t, err, ErrDuplicateOrMissingVenueSelection)
	})

	t.Run("championship slot in regular list", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: []uint64{f.regular[0], f.regular[1], f.champ}, ChampionshipSlotID: f.champ})
		require.ErrorIs(t, err, ErrDuplicateOrMissingVenueSelection)
	})

	t.Run("regular slot as championship", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: f.regular, ChampionshipSlotID: f.regular2[0]})
		require.ErrorIs(t, err, ErrInvalidChampionshipSlot)
	})

	t.Run("slot of inactive venue", func(t *testing.T) {
		f := newFixture(t, 5)
		extra := testutil.InsertVenue(t, f.db, "Closed", "regular", false)
		s := testutil.InsertSlot(t, f.db, extra, "Day 1", 5, true)
		_, err := f.svc.Submit(ctx, SubmitRequest{TeamNumber: "1", RegularSlotIDs: []uint64{f.regular[0], f.regular[1], s}, ChampionshipSlotID: f.champ})
		require.ErrorIs(t, err, ErrDuplicateOrMissingVenueSelection)
		require.Equal(t, "Selected regular slot is not from an active regular venue", err.Error())
	})

	t.Run("closed window wins over everything", func(t *testing.T) {
		f := newFixture(t, 5)
		_, err := f.submit("1")
		require.NoError(t, err)
		require.NoError(t, f.settings.Set(ctx, model.SettingRegistrationOpen, "false", ""))
		_, err = f.submit("1")
		require.ErrorIs(t, err, ErrRegistrationClosed)
	})
}

func TestSubmit_NotifierErrorDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t, 5)
	f.notifier.err = errors.New("broker down")

	res, err := f.svc.Submit(context.Background(), SubmitRequest{
		TeamNumber:         " 55 ",
		RegularSlotIDs:     f.regular,
		ChampionshipSlotID: f.champ,
		Email:              "coach@example.com",
	})
	require.NoError(t, err)
	require.Len(t, res.RegistrationIDs, 4)

	f.svc.Wait()
	require.Equal(t, 1, f.notifier.count())
	ev := f.notifier.events[0]
	require.Equal(t, "55", ev.TeamNumber, "team number is trimmed")
	require.NotEmpty(t, ev.EventID)
	require.NotNil(t, ev.Email)
	require.Equal(t, "coach@example.com", ev.Email.To)
	require.Equal(t, res.Summary, ev.Email.Text)
	require.Contains(t, ev.Email.HTML, "<li>League: Gauss - Day 1</li>")
}

func TestSubmit_NotifierErrorIsLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetEnabled(true)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	f := newFixture(t, 5)
	f.notifier.err = errors.New("broker down")
	_, err := f.submit("56")
	require.NoError(t, err)
	f.svc.Wait()

	require.Equal(t, 1, strings.Count(buf.String(), "broker down"))
	require.Contains(t, buf.String(), "enqueue confirmation failed")
}

func TestRetryBackOff_JitteredAndCapped(t *testing.T) {
	bo := newRetryBackOff()
	base := retryInitialInterval
	for i := 0; i < 8; i++ {
		d := bo.NextBackOff()
		require.GreaterOrEqual(t, d, base/2, "attempt %d", i+1)
		require.LessOrEqual(t, d, base+base/2, "attempt %d", i+1)
		if base *= 2; base > retryMaxInterval {
			base = retryMaxInterval
		}
	}
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.False(t, sleep(ctx, time.Minute))
	require.Less(t, time.Since(start), time.Second)
	require.True(t, sleep(context.Background(), time.Millisecond))
}

func TestSubmit_NoEmailMeansNoEmailJob(t *testing.T) {
	f := newFixture(t, 5)
	_, err := f.submit("9")
	require.NoError(t, err)
	f.svc.Wait()
	require.Nil(t, f.notifier.events[0].Email)
}

func TestCheckTeam(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	got, err := f.svc.CheckTeam(ctx, "42")
	require.NoError(t, err)
	require.True(t, got.IsAvailable)
	require.Nil(t, got.ExistingRegistration)

	_, err = f.submit("42")
	require.NoError(t, err)
	got, err = f.svc.CheckTeam(ctx, "42")
	require.NoError(t, err)
	require.False(t, got.IsAvailable)
	require.Equal(t, "42", got.ExistingRegistration.TeamNumber)
}

func TestAvailability_IdempotentReadAndOrder(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	_, err := f.submit("101")
	require.NoError(t, err)

	first, err := f.avail.Available(ctx)
	require.NoError(t, err)
	second, err := f.avail.Available(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Len(t, first, 7)
	require.Equal(t, model.VenueChampionship, first[len(first)-1].VenueKind, "championship sorts last")
	require.Equal(t, "Venue 1", first[0].VenueName)
	require.Equal(t, "Day 1", first[0].DayLabel)
	require.Equal(t, 1, first[0].CurrentCount)
	require.Equal(t, 1, first[0].SpotsRemaining)
	require.True(t, first[0].IsAvailable)

	one, err := f.avail.Slot(ctx, f.champ)
	require.NoError(t, err)
	require.Equal(t, 1, one.CurrentCount)

	// Lowering capacity below the count leaves a negative remainder.
	_, err = f.db.Exec(`UPDATE time_slots SET capacity = 0 WHERE id = ?`, f.champ)
	require.NoError(t, err)
	one, err = f.avail.Slot(ctx, f.champ)
	require.NoError(t, err)
	require.Equal(t, -1, one.SpotsRemaining)
	require.False(t, one.IsAvailable)
}
