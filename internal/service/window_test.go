package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/league-registration/internal/model"
	"github.com/iliyamo/league-registration/internal/repository"
	"github.com/iliyamo/league-registration/internal/testutil"
)

func TestWindowService_CachesUntilSet(t *testing.T) {
	db := testutil.NewDB(t)
	settings := repository.NewSettingRepo(db)
	svc := NewWindowService(settings, time.Hour)
	ctx := context.Background()

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.IsOpen, "missing settings mean open with no deadline")
	require.Nil(t, st.Deadline)

	// A write behind the service's back is not seen until invalidation.
	require.NoError(t, settings.Set(ctx, model.SettingRegistrationOpen, "false", ""))
	st, err = svc.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.IsOpen)

	svc.Invalidate()
	st, err = svc.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.IsOpen)

	deadline := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Set(ctx, model.RegistrationWindow{Open: true, Deadline: &deadline}))
	svc.now = func() time.Time { return deadline.Add(-time.Minute) }
	st, err = svc.Status(ctx)
	require.NoError(t, err)
	require.True(t, st.IsOpen)
	require.True(t, st.Deadline.Equal(deadline))
	require.Equal(t, "Sun, Mar 1 2026 18:00 UTC", st.DeadlineFormatted)

	svc.now = func() time.Time { return deadline.Add(time.Millisecond) }
	st, err = svc.Status(ctx)
	require.NoError(t, err)
	require.False(t, st.IsOpen)
}
