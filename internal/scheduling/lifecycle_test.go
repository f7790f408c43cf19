package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skydish/internal/models"
)

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusRequested, models.StatusScheduled, true},
		{models.StatusRequested, models.StatusCanceled, true},
		{models.StatusRequested, models.StatusInProgress, false},
		{models.StatusScheduled, models.StatusRequested, true},
		{models.StatusScheduled, models.StatusInProgress, true},
		{models.StatusScheduled, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusScheduled, false},
		{models.StatusCompleted, models.StatusCanceled, false},
		{models.StatusCanceled, models.StatusRequested, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func createRequested(t *testing.T, eng *Engine) string {
	t.Helper()
	id, errs, err := eng.CreatePoint(context.Background(), pointReq("researcher", testNow.Add(time.Hour), time.Hour))
	require.NoError(t, err)
	require.True(t, errs.Empty(), "%s", errs)
	return id
}

func TestApproveBeginComplete(t *testing.T) {
	eng, m := newTestEngine(t)
	ctx := context.Background()
	id := createRequested(t, eng)

	errs, err := eng.Approve(ctx, id)
	require.NoError(t, err)
	require.True(t, errs.Empty())
	assert.Equal(t, models.StatusScheduled, m.appointments[id].Status)

	errs, err = eng.Begin(ctx, id)
	require.NoError(t, err)
	require.True(t, errs.Empty())
	assert.Equal(t, models.StatusInProgress, m.appointments[id].Status)

	errs, err = eng.Complete(ctx, id)
	require.NoError(t, err)
	require.True(t, errs.Empty())
	assert.Equal(t, models.StatusCompleted, m.appointments[id].Status)
}

func TestDenyReturnsToRequested(t *testing.T) {
	eng, m := newTestEngine(t)
	ctx := context.Background()
	id := createRequested(t, eng)

	_, err := eng.Approve(ctx, id)
	require.NoError(t, err)

	errs, err := eng.Deny(ctx, id)
	require.NoError(t, err)
	require.True(t, errs.Empty())
	assert.Equal(t, models.StatusRequested, m.appointments[id].Status)
}

func TestBeginRequiresScheduled(t *testing.T) {
	eng, _ := newTestEngine(t)
	id := createRequested(t, eng)

	errs, err := eng.Begin(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, errs.Has(TagStatus))
}

func TestCompletedIsInert(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	id := createRequested(t, eng)

	_, err := eng.Approve(ctx, id)
	require.NoError(t, err)
	_, err = eng.Complete(ctx, id)
	require.NoError(t, err)

	errs, err := eng.Cancel(ctx, id)
	require.NoError(t, err)
	assert.True(t, errs.Has(TagStatus), "completed appointments accept no transitions")
}

func TestTransitionMissingAppointment(t *testing.T) {
	eng, _ := newTestEngine(t)
	errs, err := eng.Approve(context.Background(), "ghost")
	require.NoError(t, err)
	assert.True(t, errs.Has(TagID))
}
