package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remote-agent-terminal/ttyclient/internal/db"
	"github.com/remote-agent-terminal/ttyclient/internal/model"
)

func newTestRepo(t *testing.T) *AttemptRepository {
	t.Helper()
	testDB, err := db.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })
	return NewAttemptRepository(testDB)
}

func newAttempt(n int, startedAt time.Time) *model.Attempt {
	return &model.Attempt{
		ID:        uuid.NewString(),
		Attempt:   n,
		URL:       "ws://example.com/terminal/abc/ws",
		State:     model.AttemptStateConnecting,
		StartedAt: startedAt,
	}
}

func TestAttemptLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a := newAttempt(1, start)
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStateConnecting, got.State)
	assert.True(t, got.StartedAt.Equal(start))
	assert.False(t, got.Connected())

	require.NoError(t, repo.MarkActive(ctx, a.ID, start.Add(time.Second)))
	require.NoError(t, repo.UpdatePreviewLine(ctx, a.ID, "user@host:~$"))
	require.NoError(t, repo.MarkClosed(ctx, a.ID, start.Add(time.Minute), "EOF", 5*time.Second))

	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStateClosed, got.State)
	require.True(t, got.Connected())
	require.NotNil(t, got.ClosedAt)
	assert.Equal(t, 59*time.Second, got.Duration(time.Now()))
	assert.Equal(t, "EOF", got.CloseReason)
	assert.Equal(t, 5*time.Second, got.ReconnectDelay)
	assert.Equal(t, "user@host:~$", got.PreviewLine)
}

func TestAttemptNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrAttemptNotFound)

	assert.ErrorIs(t, repo.MarkActive(ctx, "missing", time.Now()), model.ErrAttemptNotFound)
	assert.ErrorIs(t, repo.MarkClosed(ctx, "missing", time.Now(), "", 0), model.ErrAttemptNotFound)
	assert.ErrorIs(t, repo.UpdatePreviewLine(ctx, "missing", "x"), model.ErrAttemptNotFound)
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, newAttempt(i, start.Add(time.Duration(i)*time.Second))))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, a := range all {
		assert.Equal(t, 5-i, a.Attempt)
	}

	recent, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 5, recent[0].Attempt)
	assert.Equal(t, 4, recent[1].Attempt)
}

// Every closed attempt reads back with the reason and delay it was closed with.
func TestMarkClosedRoundTripProperty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("closed attempts keep reason and delay", prop.ForAll(
		func(attempt int, reason string, delayMS int64) bool {
			a := newAttempt(attempt, time.Now())
			if err := repo.Create(ctx, a); err != nil {
				t.Logf("create failed: %v", err)
				return false
			}

			delay := time.Duration(delayMS) * time.Millisecond
			if err := repo.MarkClosed(ctx, a.ID, time.Now(), reason, delay); err != nil {
				t.Logf("mark closed failed: %v", err)
				return false
			}

			got, err := repo.GetByID(ctx, a.ID)
			if err != nil {
				t.Logf("get failed: %v", err)
				return false
			}
			return got.Attempt == attempt &&
				got.State == model.AttemptStateClosed &&
				got.CloseReason == reason &&
				got.ReconnectDelay == delay &&
				got.ActiveAt == nil
		},
		gen.IntRange(1, 1000),
		gen.AlphaString(),
		gen.Int64Range(0, int64(time.Hour/time.Millisecond)),
	))

	properties.TestingRun(t)
}
