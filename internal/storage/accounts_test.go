package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/speed2048/internal/speedrun"
)

func createUser(t *testing.T, store *Store, id, name string) {
	t.Helper()
	require.NoError(t, store.CreateUser(context.Background(), User{
		ID:           id,
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	}))
}

func ptr(v int64) *int64 { return &v }

func TestCreateUserConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	err := store.CreateUser(ctx, User{ID: "u2", Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, ErrConflict)

	err = store.CreateUser(ctx, User{ID: "u3", Username: "bob", Email: "alice@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, ErrConflict)

	exists, err := store.UserExists(ctx, "alice", "nobody@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	u, err := store.UserByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.TOTPEnabled)

	_, err = store.UserByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, store.CreateSession(ctx, "tok", "u1", now.Add(time.Hour)))
	require.NoError(t, store.CreateSession(ctx, "old", "u1", now.Add(-time.Minute)))

	u, err := store.UserBySession(ctx, "tok", now)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = store.UserBySession(ctx, "old", now)
	require.ErrorIs(t, err, ErrNotFound, "expired token must not resolve")

	n, err := store.PurgeSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, store.DeleteSession(ctx, "tok"))
	_, err = store.UserBySession(ctx, "tok", now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTOTPFlags(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	require.ErrorIs(t, store.EnableTOTP(ctx, "u1"), ErrNotFound, "cannot enable without a secret")

	require.NoError(t, store.SetTOTPSecret(ctx, "u1", "SECRET"))
	u, err := store.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "SECRET", u.TOTPSecret)
	assert.False(t, u.TOTPEnabled)

	require.NoError(t, store.EnableTOTP(ctx, "u1"))
	u, err = store.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.TOTPEnabled)

	require.ErrorIs(t, store.SetTOTPSecret(ctx, "u1", "OTHER"), ErrNotFound, "an enabled secret is kept")
	u, err = store.UserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "SECRET", u.TOTPSecret)
	assert.True(t, u.TOTPEnabled)
}

func TestUpdateBestScoreOnlyWhenGreater(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	tests := []struct {
		score   int
		updated bool
		best    int
	}{
		{500, true, 500},
		{300, false, 500},
		{500, false, 500},
		{800, true, 800},
	}
	for _, tt := range tests {
		updated, best, err := store.UpdateBestScore(ctx, "u1", tt.score)
		require.NoError(t, err)
		assert.Equal(t, tt.updated, updated, "score %d", tt.score)
		assert.Equal(t, tt.best, best, "score %d", tt.score)
	}

	_, _, err := store.UpdateBestScore(ctx, "missing", 10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSpeedrunBest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	updated, err := store.UpdateSpeedrunBest(ctx, "u1", ptr(300_000), speedrun.Milestones{8: 900, 16: 3000})
	require.NoError(t, err)
	assert.True(t, updated, "first result always updates")

	// Slower time but a faster 8 merges only the block time
	updated, err = store.UpdateSpeedrunBest(ctx, "u1", ptr(400_000), speedrun.Milestones{8: 500, 16: 3500})
	require.NoError(t, err)
	assert.True(t, updated)

	res, err := store.UserResults(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, res.BestSpeedrunTime)
	assert.EqualValues(t, 300_000, *res.BestSpeedrunTime, "slower time must not replace the best")
	assert.Equal(t, speedrun.Milestones{8: 500, 16: 3000}, res.BestBlockTimes)

	// Nothing better
	updated, err = store.UpdateSpeedrunBest(ctx, "u1", ptr(350_000), speedrun.Milestones{8: 600})
	require.NoError(t, err)
	assert.False(t, updated)

	// A lost run only contributes block times
	updated, err = store.UpdateSpeedrunBest(ctx, "u1", nil, speedrun.Milestones{32: 7000})
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = store.UpdateSpeedrunBest(ctx, "u1", ptr(250_000), nil)
	require.NoError(t, err)
	assert.True(t, updated)

	res, err = store.UserResults(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 250_000, *res.BestSpeedrunTime)
	assert.Equal(t, speedrun.Milestones{8: 500, 16: 3000, 32: 7000}, res.BestBlockTimes)
}

func TestUserResultsEmpty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createUser(t, store, "u1", "alice")

	res, err := store.UserResults(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, res.BestScore)
	assert.Nil(t, res.BestSpeedrunTime)
	assert.Empty(t, res.BestBlockTimes)
}

func TestLeaderboard(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	players := []struct {
		id, name string
		score    int
		time     *int64
	}{
		{"u1", "alice", 5000, ptr(400_000)},
		{"u2", "bob", 9000, nil},
		{"u3", "carol", 7000, ptr(250_000)},
		{"u4", "dave", 0, nil},
	}
	for _, p := range players {
		createUser(t, store, p.id, p.name)
		if p.score > 0 {
			_, _, err := store.UpdateBestScore(ctx, p.id, p.score)
			require.NoError(t, err)
		}
		if p.time != nil {
			_, err := store.UpdateSpeedrunBest(ctx, p.id, p.time, nil)
			require.NoError(t, err)
		}
	}

	classic, total, err := store.Leaderboard(ctx, LeaderboardClassic, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total, "dave has no score")
	require.Len(t, classic, 2)
	assert.Equal(t, "bob", classic[0].Username)
	assert.Equal(t, 1, classic[0].Rank)
	assert.Equal(t, "carol", classic[1].Username)

	page2, _, err := store.Leaderboard(ctx, LeaderboardClassic, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "alice", page2[0].Username)
	assert.Equal(t, 3, page2[0].Rank)

	fastest, total, err := store.Leaderboard(ctx, LeaderboardSpeedrun, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, fastest, 2)
	assert.Equal(t, "carol", fastest[0].Username)
	assert.EqualValues(t, 250_000, fastest[0].BestTime)

	_, _, err = store.Leaderboard(ctx, "zen", 10, 0)
	require.Error(t, err)
}
