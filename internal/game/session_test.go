package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	assert.False(t, s.IsActive())
	assert.Equal(t, 0, s.Round())

	require.NoError(t, s.Start())
	assert.True(t, s.IsActive())
	assert.Equal(t, 1, s.Round())

	require.ErrorIs(t, s.Start(), ErrRoundActive)

	winners := []Winner{{Rank: 1, Username: "priya", Balance: 42_000}}
	require.NoError(t, s.Stop(winners))
	assert.False(t, s.IsActive())

	require.ErrorIs(t, s.Stop(nil), ErrRoundNotActive)

	// Starting again bumps the round and drops last round's winners.
	require.NoError(t, s.Start())
	assert.Equal(t, 2, s.Round())
	assert.Empty(t, s.Snapshot(0).Winners)
}

func TestSessionSnapshot(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop([]Winner{
		{Rank: 1, Username: "a", Balance: 90_000},
		{Rank: 2, Username: "b", Balance: 85_000},
	}))

	snap := s.Snapshot(7)
	assert.False(t, snap.IsActive)
	assert.Equal(t, 1, snap.RoundNumber)
	assert.Equal(t, 7, snap.ConnectedObservers)
	require.Len(t, snap.Winners, 2)
	assert.Equal(t, "a", snap.Winners[0].Username)

	// The snapshot holds a copy, not the live slice.
	snap.Winners[0].Username = "mutated"
	assert.Equal(t, "a", s.Snapshot(0).Winners[0].Username)

	s.ClearWinners()
	assert.Empty(t, s.Snapshot(0).Winners)
}

func TestRankWinners(t *testing.T) {
	// Entries arrive pre-sorted: finished players outrank richer
	// unfinished ones.
	leaderboard := []LeaderboardEntry{
		{Username: "done-small", Balance: 200, IsFinished: true},
		{Username: "rich", Balance: 90_000},
		{Username: "mid", Balance: 50_000},
		{Username: "broke", Balance: 10},
	}

	winners := rankWinners(leaderboard, WinnerCount)
	require.Len(t, winners, 3)
	assert.Equal(t, 1, winners[0].Rank)
	assert.Equal(t, "done-small", winners[0].Username)
	assert.Equal(t, "rich", winners[1].Username)
	assert.Equal(t, "mid", winners[2].Username)

	// Fewer players than podium spots.
	winners = rankWinners(leaderboard[:1], WinnerCount)
	require.Len(t, winners, 1)
	assert.Equal(t, 1, winners[0].Rank)

	assert.Empty(t, rankWinners(nil, WinnerCount))
}
