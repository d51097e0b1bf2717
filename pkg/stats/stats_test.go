package stats

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecorderBuildsLeaderboard(t *testing.T) {
	s := openTemp(t)
	r, err := NewRecorder(s)
	require.NoError(t, err)

	r.Track(KindJoin, 1, 0)
	r.Track(KindJoin, 2, 0)
	r.Track(KindShot, 1, 0)
	r.Track(KindShot, 1, 0)
	r.Track(KindDeath, 2, 1)
	r.Track(KindDeath, 1, 0)
	r.Track(KindDeath, 2, 1)
	r.Track(KindLeave, 2, 0)
	r.Close()

	board, err := s.Leaderboard(r.Run(), 10)
	require.NoError(t, err)
	require.Len(t, board, 2)

	assert.Equal(t, uint32(1), board[0].Ship)
	assert.Equal(t, 2, board[0].Kills)
	assert.Equal(t, 1, board[0].Deaths)
	assert.Equal(t, 2, board[0].Shots)

	assert.Equal(t, uint32(2), board[1].Ship)
	assert.Equal(t, 0, board[1].Kills)
	assert.Equal(t, 2, board[1].Deaths)

	counts, err := s.EventCounts(r.Run())
	require.NoError(t, err)
	assert.Equal(t, map[Kind]int{KindJoin: 2, KindShot: 2, KindDeath: 3, KindLeave: 1}, counts)
	assert.Equal(t, 0, r.Dropped())
}

func TestRunsAreSeparate(t *testing.T) {
	s := openTemp(t)
	first, err := NewRecorder(s)
	require.NoError(t, err)
	first.Track(KindJoin, 1, 0)
	first.Close()

	second, err := NewRecorder(s)
	require.NoError(t, err)
	second.Close()

	assert.NotEqual(t, first.Run(), second.Run())
	board, err := s.Leaderboard(second.Run(), 10)
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestNilRecorderIgnoresEvents(t *testing.T) {
	var r *Recorder
	r.Track(KindShot, 1, 0)
	r.Close()
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s, err := Open(path)
	require.NoError(t, err)
	r, err := NewRecorder(s)
	require.NoError(t, err)
	r.Track(KindShot, 3, 0)
	r.Close()
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	board, err := s.Leaderboard(r.Run(), 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 1, board[0].Shots)
}
