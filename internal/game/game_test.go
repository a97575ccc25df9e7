// internal/game/game_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomokuhub/gomoku/internal/models"
)

// mockPusher collects snapshots instead of sending them over WS.
type mockPusher struct {
	mu       sync.Mutex
	pushes   []Snapshot
	finished []Snapshot
}

func (mp *mockPusher) pushFn(snap Snapshot) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.pushes = append(mp.pushes, snap)
}

func (mp *mockPusher) onFinish(snap Snapshot) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.finished = append(mp.finished, snap)
}

func (mp *mockPusher) pushCount() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.pushes)
}

func (mp *mockPusher) lastPush() Snapshot {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.pushes[len(mp.pushes)-1]
}

func (mp *mockPusher) finishCount() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.finished)
}

func newHuman(name string, elo int) Participant {
	return Participant{Identity: models.Identity{ID: uuid.New(), Username: name, Elo: elo}}
}

// setupHumanSession builds a human-vs-human session wired to a mock pusher.
func setupHumanSession(t *testing.T) (*Session, Participant, Participant, *mockPusher) {
	x := newHuman("alice", 1200)
	o := newHuman("bob", 1220)
	sess := NewSession(x, o)
	mp := &mockPusher{}
	sess.PushFn = mp.pushFn
	sess.OnFinish = mp.onFinish
	require.Equal(t, StatusPlaying, sess.Status)
	require.Equal(t, SeatX, sess.Mover)
	return sess, x, o, mp
}

func TestApplyMoveAlternatesAndLogs(t *testing.T) {
	sess, x, o, mp := setupHumanSession(t)

	snap, err := sess.ApplyMove(x.ID, 44)
	require.NoError(t, err)
	assert.Equal(t, SeatX, snap.Board[44])
	assert.Equal(t, SeatO, snap.Mover)

	snap, err = sess.ApplyMove(o.ID, 54)
	require.NoError(t, err)
	assert.Equal(t, SeatO, snap.Board[54])
	assert.Equal(t, SeatX, snap.Mover)

	require.Len(t, snap.Moves, 2)
	assert.Equal(t, x.ID, snap.Moves[0].By)
	assert.Equal(t, o.ID, snap.Moves[1].By)
	assert.Equal(t, 2, mp.pushCount())

	// Move count always equals the number of occupied cells.
	occupied := 0
	for _, s := range snap.Board {
		if s != SeatNone {
			occupied++
		}
	}
	assert.Equal(t, len(snap.Moves), occupied)
}

func TestApplyMoveRejectsStranger(t *testing.T) {
	sess, _, _, mp := setupHumanSession(t)

	_, err := sess.ApplyMove(uuid.New(), 0)
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Equal(t, 0, mp.pushCount())
	assert.Equal(t, SeatNone, sess.Snapshot().Board[0])
}

func TestApplyMoveRejectsOutOfTurn(t *testing.T) {
	sess, _, o, mp := setupHumanSession(t)

	_, err := sess.ApplyMove(o.ID, 0)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, 0, mp.pushCount())
	assert.Equal(t, SeatNone, sess.Snapshot().Board[0])
}

func TestApplyMoveRejectsBadCells(t *testing.T) {
	sess, x, o, _ := setupHumanSession(t)

	_, err := sess.ApplyMove(x.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidCell)
	_, err = sess.ApplyMove(x.ID, BoardCells)
	assert.ErrorIs(t, err, ErrInvalidCell)

	_, err = sess.ApplyMove(x.ID, 10)
	require.NoError(t, err)

	// Occupied cell.
	_, err = sess.ApplyMove(o.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidCell)

	snap := sess.Snapshot()
	assert.Equal(t, SeatX, snap.Board[10], "occupied cell is never rewritten")
	assert.Len(t, snap.Moves, 1)
}

func playToXWin(t *testing.T, sess *Session, x, o Participant) Snapshot {
	// X takes 44..48; O answers on row 6.
	oCells := []int{60, 61, 62, 63}
	var snap Snapshot
	for i, xc := range []int{44, 45, 46, 47, 48} {
		var err error
		snap, err = sess.ApplyMove(x.ID, xc)
		require.NoError(t, err)
		if i < len(oCells) {
			snap, err = sess.ApplyMove(o.ID, oCells[i])
			require.NoError(t, err)
		}
	}
	return snap
}

func TestFiveInARowFinishesSession(t *testing.T) {
	sess, x, o, mp := setupHumanSession(t)

	snap := playToXWin(t, sess, x, o)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, ResultWin, snap.Result)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, x.ID, snap.Winner.ID)
	assert.Equal(t, 1, mp.finishCount())

	// Finished is terminal: no further moves, no reversal.
	_, err := sess.ApplyMove(o.ID, 90)
	assert.ErrorIs(t, err, ErrInvalidGame)
	assert.Equal(t, StatusFinished, sess.Snapshot().Status)
	assert.Equal(t, 1, mp.finishCount(), "finish hook must fire exactly once")
}

func TestResign(t *testing.T) {
	sess, x, o, mp := setupHumanSession(t)

	_, err := sess.Resign(uuid.New())
	assert.ErrorIs(t, err, ErrNotParticipant)

	snap, err := sess.Resign(x.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, ResultResign, snap.Result)
	require.NotNil(t, snap.Winner)
	assert.Equal(t, o.ID, snap.Winner.ID)
	assert.Equal(t, 0, mp.pushCount(), "resign is a control flow, not a state push")
	assert.Equal(t, 1, mp.finishCount())

	_, err = sess.Resign(o.ID)
	assert.ErrorIs(t, err, ErrInvalidGame)
}

func TestSnapshotIsDetached(t *testing.T) {
	sess, x, o, _ := setupHumanSession(t)

	snap1, err := sess.ApplyMove(x.ID, 0)
	require.NoError(t, err)
	_, err = sess.ApplyMove(o.ID, 1)
	require.NoError(t, err)

	// The earlier snapshot must not see the later mutation.
	assert.Equal(t, SeatNone, snap1.Board[1])
	assert.Len(t, snap1.Moves, 1)
}

func TestAIMoveFollowsHumanMove(t *testing.T) {
	x := newHuman("carol", 1200)
	o := Participant{Identity: models.AIIdentity(), IsAI: true}
	sess := NewSession(x, o)
	sess.AIDelay = 10 * time.Millisecond
	mp := &mockPusher{}
	sess.PushFn = mp.pushFn
	sess.OnFinish = mp.onFinish
	require.True(t, sess.VsAI)

	_, err := sess.ApplyMove(x.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, mp.pushCount(), "human move broadcasts before the AI reply")

	require.Eventually(t, func() bool { return mp.pushCount() == 2 }, time.Second, 5*time.Millisecond)

	snap := mp.lastPush()
	require.Len(t, snap.Moves, 2)
	assert.Equal(t, o.ID, snap.Moves[1].By, "second move is authored by the AI identity")
	assert.Equal(t, SeatO, snap.Moves[1].Seat)
	assert.Equal(t, SeatX, snap.Mover)
}

func TestResignCancelsPendingAIMove(t *testing.T) {
	x := newHuman("dave", 1200)
	o := Participant{Identity: models.AIIdentity(), IsAI: true}
	sess := NewSession(x, o)
	sess.AIDelay = 20 * time.Millisecond
	mp := &mockPusher{}
	sess.PushFn = mp.pushFn
	sess.OnFinish = mp.onFinish

	_, err := sess.ApplyMove(x.ID, 0)
	require.NoError(t, err)

	_, err = sess.Resign(x.ID)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	snap := sess.Snapshot()
	assert.Len(t, snap.Moves, 1, "the deferred AI move must become a no-op after resign")
	assert.Equal(t, ResultResign, snap.Result)
}

func TestSessionStoreActiveLookup(t *testing.T) {
	store := NewSessionStore()
	sess, x, o, _ := setupHumanSession(t)
	store.Add(sess)

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.Same(t, sess, store.ActiveSessionFor(x.ID))
	assert.Same(t, sess, store.ActiveSessionFor(o.ID))
	assert.Nil(t, store.ActiveSessionFor(uuid.New()))

	_, err := sess.Resign(x.ID)
	require.NoError(t, err)
	assert.Nil(t, store.ActiveSessionFor(x.ID), "finished sessions no longer bind their participants")
}
