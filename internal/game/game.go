// internal/game/game.go
package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gomokuhub/gomoku/internal/models"
)

// Status is the lifecycle state of a session. A session transitions
// playing -> finished exactly once and never reverses.
type Status string

const (
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Result describes how a finished session ended.
type Result string

const (
	ResultNone   Result = ""
	ResultWin    Result = "win"
	ResultDraw   Result = "draw"
	ResultResign Result = "resign"
)

// DefaultAIDelay is the scripted opponent's simulated thinking time.
const DefaultAIDelay = 1 * time.Second

// Participant is an identity occupying a seat. The seat itself is
// which of the session's two fields holds the participant, so the AI
// sentinel and a human are handled uniformly.
type Participant struct {
	models.Identity
	IsAI bool `json:"isAI,omitempty"`
}

// Move is one entry of the ordered move log.
type Move struct {
	By   uuid.UUID `json:"by"`
	Cell int       `json:"cell"`
	Seat Seat      `json:"seat"`
	At   time.Time `json:"at"`
}

// Snapshot is an immutable value copy of a session taken at push time,
// so a later in-place mutation cannot retroactively alter what was
// already sent to a client.
type Snapshot struct {
	ID     uuid.UUID        `json:"id"`
	Board  Board            `json:"board"`
	X      Participant      `json:"x"`
	O      Participant      `json:"o"`
	Mover  Seat             `json:"mover"`
	Moves  []Move           `json:"moves"`
	Status Status           `json:"status"`
	Result Result           `json:"result"`
	Winner *models.Identity `json:"winner,omitempty"`
	VsAI   bool             `json:"vsAI"`
}

// Session holds the entire state of a single game instance in memory.
// All mutation goes through ApplyMove and Resign, both of which hold
// the session mutex, so concurrent moves, resigns, and the deferred AI
// move serialize against each other.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	VsAI      bool

	X Participant
	O Participant

	Board  Board
	Mover  Seat
	Moves  []Move
	Status Status
	Result Result
	Winner *models.Identity

	// AIDelay is the simulated thinking time before the scripted
	// opponent replies. Zero means DefaultAIDelay.
	AIDelay time.Duration

	// PushFn delivers a state snapshot to both participants. It is
	// called while the session lock is held and must not block.
	PushFn func(snap Snapshot)

	// OnFinish is invoked exactly once, when the session transitions
	// to finished (rating update, durable recording). Called while the
	// session lock is held and must not block.
	OnFinish func(snap Snapshot)

	mu      sync.Mutex
	aiTimer *time.Timer
}

// NewSession creates a playing session with x as the first mover.
func NewSession(x, o Participant) *Session {
	id, _ := uuid.NewRandom()
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		VsAI:      x.IsAI || o.IsAI,
		X:         x,
		O:         o,
		Mover:     SeatX,
		Status:    StatusPlaying,
		Result:    ResultNone,
	}
}

// seatOf returns the seat occupied by the given identity, or SeatNone.
func (s *Session) seatOf(id uuid.UUID) Seat {
	switch id {
	case s.X.ID:
		return SeatX
	case s.O.ID:
		return SeatO
	}
	return SeatNone
}

// participant returns the participant occupying the given seat.
func (s *Session) participant(seat Seat) Participant {
	if seat == SeatX {
		return s.X
	}
	return s.O
}

// ApplyMove validates and applies one move by the given identity.
// Rejections, in order: finished session, non-participant, wrong turn,
// out-of-range or occupied cell. On success the cell is written, the
// move log appended, the mover flipped, and the outcome evaluated;
// the resulting snapshot is pushed to both participants. If the
// scripted opponent is now to move, its reply is scheduled as a
// deferred task so the snapshot returned here is always broadcast
// before the AI's.
func (s *Session) ApplyMove(actorID uuid.UUID, cell int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status != StatusPlaying {
		return Snapshot{}, ErrInvalidGame
	}
	seat := s.seatOf(actorID)
	if seat == SeatNone {
		return Snapshot{}, ErrNotParticipant
	}
	if seat != s.Mover {
		return Snapshot{}, ErrNotYourTurn
	}
	if cell < 0 || cell >= BoardCells || s.Board[cell] != SeatNone {
		return Snapshot{}, ErrInvalidCell
	}

	s.Board[cell] = seat
	s.Moves = append(s.Moves, Move{By: actorID, Cell: cell, Seat: seat, At: time.Now().UTC()})
	s.Mover = seat.Other()

	if out := Evaluate(s.Board); out.Finished {
		result := ResultDraw
		var winner Seat
		if out.Winner != SeatNone {
			result = ResultWin
			winner = out.Winner
		}
		s.finishLocked(result, winner)
	}

	snap := s.snapshotLocked()
	if s.PushFn != nil {
		s.PushFn(snap)
	}

	if s.Status == StatusFinished {
		if s.OnFinish != nil {
			s.OnFinish(snap)
		}
	} else if s.VsAI && s.participant(s.Mover).IsAI {
		s.scheduleAIMoveLocked()
	}
	return snap, nil
}

// Resign ends the session in favor of the other participant. Allowed
// only while playing. The caller is responsible for the control echo;
// no game-state push happens here.
func (s *Session) Resign(actorID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status != StatusPlaying {
		return Snapshot{}, ErrInvalidGame
	}
	seat := s.seatOf(actorID)
	if seat == SeatNone {
		return Snapshot{}, ErrNotParticipant
	}

	s.finishLocked(ResultResign, seat.Other())
	snap := s.snapshotLocked()
	if s.OnFinish != nil {
		s.OnFinish(snap)
	}
	return snap, nil
}

// IsParticipant reports whether the identity occupies either seat.
func (s *Session) IsParticipant(id uuid.UUID) bool {
	return s.seatOf(id) != SeatNone
}

// CurrentStatus returns the session status under the lock.
func (s *Session) CurrentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status
}

// Snapshot returns a value copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// finishLocked transitions the session to finished and cancels any
// pending AI reply. winnerSeat == SeatNone means a draw.
func (s *Session) finishLocked(result Result, winnerSeat Seat) {
	s.Status = StatusFinished
	s.Result = result
	if winnerSeat != SeatNone {
		winner := s.participant(winnerSeat).Identity
		s.Winner = &winner
	}
	if s.aiTimer != nil {
		s.aiTimer.Stop()
		s.aiTimer = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:     s.ID,
		Board:  s.Board,
		X:      s.X,
		O:      s.O,
		Mover:  s.Mover,
		Moves:  make([]Move, len(s.Moves)),
		Status: s.Status,
		Result: s.Result,
		VsAI:   s.VsAI,
	}
	copy(snap.Moves, s.Moves)
	if s.Winner != nil {
		winner := *s.Winner
		snap.Winner = &winner
	}
	return snap
}

// scheduleAIMoveLocked arms the deferred AI reply. The timer callback
// re-checks the session state under the lock before acting, so a
// resign or disconnect-driven finish that lands first makes it a no-op.
func (s *Session) scheduleAIMoveLocked() {
	delay := s.AIDelay
	if delay <= 0 {
		delay = DefaultAIDelay
	}
	if s.aiTimer != nil {
		s.aiTimer.Stop()
	}
	s.aiTimer = time.AfterFunc(delay, s.playAIMove)
}

// playAIMove runs on the AI timer goroutine. It picks a move from the
// current board and applies it through the normal ApplyMove path under
// the AI's own identity.
func (s *Session) playAIMove() {
	s.mu.Lock()
	if s.Status != StatusPlaying || !s.participant(s.Mover).IsAI {
		s.mu.Unlock()
		return
	}
	board := s.Board
	aiSeat := s.Mover
	aiID := s.participant(aiSeat).ID
	s.mu.Unlock()

	cell, ok := ChooseMove(board, aiSeat, aiSeat.Other())
	if !ok {
		return
	}
	if _, err := s.ApplyMove(aiID, cell); err != nil {
		// The game may have finished between the check and the apply.
		logrus.Debugf("ai move on game %s not applied: %v", s.ID, err)
	}
}
