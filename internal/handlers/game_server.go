// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gomokuhub/gomoku/internal/cache"
	"github.com/gomokuhub/gomoku/internal/game"
	"github.com/gomokuhub/gomoku/internal/matchmaking"
	"github.com/gomokuhub/gomoku/internal/models"
	"github.com/gomokuhub/gomoku/internal/rating"
)

// storeTimeout bounds every durable-store call made on behalf of a
// connection. The in-memory session is authoritative either way.
const storeTimeout = 5 * time.Second

// Store is the durable persistence collaborator. The realtime core
// calls it for token resolution, game recording, and rating commits;
// it never performs hashing or SQL itself.
type Store interface {
	GetIdentityByToken(ctx context.Context, token string) (models.Identity, error)
	CreateGame(ctx context.Context, snap game.Snapshot) error
	RecordGameResult(ctx context.Context, snap game.Snapshot) error
	GetGameMoves(ctx context.Context, gameID uuid.UUID) ([]game.Move, bool, error)
	CommitRatings(ctx context.Context, gameID, xID, oID uuid.UUID, oldX, oldO, newX, newO int) error
}

// GameServer owns the three shared mutable structures of the realtime
// core (connection registry, matchmaking queue, session set) and wires
// new sessions to broadcasting, rating, and persistence.
type GameServer struct {
	Log      *logrus.Logger
	Store    Store
	Registry *Registry
	Queue    *matchmaking.Queue
	Sessions *game.SessionStore

	// AIDelay overrides the scripted opponent's thinking time when
	// positive. Zero uses the session default.
	AIDelay time.Duration

	// PublishMove, when set, streams each applied move onto the
	// historian queue. Best-effort.
	PublishMove func(ctx context.Context, rec cache.MoveRecord) error
}

func NewGameServer(logger *logrus.Logger, store Store) *GameServer {
	return &GameServer{
		Log:      logger,
		Store:    store,
		Registry: NewRegistry(logger),
		Queue:    matchmaking.NewQueue(),
		Sessions: game.NewSessionStore(),
	}
}

// HandleAuthenticate resolves the token through the Store and binds
// the connection on success.
func (srv *GameServer) HandleAuthenticate(ctx context.Context, cl *client, raw json.RawMessage) {
	var payload authenticatePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Token == "" {
		cl.reply(srv.Log, kindAuthResult, authResultPayload{OK: false, Message: msgAuthFailed})
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	identity, err := srv.Store.GetIdentityByToken(storeCtx, payload.Token)
	cancel()
	if err != nil {
		srv.Log.Warnf("authentication failed: %v", err)
		cl.reply(srv.Log, kindAuthResult, authResultPayload{OK: false, Message: msgAuthFailed})
		return
	}

	// A connection re-authenticating as a different identity releases
	// its old binding first, or the old identity would stay listed as
	// online forever.
	if prev, ok := cl.currentIdentity(); ok && prev.ID != identity.ID {
		srv.Registry.Unbind(cl)
	}
	cl.setIdentity(identity)
	srv.Registry.Bind(cl)
	cl.reply(srv.Log, kindAuthResult, authResultPayload{OK: true, Identity: &identity})
	srv.Registry.BroadcastOnline()
}

// HandleRequestMatch either pairs the requester with a compatible
// waiting player, queues them, or starts an AI game immediately.
func (srv *GameServer) HandleRequestMatch(ctx context.Context, cl *client, identity models.Identity, raw json.RawMessage) {
	var payload requestMatchPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			cl.replyError(srv.Log, msgMalformedMessage)
			return
		}
	}

	// An identity is in the queue or in at most one playing session,
	// never both.
	if srv.Sessions.ActiveSessionFor(identity.ID) != nil {
		cl.replyError(srv.Log, msgAlreadyInGame)
		return
	}

	if payload.VsAI {
		// A queued player switching to an AI game gives up their
		// waiting slot; otherwise a later human request could pair
		// against the stale entry.
		srv.Queue.Leave(identity.ID)
		x := game.Participant{Identity: identity}
		o := game.Participant{Identity: models.AIIdentity(), IsAI: true}
		sess := srv.createSession(x, o)
		srv.persistNewGame(ctx, cl, sess)
		srv.Registry.Push(identity.ID, kindMatchFound, matchFoundPayload{
			GameID:     sess.ID,
			YourSymbol: game.SeatX,
			Opponent:   o,
		})
		return
	}

	opponent, paired := srv.Queue.RequestMatch(identity)
	if !paired {
		cl.reply(srv.Log, kindMatchQueued, struct{}{})
		return
	}

	// The waiting player takes the first-mover seat.
	x := game.Participant{Identity: opponent}
	o := game.Participant{Identity: identity}
	sess := srv.createSession(x, o)
	srv.persistNewGame(ctx, cl, sess)

	srv.Registry.Push(opponent.ID, kindMatchFound, matchFoundPayload{
		GameID:     sess.ID,
		YourSymbol: game.SeatX,
		Opponent:   o,
	})
	srv.Registry.Push(identity.ID, kindMatchFound, matchFoundPayload{
		GameID:     sess.ID,
		YourSymbol: game.SeatO,
		Opponent:   x,
	})
}

// HandleApplyMove routes a move to its session. The session pushes the
// updated snapshot to both participants itself.
func (srv *GameServer) HandleApplyMove(ctx context.Context, cl *client, identity models.Identity, raw json.RawMessage) {
	var payload applyMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		cl.replyError(srv.Log, msgMalformedMessage)
		return
	}
	sess, ok := srv.Sessions.Get(payload.GameID)
	if !ok {
		cl.replyError(srv.Log, game.ErrInvalidGame.Error())
		return
	}
	if _, err := sess.ApplyMove(identity.ID, payload.CellIndex); err != nil {
		cl.replyError(srv.Log, err.Error())
	}
}

// HandleResign finishes the session in the opponent's favor and echoes
// the control notification to both participants. No game-state push.
func (srv *GameServer) HandleResign(ctx context.Context, cl *client, identity models.Identity, raw json.RawMessage) {
	var payload gameRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		cl.replyError(srv.Log, msgMalformedMessage)
		return
	}
	sess, ok := srv.Sessions.Get(payload.GameID)
	if !ok {
		cl.replyError(srv.Log, game.ErrInvalidGame.Error())
		return
	}
	snap, err := sess.Resign(identity.ID)
	if err != nil {
		cl.replyError(srv.Log, err.Error())
		return
	}
	srv.broadcastControl(snap, kindResign, identity.ID)
}

// HandleControl echoes a draw proposal or pause to both participants.
// These are broadcast-only signals with no state mutation; accepting a
// proposed draw is deliberately not part of the protocol.
func (srv *GameServer) HandleControl(ctx context.Context, cl *client, identity models.Identity, kind string, raw json.RawMessage) {
	var payload gameRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		cl.replyError(srv.Log, msgMalformedMessage)
		return
	}
	sess, ok := srv.Sessions.Get(payload.GameID)
	if !ok {
		cl.replyError(srv.Log, game.ErrInvalidGame.Error())
		return
	}
	if !sess.IsParticipant(identity.ID) {
		cl.replyError(srv.Log, game.ErrNotParticipant.Error())
		return
	}
	srv.broadcastControl(sess.Snapshot(), kind, identity.ID)
}

// HandleRequestReplay returns the full ordered move log of a game,
// preferring the live session and falling back to the durable store.
func (srv *GameServer) HandleRequestReplay(ctx context.Context, cl *client, identity models.Identity, raw json.RawMessage) {
	var payload gameRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		cl.replyError(srv.Log, msgMalformedMessage)
		return
	}

	if sess, ok := srv.Sessions.Get(payload.GameID); ok {
		snap := sess.Snapshot()
		cl.reply(srv.Log, kindReplayData, replayDataPayload{GameID: snap.ID, Moves: snap.Moves})
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	moves, found, err := srv.Store.GetGameMoves(storeCtx, payload.GameID)
	cancel()
	if err != nil {
		srv.Log.Errorf("replay lookup failed for game %s: %v", payload.GameID, err)
		cl.replyError(srv.Log, msgStoreUnavailable)
		return
	}
	if !found {
		cl.replyError(srv.Log, msgReplayNotFound)
		return
	}
	if moves == nil {
		moves = []game.Move{}
	}
	cl.reply(srv.Log, kindReplayData, replayDataPayload{GameID: payload.GameID, Moves: moves})
}

// HandleDisconnect runs when a connection's read loop exits: drop the
// registry binding, remove any queue entry, broadcast presence. Any
// in-progress session is left untouched.
func (srv *GameServer) HandleDisconnect(cl *client) {
	identity, ok := cl.currentIdentity()
	if !ok {
		return
	}
	srv.Registry.Unbind(cl)
	srv.Queue.Leave(identity.ID)
	srv.Registry.BroadcastOnline()
}

// createSession builds a session wired to broadcasting, the move
// stream, and end-of-game processing, and adds it to the session set.
func (srv *GameServer) createSession(x, o game.Participant) *game.Session {
	sess := game.NewSession(x, o)
	sess.AIDelay = srv.AIDelay
	sess.PushFn = func(snap game.Snapshot) {
		srv.pushGameUpdate(snap)
		srv.streamLastMove(snap)
	}
	sess.OnFinish = func(snap game.Snapshot) {
		go srv.finishGame(snap)
	}
	srv.Sessions.Add(sess)
	srv.Log.WithFields(logrus.Fields{
		"game": sess.ID,
		"x":    x.ID,
		"o":    o.ID,
		"vsAI": sess.VsAI,
	}).Info("session created")
	return sess
}

// persistNewGame records the game row at match time. A store failure
// is surfaced to the acting connection but the in-memory session
// proceeds regardless.
func (srv *GameServer) persistNewGame(ctx context.Context, cl *client, sess *game.Session) {
	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := srv.Store.CreateGame(storeCtx, sess.Snapshot()); err != nil {
		srv.Log.Errorf("failed to persist new game %s: %v", sess.ID, err)
		cl.replyError(srv.Log, msgStoreUnavailable)
	}
}

// pushGameUpdate delivers the snapshot to both human participants.
func (srv *GameServer) pushGameUpdate(snap game.Snapshot) {
	payload := gameUpdatePayload{Session: snap}
	if !snap.X.IsAI {
		srv.Registry.Push(snap.X.ID, kindGameUpdate, payload)
	}
	if !snap.O.IsAI {
		srv.Registry.Push(snap.O.ID, kindGameUpdate, payload)
	}
}

// broadcastControl echoes a control notification to both participants.
func (srv *GameServer) broadcastControl(snap game.Snapshot, kind string, by uuid.UUID) {
	payload := controlPayload{By: by, GameID: snap.ID}
	if !snap.X.IsAI {
		srv.Registry.Push(snap.X.ID, kind, payload)
	}
	if !snap.O.IsAI {
		srv.Registry.Push(snap.O.ID, kind, payload)
	}
}

// streamLastMove queues the most recent move for the historian.
func (srv *GameServer) streamLastMove(snap game.Snapshot) {
	if srv.PublishMove == nil || len(snap.Moves) == 0 {
		return
	}
	idx := len(snap.Moves) - 1
	mv := snap.Moves[idx]
	rec := cache.MoveRecord{
		GameID:    snap.ID,
		MoveIndex: idx,
		ActorID:   mv.By,
		Cell:      mv.Cell,
		Seat:      string(mv.Seat),
		Timestamp: mv.At.UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := srv.PublishMove(ctx, rec); err != nil {
			srv.Log.Warnf("failed to publish move %d of game %s: %v", rec.MoveIndex, rec.GameID, err)
		}
	}()
}

// finishGame runs once per session, off the session lock: update
// ratings (human-human games only), refresh the registry's identity
// copies, and hand the result to the store. Persistence failures are
// logged and surfaced as generic errors; the in-memory outcome stands.
func (srv *GameServer) finishGame(snap game.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := srv.Store.RecordGameResult(ctx, snap); err != nil {
		srv.Log.Errorf("failed to record result of game %s: %v", snap.ID, err)
		srv.notifyStoreFailure(snap)
	}

	if snap.VsAI {
		return
	}

	scoreX := rating.ScoreDraw
	if snap.Winner != nil {
		if snap.Winner.ID == snap.X.ID {
			scoreX = rating.ScoreWin
		} else {
			scoreX = rating.ScoreLoss
		}
	}
	oldX, oldO := snap.X.Elo, snap.O.Elo
	newX, newO := rating.Update(oldX, oldO, scoreX)

	srv.Registry.UpdateElo(snap.X.ID, newX)
	srv.Registry.UpdateElo(snap.O.ID, newO)
	srv.Log.WithFields(logrus.Fields{
		"game": snap.ID,
		"x":    newX,
		"o":    newO,
	}).Info("ratings updated")

	if err := srv.Store.CommitRatings(ctx, snap.ID, snap.X.ID, snap.O.ID, oldX, oldO, newX, newO); err != nil {
		srv.Log.Errorf("failed to commit ratings for game %s: %v", snap.ID, err)
		srv.notifyStoreFailure(snap)
	}
}

func (srv *GameServer) notifyStoreFailure(snap game.Snapshot) {
	payload := errorPayload{Message: msgStoreUnavailable}
	if !snap.X.IsAI {
		srv.Registry.Push(snap.X.ID, kindError, payload)
	}
	if !snap.O.IsAI {
		srv.Registry.Push(snap.O.ID, kindError, payload)
	}
}
