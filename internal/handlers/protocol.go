// internal/handlers/protocol.go
package handlers

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/gomokuhub/gomoku/internal/game"
	"github.com/gomokuhub/gomoku/internal/models"
)

// Message envelope, both directions: {kind, payload}.

// envelopeIn is the inbound wire form; payload decoding is deferred
// until the kind is known.
type envelopeIn struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type envelopeOut struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// Inbound kinds.
const (
	kindAuthenticate  = "authenticate"
	kindRequestMatch  = "request_match"
	kindApplyMove     = "apply_move"
	kindResign        = "resign"
	kindProposeDraw   = "propose_draw"
	kindPause         = "pause"
	kindRequestReplay = "request_replay"
)

// Outbound kinds. The control kinds (resign, propose_draw, pause) are
// echoed back under their inbound names.
const (
	kindAuthResult  = "auth_result"
	kindOnlineList  = "online_list"
	kindMatchQueued = "match_queued"
	kindMatchFound  = "match_found"
	kindGameUpdate  = "game_update"
	kindReplayData  = "replay_data"
	kindError       = "error"
)

type authenticatePayload struct {
	Token string `json:"token"`
}

type requestMatchPayload struct {
	VsAI bool `json:"vsAI"`
}

type applyMovePayload struct {
	GameID    uuid.UUID `json:"gameId"`
	CellIndex int       `json:"cellIndex"`
}

type gameRefPayload struct {
	GameID uuid.UUID `json:"gameId"`
}

type authResultPayload struct {
	OK       bool             `json:"ok"`
	Identity *models.Identity `json:"identity,omitempty"`
	Message  string           `json:"message,omitempty"`
}

type onlineListPayload struct {
	Online []uuid.UUID `json:"online"`
}

type matchFoundPayload struct {
	GameID     uuid.UUID        `json:"gameId"`
	YourSymbol game.Seat        `json:"yourSymbol"`
	Opponent   game.Participant `json:"opponent"`
}

type gameUpdatePayload struct {
	Session game.Snapshot `json:"session"`
}

type controlPayload struct {
	By     uuid.UUID `json:"by"`
	GameID uuid.UUID `json:"gameId"`
}

type replayDataPayload struct {
	GameID uuid.UUID   `json:"gameId"`
	Moves  []game.Move `json:"moves"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Connection-level error reasons. All recoverable: the connection
// stays open and usable after receiving any of these.
const (
	msgAuthRequired     = "authentication required"
	msgAuthFailed       = "authentication failed"
	msgMalformedMessage = "malformed message"
	msgReplayNotFound   = "replay not found"
	msgStoreUnavailable = "temporary storage error"
	msgAlreadyInGame    = "already in an active game"
)
