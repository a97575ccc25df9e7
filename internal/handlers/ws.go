// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gomokuhub/gomoku/internal/middleware"
	"github.com/gomokuhub/gomoku/internal/models"
)

const (
	writeTimeout      = 3 * time.Second
	keepaliveInterval = 30 * time.Second
	outboundBuffer    = 64
)

// client is one live WebSocket connection. Writes are serialized
// through the out channel and a single writer goroutine, so pushes
// from game sessions, the registry, and the read loop never interleave
// mid-frame and arrive in enqueue order.
type client struct {
	conn *websocket.Conn
	out  chan []byte

	mu            sync.Mutex
	authenticated bool
	identity      models.Identity
}

// enqueue hands a frame to the writer goroutine without blocking.
func (cl *client) enqueue(data []byte, logger *logrus.Logger) {
	select {
	case cl.out <- data:
	default:
		id, _ := cl.currentIdentity()
		logger.Warnf("outbound channel full or closed for user %s, dropping frame", id.ID)
	}
}

// reply marshals and enqueues an envelope on this connection.
func (cl *client) reply(logger *logrus.Logger, kind string, payload interface{}) {
	data, err := json.Marshal(envelopeOut{Kind: kind, Payload: payload})
	if err != nil {
		logger.Errorf("failed to marshal %s envelope: %v", kind, err)
		return
	}
	cl.enqueue(data, logger)
}

func (cl *client) replyError(logger *logrus.Logger, message string) {
	cl.reply(logger, kindError, errorPayload{Message: message})
}

// currentIdentity returns the authenticated identity, if any.
func (cl *client) currentIdentity() (models.Identity, bool) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.identity, cl.authenticated
}

func (cl *client) setIdentity(id models.Identity) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.identity = id
	cl.authenticated = true
}

// WSHandler upgrades the HTTP connection and runs the protocol
// dispatcher for it: one lightweight worker per connection, sharing
// the registry, the matchmaking queue, and the session set through the
// game server.
func WSHandler(logger *logrus.Logger, srv *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"game"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "game" {
			logger.Warnf("client connected with invalid subprotocol: %s", c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		cl := &client{
			conn: c,
			out:  make(chan []byte, outboundBuffer),
		}

		go writeLoop(ctx, cl, logger)
		go keepaliveLoop(ctx, cancel, cl)

		readMessages(ctx, cl, srv, logger)

		// Cleanup: drop the registry binding and any queue entry.
		// In-progress sessions are left untouched; the opponent simply
		// stops receiving pushes for this identity.
		srv.HandleDisconnect(cl)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// writeLoop is the single writer for the connection. It drains the
// outbound channel until the context is canceled.
func writeLoop(ctx context.Context, cl *client, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-cl.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				status := websocket.CloseStatus(err)
				if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
					logger.Warnf("failed to write frame: %v", err)
				}
				return
			}
		}
	}
}

// keepaliveLoop pings the peer periodically and cancels the connection
// context when a ping goes unanswered.
func keepaliveLoop(ctx context.Context, cancel context.CancelFunc, cl *client) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// readMessages is the connection's dispatch loop: decode the envelope,
// check authentication, and route by kind. Malformed input produces an
// error reply, never a crash; the loop only exits on connection
// closure or context cancellation.
func readMessages(ctx context.Context, cl *client, srv *GameServer, logger *logrus.Logger) {
	for {
		msgType, data, err := cl.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Info("WebSocket closed normally")
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Info("WebSocket context canceled")
			} else {
				logger.Warnf("error reading from WebSocket: %v (status: %d)", err, status)
			}
			return
		}
		if msgType != websocket.MessageText {
			logger.Warnf("received non-text message type %d, ignoring", msgType)
			continue
		}

		var env envelopeIn
		if err := json.Unmarshal(data, &env); err != nil || env.Kind == "" {
			cl.replyError(logger, msgMalformedMessage)
			continue
		}

		logger.Debugf("received %q message", env.Kind)

		if env.Kind == kindAuthenticate {
			srv.HandleAuthenticate(ctx, cl, env.Payload)
			continue
		}

		identity, ok := cl.currentIdentity()
		if !ok {
			cl.replyError(logger, msgAuthRequired)
			continue
		}

		switch env.Kind {
		case kindRequestMatch:
			srv.HandleRequestMatch(ctx, cl, identity, env.Payload)
		case kindApplyMove:
			srv.HandleApplyMove(ctx, cl, identity, env.Payload)
		case kindResign:
			srv.HandleResign(ctx, cl, identity, env.Payload)
		case kindProposeDraw, kindPause:
			srv.HandleControl(ctx, cl, identity, env.Kind, env.Payload)
		case kindRequestReplay:
			srv.HandleRequestReplay(ctx, cl, identity, env.Payload)
		default:
			cl.replyError(logger, msgMalformedMessage)
		}
	}
}
