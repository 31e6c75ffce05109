// internal/handlers/coordinator_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Velozity/CastGameCoordinator/internal/auth"
	"github.com/Velozity/CastGameCoordinator/internal/config"
	"github.com/Velozity/CastGameCoordinator/internal/hub"
	"github.com/Velozity/CastGameCoordinator/internal/matchmaker"
	"github.com/Velozity/CastGameCoordinator/internal/middleware"
	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/Velozity/CastGameCoordinator/internal/queue"
)

// ServerRegistry is the slice of the persistent store the coordinator socket
// needs directly: flipping game-server liveness with the connection lifecycle.
type ServerRegistry interface {
	SetServerReady(ctx context.Context, id uuid.UUID, ready bool) error
}

// Coordinator bundles the collaborators behind the /coordinator socket.
type Coordinator struct {
	Hub        *hub.Hub
	Queue      *queue.Service
	Matchmaker *matchmaker.Service
	Servers    ServerRegistry
}

// inboundEvent is one frame read off the socket; Data stays raw until the
// event-specific handler decodes it.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type beginSearchPayload struct {
	Region       *config.Region   `json:"region"`
	GameType     *config.GameType `json:"gameType"`
	PartyMembers []uuid.UUID      `json:"partyMembers"`
}

type readyUpPayload struct {
	Key string `json:"key"`
	// Timestamp is the client's ack time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

type terminateSearchPayload struct {
	QueueSessionID uuid.UUID `json:"queueSessionId"`
}

// searchResult is the gameSessionSearchResult payload.
type searchResult struct {
	Success   bool       `json:"success"`
	QueueID   uuid.UUID  `json:"queueId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// CoordinatorWSHandler authenticates each new coordinator socket, classifies
// it as a player or game-server connection, enforces single-device-per-
// principal, and dispatches protocol events until disconnect.
func CoordinatorWSHandler(logger *logrus.Logger, co *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"coordinator"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "coordinator" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the coordinator subprotocol")
			return
		}

		principal, err := auth.Verify(bearerToken(r))
		if err != nil {
			writeEventNow(c, hub.Event{Event: "error", Data: hub.ErrorPayload{
				Code:  UnauthorizedError,
				Error: "Unauthorized",
			}})
			c.Close(websocket.StatusPolicyViolation, "unauthorized")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := hub.NewConn(principal, cancel)

		// Duplicate-device check: kick any connection already holding this
		// principal's topic, then take the topic over.
		if kicked := co.Hub.KickTopic(principal.Topic(), DuplicateDeviceError, "Multiple devices connected to coordinator"); kicked > 0 {
			logger.Warnf("Duplicate device for %s %s: kicked %d connection(s)", principal.Kind, principal.ID, kicked)
		}
		co.Hub.Join(conn, principal.Topic())

		if principal.Kind == models.PrincipalServer {
			if err := co.Servers.SetServerReady(ctx, principal.ID, true); err != nil {
				logger.WithError(err).Errorf("Failed to mark server %s ready", principal.ID)
			}
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)
		logger.Infof("Coordinator connected: %s %s", principal.Kind, principal.ID)

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, co, conn, logger)

		// ---- Disconnect cleanup ----
		co.Hub.LeaveAll(conn)
		conn.Close()
		co.cleanupDisconnect(principal, logger)
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// cleanupDisconnect releases whatever matchmaking state the principal held:
// players drop out of the queue (party members get told their session is now
// theirs to rejoin), servers go not-ready.
func (co *Coordinator) cleanupDisconnect(principal models.Principal, logger *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch principal.Kind {
	case models.PrincipalPlayer:
		session, err := co.Queue.LeaveByAccount(ctx, principal.ID)
		if err != nil {
			logger.WithError(err).Errorf("Failed to terminate queue session for %s on disconnect", principal.ID)
			return
		}
		if session != nil {
			co.notifySessionEnded(session)
			logger.WithField("session", session.ID).Info("Terminated queue session after disconnect")
		}
	case models.PrincipalServer:
		if err := co.Servers.SetServerReady(ctx, principal.ID, false); err != nil {
			logger.WithError(err).Errorf("Failed to mark server %s not ready", principal.ID)
		}
	}
}

// notifySessionEnded tells the session's owner to leave the dead session and
// each party member to (re)join it; the members are no longer riding on
// anyone's entry.
func (co *Coordinator) notifySessionEnded(session *models.QueueSession) {
	co.Hub.Emit(hub.PlayerTopic(session.AccountID), "leaveSession", session.ID)
	if session.Party != nil {
		for _, member := range session.Party.Members {
			co.Hub.Emit(hub.PlayerTopic(member.AccountID), "joinSession", session.ID)
		}
	}
}

// readPump dispatches inbound events until the socket closes. Malformed
// frames produce an error response and keep the connection open.
func readPump(ctx context.Context, c *websocket.Conn, co *Coordinator, conn *hub.Conn, logger *logrus.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var ev inboundEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			conn.SendError(0, "Invalid JSON format")
			continue
		}
		handleCoordinatorEvent(ctx, co, conn, ev, logger)
	}
}

// handleCoordinatorEvent routes one inbound protocol event. No handler here
// may block on assembly; matchmaking work is always kicked into the
// background by the queue service.
func handleCoordinatorEvent(ctx context.Context, co *Coordinator, conn *hub.Conn, ev inboundEvent, logger *logrus.Logger) {
	isServer := conn.Principal.Kind == models.PrincipalServer

	switch ev.Event {
	case "joinSession":
		var sessionID uuid.UUID
		if err := json.Unmarshal(ev.Data, &sessionID); err != nil {
			conn.SendError(0, "Invalid session id")
			return
		}
		co.Hub.Join(conn, hub.QueueSessionTopic(sessionID))

	case "leaveSession":
		var sessionID uuid.UUID
		if err := json.Unmarshal(ev.Data, &sessionID); err != nil {
			conn.SendError(0, "Invalid session id")
			return
		}
		co.Hub.Leave(conn, hub.QueueSessionTopic(sessionID))

	case "beginGameSessionSearch":
		if isServer {
			return
		}
		var payload beginSearchPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.Region == nil || payload.GameType == nil ||
			!payload.Region.Valid() || !payload.GameType.Valid() {
			conn.Send("gameSessionSearchResult", searchResult{
				Success: false,
				Error:   "Invalid search parameters.",
			})
			return
		}

		session, err := co.Queue.Enqueue(ctx, conn.Principal.ID, *payload.Region, *payload.GameType, payload.PartyMembers)
		if err != nil {
			logger.WithError(err).Error("Failed to create queue session")
			conn.Send("gameSessionSearchResult", searchResult{
				Success: false,
				Error:   "Failed to queue matchmaking.",
			})
			return
		}

		co.Hub.Join(conn, hub.QueueSessionTopic(session.ID))
		for _, memberID := range payload.PartyMembers {
			co.Hub.Emit(hub.PlayerTopic(memberID), "joinSession", session.ID)
		}
		conn.Send("gameSessionSearchResult", searchResult{
			Success:   true,
			QueueID:   session.ID,
			CreatedAt: &session.CreatedAt,
		})

	case "gameReadyUp":
		if isServer {
			return
		}
		var payload readyUpPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.Key == "" {
			conn.SendError(0, "Invalid ready-up payload")
			return
		}
		ackTime := time.UnixMilli(payload.Timestamp)
		if err := co.Matchmaker.ReadyUp(ctx, conn.Principal.ID, payload.Key, ackTime); err != nil {
			logger.WithError(err).Errorf("Ready-up failed for %s", conn.Principal.ID)
		}

	case "terminateGameSessionSearch":
		var payload terminateSearchPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.QueueSessionID == uuid.Nil {
			return
		}
		session, err := co.Queue.LeaveByEntry(ctx, payload.QueueSessionID)
		if err != nil {
			logger.WithError(err).Error("Failed to terminate queue session")
			return
		}
		if session != nil {
			co.Hub.Leave(conn, hub.QueueSessionTopic(session.ID))
			co.notifySessionEnded(session)
		}

	default:
		logger.Warnf("Unknown coordinator event %q from %s %s", ev.Event, conn.Principal.Kind, conn.Principal.ID)
	}
}

// writePump drains the connection's out channel onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *hub.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing event %q: %v", ev.Event, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to %s %s: %v", conn.Principal.Kind, conn.Principal.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Ping failed for %s %s, assuming disconnect: %v", conn.Principal.Kind, conn.Principal.ID, err)
				return
			}
		}
	}
}

// bearerToken pulls the credential from the Authorization header, falling
// back to the access_token query parameter for clients that cannot set
// headers on a WebSocket upgrade.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, found := strings.CutPrefix(h, "Bearer "); found {
			return token
		}
	}
	return r.URL.Query().Get("access_token")
}

// writeEventNow writes a single event synchronously, bypassing the pumps.
// Used only before the connection is registered (auth failures).
func writeEventNow(c *websocket.Conn, ev hub.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, data)
}
