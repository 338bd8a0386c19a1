package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"codeduel/internal/apperr"
	"codeduel/internal/auth"
	"codeduel/internal/models"
	"codeduel/internal/services"
	"codeduel/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsTestRunTimeout = 30 * time.Second

// WSHandler upgrades duel connections and relays client frames into the hub.
type WSHandler struct {
	hub         *ws.Hub
	duelService *services.DuelService
	upgrader    websocket.Upgrader
	pongWait    time.Duration
}

func NewWSHandler(hub *ws.Hub, duelService *services.DuelService, pongWait time.Duration) *WSHandler {
	return &WSHandler{
		hub:         hub,
		duelService: duelService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origin enforcement lives in the CORS layer
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pongWait: pongWait,
	}
}

// HandleDuelWS attaches an authenticated participant to a duel's event room.
// The connection is upgraded before validation so rejects arrive as close
// codes the client can read, not opaque handshake failures.
// GET /duels/ws/:duelId?token=...
func (h *WSHandler) HandleDuelWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSGateway] upgrade failed: %v", err)
		return
	}

	claims, err := auth.ValidateToken(c.Query("token"))
	if err != nil {
		rejectConn(conn, ws.CloseAuthFailed, "authentication failed")
		return
	}

	duelID, err := uuid.Parse(c.Param("duelId"))
	if err != nil {
		rejectConn(conn, ws.CloseDuelNotFound, "duel not found")
		return
	}

	duel, err := h.duelService.GetDuel(c.Request.Context(), duelID, claims.UserID)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound:
			rejectConn(conn, ws.CloseDuelNotFound, "duel not found")
		case apperr.KindForbidden:
			rejectConn(conn, ws.CloseNotParticipant, "not a participant")
		default:
			log.Printf("[WSGateway] duel lookup failed for %s: %v", duelID, err)
			rejectConn(conn, websocket.CloseInternalServerErr, "internal error")
		}
		return
	}

	session := ws.NewSession(conn, duelID, claims.UserID, claims.Username, h.pongWait)
	if err := h.hub.Attach(session); err != nil {
		if errors.Is(err, ws.ErrConcurrentAttach) {
			rejectConn(conn, ws.CloseConcurrentAttach, "connection attempt already in progress")
		} else {
			rejectConn(conn, websocket.CloseInternalServerErr, "internal error")
		}
		return
	}

	go session.WritePump()
	h.sendDuelState(session, duel)

	log.Printf("[WSGateway] user %d connected to duel %s", claims.UserID, duelID)

	session.ReadPump(func(data []byte) {
		h.handleMessage(session, data)
	})

	h.hub.Detach(session)
	session.Close("connection closed")
	log.Printf("[WSGateway] user %d disconnected from duel %s", claims.UserID, duelID)
}

// sendDuelState pushes the full snapshot a client needs to render the duel.
// Hidden test expectations never leave the server.
func (h *WSHandler) sendDuelState(s *ws.Session, duel *models.Duel) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := h.duelService.DescribeDuel(ctx, duel)
	if err != nil {
		log.Printf("[WSGateway] describe failed for duel %s: %v", duel.ID, err)
		h.hub.SendToParticipant(s.DuelID, s.UserID, ws.NewErrorMessage("failed to load duel state"))
		return
	}

	state := ws.DuelState{
		Type:         ws.TypeDuelState,
		DuelID:       duel.ID,
		Status:       string(duel.Status),
		Participants: resp.Participants,
		StartedAt:    duel.StartedAt,
		Timestamp:    time.Now().UnixMilli(),
	}
	if resp.Problem != nil {
		state.Problem = resp.Problem
	}
	if len(resp.LatestSnapshots) > 0 {
		state.LatestSnapshots = resp.LatestSnapshots
	}
	h.hub.SendToParticipant(s.DuelID, s.UserID, state)
}

func (h *WSHandler) handleMessage(s *ws.Session, data []byte) {
	var msg ws.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.hub.SendToParticipant(s.DuelID, s.UserID, ws.NewErrorMessage("malformed message"))
		return
	}

	switch msg.Type {
	case ws.TypeCodeUpdate:
		h.hub.QueueCodeUpdate(s.DuelID, ws.NewCodeUpdate(s.UserID, msg.Code, msg.Language, msg.CursorPosition))
	case ws.TypeTypingStatus:
		h.hub.SendTypingStatus(s.DuelID, s.UserID, msg.IsTyping)
	case ws.TypeTestCode:
		// judged off the read loop so a slow sandbox never stalls the socket
		go h.runTestCode(s, msg)
	case ws.TypePing:
		h.hub.SendToParticipant(s.DuelID, s.UserID, ws.NewPong())
	default:
		h.hub.SendToParticipant(s.DuelID, s.UserID, ws.NewErrorMessage("unknown message type"))
	}
}

// runTestCode grades against the visible cases and answers the sender with
// the verdict. The opponent's progress event is broadcast by the engine.
func (h *WSHandler) runTestCode(s *ws.Session, msg ws.ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), wsTestRunTimeout)
	defer cancel()

	req := &models.SubmitCodeRequest{Code: msg.Code, Language: msg.Language}
	result, err := h.duelService.TestCode(ctx, s.DuelID, s.UserID, req)
	if err != nil {
		h.hub.SendToParticipant(s.DuelID, s.UserID, ws.NewErrorMessage(publicMessage(err)))
		return
	}

	progress := 0
	if result.Total > 0 {
		progress = result.Passed * 100 / result.Total
	}
	h.hub.SendToParticipant(s.DuelID, s.UserID, ws.TestResult{
		Type:            ws.TypeTestResult,
		UserID:          s.UserID,
		Passed:          result.Passed,
		Failed:          result.Failed,
		Total:           result.Total,
		ExecutionTimeMs: int(result.ExecutionTimeMs),
		Error:           result.ErrorMessage,
		ProgressPercent: progress,
		IsCorrect:       result.AllPassed(),
	})
}

// rejectConn closes a connection that never made it into the hub.
func rejectConn(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	message := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil && err != websocket.ErrCloseSent {
		log.Printf("[WSGateway] close frame failed: %v", err)
	}
	conn.Close()
}

// publicMessage keeps infrastructure details out of client-visible errors.
func publicMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
