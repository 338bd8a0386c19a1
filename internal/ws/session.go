package ws

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 256 * 1024
	sendBufferSize = 64
)

// Session is one participant's live connection to a duel. All writes to the
// connection go through the write pump so there is only ever one writer.
type Session struct {
	DuelID   uuid.UUID
	UserID   uint
	Username string

	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	pongWait time.Duration
	lastPong atomic.Int64

	closeOnce sync.Once
}

func NewSession(conn *websocket.Conn, duelID uuid.UUID, userID uint, username string, pongWait time.Duration) *Session {
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	s := &Session{
		DuelID:   duelID,
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		pongWait: pongWait,
	}
	s.lastPong.Store(time.Now().UnixMilli())
	return s
}

// LastPongAt reports when the peer last answered a ping.
func (s *Session) LastPongAt() time.Time {
	return time.UnixMilli(s.lastPong.Load())
}

// enqueue hands a frame to the write pump. It reports false when the buffer
// is full or the session is closing, which the hub treats as a dead peer.
func (s *Session) enqueue(message []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// ReadPump blocks reading frames from the peer and passes each one to
// onMessage. It returns once the connection errors or closes; the caller is
// responsible for detaching the session afterwards.
func (s *Session) ReadPump(onMessage func(data []byte)) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.lastPong.Store(time.Now().UnixMilli())
		s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WSHub] read error for user %d in duel %s: %v", s.UserID, s.DuelID, err)
			}
			return
		}
		onMessage(data)
	}
}

// WritePump drains the send channel onto the connection and pings the peer
// at half the read deadline. Run it in its own goroutine.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.pongWait / 2)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// CloseWithCode sends a close frame with the given application code and
// tears the session down. Safe to call more than once.
func (s *Session) CloseWithCode(code int, reason string) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		message := websocket.FormatCloseMessage(code, reason)
		if err := s.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil && err != websocket.ErrCloseSent {
			log.Printf("[WSHub] close frame for user %d in duel %s: %v", s.UserID, s.DuelID, err)
		}
		close(s.done)
		s.conn.Close()
	})
}

// Close tears the session down with a normal close frame.
func (s *Session) Close(reason string) {
	s.CloseWithCode(websocket.CloseNormalClosure, reason)
}
