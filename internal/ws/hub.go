package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrConcurrentAttach is returned when a second connection for the same
// participant arrives while the first is still being registered.
var ErrConcurrentAttach = errors.New("another connection attempt is in progress")

const (
	defaultDebounceInterval = 300 * time.Millisecond
	defaultCloseGrace       = 2 * time.Second
)

type pendingUpdate struct {
	update CodeUpdate
}

// Hub is the per-duel session registry. Every live event in a duel flows
// through it: editor updates, typing, test results, lifecycle messages.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]map[uint]*Session
	attaching map[string]bool

	debounceMu       sync.Mutex
	pending          map[string]*pendingUpdate
	debounceInterval time.Duration

	closeGrace time.Duration
}

func NewHub(debounceInterval, closeGrace time.Duration) *Hub {
	if debounceInterval <= 0 {
		debounceInterval = defaultDebounceInterval
	}
	if closeGrace <= 0 {
		closeGrace = defaultCloseGrace
	}
	return &Hub{
		rooms:            make(map[uuid.UUID]map[uint]*Session),
		attaching:        make(map[string]bool),
		pending:          make(map[string]*pendingUpdate),
		debounceInterval: debounceInterval,
		closeGrace:       closeGrace,
	}
}

func sessionKey(duelID uuid.UUID, userID uint) string {
	return fmt.Sprintf("%s:%d", duelID, userID)
}

// Attach registers a session, evicting any previous session the same
// participant holds. A participant attaching twice at the same moment gets
// ErrConcurrentAttach on the second attempt.
func (h *Hub) Attach(s *Session) error {
	key := sessionKey(s.DuelID, s.UserID)

	h.mu.Lock()
	if h.attaching[key] {
		h.mu.Unlock()
		return ErrConcurrentAttach
	}
	h.attaching[key] = true
	existing := h.rooms[s.DuelID][s.UserID]
	h.mu.Unlock()

	if existing != nil {
		log.Printf("[WSHub] replacing session for user %d in duel %s", s.UserID, s.DuelID)
		existing.CloseWithCode(CloseReplaced, "replaced by new connection")
	}

	h.mu.Lock()
	room := h.rooms[s.DuelID]
	if room == nil {
		room = make(map[uint]*Session)
		h.rooms[s.DuelID] = room
	}
	room[s.UserID] = s
	delete(h.attaching, key)
	h.mu.Unlock()

	h.BroadcastExcept(s.DuelID, NewUserStatus(s.UserID, "connected"), s.UserID)
	return nil
}

// Detach removes the session if it is still the registered one for its
// participant and tells the remaining sessions the user went away. A session
// that was replaced must not remove its successor, hence the identity check.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	room := h.rooms[s.DuelID]
	if room == nil || room[s.UserID] != s {
		h.mu.Unlock()
		return
	}
	delete(room, s.UserID)
	if len(room) == 0 {
		delete(h.rooms, s.DuelID)
	}
	h.mu.Unlock()

	h.Broadcast(s.DuelID, NewUserStatus(s.UserID, "disconnected"))
}

// Broadcast fans a message out to every session in the duel, serializing
// once. Sessions whose send buffer is full are detached on the spot.
func (h *Hub) Broadcast(duelID uuid.UUID, message interface{}) {
	h.deliver(duelID, message, nil)
}

// BroadcastExcept is Broadcast minus one participant, typically the sender.
func (h *Hub) BroadcastExcept(duelID uuid.UUID, message interface{}, excludeUserID uint) {
	h.deliver(duelID, message, &excludeUserID)
}

func (h *Hub) deliver(duelID uuid.UUID, message interface{}, exclude *uint) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WSHub] marshal failed for duel %s: %v", duelID, err)
		return
	}

	var dead []*Session
	h.mu.RLock()
	for userID, sess := range h.rooms[duelID] {
		if exclude != nil && userID == *exclude {
			continue
		}
		if !sess.enqueue(payload) {
			dead = append(dead, sess)
		}
	}
	h.mu.RUnlock()

	for _, sess := range dead {
		log.Printf("[WSHub] dropping unresponsive session for user %d in duel %s", sess.UserID, sess.DuelID)
		sess.Close("send buffer overflow")
		h.Detach(sess)
	}
}

// SendToParticipant delivers a message to a single session, if attached.
func (h *Hub) SendToParticipant(duelID uuid.UUID, userID uint, message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WSHub] marshal failed for duel %s: %v", duelID, err)
		return
	}

	h.mu.RLock()
	sess := h.rooms[duelID][userID]
	h.mu.RUnlock()

	if sess == nil {
		return
	}
	if !sess.enqueue(payload) {
		sess.Close("send buffer overflow")
		h.Detach(sess)
	}
}

// SendCodeUpdate queues an editor update for debounced delivery.
func (h *Hub) SendCodeUpdate(duelID uuid.UUID, userID uint, code, language string) {
	h.QueueCodeUpdate(duelID, NewCodeUpdate(userID, code, language, nil))
}

// SendTypingStatus relays a typing indicator to the rest of the duel.
func (h *Hub) SendTypingStatus(duelID uuid.UUID, userID uint, isTyping bool) {
	h.BroadcastExcept(duelID, NewTypingStatus(userID, isTyping), userID)
}

// QueueCodeUpdate coalesces keystroke-rate updates so each (duel, user) pair
// delivers at most one update per debounce interval, always the newest.
func (h *Hub) QueueCodeUpdate(duelID uuid.UUID, update CodeUpdate) {
	key := sessionKey(duelID, update.UserID)

	h.debounceMu.Lock()
	defer h.debounceMu.Unlock()

	if entry, ok := h.pending[key]; ok {
		entry.update = update
		return
	}
	h.pending[key] = &pendingUpdate{update: update}
	time.AfterFunc(h.debounceInterval, func() {
		h.flushCodeUpdate(duelID, key)
	})
}

func (h *Hub) flushCodeUpdate(duelID uuid.UUID, key string) {
	h.debounceMu.Lock()
	entry, ok := h.pending[key]
	if ok {
		delete(h.pending, key)
	}
	h.debounceMu.Unlock()

	if !ok {
		return
	}
	h.BroadcastExcept(duelID, entry.update, entry.update.UserID)
}

// Close shuts down all sessions of a duel after a grace delay so the final
// payloads reach clients first, then drops the registry entry.
func (h *Hub) Close(duelID uuid.UUID, reason string) {
	go func() {
		time.Sleep(h.closeGrace)

		h.mu.Lock()
		room := h.rooms[duelID]
		delete(h.rooms, duelID)
		h.mu.Unlock()

		for _, sess := range room {
			sess.Close(reason)
		}
		if len(room) > 0 {
			log.Printf("[WSHub] closed %d sessions for duel %s: %s", len(room), duelID, reason)
		}
	}()
}

// SessionCount reports how many sessions a duel currently has attached.
func (h *Hub) SessionCount(duelID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[duelID])
}

// IsAttached reports whether a participant currently holds a session.
func (h *Hub) IsAttached(duelID uuid.UUID, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[duelID][userID]
	return ok
}
