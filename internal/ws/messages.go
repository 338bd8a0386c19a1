package ws

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeCodeUpdate   MessageType = "code_update"
	TypeTypingStatus MessageType = "typing_status"
	TypeTestCode     MessageType = "test_code"
	TypeTestResult   MessageType = "test_result"
	TypeDuelStarted  MessageType = "duel_started"
	TypeDuelComplete MessageType = "duel_complete"
	TypeUserStatus   MessageType = "user_status"
	TypePing         MessageType = "ping"
	TypePong         MessageType = "pong"
	TypeDuelState    MessageType = "duel_state"
	TypeError        MessageType = "error"
)

// Close codes used by the duel gateway. 4xxx codes are application-defined.
const (
	CloseReplaced         = 4000
	CloseAuthFailed       = 4001
	CloseNotParticipant   = 4003
	CloseDuelNotFound     = 4004
	CloseConcurrentAttach = 4429
)

// ClientMessage is the superset of fields a client frame may carry. The
// gateway switches on Type and reads only the fields that type uses.
type ClientMessage struct {
	Type           MessageType `json:"type"`
	Code           string      `json:"code"`
	Language       string      `json:"language"`
	CursorPosition *int        `json:"cursorPosition,omitempty"`
	IsTyping       bool        `json:"isTyping"`
	Timestamp      int64       `json:"timestamp"`
}

type CodeUpdate struct {
	Type           MessageType `json:"type"`
	UserID         uint        `json:"userId"`
	Code           string      `json:"code"`
	Language       string      `json:"language"`
	CursorPosition *int        `json:"cursorPosition,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

func NewCodeUpdate(userID uint, code, language string, cursor *int) CodeUpdate {
	return CodeUpdate{
		Type:           TypeCodeUpdate,
		UserID:         userID,
		Code:           code,
		Language:       language,
		CursorPosition: cursor,
		Timestamp:      nowMillis(),
	}
}

type TypingStatus struct {
	Type      MessageType `json:"type"`
	UserID    uint        `json:"userId"`
	IsTyping  bool        `json:"isTyping"`
	Timestamp int64       `json:"timestamp"`
}

func NewTypingStatus(userID uint, isTyping bool) TypingStatus {
	return TypingStatus{
		Type:      TypeTypingStatus,
		UserID:    userID,
		IsTyping:  isTyping,
		Timestamp: nowMillis(),
	}
}

type TestResult struct {
	Type            MessageType `json:"type"`
	UserID          uint        `json:"userId"`
	Passed          int         `json:"passed"`
	Failed          int         `json:"failed"`
	Total           int         `json:"total"`
	ExecutionTimeMs int         `json:"executionTimeMs"`
	Error           string      `json:"error,omitempty"`
	ProgressPercent int         `json:"progressPercent"`
	IsCorrect       bool        `json:"isCorrect"`
}

type DuelStarted struct {
	Type      MessageType `json:"type"`
	DuelID    uuid.UUID   `json:"duelId"`
	Timestamp int64       `json:"timestamp"`
}

func NewDuelStarted(duelID uuid.UUID) DuelStarted {
	return DuelStarted{Type: TypeDuelStarted, DuelID: duelID, Timestamp: nowMillis()}
}

type DuelComplete struct {
	Type         MessageType       `json:"type"`
	WinnerID     *uint             `json:"winnerId"`
	Usernames    map[string]string `json:"usernames"`
	SolveTime    int               `json:"solveTime"`
	RatingDeltas map[string]int    `json:"ratingDeltas"`
	Timestamp    int64             `json:"timestamp"`
}

// NewDuelComplete builds the terminal broadcast; a nil winnerID means the
// duel ended without one (timeout).
func NewDuelComplete(winnerID *uint, usernames map[string]string, solveTime int, deltas map[string]int) DuelComplete {
	return DuelComplete{
		Type:         TypeDuelComplete,
		WinnerID:     winnerID,
		Usernames:    usernames,
		SolveTime:    solveTime,
		RatingDeltas: deltas,
		Timestamp:    nowMillis(),
	}
}

type UserStatus struct {
	Type      MessageType `json:"type"`
	UserID    uint        `json:"userId"`
	Status    string      `json:"status"`
	Timestamp int64       `json:"timestamp"`
}

func NewUserStatus(userID uint, status string) UserStatus {
	return UserStatus{Type: TypeUserStatus, UserID: userID, Status: status, Timestamp: nowMillis()}
}

type Pong struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

func NewPong() Pong {
	return Pong{Type: TypePong, Timestamp: nowMillis()}
}

// DuelState is the full snapshot sent on connect and reconnect. Latest
// snapshots let a returning client restore both editors without waiting
// for the next code_update.
type DuelState struct {
	Type            MessageType `json:"type"`
	DuelID          uuid.UUID   `json:"duelId"`
	Status          string      `json:"status"`
	Problem         interface{} `json:"problem,omitempty"`
	Participants    interface{} `json:"participants"`
	LatestSnapshots interface{} `json:"latestSnapshots,omitempty"`
	StartedAt       *time.Time  `json:"startedAt,omitempty"`
	Timestamp       int64       `json:"timestamp"`
}

type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
