package orchestrator

import (
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/stats"
)

type State string

const (
	StateIdle          State = "idle"
	StateAwaitingMove  State = "awaiting_move"
	StateApplyingMove  State = "applying_move"
	StateGameOver      State = "game_over"
	StateBatchComplete State = "batch_complete"
	StateStopped       State = "stopped"

	// Head-to-head runs use these instead of the per-move states.
	StateRequesting State = "requesting"
	StateReporting  State = "reporting"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool { return s == StateBatchComplete || s == StateStopped }

type EventType string

const (
	EventBatchStarted  EventType = "batch_started"
	EventGameStarted   EventType = "game_started"
	EventMoveApplied   EventType = "move_applied"
	EventGameOver      EventType = "game_over"
	EventBatchComplete EventType = "batch_complete"
	EventStopped       EventType = "stopped"
	EventError         EventType = "error"
	EventReportFailed  EventType = "report_failed"
	EventHeadToHead    EventType = "head_to_head"
)

// Snapshot is an immutable view of the controller handed to observers.
type Snapshot struct {
	BatchID    string `json:"batch_id"`
	GameID     string `json:"game_id,omitempty"`
	Generation uint64 `json:"generation"`
	State      State  `json:"state"`
	Label      string `json:"label,omitempty"`

	GameIndex int                `json:"game_index"`
	Games     int                `json:"games"`
	White     string             `json:"white,omitempty"`
	Black     string             `json:"black,omitempty"`
	FEN       string             `json:"fen,omitempty"`
	Ply       int                `json:"ply"`
	ToMove    domain.Side        `json:"to_move,omitempty"`
	LastMove  *domain.MoveRecord `json:"last_move,omitempty"`

	Termination domain.Termination `json:"termination,omitempty"`
	Outcome     domain.Outcome     `json:"outcome,omitempty"`
	Skip        bool               `json:"skip"`

	Batch stats.BatchRun `json:"batch"`
}

// Event is emitted after every state change. Err is set for EventError and
// EventReportFailed.
type Event struct {
	Type       EventType          `json:"type"`
	Snapshot   Snapshot           `json:"snapshot"`
	Err        error              `json:"-"`
	Message    string             `json:"message,omitempty"`
	HeadToHead *HeadToHeadSummary `json:"head_to_head,omitempty"`
}

// Observer consumes events. OnEvent runs on the controller's goroutine and
// must not block.
type Observer interface {
	OnEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
