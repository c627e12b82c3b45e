package domain

import "time"

// Termination classifies how a game stands after the latest move.
type Termination string

const (
	TerminationOngoing    Termination = "ongoing"
	TerminationCheckmate  Termination = "checkmate"
	TerminationDraw       Termination = "draw"
	TerminationStalemate  Termination = "stalemate"
	TerminationRepetition Termination = "repetition"
)

func (t Termination) Over() bool { return t != "" && t != TerminationOngoing }

// Outcome is the result of a concluded game from the board's perspective.
type Outcome string

const (
	OutcomeNone      Outcome = "*"
	OutcomeWhiteWins Outcome = "1-0"
	OutcomeBlackWins Outcome = "0-1"
	OutcomeDraw      Outcome = "1/2-1/2"
)

// Winner returns the winning side, false for draws and unfinished games.
func (o Outcome) Winner() (Side, bool) {
	switch o {
	case OutcomeWhiteWins:
		return White, true
	case OutcomeBlackWins:
		return Black, true
	default:
		return "", false
	}
}

// GameResult summarises one concluded game for the aggregator and reports.
type GameResult struct {
	GameID      string
	Index       int
	Assignment  Assignment
	Outcome     Outcome
	Termination Termination
	Plies       int
	FinalFEN    string
	Moves       []MoveRecord
	StartedAt   time.Time
	EndedAt     time.Time
}

// WinnerID returns the agent identity credited with the win.
func (g GameResult) WinnerID() (string, bool) {
	side, ok := g.Outcome.Winner()
	if !ok {
		return "", false
	}
	return g.Assignment.For(side).Identity(), true
}

// GameLog is a stored log record.
type GameLog struct {
	ID             int64
	GameID         string
	BatchID        string
	AlgorithmLabel string
	Depth          int
	Result         string
	Termination    string
	Moves          []MoveRecord
	Counters       map[string]int
	CreatedAt      time.Time
}
