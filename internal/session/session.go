// Package session owns the authoritative position and move log of one game.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/position"
)

var ErrGameOver = errors.New("game already concluded")

// Session은 동시 사용에 안전하지 않음. 컨트롤러가 접근을 직렬화한다.
type Session struct {
	id          string
	startFEN    string
	game        *nchess.Game
	moves       []domain.MoveRecord
	termination domain.Termination
	outcome     domain.Outcome
	startedAt   time.Time
	endedAt     time.Time
}

// New starts a game from startFEN, or the standard position when empty.
func New(id, startFEN string) (*Session, error) {
	startFEN = strings.TrimSpace(startFEN)
	if startFEN == "" {
		startFEN = position.StandardFEN
	}
	opt, err := nchess.FEN(startFEN)
	if err != nil {
		return nil, &domain.InvalidPositionError{Reason: err.Error()}
	}
	s := &Session{
		id:        id,
		startFEN:  startFEN,
		game:      nchess.NewGame(opt),
		startedAt: time.Now(),
	}
	s.classify()
	return s, nil
}

func (s *Session) ID() string       { return s.id }
func (s *Session) StartFEN() string { return s.startFEN }
func (s *Session) FEN() string      { return s.game.FEN() }
func (s *Session) Ply() int         { return len(s.moves) }

func (s *Session) SideToMove() domain.Side {
	if s.game.Position().Turn() == nchess.White {
		return domain.White
	}
	return domain.Black
}

func (s *Session) Termination() domain.Termination { return s.termination }
func (s *Session) Outcome() domain.Outcome         { return s.outcome }
func (s *Session) Over() bool                      { return s.termination.Over() }

// Moves returns a copy of the move log.
func (s *Session) Moves() []domain.MoveRecord {
	out := make([]domain.MoveRecord, len(s.moves))
	copy(out, s.moves)
	return out
}

// Apply plays one move for the side to move and appends its record. A move
// reaching the last rank without a promotion piece promotes to a queen.
func (s *Session) Apply(in domain.MoveInput, agentID string, ev *domain.Evaluation, think time.Duration) (domain.MoveRecord, error) {
	if s.Over() {
		return domain.MoveRecord{}, ErrGameOver
	}
	pos := s.game.Position()
	fen := s.game.FEN()
	raw := in.UCI()
	side := s.SideToMove()

	mv, err := legalMove(pos, raw)
	if err != nil {
		return domain.MoveRecord{}, &domain.IllegalMoveError{Move: raw, FEN: fen, Err: err}
	}
	if err := s.game.Move(mv, nil); err != nil {
		return domain.MoveRecord{}, &domain.IllegalMoveError{Move: raw, FEN: fen, Err: err}
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	uci := strings.ToLower(nchess.UCINotation{}.Encode(pos, mv))
	s.claimDraws()

	rec := domain.MoveRecord{
		Ply:       len(s.moves) + 1,
		Side:      side,
		AgentID:   agentID,
		SAN:       san,
		UCI:       uci,
		ThinkTime: think,
	}
	if ev != nil {
		if q, ok := domain.ParseQuality(string(ev.Quality)); ok {
			rec.Quality = q
			if ev.CPLoss != nil {
				v := *ev.CPLoss
				rec.CPLoss = &v
			}
		}
	}
	s.moves = append(s.moves, rec)
	s.classify()
	return rec, nil
}

// Check validates a move against the current position without playing it.
func (s *Session) Check(in domain.MoveInput) error {
	if s.Over() {
		return ErrGameOver
	}
	if _, err := legalMove(s.game.Position(), in.UCI()); err != nil {
		return &domain.IllegalMoveError{Move: in.UCI(), FEN: s.game.FEN(), Err: err}
	}
	return nil
}

var errNotLegal = errors.New("not a legal move")

// legalMove는 pos의 합법 수 목록에서 raw를 찾는다. 빈 칸에서 출발하는 수는
// UCI 디코더가 패닉을 일으키므로 검증되지 않은 입력에는 쓰지 않음.
// 마지막 랭크로 가는 4글자 폰 이동은 퀸 승급으로 처리.
func legalMove(pos *nchess.Position, raw string) (*nchess.Move, error) {
	if len(raw) != 4 && len(raw) != 5 {
		return nil, fmt.Errorf("malformed move %q", raw)
	}
	promo := nchess.NoPieceType
	if len(raw) == 5 {
		promo = nchess.PieceTypeFromByte(raw[4])
		if promo == nchess.NoPieceType {
			return nil, fmt.Errorf("unknown promotion piece %q", raw[4:])
		}
	}
	var queen *nchess.Move
	for _, mv := range pos.ValidMoves() {
		if mv.S1().String() != raw[:2] || mv.S2().String() != raw[2:4] {
			continue
		}
		switch {
		case mv.Promo() == promo:
			return &mv, nil
		case promo == nchess.NoPieceType && mv.Promo() == nchess.Queen:
			queen = &mv
		}
	}
	if queen != nil {
		return queen, nil
	}
	return nil, errNotLegal
}

// Conclude ends the game on a provider terminal signal. Result accepts the
// PGN forms and the words white, black and draw.
func (s *Session) Conclude(result string) error {
	if s.Over() {
		return ErrGameOver
	}
	outcome, err := ParseResult(result)
	if err != nil {
		return err
	}
	// The board may already know why the game ended.
	s.classify()
	if s.Over() {
		return nil
	}
	s.outcome = outcome
	switch {
	case strings.EqualFold(strings.TrimSpace(result), "stalemate"):
		s.termination = domain.TerminationStalemate
	case outcome == domain.OutcomeDraw:
		s.termination = domain.TerminationDraw
	default:
		s.termination = domain.TerminationCheckmate
	}
	s.endedAt = time.Now()
	return nil
}

// Result builds the summary handed to the aggregator.
func (s *Session) Result(index int, seats domain.Assignment) domain.GameResult {
	end := s.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	return domain.GameResult{
		GameID:      s.id,
		Index:       index,
		Assignment:  seats,
		Outcome:     s.outcome,
		Termination: s.termination,
		Plies:       len(s.moves),
		FinalFEN:    s.game.FEN(),
		Moves:       s.Moves(),
		StartedAt:   s.startedAt,
		EndedAt:     end,
	}
}

// ParseResult maps a provider result string to an outcome.
func ParseResult(result string) (domain.Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "1-0", "white", "white wins":
		return domain.OutcomeWhiteWins, nil
	case "0-1", "black", "black wins":
		return domain.OutcomeBlackWins, nil
	case "1/2-1/2", "draw", "½-½", "stalemate":
		return domain.OutcomeDraw, nil
	}
	return domain.OutcomeNone, fmt.Errorf("unrecognised game result %q", result)
}

// claimDraws ends the game on claimable threefold repetition or the
// fifty-move rule.
func (s *Session) claimDraws() {
	if s.game.Outcome() != nchess.NoOutcome {
		return
	}
	for _, method := range s.game.EligibleDraws() {
		if method == nchess.ThreefoldRepetition || method == nchess.FiftyMoveRule {
			if err := s.game.Draw(method); err == nil {
				return
			}
		}
	}
}

func (s *Session) classify() {
	switch s.game.Outcome() {
	case nchess.NoOutcome:
		s.termination = domain.TerminationOngoing
		s.outcome = domain.OutcomeNone
		return
	case nchess.WhiteWon:
		s.outcome = domain.OutcomeWhiteWins
	case nchess.BlackWon:
		s.outcome = domain.OutcomeBlackWins
	default:
		s.outcome = domain.OutcomeDraw
	}
	switch s.game.Method() {
	case nchess.Checkmate:
		s.termination = domain.TerminationCheckmate
	case nchess.Stalemate:
		s.termination = domain.TerminationStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		s.termination = domain.TerminationRepetition
	default:
		s.termination = domain.TerminationDraw
	}
	if s.endedAt.IsZero() {
		s.endedAt = time.Now()
	}
}
