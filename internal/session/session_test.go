package session

import (
	"errors"
	"testing"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/position"
)

func mustNew(t *testing.T, fen string) *Session {
	t.Helper()
	s, err := New("g1", fen)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func play(t *testing.T, s *Session, moves ...string) {
	t.Helper()
	for _, m := range moves {
		in := domain.MoveInput{From: m[:2], To: m[2:4]}
		if len(m) > 4 {
			in.Promotion = m[4:]
		}
		if _, err := s.Apply(in, "agent", nil, 0); err != nil {
			t.Fatalf("Apply %s: %v", m, err)
		}
	}
}

func TestNewDefaultsToStandardPosition(t *testing.T) {
	s := mustNew(t, "")
	if s.FEN() != position.StandardFEN {
		t.Fatalf("FEN = %q", s.FEN())
	}
	if s.SideToMove() != domain.White || s.Termination() != domain.TerminationOngoing {
		t.Fatalf("unexpected start state: %s %s", s.SideToMove(), s.Termination())
	}
	if _, err := New("bad", "not a fen"); err == nil {
		t.Fatalf("expected invalid FEN to fail")
	}
}

func TestApplyRecordsMoves(t *testing.T) {
	s := mustNew(t, "")
	cp := 12.0
	rec, err := s.Apply(domain.MoveInput{From: "e2", To: "e4"}, "w", &domain.Evaluation{Quality: domain.QualityGood, CPLoss: &cp}, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.Ply != 1 || rec.Side != domain.White || rec.SAN != "e4" || rec.UCI != "e2e4" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Quality != domain.QualityGood || rec.CPLoss == nil || *rec.CPLoss != 12 {
		t.Fatalf("evaluation not recorded: %+v", rec)
	}
	if s.SideToMove() != domain.Black || s.Ply() != 1 {
		t.Fatalf("side/ply not advanced")
	}
}

func TestApplyRejectsIllegalMove(t *testing.T) {
	s := mustNew(t, "")
	before := s.FEN()
	_, err := s.Apply(domain.MoveInput{From: "e2", To: "e5"}, "w", nil, 0)
	var illegal *domain.IllegalMoveError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalMoveError, got %v", err)
	}
	if s.FEN() != before || s.Ply() != 0 {
		t.Fatalf("illegal move mutated the session")
	}
}

func TestApplyRejectsMoveFromEmptySquare(t *testing.T) {
	s := mustNew(t, "")
	play(t, s, "e2e4")
	before := s.FEN()
	for _, in := range []domain.MoveInput{
		{From: "e2", To: "e4"},
		{From: "e3", To: "e4"},
		{From: "e3", To: "e4", Promotion: "q"},
		{From: "e7", To: "e5", Promotion: "x"},
		{From: "e7"},
	} {
		_, err := s.Apply(in, "b", nil, 0)
		var illegal *domain.IllegalMoveError
		if !errors.As(err, &illegal) {
			t.Fatalf("Apply %s: expected IllegalMoveError, got %v", in.UCI(), err)
		}
		if err := s.Check(in); !errors.As(err, &illegal) {
			t.Fatalf("Check %s: expected IllegalMoveError, got %v", in.UCI(), err)
		}
	}
	if s.FEN() != before || s.Ply() != 1 {
		t.Fatalf("rejected moves mutated the session")
	}
	if err := s.Check(domain.MoveInput{From: "e7", To: "e5"}); err != nil {
		t.Fatalf("Check e7e5: %v", err)
	}
	if s.Ply() != 1 {
		t.Fatalf("Check played the move")
	}
}

func TestCheckmateEndsGame(t *testing.T) {
	s := mustNew(t, "")
	play(t, s, "f2f3", "e7e5", "g2g4", "d8h4")
	if s.Termination() != domain.TerminationCheckmate || s.Outcome() != domain.OutcomeBlackWins {
		t.Fatalf("got %s %s", s.Termination(), s.Outcome())
	}
	if _, err := s.Apply(domain.MoveInput{From: "a2", To: "a3"}, "w", nil, 0); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestDefaultPromotionIsQueen(t *testing.T) {
	s := mustNew(t, "8/P7/8/8/8/8/8/k6K w - - 0 1")
	rec, err := s.Apply(domain.MoveInput{From: "a7", To: "a8"}, "w", nil, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.UCI != "a7a8q" {
		t.Fatalf("uci = %q, want a7a8q", rec.UCI)
	}
}

func TestUnderPromotion(t *testing.T) {
	s := mustNew(t, "8/P7/8/8/8/8/8/k6K w - - 0 1")
	rec, err := s.Apply(domain.MoveInput{From: "a7", To: "a8", Promotion: "N"}, "w", nil, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.UCI != "a7a8n" {
		t.Fatalf("uci = %q, want a7a8n", rec.UCI)
	}
}

func TestStalemate(t *testing.T) {
	s := mustNew(t, "k7/8/2Q5/8/8/8/8/7K w - - 0 1")
	play(t, s, "c6b6")
	if s.Termination() != domain.TerminationStalemate || s.Outcome() != domain.OutcomeDraw {
		t.Fatalf("got %s %s", s.Termination(), s.Outcome())
	}
}

func TestThreefoldRepetitionIsClaimed(t *testing.T) {
	s := mustNew(t, "")
	play(t, s, "g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8")
	if s.Termination() != domain.TerminationRepetition || s.Outcome() != domain.OutcomeDraw {
		t.Fatalf("got %s %s", s.Termination(), s.Outcome())
	}
}

func TestConcludeWithoutMoves(t *testing.T) {
	s := mustNew(t, "")
	if err := s.Conclude("draw"); err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if s.Termination() != domain.TerminationDraw || s.Outcome() != domain.OutcomeDraw || len(s.Moves()) != 0 {
		t.Fatalf("unexpected state after conclude: %s %s %d", s.Termination(), s.Outcome(), len(s.Moves()))
	}
	if err := s.Conclude("1-0"); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestConcludeKeepsStalemate(t *testing.T) {
	s := mustNew(t, "")
	if err := s.Conclude("stalemate"); err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if s.Termination() != domain.TerminationStalemate || s.Outcome() != domain.OutcomeDraw {
		t.Fatalf("got %s %s", s.Termination(), s.Outcome())
	}
}

func TestParseResult(t *testing.T) {
	tests := map[string]domain.Outcome{
		"1-0":     domain.OutcomeWhiteWins,
		"0-1":     domain.OutcomeBlackWins,
		"1/2-1/2": domain.OutcomeDraw,
		"Draw":    domain.OutcomeDraw,
	}
	for in, want := range tests {
		got, err := ParseResult(in)
		if err != nil || got != want {
			t.Fatalf("ParseResult(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseResult("?"); err == nil {
		t.Fatalf("expected error for unknown result")
	}
}
