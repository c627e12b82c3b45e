package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

type stubLocal struct {
	got  chessdto.MoveRequest
	resp chessdto.MoveResponse
	err  error
}

func (s *stubLocal) LocalMove(_ context.Context, req chessdto.MoveRequest) (chessdto.MoveResponse, error) {
	s.got = req
	return s.resp, s.err
}

type stubReference struct {
	got  chessdto.ReferenceMoveRequest
	resp chessdto.MoveResponse
}

func (s *stubReference) ReferenceMove(_ context.Context, req chessdto.ReferenceMoveRequest) (chessdto.MoveResponse, error) {
	s.got = req
	return s.resp, nil
}

func hybrid() domain.Agent {
	return domain.Agent{ID: "h", Kind: domain.KindLocalAlgorithm, Depth: 2, Variant: domain.VariantHybrid, Rollouts: 30}
}

func TestResolveRejectsBadAgents(t *testing.T) {
	d := New(WithLocal(&stubLocal{}))
	tests := []struct {
		name  string
		agent domain.Agent
	}{
		{"missing", domain.Agent{}},
		{"zero depth", domain.Agent{Kind: domain.KindLocalAlgorithm}},
		{"bad variant", domain.Agent{Kind: domain.KindLocalAlgorithm, Depth: 2, Variant: "mcts"}},
		{"no reference provider", domain.Agent{Kind: domain.KindReferenceEngine, TimeLimit: time.Second}},
		{"no human inbox", domain.Agent{Kind: domain.KindHuman}},
	}
	for _, tt := range tests {
		_, err := d.Resolve(tt.agent)
		var cfg *domain.ConfigurationError
		if !errors.As(err, &cfg) {
			t.Fatalf("%s: expected ConfigurationError, got %v", tt.name, err)
		}
	}
	if _, err := d.Resolve(hybrid()); err != nil {
		t.Fatalf("Resolve hybrid: %v", err)
	}
}

func TestDispatchLocalMove(t *testing.T) {
	cp := 12.0
	local := &stubLocal{resp: chessdto.MoveResponse{
		Move: "e2e4", From: "e2", To: "e4",
		Evaluation: &chessdto.Evaluation{Quality: "Good", CPLoss: &cp},
	}}
	d := New(WithLocal(local))
	resp := d.Dispatch(context.Background(), Request{Agent: hybrid(), FEN: "fen", Evaluate: true})
	if resp.Kind != MoveApplied {
		t.Fatalf("kind = %s, err = %v", resp.Kind, resp.Err)
	}
	if resp.Move != (domain.MoveInput{From: "e2", To: "e4"}) {
		t.Fatalf("move = %+v", resp.Move)
	}
	if resp.Evaluation == nil || resp.Evaluation.Quality != domain.QualityGood || *resp.Evaluation.CPLoss != 12 {
		t.Fatalf("evaluation = %+v", resp.Evaluation)
	}
	if local.got.Mode != "hybrid" || local.got.Depth != 2 || local.got.Rollout == nil || *local.got.Rollout != 30 || !local.got.Evaluate {
		t.Fatalf("request = %+v", local.got)
	}
}

func TestDispatchMinimaxOmitsRollout(t *testing.T) {
	local := &stubLocal{resp: chessdto.MoveResponse{Move: "e7e8q"}}
	d := New(WithLocal(local))
	agent := domain.Agent{Kind: domain.KindLocalAlgorithm, Depth: 3, Rollouts: 50}
	resp := d.Dispatch(context.Background(), Request{Agent: agent, FEN: "fen"})
	if local.got.Rollout != nil || local.got.Mode != domain.VariantMinimax {
		t.Fatalf("request = %+v", local.got)
	}
	if resp.Move != (domain.MoveInput{From: "e7", To: "e8", Promotion: "q"}) {
		t.Fatalf("move = %+v", resp.Move)
	}
}

func TestDispatchReferenceMove(t *testing.T) {
	ref := &stubReference{resp: chessdto.MoveResponse{From: "g1", To: "f3"}}
	d := New(WithReference(ref))
	agent := domain.Agent{Kind: domain.KindReferenceEngine, TimeLimit: 250 * time.Millisecond}
	resp := d.Dispatch(context.Background(), Request{Agent: agent, FEN: "fen", Evaluate: true})
	if resp.Kind != MoveApplied || ref.got.TimeLimit != 250 || ref.got.Position != "fen" {
		t.Fatalf("resp = %+v, req = %+v", resp, ref.got)
	}
}

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		name string
		wire chessdto.MoveResponse
		err  error
		kind ResponseKind
	}{
		{"game over", chessdto.MoveResponse{GameOver: true, Result: "draw"}, nil, GameEnded},
		{"provider error", chessdto.MoveResponse{Error: "No move found"}, nil, Failed},
		{"transport", chessdto.MoveResponse{}, errors.New("connection refused"), Failed},
		{"empty", chessdto.MoveResponse{}, nil, Failed},
		{"garbage squares", chessdto.MoveResponse{From: "z9", To: "e4"}, nil, Failed},
		{"bad promotion", chessdto.MoveResponse{Move: "e7e8k"}, nil, Failed},
	}
	for _, tt := range tests {
		resp := decode(EndpointLocal, tt.wire, tt.err)
		if resp.Kind != tt.kind {
			t.Fatalf("%s: kind = %s", tt.name, resp.Kind)
		}
		if tt.kind == Failed {
			var perr *domain.ProviderError
			if !errors.As(resp.Err, &perr) {
				t.Fatalf("%s: expected ProviderError, got %v", tt.name, resp.Err)
			}
		}
	}
}

func TestDispatchRejectsOutstandingRequest(t *testing.T) {
	d := New(WithLocal(&stubLocal{resp: chessdto.MoveResponse{Move: "e2e4"}}))
	if !d.acquire("g1") {
		t.Fatalf("acquire failed on an idle session")
	}
	resp := d.Dispatch(context.Background(), Request{SessionID: "g1", Agent: hybrid()})
	if resp.Kind != Failed || !errors.Is(resp.Err, ErrRequestOutstanding) {
		t.Fatalf("expected ErrRequestOutstanding, got %+v", resp)
	}
	if other := d.Dispatch(context.Background(), Request{SessionID: "g2", Agent: hybrid()}); other.Kind != MoveApplied {
		t.Fatalf("other session blocked: %+v", other)
	}
	d.release("g1")
	if again := d.Dispatch(context.Background(), Request{SessionID: "g1", Agent: hybrid()}); again.Kind != MoveApplied {
		t.Fatalf("released session still blocked: %+v", again)
	}
}

func TestHumanInbox(t *testing.T) {
	inbox := NewHumanInbox()
	if err := inbox.Submit(domain.MoveInput{From: "e2", To: "e4"}); !errors.Is(err, ErrNoPendingHumanMove) {
		t.Fatalf("expected ErrNoPendingHumanMove, got %v", err)
	}
	d := New(WithHumans(inbox))
	done := make(chan Response, 1)
	go func() {
		done <- d.Dispatch(context.Background(), Request{Agent: domain.Agent{Kind: domain.KindHuman}})
	}()
	deadline := time.Now().Add(2 * time.Second)
	for !inbox.Pending() {
		if time.Now().After(deadline) {
			t.Fatalf("human request never became pending")
		}
		time.Sleep(time.Millisecond)
	}
	if err := inbox.Submit(domain.MoveInput{From: "e2", To: "e4"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	resp := <-done
	if resp.Kind != MoveApplied || resp.Move.To != "e4" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHumanInboxCancelled(t *testing.T) {
	d := New(WithHumans(NewHumanInbox()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := d.Dispatch(ctx, Request{Agent: domain.Agent{Kind: domain.KindHuman}})
	if resp.Kind != Failed || !errors.Is(resp.Err, context.Canceled) {
		t.Fatalf("resp = %+v", resp)
	}
	if d.Humans().Pending() {
		t.Fatalf("cancelled request left a pending slot")
	}
}
