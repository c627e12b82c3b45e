package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

type fakeH2H struct {
	got  chessdto.HeadToHeadRequest
	resp chessdto.HeadToHeadResponse
	err  error
}

func (f *fakeH2H) HeadToHead(_ context.Context, req chessdto.HeadToHeadRequest) (chessdto.HeadToHeadResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestHeadToHeadSuccess(t *testing.T) {
	rollout := 30
	h2h := &fakeH2H{resp: chessdto.HeadToHeadResponse{Success: true, Result: &chessdto.HeadToHeadResult{
		Winner:        "White",
		TotalMoves:    57,
		Termination:   "Termination.CHECKMATE",
		FinalPosition: "8/8/8/8/8/8/8/8 w - - 0 1",
		White:         chessdto.SideSummary{Mode: "hybrid", Depth: 2, Rollout: &rollout, AvgTime: 0.5, TotalTime: 14.5},
		Black:         chessdto.SideSummary{Mode: "minimax", Depth: 3, AvgTime: 0.25, TotalTime: 7},
	}}}
	h := newHarness(&scriptedProvider{}, WithHeadToHead(h2h))

	white := domain.Agent{ID: "hy", Kind: domain.KindLocalAlgorithm, Depth: 2, Variant: domain.VariantHybrid, Rollouts: 30}
	black := algo("mm", 3)
	sum, err := h.ctrl.RunHeadToHead(context.Background(), white, black)
	if err != nil {
		t.Fatalf("RunHeadToHead: %v", err)
	}
	if h2h.got.WhiteMode != "hybrid" || h2h.got.WhiteRollout == nil || *h2h.got.WhiteRollout != 30 || h2h.got.BlackRollout != nil || h2h.got.BlackDepth != 3 {
		t.Fatalf("unexpected request: %+v", h2h.got)
	}
	if sum.Outcome != domain.OutcomeWhiteWins || sum.TotalMoves != 57 || sum.White.AvgTime != 500*time.Millisecond {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if h.ctrl.State() != StateBatchComplete {
		t.Fatalf("state = %s", h.ctrl.State())
	}

	var states []State
	for _, e := range h.rec.events {
		states = append(states, e.Snapshot.State)
	}
	want := []State{StateRequesting, StateReporting, StateBatchComplete}
	if len(states) != len(want) {
		t.Fatalf("states = %v", states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if tally := h.ctrl.Stats().Tally("hy"); tally.Evaluated != 0 {
		t.Fatalf("head-to-head must not record move statistics")
	}
}

func TestHeadToHeadFailure(t *testing.T) {
	h2h := &fakeH2H{resp: chessdto.HeadToHeadResponse{Success: false, Error: "engine crashed"}}
	h := newHarness(&scriptedProvider{}, WithHeadToHead(h2h))
	_, err := h.ctrl.RunHeadToHead(context.Background(), algo("a", 1), algo("b", 1))
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if h.ctrl.State() != StateStopped {
		t.Fatalf("state = %s", h.ctrl.State())
	}
}

func TestHeadToHeadValidation(t *testing.T) {
	h := newHarness(&scriptedProvider{})
	if _, err := h.ctrl.RunHeadToHead(context.Background(), algo("a", 1), algo("b", 1)); err == nil {
		t.Fatalf("expected error without a benchmark provider")
	}

	h = newHarness(&scriptedProvider{}, WithHeadToHead(&fakeH2H{}))
	ref := domain.Agent{Kind: domain.KindReferenceEngine, TimeLimit: time.Second}
	_, err := h.ctrl.RunHeadToHead(context.Background(), algo("a", 1), ref)
	var cfg *domain.ConfigurationError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if h.ctrl.State() != StateIdle {
		t.Fatalf("rejected config changed state to %s", h.ctrl.State())
	}
}
