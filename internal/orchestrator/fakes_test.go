package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/dispatch"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/stats"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// scriptedProvider replays responses in order and reports a draw once the
// script runs out.
type scriptedProvider struct {
	mu       sync.Mutex
	script   []chessdto.MoveResponse
	err      error
	requests []chessdto.MoveRequest
}

func (p *scriptedProvider) LocalMove(_ context.Context, req chessdto.MoveRequest) (chessdto.MoveResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return chessdto.MoveResponse{}, p.err
	}
	if len(p.script) == 0 {
		return chessdto.MoveResponse{GameOver: true, Result: "1/2-1/2"}, nil
	}
	next := p.script[0]
	p.script = p.script[1:]
	return next, nil
}

func (p *scriptedProvider) Requests() []chessdto.MoveRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chessdto.MoveRequest(nil), p.requests...)
}

// blockingProvider holds every request until released, ignoring cancellation.
type blockingProvider struct {
	called  chan struct{}
	release chan struct{}
	resp    chessdto.MoveResponse
}

func newBlockingProvider(resp chessdto.MoveResponse) *blockingProvider {
	return &blockingProvider{called: make(chan struct{}, 8), release: make(chan struct{}), resp: resp}
}

func (p *blockingProvider) LocalMove(_ context.Context, _ chessdto.MoveRequest) (chessdto.MoveResponse, error) {
	p.called <- struct{}{}
	<-p.release
	return p.resp, nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *fakeScheduler) Wait(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *fakeScheduler) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Of(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeReporter struct {
	mu       sync.Mutex
	games    []domain.GameResult
	batches  int
	subjects []string
	err      error
}

func (r *fakeReporter) SubmitGame(_ context.Context, subject domain.Agent, res domain.GameResult, _ stats.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, res)
	r.subjects = append(r.subjects, subject.Identity())
	return r.err
}

func (r *fakeReporter) SubmitBatch(context.Context, domain.Agent, stats.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	return r.err
}

func move(uci string) chessdto.MoveResponse {
	return chessdto.MoveResponse{Move: uci, From: uci[:2], To: uci[2:]}
}

func moves(ucis ...string) []chessdto.MoveResponse {
	out := make([]chessdto.MoveResponse, 0, len(ucis))
	for _, m := range ucis {
		out = append(out, move(m))
	}
	return out
}

var scholarsMate = []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"}

func algo(id string, depth int) domain.Agent {
	return domain.Agent{ID: id, Kind: domain.KindLocalAlgorithm, Depth: depth, Variant: domain.VariantMinimax}
}

func seats() domain.Assignment {
	return domain.Assignment{White: algo("alpha", 3), Black: algo("beta", 2)}
}

type harness struct {
	ctrl  *Controller
	sched *fakeScheduler
	rec   *recorder
	rep   *fakeReporter
}

func newHarness(local dispatch.LocalProvider, opts ...Option) *harness {
	h := &harness{sched: &fakeScheduler{}, rec: &recorder{}, rep: &fakeReporter{}}
	d := dispatch.New(dispatch.WithLocal(local), dispatch.WithHumans(dispatch.NewHumanInbox()))
	base := []Option{WithScheduler(h.sched), WithObserver(h.rec), WithReporter(h.rep)}
	ctrl, err := NewController(d, stats.NewAggregator(), append(base, opts...)...)
	if err != nil {
		panic(err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) wait() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.ctrl.Wait(ctx); err != nil {
		panic("controller did not finish: " + err.Error())
	}
}
