// Package dispatch turns the active agent into one provider request per turn.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

var (
	ErrRequestOutstanding = errors.New("a move request is already outstanding")
	ErrMalformedResponse  = errors.New("response carries neither a move nor a terminal signal")
)

const (
	EndpointLocal     = "/move"
	EndpointReference = "/stockfish_move"
	EndpointHuman     = "human"
)

// LocalProvider serves local-algorithm agents.
type LocalProvider interface {
	LocalMove(ctx context.Context, req chessdto.MoveRequest) (chessdto.MoveResponse, error)
}

// ReferenceProvider serves reference-engine agents.
type ReferenceProvider interface {
	ReferenceMove(ctx context.Context, req chessdto.ReferenceMoveRequest) (chessdto.MoveResponse, error)
}

type ResponseKind int

const (
	MoveApplied ResponseKind = iota + 1
	GameEnded
	Failed
)

func (k ResponseKind) String() string {
	switch k {
	case MoveApplied:
		return "move"
	case GameEnded:
		return "game_ended"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Request is one turn's move request. SessionID scopes the outstanding
// request guard.
type Request struct {
	SessionID string
	Agent     domain.Agent
	FEN       string
	Evaluate  bool
}

// Response is exactly one of a move, a terminal signal or a failure.
type Response struct {
	Kind       ResponseKind
	Move       domain.MoveInput
	Evaluation *domain.Evaluation
	Result     string
	Err        error
	Elapsed    time.Duration
}

func failed(err error) Response { return Response{Kind: Failed, Err: err} }

// Route is the resolved endpoint for an agent.
type Route struct {
	Endpoint string
	Kind     domain.AgentKind
}

type Dispatcher struct {
	local     LocalProvider
	reference ReferenceProvider
	humans    *HumanInbox
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	outstanding map[string]struct{}
}

type Option func(*Dispatcher)

func WithLocal(p LocalProvider) Option         { return func(d *Dispatcher) { d.local = p } }
func WithReference(p ReferenceProvider) Option { return func(d *Dispatcher) { d.reference = p } }
func WithHumans(h *HumanInbox) Option          { return func(d *Dispatcher) { d.humans = h } }
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
func WithClock(now func() time.Time) Option { return func(d *Dispatcher) { d.now = now } }

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{logger: zap.NewNop(), now: time.Now, outstanding: make(map[string]struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Humans exposes the inbox fed by SubmitHumanMove, nil when none is wired.
func (d *Dispatcher) Humans() *HumanInbox { return d.humans }

// Resolve checks that an agent can be served, returning ConfigurationError
// otherwise.
func (d *Dispatcher) Resolve(agent domain.Agent) (Route, error) {
	field := "agent"
	if agent.Role.Valid() {
		field = string(agent.Role)
	}
	cfgErr := func(reason string) error {
		return &domain.ConfigurationError{Field: field, Reason: reason}
	}
	switch agent.Kind {
	case domain.KindHuman:
		if d.humans == nil {
			return Route{}, cfgErr("no human input is wired")
		}
		return Route{Endpoint: EndpointHuman, Kind: agent.Kind}, nil
	case domain.KindLocalAlgorithm:
		if agent.Depth < 1 {
			return Route{}, cfgErr(fmt.Sprintf("depth must be >= 1, got %d", agent.Depth))
		}
		switch agent.Variant {
		case "", domain.VariantMinimax, domain.VariantHybrid:
		default:
			return Route{}, cfgErr(fmt.Sprintf("unknown algorithm variant %q", agent.Variant))
		}
		if agent.Rollouts < 0 {
			return Route{}, cfgErr("rollout count must not be negative")
		}
		if d.local == nil {
			return Route{}, cfgErr("no local algorithm provider")
		}
		return Route{Endpoint: EndpointLocal, Kind: agent.Kind}, nil
	case domain.KindReferenceEngine:
		if agent.TimeLimit <= 0 {
			return Route{}, cfgErr("reference engine needs a positive time limit")
		}
		if d.reference == nil {
			return Route{}, cfgErr("no reference engine provider")
		}
		return Route{Endpoint: EndpointReference, Kind: agent.Kind}, nil
	case "":
		return Route{}, cfgErr("no agent assigned")
	default:
		return Route{}, cfgErr(fmt.Sprintf("unknown agent kind %q", agent.Kind))
	}
}

// Dispatch sends one request and waits for its response. At most one request
// may be outstanding per session.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	route, err := d.Resolve(req.Agent)
	if err != nil {
		return failed(err)
	}
	if !d.acquire(req.SessionID) {
		return failed(ErrRequestOutstanding)
	}
	defer d.release(req.SessionID)

	started := d.now()
	var resp Response
	switch route.Kind {
	case domain.KindHuman:
		resp = d.awaitHuman(ctx)
	case domain.KindLocalAlgorithm:
		mode := req.Agent.Variant
		if mode == "" {
			mode = domain.VariantMinimax
		}
		wire, err := d.local.LocalMove(ctx, chessdto.MoveRequest{
			Position: req.FEN,
			Depth:    req.Agent.Depth,
			Mode:     mode,
			Rollout:  req.Agent.RolloutCount(),
			Evaluate: req.Evaluate,
		})
		resp = decode(route.Endpoint, wire, err)
	case domain.KindReferenceEngine:
		wire, err := d.reference.ReferenceMove(ctx, chessdto.ReferenceMoveRequest{
			Position:  req.FEN,
			TimeLimit: int(req.Agent.TimeLimit.Milliseconds()),
			Evaluate:  req.Evaluate,
		})
		resp = decode(route.Endpoint, wire, err)
	}
	resp.Elapsed = d.now().Sub(started)

	d.logger.Debug("move_response",
		zap.String("game_id", req.SessionID),
		zap.String("agent_id", req.Agent.Identity()),
		zap.String("endpoint", route.Endpoint),
		zap.Stringer("kind", resp.Kind),
		zap.Duration("elapsed", resp.Elapsed),
	)
	return resp
}

func (d *Dispatcher) acquire(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.outstanding[sessionID]; busy {
		return false
	}
	d.outstanding[sessionID] = struct{}{}
	return true
}

func (d *Dispatcher) release(sessionID string) {
	d.mu.Lock()
	delete(d.outstanding, sessionID)
	d.mu.Unlock()
}

func (d *Dispatcher) awaitHuman(ctx context.Context) Response {
	in, err := d.humans.await(ctx)
	if err != nil {
		return failed(err)
	}
	return Response{Kind: MoveApplied, Move: in}
}

// decode maps a provider reply onto the response variant.
func decode(endpoint string, wire chessdto.MoveResponse, err error) Response {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failed(err)
		}
		var perr *domain.ProviderError
		if errors.As(err, &perr) {
			return failed(err)
		}
		return failed(&domain.ProviderError{Endpoint: endpoint, Err: err})
	}
	if msg := strings.TrimSpace(wire.Error); msg != "" {
		return failed(&domain.ProviderError{Endpoint: endpoint, Err: chessdto.DomainError{Message: msg}})
	}
	if wire.GameOver {
		return Response{Kind: GameEnded, Result: wire.Result}
	}
	mv, ok := moveFromWire(wire)
	if !ok {
		return failed(&domain.ProviderError{Endpoint: endpoint, Err: ErrMalformedResponse})
	}
	resp := Response{Kind: MoveApplied, Move: mv}
	if wire.Evaluation != nil {
		resp.Evaluation = &domain.Evaluation{
			Quality: domain.Quality(strings.ToLower(strings.TrimSpace(wire.Evaluation.Quality))),
			CPLoss:  wire.Evaluation.CPLoss,
		}
	}
	return resp
}

// moveFromWire prefers from/to and falls back to the UCI move string. A
// promotion letter may trail the destination square.
func moveFromWire(wire chessdto.MoveResponse) (domain.MoveInput, bool) {
	from := strings.ToLower(strings.TrimSpace(wire.From))
	to := strings.ToLower(strings.TrimSpace(wire.To))
	promo := strings.ToLower(strings.TrimSpace(wire.Promotion))
	if from == "" || to == "" {
		uci := strings.ToLower(strings.TrimSpace(wire.Move))
		if len(uci) < 4 {
			return domain.MoveInput{}, false
		}
		from, to = uci[:2], uci[2:]
	}
	if len(to) == 3 {
		if promo == "" {
			promo = to[2:]
		}
		to = to[:2]
	}
	if !isSquare(from) || !isSquare(to) {
		return domain.MoveInput{}, false
	}
	if len(promo) > 1 || (promo != "" && !strings.Contains("qrbn", promo)) {
		return domain.MoveInput{}, false
	}
	return domain.MoveInput{From: from, To: to, Promotion: promo}, true
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
