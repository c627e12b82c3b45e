// Package orchestrator runs games and batches between move-selection agents.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/dispatch"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/internal/stats"
)

var (
	ErrBatchInProgress = errors.New("a batch is already running")
	ErrNoActiveBatch   = errors.New("no batch is running")
	ErrNoHumanInput    = errors.New("no human agent is wired")
	ErrStopped         = errors.New("run was stopped")

	errStale = errors.New("stale generation")
)

// Reporter receives logs and charts after games conclude. Failures are
// reported to observers and never change controller state.
type Reporter interface {
	SubmitGame(ctx context.Context, subject domain.Agent, res domain.GameResult, rep stats.Report) error
	SubmitBatch(ctx context.Context, subject domain.Agent, rep stats.Report) error
}

// BatchConfig describes one batch. StartFEN is empty for the standard
// position; custom batches reuse the same string for every game.
type BatchConfig struct {
	Games           int
	Assignment      domain.Assignment
	StartFEN        string
	Evaluate        bool
	AlternateColors bool
	Skip            bool
	Label           string
}

func (c BatchConfig) label() string {
	if strings.TrimSpace(c.Label) != "" {
		return c.Label
	}
	return fmt.Sprintf("%s vs %s", c.Assignment.White.Label(), c.Assignment.Black.Label())
}

type Controller struct {
	dispatcher *dispatch.Dispatcher
	stats      *stats.Aggregator
	h2h        HeadToHeadProvider
	reporter   Reporter
	observers  []Observer
	scheduler  Scheduler
	timing     Timing
	logger     *zap.Logger
	newID      func() string

	skip atomic.Bool

	mu         sync.Mutex
	state      State
	generation uint64
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
	cfg        BatchConfig
	batchID    string
	gameIndex  int
	seats      domain.Assignment
	current    *session.Session
	lastMove   *domain.MoveRecord
	lastErr    error
}

type Option func(*Controller)

func WithScheduler(s Scheduler) Option { return func(c *Controller) { c.scheduler = s } }
func WithTiming(t Timing) Option       { return func(c *Controller) { c.timing = t } }
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}
func WithReporter(r Reporter) Option            { return func(c *Controller) { c.reporter = r } }
func WithHeadToHead(p HeadToHeadProvider) Option { return func(c *Controller) { c.h2h = p } }
func WithIDGenerator(gen func() string) Option   { return func(c *Controller) { c.newID = gen } }
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(d *dispatch.Dispatcher, agg *stats.Aggregator, opts ...Option) (*Controller, error) {
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}
	if agg == nil {
		agg = stats.NewAggregator()
	}
	c := &Controller{
		dispatcher: d,
		stats:      agg,
		scheduler:  TimerScheduler(),
		timing:     DefaultTiming(),
		logger:     zap.NewNop(),
		newID:      uuid.NewString,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Stats() *stats.Aggregator { return c.stats }

// Start validates cfg synchronously and launches the batch. Configuration
// problems never enter the state machine.
func (c *Controller) Start(cfg BatchConfig) error {
	if err := c.validate(&cfg); err != nil {
		return err
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrBatchInProgress
	}
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	c.cfg = cfg
	c.batchID = c.newID()
	c.gameIndex = 0
	c.current = nil
	c.lastMove = nil
	c.lastErr = nil
	c.seats = cfg.Assignment
	c.state = StateAwaitingMove
	c.skip.Store(cfg.Skip)
	c.stats.BeginBatch(c.batchID, cfg.Games, cfg.Assignment.White, cfg.Assignment.Black)
	snap := c.snapshotLocked()
	done := c.done
	c.mu.Unlock()

	c.logger.Info("batch_started",
		zap.String("batch_id", snap.BatchID),
		zap.Uint64("generation", gen),
		zap.Int("games", cfg.Games),
		zap.String("white", cfg.Assignment.White.Identity()),
		zap.String("black", cfg.Assignment.Black.Identity()),
		zap.Bool("custom_position", cfg.StartFEN != ""),
	)
	c.emit(Event{Type: EventBatchStarted, Snapshot: snap})

	go c.runBatch(ctx, cancel, gen, cfg, done)
	return nil
}

func (c *Controller) validate(cfg *BatchConfig) error {
	if cfg.Games < 1 {
		return &domain.ConfigurationError{Field: "games", Reason: fmt.Sprintf("requested game count must be >= 1, got %d", cfg.Games)}
	}
	white, black := cfg.Assignment.White, cfg.Assignment.Black
	white.Role, black.Role = domain.White, domain.Black
	if _, err := c.dispatcher.Resolve(white); err != nil {
		return err
	}
	if _, err := c.dispatcher.Resolve(black); err != nil {
		return err
	}
	// Two seats with one identity would merge their tallies.
	if white.Identity() == black.Identity() {
		cfg.Assignment.White.ID = white.Identity() + "-1"
		cfg.Assignment.Black.ID = black.Identity() + "-2"
	}
	cfg.StartFEN = strings.TrimSpace(cfg.StartFEN)
	if cfg.StartFEN != "" {
		if _, err := session.New("check", cfg.StartFEN); err != nil {
			return &domain.ConfigurationError{Field: "start_position", Err: err}
		}
	}
	return nil
}

// Reset cancels any pending request or delay and discards the current game.
// Tallies survive unless resetTallies is set. Reset always succeeds.
func (c *Controller) Reset(resetTallies bool) {
	c.mu.Lock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	c.current = nil
	c.lastMove = nil
	c.state = StateStopped
	if resetTallies {
		c.stats.Reset()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("batch_reset", zap.Uint64("generation", snap.Generation), zap.Bool("reset_tallies", resetTallies))
	c.emit(Event{Type: EventStopped, Snapshot: snap})
}

// Wait blocks until the most recent run has finished, including its reports.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that stopped the last batch, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SetSkip switches the delay policy for the running and future batches.
func (c *Controller) SetSkip(on bool) {
	c.skip.Store(on)
	c.logger.Debug("skip_mode", zap.Bool("enabled", on))
}

// SubmitHumanMove answers the pending request of a human-controlled side.
// An illegal move is returned to the caller and the request stays open.
func (c *Controller) SubmitHumanMove(from, to, promotion string) error {
	inbox := c.dispatcher.Humans()
	if inbox == nil {
		return ErrNoHumanInput
	}
	in := domain.MoveInput{From: from, To: to, Promotion: promotion}
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNoActiveBatch
	}
	// The position cannot advance while a human move is pending.
	if !inbox.Pending() {
		c.mu.Unlock()
		return dispatch.ErrNoPendingHumanMove
	}
	if c.current != nil {
		if err := c.current.Check(in); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.mu.Unlock()
	return inbox.Submit(in)
}

func (c *Controller) moveDelay() time.Duration {
	if c.skip.Load() {
		return c.timing.SkipDelay
	}
	return c.timing.MoveDelay
}

func (c *Controller) gameDelay() time.Duration {
	if c.skip.Load() {
		return c.timing.SkipDelay
	}
	return c.timing.GameDelay
}

// snapshotLocked must be called with c.mu held.
func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		BatchID:    c.batchID,
		Generation: c.generation,
		State:      c.state,
		Label:      c.cfg.label(),
		GameIndex:  c.gameIndex,
		Games:      c.cfg.Games,
		White:      c.seats.White.Identity(),
		Black:      c.seats.Black.Identity(),
		Skip:       c.skip.Load(),
	}
	if c.batchID == "" {
		snap.Label, snap.White, snap.Black = "", "", ""
	}
	if b, ok := c.stats.Batch(); ok {
		snap.Batch = b
	}
	if s := c.current; s != nil {
		snap.GameID = s.ID()
		snap.FEN = s.FEN()
		snap.Ply = s.Ply()
		snap.ToMove = s.SideToMove()
		snap.Termination = s.Termination()
		snap.Outcome = s.Outcome()
	}
	if c.lastMove != nil {
		mv := *c.lastMove
		snap.LastMove = &mv
	}
	return snap
}

func (c *Controller) emit(e Event) {
	if e.Err != nil && e.Message == "" {
		e.Message = e.Err.Error()
	}
	for _, o := range c.observers {
		o.OnEvent(e)
	}
}
