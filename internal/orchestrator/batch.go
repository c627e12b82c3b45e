package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/dispatch"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/internal/stats"
)

// runBatch drives cfg.Games sequential games. Every resumption re-checks gen
// under the lock; a mismatch means Reset or a newer run took over and the
// goroutine exits without touching shared state.
func (c *Controller) runBatch(ctx context.Context, cancel context.CancelFunc, gen uint64, cfg BatchConfig, done chan struct{}) {
	defer close(done)
	defer cancel()

	subject := cfg.Assignment.White
	results := make([]domain.GameResult, 0, cfg.Games)
	for i := 0; i < cfg.Games; i++ {
		if i > 0 {
			if err := c.scheduler.Wait(ctx, c.gameDelay()); err != nil {
				return
			}
		}
		seats := cfg.Assignment
		if cfg.AlternateColors && i%2 == 1 {
			seats = seats.Swapped()
		}

		res, err := c.playGame(ctx, gen, i+1, seats, cfg)
		if errors.Is(err, errStale) {
			return
		}
		if err != nil {
			c.abort(gen, err)
			return
		}

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		if err := c.stats.RecordGame(res); err != nil {
			c.logger.Warn("record_game_failed", zap.String("game_id", res.GameID), zap.Error(err))
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		results = append(results, res)

		c.logger.Info("game_over",
			zap.String("batch_id", snap.BatchID),
			zap.String("game_id", res.GameID),
			zap.Int("game", res.Index),
			zap.String("outcome", string(res.Outcome)),
			zap.String("termination", string(res.Termination)),
			zap.Int("plies", res.Plies),
		)
		c.emit(Event{Type: EventGameOver, Snapshot: snap})
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.stats.FinishBatch()
	c.state = StateBatchComplete
	c.running = false
	c.cancel = nil
	snap := c.snapshotLocked()
	rep := c.stats.Report()
	c.mu.Unlock()

	c.logger.Info("batch_complete",
		zap.String("batch_id", snap.BatchID),
		zap.Int("completed", snap.Batch.Completed),
		zap.Int("draws", snap.Batch.Draws),
		zap.Int("total_plies", snap.Batch.TotalPlies),
	)
	c.emit(Event{Type: EventBatchComplete, Snapshot: snap})
	c.publish(ctx, subject, snap, results, rep)
}

// playGame runs one game to its end. Moves are applied under c.mu only after
// confirming the response still belongs to gen.
func (c *Controller) playGame(ctx context.Context, gen uint64, index int, seats domain.Assignment, cfg BatchConfig) (domain.GameResult, error) {
	sess, err := session.New(c.newID(), cfg.StartFEN)
	if err != nil {
		return domain.GameResult{}, &domain.ConfigurationError{Field: "start_position", Err: err}
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return domain.GameResult{}, errStale
	}
	c.current = sess
	c.seats = seats
	c.gameIndex = index
	c.lastMove = nil
	c.state = StateAwaitingMove
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(Event{Type: EventGameStarted, Snapshot: snap})

	for {
		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return domain.GameResult{}, errStale
		}
		if sess.Over() {
			c.state = StateGameOver
			c.mu.Unlock()
			return sess.Result(index, seats), nil
		}
		agent := seats.For(sess.SideToMove())
		req := dispatch.Request{SessionID: sess.ID(), Agent: agent, FEN: sess.FEN(), Evaluate: cfg.Evaluate}
		c.state = StateAwaitingMove
		c.mu.Unlock()

		resp := c.dispatcher.Dispatch(ctx, req)

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			c.logger.Debug("stale_response_dropped",
				zap.String("game_id", sess.ID()),
				zap.Uint64("generation", gen),
				zap.Stringer("kind", resp.Kind),
			)
			return domain.GameResult{}, errStale
		}

		switch resp.Kind {
		case dispatch.GameEnded:
			if err := sess.Conclude(resp.Result); err != nil {
				c.mu.Unlock()
				return domain.GameResult{}, &domain.ProviderError{Endpoint: "game_over", Err: err}
			}
			c.state = StateGameOver
			c.mu.Unlock()
			return sess.Result(index, seats), nil

		case dispatch.MoveApplied:
			c.state = StateApplyingMove
			id := agent.Identity()
			rec, err := sess.Apply(resp.Move, id, resp.Evaluation, resp.Elapsed)
			if err != nil {
				c.mu.Unlock()
				return domain.GameResult{}, err
			}
			c.stats.RecordMove(id, resp.Evaluation)
			c.stats.RecordThinkTime(id, resp.Elapsed)
			c.lastMove = &rec
			over := sess.Over()
			if over {
				c.state = StateGameOver
			} else {
				c.state = StateAwaitingMove
			}
			snap := c.snapshotLocked()
			c.mu.Unlock()

			c.emit(Event{Type: EventMoveApplied, Snapshot: snap})
			if over {
				return sess.Result(index, seats), nil
			}
			if err := c.scheduler.Wait(ctx, c.moveDelay()); err != nil {
				return domain.GameResult{}, errStale
			}

		default:
			c.mu.Unlock()
			err := resp.Err
			if err == nil {
				err = &domain.ProviderError{Endpoint: "unknown", Err: dispatch.ErrMalformedResponse}
			}
			return domain.GameResult{}, err
		}
	}
}

// abort stops the batch on a provider or rules failure.
func (c *Controller) abort(gen uint64, err error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateStopped
	c.running = false
	c.lastErr = err
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Error("batch_aborted",
		zap.String("batch_id", snap.BatchID),
		zap.String("game_id", snap.GameID),
		zap.Int("ply", snap.Ply),
		zap.Error(err),
	)
	c.emit(Event{Type: EventError, Snapshot: snap, Err: err})
}

// publish submits per-game logs and the batch charts. Failures only produce
// EventReportFailed.
func (c *Controller) publish(ctx context.Context, subject domain.Agent, snap Snapshot, results []domain.GameResult, rep stats.Report) {
	if c.reporter == nil {
		return
	}
	for _, res := range results {
		if err := c.reporter.SubmitGame(ctx, subject, res, rep); err != nil {
			c.reportFailed(snap, err)
		}
	}
	if err := c.reporter.SubmitBatch(ctx, subject, rep); err != nil {
		c.reportFailed(snap, err)
	}
}

func (c *Controller) reportFailed(snap Snapshot, err error) {
	c.logger.Warn("report_failed", zap.String("batch_id", snap.BatchID), zap.Error(err))
	c.emit(Event{Type: EventReportFailed, Snapshot: snap, Err: err})
}
