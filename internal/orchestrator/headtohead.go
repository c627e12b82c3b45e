package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// HeadToHeadProvider plays a whole game server-side in one request.
type HeadToHeadProvider interface {
	HeadToHead(ctx context.Context, req chessdto.HeadToHeadRequest) (chessdto.HeadToHeadResponse, error)
}

type SideTiming struct {
	Mode      string        `json:"mode"`
	Depth     int           `json:"depth"`
	Rollout   *int          `json:"rollout,omitempty"`
	AvgTime   time.Duration `json:"avg_time_ns"`
	TotalTime time.Duration `json:"total_time_ns"`
}

// HeadToHeadSummary is the server's report of a benchmark game.
type HeadToHeadSummary struct {
	Winner      string         `json:"winner"`
	Outcome     domain.Outcome `json:"outcome"`
	TotalMoves  int            `json:"total_moves"`
	Termination string         `json:"termination"`
	FinalFEN    string         `json:"final_fen"`
	White       SideTiming     `json:"white"`
	Black       SideTiming     `json:"black"`
}

// RunHeadToHead sends one benchmark request and waits for the summary. The
// controller moves Requesting -> Reporting -> BatchComplete; no per-move
// statistics are recorded.
func (c *Controller) RunHeadToHead(ctx context.Context, white, black domain.Agent) (HeadToHeadSummary, error) {
	if c.h2h == nil {
		return HeadToHeadSummary{}, &domain.ConfigurationError{Field: "head_to_head", Reason: "no benchmark provider"}
	}
	white.Role, black.Role = domain.White, domain.Black
	for _, ag := range []domain.Agent{white, black} {
		if ag.Kind != domain.KindLocalAlgorithm {
			return HeadToHeadSummary{}, &domain.ConfigurationError{Field: string(ag.Role), Reason: "head-to-head needs local algorithm agents"}
		}
		if _, err := c.dispatcher.Resolve(ag); err != nil {
			return HeadToHeadSummary{}, err
		}
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return HeadToHeadSummary{}, ErrBatchInProgress
	}
	c.generation++
	gen := c.generation
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.running = true
	c.batchID = c.newID()
	c.cfg = BatchConfig{Games: 1, Assignment: domain.Assignment{White: white, Black: black}}
	c.seats = c.cfg.Assignment
	c.gameIndex = 1
	c.current = nil
	c.lastMove = nil
	c.lastErr = nil
	c.state = StateRequesting
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(Event{Type: EventBatchStarted, Snapshot: snap})

	req := chessdto.HeadToHeadRequest{
		WhiteMode:    variantOf(white),
		WhiteDepth:   white.Depth,
		WhiteRollout: white.RolloutCount(),
		BlackMode:    variantOf(black),
		BlackDepth:   black.Depth,
		BlackRollout: black.RolloutCount(),
	}
	started := time.Now()
	resp, err := c.h2h.HeadToHead(runCtx, req)
	if err == nil && !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "benchmark failed"
		}
		err = &domain.ProviderError{Endpoint: "/h2h", Err: chessdto.DomainError{Message: msg}}
	}
	if err == nil && resp.Result == nil {
		err = &domain.ProviderError{Endpoint: "/h2h", Err: errors.New("missing result")}
	}
	if err != nil {
		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			err = &domain.ProviderError{Endpoint: "/h2h", Err: err}
		}
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return HeadToHeadSummary{}, ErrStopped
	}
	if err != nil {
		c.state = StateStopped
		c.running = false
		c.cancel = nil
		c.lastErr = err
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.logger.Error("head_to_head_failed", zap.String("batch_id", snap.BatchID), zap.Error(err))
		c.emit(Event{Type: EventError, Snapshot: snap, Err: err})
		return HeadToHeadSummary{}, err
	}
	summary := summarize(*resp.Result)
	c.state = StateReporting
	snap = c.snapshotLocked()
	snap.FEN = summary.FinalFEN
	snap.Ply = summary.TotalMoves
	snap.Outcome = summary.Outcome
	c.mu.Unlock()

	c.logger.Info("head_to_head",
		zap.String("batch_id", snap.BatchID),
		zap.String("winner", summary.Winner),
		zap.Int("total_moves", summary.TotalMoves),
		zap.String("termination", summary.Termination),
		zap.Duration("elapsed", time.Since(started)),
	)
	c.emit(Event{Type: EventHeadToHead, Snapshot: snap, HeadToHead: &summary})

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return summary, nil
	}
	c.state = StateBatchComplete
	c.running = false
	c.cancel = nil
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.emit(Event{Type: EventBatchComplete, Snapshot: snap})
	return summary, nil
}

func variantOf(a domain.Agent) string {
	if a.Variant == "" {
		return domain.VariantMinimax
	}
	return a.Variant
}

func summarize(r chessdto.HeadToHeadResult) HeadToHeadSummary {
	return HeadToHeadSummary{
		Winner:      r.Winner,
		Outcome:     winnerOutcome(r.Winner),
		TotalMoves:  r.TotalMoves,
		Termination: r.Termination,
		FinalFEN:    r.FinalPosition,
		White:       sideTiming(r.White),
		Black:       sideTiming(r.Black),
	}
}

func winnerOutcome(winner string) domain.Outcome {
	switch strings.ToLower(strings.TrimSpace(winner)) {
	case "white", "1-0":
		return domain.OutcomeWhiteWins
	case "black", "0-1":
		return domain.OutcomeBlackWins
	case "draw", "1/2-1/2":
		return domain.OutcomeDraw
	}
	return domain.OutcomeNone
}

func sideTiming(s chessdto.SideSummary) SideTiming {
	return SideTiming{
		Mode:      s.Mode,
		Depth:     s.Depth,
		Rollout:   s.Rollout,
		AvgTime:   seconds(s.AvgTime),
		TotalTime: seconds(s.TotalTime),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// String renders the summary for CLI output.
func (s HeadToHeadSummary) String() string {
	return fmt.Sprintf("%s after %d moves (%s); white %s d%d avg %v, black %s d%d avg %v",
		s.Winner, s.TotalMoves, s.Termination,
		s.White.Mode, s.White.Depth, s.White.AvgTime.Round(time.Millisecond),
		s.Black.Mode, s.Black.Depth, s.Black.AvgTime.Round(time.Millisecond))
}
