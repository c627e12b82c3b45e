// Package report assembles game logs and chart requests and hands them to
// storage and the chart service.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/stats"
	"github.com/park285/chess-arena/pkg/chessdto"
)

// LogSink is a remote log store such as the provider's /save_log endpoint.
type LogSink interface {
	SaveLog(ctx context.Context, req chessdto.SaveLogRequest) (string, error)
}

type ChartSink interface {
	GenerateCharts(ctx context.Context, req chessdto.ChartRequest) error
}

type Publisher struct {
	repo   Repository
	logs   LogSink
	charts ChartSink
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	files []string
}

type Option func(*Publisher)

func WithRepository(r Repository) Option { return func(p *Publisher) { p.repo = r } }
func WithLogSink(s LogSink) Option       { return func(p *Publisher) { p.logs = s } }
func WithChartSink(s ChartSink) Option   { return func(p *Publisher) { p.charts = s } }
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Files lists the filenames returned for submitted logs, oldest first.
func (p *Publisher) Files() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.files...)
}

// SubmitGame stores one game log. Every configured sink is tried; their
// errors are joined.
func (p *Publisher) SubmitGame(ctx context.Context, subject domain.Agent, res domain.GameResult, rep stats.Report) error {
	req := LogRequest(subject, res, rep)
	var errs []error

	if p.repo != nil {
		id, err := p.repo.InsertLog(ctx, &domain.GameLog{
			GameID:         res.GameID,
			BatchID:        rep.Batch.ID,
			AlgorithmLabel: req.AlgorithmLabel,
			Depth:          req.Depth,
			Result:         req.Result,
			Termination:    string(res.Termination),
			Moves:          res.Moves,
			Counters:       counterMap(req.Counters),
			CreatedAt:      p.now(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("store game log: %w", err))
		} else {
			p.addFile(fmt.Sprintf("game_%d.json", id))
		}
	}
	if p.logs != nil {
		name, err := p.logs.SaveLog(ctx, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("save game log: %w", err))
		} else {
			p.addFile(name)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.logger.Debug("game_log_submitted", zap.String("game_id", res.GameID), zap.Int("plies", res.Plies))
	return nil
}

// SubmitBatch requests charts for the finished batch.
func (p *Publisher) SubmitBatch(ctx context.Context, subject domain.Agent, rep stats.Report) error {
	if p.charts == nil {
		return nil
	}
	if err := p.charts.GenerateCharts(ctx, ChartRequest(subject, rep)); err != nil {
		return fmt.Errorf("generate charts: %w", err)
	}
	p.logger.Info("charts_generated", zap.String("batch_id", rep.Batch.ID))
	return nil
}

func (p *Publisher) addFile(name string) {
	p.mu.Lock()
	p.files = append(p.files, name)
	p.mu.Unlock()
}

// LogRequest builds the wire form of one game log.
func LogRequest(subject domain.Agent, res domain.GameResult, rep stats.Report) chessdto.SaveLogRequest {
	moves := make([]chessdto.MoveEntry, 0, len(res.Moves))
	for _, m := range res.Moves {
		moves = append(moves, chessdto.MoveEntry{
			Ply:     m.Ply,
			Side:    string(m.Side),
			SAN:     m.SAN,
			UCI:     m.UCI,
			Quality: string(m.Quality),
			CPLoss:  m.CPLoss,
		})
	}
	return chessdto.SaveLogRequest{
		GameID:         res.GameID,
		AlgorithmLabel: subject.Label(),
		Depth:          subject.Depth,
		Result:         string(res.Outcome),
		Moves:          moves,
		Counters:       counters(subject.Identity(), rep),
	}
}

// ChartRequest builds the chart payload with every tracked agent's tallies.
func ChartRequest(subject domain.Agent, rep stats.Report) chessdto.ChartRequest {
	req := chessdto.ChartRequest{
		AlgorithmLabel: subject.Label(),
		Wins:           copyWins(rep.Batch.Wins),
		Draws:          rep.Batch.Draws,
	}
	for _, row := range rep.Agents {
		req.Qualities = append(req.Qualities, chessdto.QualityCounts{
			Agent:      row.ID,
			Excellent:  row.Tally.Excellent,
			Good:       row.Tally.Good,
			Inaccuracy: row.Tally.Inaccuracy,
			Mistake:    row.Tally.Mistake,
			Blunder:    row.Tally.Blunder,
			ACPL:       row.ACPL,
			Accuracy:   row.Accuracy,
		})
	}
	return req
}

func counters(agentID string, rep stats.Report) chessdto.Counters {
	c := chessdto.Counters{
		Wins:      copyWins(rep.Batch.Wins),
		Draws:     rep.Batch.Draws,
		Completed: rep.Batch.Completed,
		Requested: rep.Batch.Requested,
	}
	if row, ok := rep.Agent(agentID); ok {
		c.Excellent = row.Tally.Excellent
		c.Good = row.Tally.Good
		c.Inaccuracy = row.Tally.Inaccuracy
		c.Mistake = row.Tally.Mistake
		c.Blunder = row.Tally.Blunder
	}
	return c
}

func counterMap(c chessdto.Counters) map[string]int {
	return map[string]int{
		"draws":      c.Draws,
		"completed":  c.Completed,
		"requested":  c.Requested,
		"excellent":  c.Excellent,
		"good":       c.Good,
		"inaccuracy": c.Inaccuracy,
		"mistake":    c.Mistake,
		"blunder":    c.Blunder,
	}
}

func copyWins(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
