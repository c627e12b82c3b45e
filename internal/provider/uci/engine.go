package uci

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/pkg/chessdto"
)

var ErrNoMove = errors.New("engine returned no move")

// Engine answers reference-engine requests with a single lazily started
// session. A session that fails a search is discarded and restarted on the
// next request.
type Engine struct {
	binaryPath string
	opt        Options
	logger     *zap.Logger
	start      func(ctx context.Context) (*Session, error)

	mu   sync.Mutex
	sess *Session
}

func NewEngine(binaryPath string, opt Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{binaryPath: binaryPath, opt: opt, logger: logger}
	e.start = func(ctx context.Context) (*Session, error) {
		return NewSession(ctx, e.binaryPath, e.opt)
	}
	return e
}

// ReferenceMove searches req.Position for req.TimeLimit milliseconds. The
// local engine does not classify moves, so no evaluation is returned.
func (e *Engine) ReferenceMove(ctx context.Context, req chessdto.ReferenceMoveRequest) (chessdto.MoveResponse, error) {
	if over, result, err := terminal(req.Position); err != nil {
		return chessdto.MoveResponse{}, err
	} else if over {
		return chessdto.MoveResponse{GameOver: true, Result: result}, nil
	}
	if req.TimeLimit <= 0 {
		return chessdto.MoveResponse{}, fmt.Errorf("time limit must be positive: %d", req.TimeLimit)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		sess, err := e.start(ctx)
		if err != nil {
			return chessdto.MoveResponse{}, fmt.Errorf("start reference engine: %w", err)
		}
		e.sess = sess
	}

	started := time.Now()
	res, err := e.sess.Search(ctx, req.Position, time.Duration(req.TimeLimit)*time.Millisecond)
	if err != nil {
		e.logger.Warn("uci_search_failed", zap.String("fen", req.Position), zap.Error(err))
		_ = e.sess.Close()
		e.sess = nil
		return chessdto.MoveResponse{}, err
	}
	e.logger.Debug("uci_bestmove",
		zap.String("move", res.BestMove),
		zap.Int("score_cp", res.ScoreCP),
		zap.Int("depth", res.Depth),
		zap.Duration("elapsed", time.Since(started)),
	)

	mv := strings.ToLower(strings.TrimSpace(res.BestMove))
	if len(mv) < 4 || mv == "(none)" || mv == "0000" {
		return chessdto.MoveResponse{}, ErrNoMove
	}
	return chessdto.MoveResponse{Move: mv, From: mv[:2], To: mv[2:4], Promotion: mv[4:]}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return nil
	}
	err := e.sess.Close()
	e.sess = nil
	return err
}

// terminal reports whether fen has no legal continuation.
func terminal(fen string) (bool, string, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return false, "", fmt.Errorf("parse position: %w", err)
	}
	pos := nchess.NewGame(opt).Position()
	switch pos.Status() {
	case nchess.Checkmate:
		if pos.Turn() == nchess.White {
			return true, "0-1", nil
		}
		return true, "1-0", nil
	case nchess.Stalemate:
		return true, "1/2-1/2", nil
	}
	return false, "", nil
}
