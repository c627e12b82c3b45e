package livefeed

import (
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/orchestrator"
)

// LogObserver writes one structured line per event.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

func (l *LogObserver) OnEvent(e orchestrator.Event) {
	s := e.Snapshot
	fields := []zap.Field{
		zap.String("batch_id", s.BatchID),
		zap.String("state", string(s.State)),
		zap.Uint64("generation", s.Generation),
	}
	switch e.Type {
	case orchestrator.EventMoveApplied:
		if s.LastMove != nil {
			fields = append(fields,
				zap.String("game_id", s.GameID),
				zap.Int("ply", s.Ply),
				zap.String("agent", s.LastMove.AgentID),
				zap.String("san", s.LastMove.SAN),
				zap.String("quality", string(s.LastMove.Quality)),
			)
		}
		l.logger.Debug("arena_move", fields...)
	case orchestrator.EventGameOver:
		fields = append(fields,
			zap.String("game_id", s.GameID),
			zap.Int("game", s.GameIndex),
			zap.Int("games", s.Games),
			zap.String("outcome", string(s.Outcome)),
			zap.String("termination", string(s.Termination)),
			zap.Int("plies", s.Ply),
		)
		l.logger.Info("arena_game_over", fields...)
	case orchestrator.EventError, orchestrator.EventReportFailed:
		l.logger.Warn("arena_"+string(e.Type), append(fields, zap.Error(e.Err))...)
	case orchestrator.EventHeadToHead:
		if e.HeadToHead != nil {
			fields = append(fields, zap.String("summary", e.HeadToHead.String()))
		}
		l.logger.Info("arena_head_to_head", fields...)
	default:
		l.logger.Info("arena_"+string(e.Type), fields...)
	}
}
