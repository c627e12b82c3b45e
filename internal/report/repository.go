package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/park285/chess-arena/internal/domain"
)

var ErrDuplicateLog = errors.New("game log already exists")

type Repository interface {
	InsertLog(ctx context.Context, log *domain.GameLog) (int64, error)
	RecentLogs(ctx context.Context, batchID string, limit int) ([]*domain.GameLog, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS arena_game_logs (
		id              BIGSERIAL PRIMARY KEY,
		game_id         TEXT NOT NULL UNIQUE,
		batch_id        TEXT NOT NULL,
		algorithm_label TEXT NOT NULL,
		depth           INTEGER NOT NULL,
		result          TEXT NOT NULL,
		termination     TEXT NOT NULL,
		moves           JSONB NOT NULL,
		counters        JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS arena_game_logs_batch_idx ON arena_game_logs (batch_id, created_at DESC);`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Migrate creates the log table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate arena_game_logs: %w", err)
	}
	return nil
}

func (r *repository) InsertLog(ctx context.Context, log *domain.GameLog) (int64, error) {
	if log == nil {
		return 0, fmt.Errorf("nil game log payload")
	}

	moves, err := json.Marshal(log.Moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves: %w", err)
	}
	counters, err := json.Marshal(log.Counters)
	if err != nil {
		return 0, fmt.Errorf("marshal counters: %w", err)
	}

	const query = `
		INSERT INTO arena_game_logs (
			game_id,
			batch_id,
			algorithm_label,
			depth,
			result,
			termination,
			moves,
			counters,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
		ON CONFLICT (game_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(
		ctx,
		query,
		log.GameID,
		log.BatchID,
		log.AlgorithmLabel,
		log.Depth,
		log.Result,
		log.Termination,
		moves,
		counters,
		log.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateLog
	}
	if err != nil {
		return 0, fmt.Errorf("insert game log: %w", err)
	}
	return id.Int64, nil
}

func (r *repository) RecentLogs(ctx context.Context, batchID string, limit int) ([]*domain.GameLog, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT
			id,
			game_id,
			batch_id,
			algorithm_label,
			depth,
			result,
			termination,
			moves,
			counters,
			created_at
		FROM arena_game_logs
		WHERE $1 = '' OR batch_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, batchID, limit)
	if err != nil {
		return nil, fmt.Errorf("select game logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.GameLog, 0, limit)
	for rows.Next() {
		var (
			log          domain.GameLog
			movesJSON    []byte
			countersJSON []byte
		)
		if err := rows.Scan(
			&log.ID,
			&log.GameID,
			&log.BatchID,
			&log.AlgorithmLabel,
			&log.Depth,
			&log.Result,
			&log.Termination,
			&movesJSON,
			&countersJSON,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game log: %w", err)
		}
		if err := json.Unmarshal(movesJSON, &log.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		if err := json.Unmarshal(countersJSON, &log.Counters); err != nil {
			return nil, fmt.Errorf("unmarshal counters: %w", err)
		}
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate game logs: %w", err)
	}
	return logs, nil
}
