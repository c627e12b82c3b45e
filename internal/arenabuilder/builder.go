// Package arenabuilder wires configuration into a ready controller.
package arenabuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/dispatch"
	"github.com/park285/chess-arena/internal/livefeed"
	"github.com/park285/chess-arena/internal/orchestrator"
	"github.com/park285/chess-arena/internal/provider"
	"github.com/park285/chess-arena/internal/provider/uci"
	"github.com/park285/chess-arena/internal/report"
	"github.com/park285/chess-arena/internal/stats"
)

type Deps struct {
	Controller *orchestrator.Controller
	Stats      *stats.Aggregator
	Client     *provider.Client
	Engine     *uci.Engine
	Repo       report.Repository
	Publisher  *report.Publisher
	Store      *livefeed.RedisStore
	Hub        *livefeed.Hub

	db  *sql.DB
	rdb *redis.Client
}

// New builds every collaborator. Redis, Postgres and the local engine are
// optional; an unreachable one configured through the environment is an
// error.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, extra ...orchestrator.Observer) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{Stats: stats.NewAggregator(), Hub: livefeed.NewHub(logger.Named("livefeed"))}

	deps.Client = provider.NewClient(cfg.EngineBaseURL,
		provider.WithTimeout(cfg.ProviderTimeout),
		provider.WithRetry(cfg.ProviderRetries),
		provider.WithMaxConnsPerHost(cfg.ProviderMaxConns),
		provider.WithLogger(logger.Named("provider")),
	)

	dopts := []dispatch.Option{
		dispatch.WithLocal(deps.Client),
		dispatch.WithHumans(dispatch.NewHumanInbox()),
		dispatch.WithLogger(logger.Named("dispatch")),
	}
	if strings.TrimSpace(cfg.StockfishPath) != "" {
		deps.Engine = uci.NewEngine(cfg.StockfishPath, uci.Options{Threads: 1, HashMB: 64}, logger.Named("uci"))
		dopts = append(dopts, dispatch.WithReference(deps.Engine))
	} else {
		dopts = append(dopts, dispatch.WithReference(deps.Client))
	}
	dispatcher := dispatch.New(dopts...)

	if cfg.DatabaseURL != "" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.db = db
		deps.Repo = report.NewRepository(db)
	} else {
		deps.Repo = report.NewMemoryRepository()
	}

	copts := []orchestrator.Option{
		orchestrator.WithTiming(orchestrator.Timing{
			MoveDelay: cfg.MoveDelay,
			GameDelay: cfg.GameDelay,
			SkipDelay: cfg.SkipDelay,
		}),
		orchestrator.WithHeadToHead(deps.Client),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithObserver(livefeed.NewLogObserver(logger.Named("arena"))),
		orchestrator.WithObserver(deps.Hub),
	}
	if cfg.ReportEnabled {
		deps.Publisher = report.NewPublisher(
			report.WithRepository(deps.Repo),
			report.WithLogSink(deps.Client),
			report.WithChartSink(deps.Client),
			report.WithLogger(logger.Named("report")),
		)
		copts = append(copts, orchestrator.WithReporter(deps.Publisher))
	}

	if cfg.RedisURL != "" {
		rdb, err := livefeed.Dial(ctx, cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.rdb = rdb
		deps.Store = livefeed.NewRedisStore(rdb, logger.Named("livefeed"))
		copts = append(copts, orchestrator.WithObserver(deps.Store))
	}
	for _, o := range extra {
		copts = append(copts, orchestrator.WithObserver(o))
	}

	ctrl, err := orchestrator.NewController(dispatcher, deps.Stats, copts...)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Controller = ctrl
	return deps, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := report.Migrate(pctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the engine process and every connection.
func (d *Deps) Close() error {
	var errs []error
	if d.Engine != nil {
		errs = append(errs, d.Engine.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	if d.rdb != nil {
		errs = append(errs, d.rdb.Close())
	}
	return errors.Join(errs...)
}
