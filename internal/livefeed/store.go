// Package livefeed publishes orchestration events to Redis, websocket
// subscribers and the log.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/orchestrator"
)

const (
	ttlSnapshot  = 24 * time.Hour
	eventChannel = "arena:events"
	keyLatest    = "arena:latest"
	queueSize    = 256
	flushTimeout = 2 * time.Second
)

// RedisStore keeps the latest snapshot per batch and fans events out on a
// pub/sub channel. OnEvent only enqueues; Run performs the writes.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
	queue  chan orchestrator.Event

	dropMu  sync.Mutex
	dropped int
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, logger: logger, queue: make(chan orchestrator.Event, queueSize)}
}

// Dial connects to REDIS_URL and pings it.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func keySnapshot(batchID string) string { return "arena:snapshot:" + strings.TrimSpace(batchID) }

func (s *RedisStore) OnEvent(e orchestrator.Event) {
	select {
	case s.queue <- e:
	default:
		s.dropMu.Lock()
		s.dropped++
		s.dropMu.Unlock()
	}
}

// Dropped counts events discarded because the queue was full.
func (s *RedisStore) Dropped() int {
	s.dropMu.Lock()
	defer s.dropMu.Unlock()
	return s.dropped
}

// Run drains the queue until ctx is done, then flushes what is still queued
// within flushTimeout.
func (s *RedisStore) Run(ctx context.Context) {
	defer func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		s.Flush(fctx)
	}()
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case e := <-s.queue:
			s.save(ctx, e)
		}
	}
}

// Flush saves every queued event without waiting for new ones.
func (s *RedisStore) Flush(ctx context.Context) {
	for {
		select {
		case e := <-s.queue:
			s.save(ctx, e)
		default:
			return
		}
	}
}

func (s *RedisStore) save(ctx context.Context, e orchestrator.Event) {
	if err := s.Save(ctx, e); err != nil {
		s.logger.Warn("livefeed_store_error", zap.String("event", string(e.Type)), zap.Error(err))
	}
}

// Save writes the snapshot and publishes the event.
func (s *RedisStore) Save(ctx context.Context, e orchestrator.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if id := e.Snapshot.BatchID; id != "" {
		snap, err := json.Marshal(e.Snapshot)
		if err != nil {
			return err
		}
		pipe := s.rdb.TxPipeline()
		pipe.Set(ctx, keySnapshot(id), snap, ttlSnapshot)
		pipe.Set(ctx, keyLatest, id, ttlSnapshot)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return s.rdb.Publish(ctx, eventChannel, raw).Err()
}

// Snapshot loads the stored snapshot of a batch. The most recent batch is
// used when batchID is empty. A missing key yields nil, nil.
func (s *RedisStore) Snapshot(ctx context.Context, batchID string) (*orchestrator.Snapshot, error) {
	if strings.TrimSpace(batchID) == "" {
		id, err := s.rdb.Get(ctx, keyLatest).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		batchID = id
	}
	raw, err := s.rdb.Get(ctx, keySnapshot(batchID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Latest loads the snapshot of the most recently updated batch.
func (s *RedisStore) Latest(ctx context.Context) (*orchestrator.Snapshot, error) {
	return s.Snapshot(ctx, "")
}

// Subscribe streams published events until ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan orchestrator.Event, error) {
	sub := s.rdb.Subscribe(ctx, eventChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan orchestrator.Event)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e orchestrator.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					s.logger.Warn("livefeed_decode_error", zap.Error(err))
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
