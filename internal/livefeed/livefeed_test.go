package livefeed

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/orchestrator"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb, err := Dial(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, nil), mr
}

func event(typ orchestrator.EventType, batch string, ply int) orchestrator.Event {
	return orchestrator.Event{Type: typ, Snapshot: orchestrator.Snapshot{
		BatchID: batch,
		State:   orchestrator.StateAwaitingMove,
		Ply:     ply,
		ToMove:  domain.Black,
	}}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@cache:6380/2")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := ParseRedisURL("http://cache"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := ParseRedisURL("redis://cache/x"); err == nil {
		t.Fatalf("expected db error")
	}
}

func TestRedisStoreSnapshot(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if snap, err := store.Snapshot(ctx, ""); err != nil || snap != nil {
		t.Fatalf("empty store: %v %v", snap, err)
	}
	if err := store.Save(ctx, event(orchestrator.EventMoveApplied, "b1", 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, event(orchestrator.EventMoveApplied, "b1", 2)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := store.Latest(ctx)
	if err != nil || snap == nil {
		t.Fatalf("Snapshot: %v %v", snap, err)
	}
	if snap.BatchID != "b1" || snap.Ply != 2 || snap.ToMove != domain.Black {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if ttl := mr.TTL(keySnapshot("b1")); ttl != ttlSnapshot {
		t.Fatalf("ttl = %v", ttl)
	}
	if snap, _ := store.Snapshot(ctx, "missing"); snap != nil {
		t.Fatalf("expected nil for unknown batch")
	}
}

func TestRedisStoreRunAndSubscribe(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	go store.Run(ctx)

	store.OnEvent(event(orchestrator.EventBatchStarted, "b2", 0))
	select {
	case e := <-events:
		if e.Type != orchestrator.EventBatchStarted || e.Snapshot.BatchID != "b2" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for published event")
	}
}

func TestRedisStoreRunFlushesOnShutdown(t *testing.T) {
	store, _ := newTestStore(t)
	store.OnEvent(event(orchestrator.EventMoveApplied, "b4", 1))
	store.OnEvent(event(orchestrator.EventBatchComplete, "b4", 7))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.Run(ctx)

	snap, err := store.Snapshot(context.Background(), "b4")
	if err != nil || snap == nil {
		t.Fatalf("Snapshot: %v %v", snap, err)
	}
	if snap.Ply != 7 {
		t.Fatalf("ply = %d, want 7", snap.Ply)
	}
	if n := len(store.queue); n != 0 {
		t.Fatalf("queue still holds %d events", n)
	}
}

func TestRedisStoreDropsWhenFull(t *testing.T) {
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), nil)
	for i := 0; i < queueSize+3; i++ {
		s.OnEvent(event(orchestrator.EventMoveApplied, "b", i))
	}
	if s.Dropped() != 3 {
		t.Fatalf("dropped = %d, want 3", s.Dropped())
	}
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(nil)
	hub.OnEvent(event(orchestrator.EventBatchStarted, "b3", 0))

	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first orchestrator.Event
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if first.Type != orchestrator.EventBatchStarted {
		t.Fatalf("replay = %s", first.Type)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.OnEvent(event(orchestrator.EventMoveApplied, "b3", 1))

	var next orchestrator.Event
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if next.Type != orchestrator.EventMoveApplied || next.Snapshot.Ply != 1 {
		t.Fatalf("unexpected event: %+v", next)
	}
}

func TestLogObserverLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	obs := NewLogObserver(zap.New(core))

	obs.OnEvent(event(orchestrator.EventBatchStarted, "b4", 0))
	over := event(orchestrator.EventGameOver, "b4", 7)
	over.Snapshot.Outcome = domain.OutcomeWhiteWins
	over.Snapshot.GameIndex = 1
	obs.OnEvent(over)
	failed := event(orchestrator.EventReportFailed, "b4", 7)
	failed.Err = fmt.Errorf("chart service down")
	obs.OnEvent(failed)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Message != "arena_batch_started" {
		t.Fatalf("first = %s", entries[0].Message)
	}
	if entries[1].Message != "arena_game_over" || entries[1].ContextMap()["outcome"] != "1-0" {
		t.Fatalf("game over entry: %+v", entries[1])
	}
	if entries[2].Level != zap.WarnLevel {
		t.Fatalf("report failure level = %s", entries[2].Level)
	}
}
