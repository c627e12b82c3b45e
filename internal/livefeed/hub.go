package livefeed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/orchestrator"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
	pingInterval     = 30 * time.Second
)

type subscriber struct {
	id   int
	send chan orchestrator.Event
}

// Hub relays events to websocket clients. Slow clients lose events rather
// than stalling the controller.
type Hub struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	last   *orchestrator.Event
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, subs: make(map[int]*subscriber)}
}

func (h *Hub) OnEvent(e orchestrator.Event) {
	h.mu.Lock()
	h.last = &e
	targets := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		select {
		case s.send <- e:
		default:
			h.logger.Debug("livefeed_subscriber_lagging", zap.Int("subscriber", s.id))
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (*subscriber, *orchestrator.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &subscriber{id: h.nextID, send: make(chan orchestrator.Event, subscriberBuffer)}
	h.subs[s.id] = s
	return s, h.last
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events as JSON. A new client
// first receives the most recent event.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("livefeed_accept_error", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")

	sub, last := h.subscribe()
	defer h.unsubscribe(sub)
	h.logger.Debug("livefeed_subscribed", zap.Int("subscriber", sub.id))

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	if last != nil {
		if err := h.write(ctx, conn, *last); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case e := <-sub.send:
			if err := h.write(ctx, conn, e); err != nil {
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, e orchestrator.Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, e); err != nil {
		h.logger.Debug("livefeed_write_error", zap.Error(err))
		return err
	}
	return nil
}
