package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/park285/chess-arena/internal/domain"
)

var ErrNoPendingHumanMove = errors.New("no human move is being awaited")

// HumanInbox hands a submitted move to the pending human-side request.
type HumanInbox struct {
	mu      sync.Mutex
	waiting chan domain.MoveInput
}

func NewHumanInbox() *HumanInbox { return &HumanInbox{} }

// Pending reports whether a human move is being awaited.
func (h *HumanInbox) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waiting != nil
}

// Submit은 수를 전달한다. 대기 중인 요청이 없으면 실패.
func (h *HumanInbox) Submit(in domain.MoveInput) error {
	h.mu.Lock()
	ch := h.waiting
	h.waiting = nil
	h.mu.Unlock()
	if ch == nil {
		return ErrNoPendingHumanMove
	}
	ch <- in
	return nil
}

func (h *HumanInbox) await(ctx context.Context) (domain.MoveInput, error) {
	ch := make(chan domain.MoveInput, 1)
	h.mu.Lock()
	h.waiting = ch
	h.mu.Unlock()

	select {
	case in := <-ch:
		return in, nil
	case <-ctx.Done():
		h.mu.Lock()
		if h.waiting == ch {
			h.waiting = nil
		}
		h.mu.Unlock()
		return domain.MoveInput{}, ctx.Err()
	}
}
