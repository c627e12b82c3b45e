// Package arenapresenter prints orchestration progress and reports.
package arenapresenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/park285/chess-arena/internal/orchestrator"
)

// Presenter writes formatted events to w. It implements
// orchestrator.Observer.
type Presenter struct {
	mu     sync.Mutex
	w      io.Writer
	format *Formatter
}

func NewPresenter(w io.Writer, f *Formatter) *Presenter {
	if f == nil {
		f = NewFormatter(false)
	}
	return &Presenter{w: w, format: f}
}

func (p *Presenter) OnEvent(e orchestrator.Event) {
	if line := p.format.Event(e); line != "" {
		p.Print(line)
	}
	if e.HeadToHead != nil {
		p.Print(p.format.HeadToHead(*e.HeadToHead))
	}
}

func (p *Presenter) Print(text string) {
	if p == nil || p.w == nil || strings.TrimSpace(text) == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, text)
}

func (p *Presenter) Formatter() *Formatter { return p.format }
