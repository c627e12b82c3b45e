// Package stats accumulates per-agent move quality and per-batch outcomes.
package stats

import (
	"errors"
	"sync"
	"time"

	"github.com/park285/chess-arena/internal/domain"
)

var (
	ErrNoBatch       = errors.New("no batch has been started")
	ErrBatchComplete = errors.New("batch already reached its requested game count")
)

// Record is one agent's results inside a batch.
type Record struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

func (r Record) Games() int { return r.Wins + r.Draws + r.Losses }

// BatchRun describes the batch in progress. Completed never exceeds Requested.
type BatchRun struct {
	ID        string `json:"id"`
	Requested int    `json:"requested"`
	Completed int    `json:"completed"`

	Wins      map[string]int `json:"wins"`
	Draws     int            `json:"draws"`
	WhiteWins int            `json:"white_wins"`
	BlackWins int            `json:"black_wins"`

	TotalPlies int `json:"total_plies"`
	Longest    int `json:"longest"`
	Shortest   int `json:"shortest"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func (b BatchRun) clone() BatchRun {
	out := b
	out.Wins = make(map[string]int, len(b.Wins))
	for k, v := range b.Wins {
		out.Wins[k] = v
	}
	return out
}

// AverageLength is the mean number of plies per completed game.
func (b BatchRun) AverageLength() float64 {
	if b.Completed == 0 {
		return 0
	}
	return float64(b.TotalPlies) / float64(b.Completed)
}

type agentStats struct {
	label  string
	tally  QualityTally
	record Record
	think  thinkTime
}

// Aggregator is safe for concurrent readers; the controller is its only writer.
type Aggregator struct {
	mu     sync.RWMutex
	agents map[string]*agentStats
	order  []string
	batch  *BatchRun
	now    func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{agents: make(map[string]*agentStats), now: time.Now}
}

func (a *Aggregator) agent(id string) *agentStats {
	st, ok := a.agents[id]
	if !ok {
		st = &agentStats{label: id}
		a.agents[id] = st
		a.order = append(a.order, id)
	}
	return st
}

// Track registers agents so they appear in reports before they move.
func (a *Aggregator) Track(agents ...domain.Agent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ag := range agents {
		a.agent(ag.Identity()).label = ag.Label()
	}
}

// BeginBatch resets batch counters. Quality tallies persist until Reset.
func (a *Aggregator) BeginBatch(id string, requested int, agents ...domain.Agent) {
	a.mu.Lock()
	a.batch = &BatchRun{
		ID:        id,
		Requested: requested,
		Wins:      make(map[string]int),
		StartedAt: a.now(),
	}
	for _, st := range a.agents {
		st.record = Record{}
	}
	a.mu.Unlock()
	a.Track(agents...)
}

// RecordMove counts an evaluated move for agentID. Labels outside the five
// known buckets are ignored and false is returned.
func (a *Aggregator) RecordMove(agentID string, ev *domain.Evaluation) bool {
	if ev == nil {
		return false
	}
	if _, ok := domain.ParseQuality(string(ev.Quality)); !ok {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agent(agentID).tally.add(*ev)
}

func (a *Aggregator) RecordThinkTime(agentID string, d time.Duration) {
	if d <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agent(agentID).think.add(d.Seconds())
}

// RecordGame concludes one game in the current batch.
func (a *Aggregator) RecordGame(res domain.GameResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.batch == nil {
		return ErrNoBatch
	}
	b := a.batch
	if b.Completed >= b.Requested {
		return ErrBatchComplete
	}
	b.Completed++

	whiteID := res.Assignment.For(domain.White).Identity()
	blackID := res.Assignment.For(domain.Black).Identity()
	white, black := a.agent(whiteID), a.agent(blackID)

	switch res.Outcome {
	case domain.OutcomeWhiteWins:
		b.Wins[whiteID]++
		b.WhiteWins++
		white.record.Wins++
		black.record.Losses++
	case domain.OutcomeBlackWins:
		b.Wins[blackID]++
		b.BlackWins++
		black.record.Wins++
		white.record.Losses++
	default:
		b.Draws++
		white.record.Draws++
		black.record.Draws++
	}

	b.TotalPlies += res.Plies
	if res.Plies > b.Longest {
		b.Longest = res.Plies
	}
	if b.Completed == 1 || res.Plies < b.Shortest {
		b.Shortest = res.Plies
	}
	return nil
}

// FinishBatch stamps the batch end time.
func (a *Aggregator) FinishBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.batch != nil && a.batch.FinishedAt.IsZero() {
		a.batch.FinishedAt = a.now()
	}
}

// Reset drops every tally and the current batch.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agents = make(map[string]*agentStats)
	a.order = nil
	a.batch = nil
}

func (a *Aggregator) Tally(agentID string) QualityTally {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if st, ok := a.agents[agentID]; ok {
		return st.tally
	}
	return QualityTally{}
}

// Batch returns a copy of the current batch, false before BeginBatch.
func (a *Aggregator) Batch() (BatchRun, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.batch == nil {
		return BatchRun{}, false
	}
	return a.batch.clone(), true
}

func (a *Aggregator) AverageCentipawnLoss(agentID string) float64 {
	t := a.Tally(agentID)
	return t.AverageCentipawnLoss()
}

func (a *Aggregator) Accuracy(agentID string) float64 {
	t := a.Tally(agentID)
	return t.Accuracy()
}

// Score is (wins + draws/2) / games for the agent in the current batch.
func (a *Aggregator) Score(agentID string) float64 {
	rec := a.record(agentID)
	if rec.Games() == 0 {
		return 0
	}
	return (float64(rec.Wins) + float64(rec.Draws)/2) / float64(rec.Games())
}

// Elo estimates the agent's strength relative to its opponents in the batch.
func (a *Aggregator) Elo(agentID string) (lower, elo, upper float64) {
	rec := a.record(agentID)
	return Elo(rec.Wins, rec.Draws, rec.Losses)
}

func (a *Aggregator) record(agentID string) Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if st, ok := a.agents[agentID]; ok {
		return st.record
	}
	return Record{}
}

// AgentReport is one row of the batch report.
type AgentReport struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Tally    QualityTally `json:"tally"`
	Record   Record       `json:"record"`
	ACPL     float64      `json:"acpl"`
	Accuracy float64      `json:"accuracy"`
	Score    float64      `json:"score"`

	EloLower float64 `json:"elo_lower"`
	Elo      float64 `json:"elo"`
	EloUpper float64 `json:"elo_upper"`

	ThinkMean   time.Duration `json:"think_mean_ns"`
	ThinkStdDev time.Duration `json:"think_stddev_ns"`
}

// Report is the derived view handed to logging and chart collaborators.
type Report struct {
	Batch  BatchRun      `json:"batch"`
	Agents []AgentReport `json:"agents"`
}

func (r Report) Agent(id string) (AgentReport, bool) {
	for _, row := range r.Agents {
		if row.ID == id {
			return row, true
		}
	}
	return AgentReport{}, false
}

// Report derives every metric from the stored counters.
func (a *Aggregator) Report() Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var rep Report
	if a.batch != nil {
		rep.Batch = a.batch.clone()
	}
	for _, id := range a.order {
		st := a.agents[id]
		row := AgentReport{
			ID:       id,
			Label:    st.label,
			Tally:    st.tally,
			Record:   st.record,
			ACPL:     st.tally.AverageCentipawnLoss(),
			Accuracy: st.tally.Accuracy(),
		}
		if g := st.record.Games(); g > 0 {
			row.Score = (float64(st.record.Wins) + float64(st.record.Draws)/2) / float64(g)
		}
		row.EloLower, row.Elo, row.EloUpper = Elo(st.record.Wins, st.record.Draws, st.record.Losses)
		row.ThinkMean = time.Duration(st.think.mean * float64(time.Second))
		row.ThinkStdDev = time.Duration(st.think.stddev() * float64(time.Second))
		rep.Agents = append(rep.Agents, row)
	}
	return rep
}
