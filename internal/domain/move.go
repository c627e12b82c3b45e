package domain

import (
	"strings"
	"time"
)

// Quality is the provider supplied classification of a move. The label is
// opaque here; thresholds live with the evaluation service.
type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityGood       Quality = "good"
	QualityInaccuracy Quality = "inaccuracy"
	QualityMistake    Quality = "mistake"
	QualityBlunder    Quality = "blunder"
)

var Qualities = []Quality{QualityExcellent, QualityGood, QualityInaccuracy, QualityMistake, QualityBlunder}

func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Qualities {
		if q == known {
			return q, true
		}
	}
	return "", false
}

// Evaluation is attached to a move when the provider was asked to evaluate.
// CPLoss is nil when the provider did not score the move.
type Evaluation struct {
	Quality Quality
	CPLoss  *float64
}

// MoveInput is a provider or human move in coordinate form.
type MoveInput struct {
	From      string
	To        string
	Promotion string
}

func (m MoveInput) UCI() string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}

// MoveRecord is appended once per applied move and never modified.
type MoveRecord struct {
	Ply       int           `json:"ply"`
	Side      Side          `json:"side"`
	AgentID   string        `json:"agent_id,omitempty"`
	SAN       string        `json:"san"`
	UCI       string        `json:"uci"`
	Quality   Quality       `json:"quality,omitempty"`
	CPLoss    *float64      `json:"cp_loss"`
	ThinkTime time.Duration `json:"think_time_ns,omitempty"`
}
