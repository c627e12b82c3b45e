package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side identifies the colour an agent plays in one game.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) Valid() bool { return s == White || s == Black }

// AgentKind selects the move provider behind an agent.
type AgentKind string

const (
	KindHuman           AgentKind = "human"
	KindLocalAlgorithm  AgentKind = "local-algorithm"
	KindReferenceEngine AgentKind = "reference-engine"
)

func ParseAgentKind(s string) (AgentKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human":
		return KindHuman, true
	case "local-algorithm", "local", "algorithm":
		return KindLocalAlgorithm, true
	case "reference-engine", "reference", "stockfish", "engine":
		return KindReferenceEngine, true
	default:
		return "", false
	}
}

const (
	VariantMinimax = "minimax"
	VariantHybrid  = "hybrid"
)

// Agent is immutable for the duration of one game.
type Agent struct {
	ID   string    `json:"id" yaml:"id"`
	Role Side      `json:"role,omitempty" yaml:"-"`
	Kind AgentKind `json:"kind" yaml:"kind"`

	Depth   int    `json:"depth,omitempty" yaml:"depth"`
	Variant string `json:"variant,omitempty" yaml:"mode"`
	// Rollouts only applies to the hybrid variant.
	Rollouts  int           `json:"rollouts,omitempty" yaml:"rollouts"`
	TimeLimit time.Duration `json:"time_limit,omitempty" yaml:"-"`
}

// RolloutCount returns the rollout parameter to send, nil unless hybrid.
func (a Agent) RolloutCount() *int {
	if a.Variant != VariantHybrid || a.Rollouts <= 0 {
		return nil
	}
	n := a.Rollouts
	return &n
}

// Label is a human readable description used in logs and report labels.
func (a Agent) Label() string {
	switch a.Kind {
	case KindHuman:
		return "Human"
	case KindReferenceEngine:
		if a.TimeLimit > 0 {
			return fmt.Sprintf("Stockfish (%dms)", a.TimeLimit.Milliseconds())
		}
		return "Stockfish"
	default:
		variant := a.Variant
		if variant == "" {
			variant = VariantMinimax
		}
		name := strings.ToUpper(variant[:1]) + variant[1:]
		if a.Variant == VariantHybrid && a.Rollouts > 0 {
			return fmt.Sprintf("%s d%d r%d", name, a.Depth, a.Rollouts)
		}
		return fmt.Sprintf("%s d%d", name, a.Depth)
	}
}

// Identity returns the ID, falling back to a label derived slug.
func (a Agent) Identity() string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	slug := strings.ToLower(a.Label())
	slug = strings.NewReplacer(" ", "-", "(", "", ")", "").Replace(slug)
	return slug
}

// Assignment seats two agents for one game.
type Assignment struct {
	White Agent
	Black Agent
}

func (a Assignment) For(side Side) Agent {
	if side == Black {
		ag := a.Black
		ag.Role = Black
		return ag
	}
	ag := a.White
	ag.Role = White
	return ag
}

// Swapped returns the assignment with seats exchanged.
func (a Assignment) Swapped() Assignment {
	return Assignment{White: a.Black, Black: a.White}
}
