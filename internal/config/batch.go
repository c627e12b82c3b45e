package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/park285/chess-arena/internal/domain"
)

// AgentSpec is one agent entry of a batch file.
type AgentSpec struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"`
	Depth       int    `yaml:"depth"`
	Mode        string `yaml:"mode"`
	Rollouts    int    `yaml:"rollouts"`
	TimeLimitMS int    `yaml:"time_limit_ms"`
}

// BatchFile describes one batch run.
//
//	games: 10
//	alternate_colors: true
//	white: {kind: local-algorithm, depth: 3, mode: minimax}
//	black: {kind: reference-engine, time_limit_ms: 100}
//	removed: [b1, g1]
type BatchFile struct {
	Games           int       `yaml:"games"`
	Evaluate        *bool     `yaml:"evaluate"`
	AlternateColors bool      `yaml:"alternate_colors"`
	Skip            bool      `yaml:"skip"`
	Label           string    `yaml:"label"`
	White           AgentSpec `yaml:"white"`
	Black           AgentSpec `yaml:"black"`
	Removed         []string  `yaml:"removed"`
}

func LoadBatchFile(path string) (*BatchFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	return ParseBatch(raw)
}

// ParseBatch decodes a batch file. Unknown keys are rejected.
func ParseBatch(raw []byte) (*BatchFile, error) {
	var bf BatchFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil {
		return nil, &domain.ConfigurationError{Field: "batch_file", Err: err}
	}
	if bf.Games == 0 {
		bf.Games = 1
	}
	return &bf, nil
}

// EvaluateMoves defaults to true when the file leaves it out.
func (b *BatchFile) EvaluateMoves() bool {
	return b.Evaluate == nil || *b.Evaluate
}

// Assignment converts both agent entries. defaultTimeLimit applies to
// reference agents without their own limit.
func (b *BatchFile) Assignment(defaultTimeLimit time.Duration) (domain.Assignment, error) {
	white, err := b.White.Agent("white", defaultTimeLimit)
	if err != nil {
		return domain.Assignment{}, err
	}
	black, err := b.Black.Agent("black", defaultTimeLimit)
	if err != nil {
		return domain.Assignment{}, err
	}
	return domain.Assignment{White: white, Black: black}, nil
}

func (s AgentSpec) Agent(field string, defaultTimeLimit time.Duration) (domain.Agent, error) {
	kind, ok := domain.ParseAgentKind(s.Kind)
	if !ok {
		return domain.Agent{}, &domain.ConfigurationError{Field: field + ".kind", Reason: fmt.Sprintf("unknown agent kind %q", s.Kind)}
	}
	a := domain.Agent{
		ID:       strings.TrimSpace(s.ID),
		Kind:     kind,
		Depth:    s.Depth,
		Variant:  strings.ToLower(strings.TrimSpace(s.Mode)),
		Rollouts: s.Rollouts,
	}
	switch kind {
	case domain.KindLocalAlgorithm:
		if a.Variant == "" {
			a.Variant = domain.VariantMinimax
		}
	case domain.KindReferenceEngine:
		a.TimeLimit = defaultTimeLimit
		if s.TimeLimitMS > 0 {
			a.TimeLimit = time.Duration(s.TimeLimitMS) * time.Millisecond
		}
	}
	return a, nil
}
