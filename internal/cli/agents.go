package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/chess-arena/internal/config"
)

// parseAgent reads a compact agent description such as
// "kind=local,mode=hybrid,depth=2,rollouts=30" or "kind=stockfish,time=250".
func parseAgent(raw string) (config.AgentSpec, error) {
	var spec config.AgentSpec
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return spec, fmt.Errorf("agent field %q: want key=value", part)
		}
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
		switch key {
		case "id":
			spec.ID = value
		case "kind":
			spec.Kind = value
		case "mode", "variant":
			spec.Mode = value
		case "depth", "rollouts", "time", "time_limit_ms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return spec, fmt.Errorf("agent field %q: %w", key, err)
			}
			switch key {
			case "depth":
				spec.Depth = n
			case "rollouts":
				spec.Rollouts = n
			default:
				spec.TimeLimitMS = n
			}
		default:
			return spec, fmt.Errorf("unknown agent field %q", key)
		}
	}
	if spec.Kind == "" {
		return spec, fmt.Errorf("agent %q has no kind", raw)
	}
	return spec, nil
}
