package arenapresenter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/orchestrator"
	"github.com/park285/chess-arena/internal/stats"
)

// Formatter renders orchestration state into terminal friendly text blocks.
type Formatter struct {
	verbose bool
}

func NewFormatter(verbose bool) *Formatter {
	return &Formatter{verbose: verbose}
}

// Event returns a single status line, or "" for events not worth printing.
func (f *Formatter) Event(e orchestrator.Event) string {
	s := e.Snapshot
	switch e.Type {
	case orchestrator.EventBatchStarted:
		return fmt.Sprintf("▶ %s (%d games)", labelOr(s.Label, s.BatchID), s.Games)
	case orchestrator.EventGameStarted:
		return fmt.Sprintf("• game %d/%d  %s vs %s", s.GameIndex, s.Games, s.White, s.Black)
	case orchestrator.EventMoveApplied:
		if !f.verbose || s.LastMove == nil {
			return ""
		}
		return "  " + formatMove(*s.LastMove)
	case orchestrator.EventGameOver:
		return fmt.Sprintf("  %s by %s after %d plies", s.Outcome, s.Termination, s.Ply)
	case orchestrator.EventBatchComplete:
		return fmt.Sprintf("■ batch complete: %d/%d games", s.Batch.Completed, s.Batch.Requested)
	case orchestrator.EventStopped:
		return "■ stopped"
	case orchestrator.EventError:
		return "✖ " + e.Message
	case orchestrator.EventReportFailed:
		return "⚠ report: " + e.Message
	default:
		return ""
	}
}

func formatMove(m domain.MoveRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%3d. %-5s %-8s", m.Ply, m.Side, m.SAN))
	if m.Quality != "" {
		sb.WriteString(" " + string(m.Quality))
	}
	if m.CPLoss != nil {
		sb.WriteString(fmt.Sprintf(" (%.0fcp)", *m.CPLoss))
	}
	if m.ThinkTime > 0 {
		sb.WriteString(" " + m.ThinkTime.Round(time.Millisecond).String())
	}
	return sb.String()
}

// Report renders the batch summary and one block per agent.
func (f *Formatter) Report(rep stats.Report) string {
	var sb strings.Builder
	b := rep.Batch
	sb.WriteString(fmt.Sprintf("Batch %s\n", b.ID))
	sb.WriteString(fmt.Sprintf("• games: %d/%d | draws: %d | white wins: %d | black wins: %d\n",
		b.Completed, b.Requested, b.Draws, b.WhiteWins, b.BlackWins))
	if b.Completed > 0 {
		sb.WriteString(fmt.Sprintf("• length: avg %.1f, shortest %d, longest %d plies\n", b.AverageLength(), b.Shortest, b.Longest))
	}

	for _, row := range rep.Agents {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s [%s]\n", row.Label, row.ID))
		sb.WriteString(fmt.Sprintf("• record: %d W / %d D / %d L (score %.1f%%)\n",
			row.Record.Wins, row.Record.Draws, row.Record.Losses, row.Score*100))
		if row.Record.Games() > 0 {
			sb.WriteString(fmt.Sprintf("• elo: %+.0f [%+.0f, %+.0f]\n", row.Elo, row.EloLower, row.EloUpper))
		}
		if row.Tally.Evaluated > 0 {
			t := row.Tally
			sb.WriteString(fmt.Sprintf("• moves: excellent %d, good %d, inaccuracy %d, mistake %d, blunder %d\n",
				t.Excellent, t.Good, t.Inaccuracy, t.Mistake, t.Blunder))
			sb.WriteString(fmt.Sprintf("• ACPL %.1f | accuracy %.1f%%\n", row.ACPL, row.Accuracy))
		}
		if row.ThinkMean > 0 {
			sb.WriteString(fmt.Sprintf("• think: %s ± %s\n",
				row.ThinkMean.Round(time.Millisecond), row.ThinkStdDev.Round(time.Millisecond)))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (f *Formatter) HeadToHead(s orchestrator.HeadToHeadSummary) string {
	return "⚔ " + s.String()
}

// Logs renders stored game logs newest first.
func (f *Formatter) Logs(logs []*domain.GameLog) string {
	if len(logs) == 0 {
		return "no game logs"
	}
	var sb strings.Builder
	for _, l := range logs {
		sb.WriteString(fmt.Sprintf("#%d %s  %-7s %-10s %3d plies  %s  %s\n",
			l.ID, l.CreatedAt.Format("2006-01-02 15:04:05"), l.Result, l.Termination,
			len(l.Moves), l.AlgorithmLabel, formatCounters(l.Counters)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCounters(c map[string]int) string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c[k]))
	}
	return strings.Join(parts, " ")
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	return fallback
}
