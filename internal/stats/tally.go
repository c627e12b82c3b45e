package stats

import (
	"math"

	"github.com/park285/chess-arena/internal/domain"
)

// QualityTally counts classified moves for one agent. The five buckets always
// sum to Evaluated.
type QualityTally struct {
	Excellent  int `json:"excellent"`
	Good       int `json:"good"`
	Inaccuracy int `json:"inaccuracy"`
	Mistake    int `json:"mistake"`
	Blunder    int `json:"blunder"`

	TotalCPLoss float64 `json:"total_cp_loss"`
	Evaluated   int     `json:"evaluated"`
	// Scored counts evaluated moves that carried a centipawn loss.
	Scored int `json:"scored"`
}

func (t *QualityTally) add(ev domain.Evaluation) bool {
	switch ev.Quality {
	case domain.QualityExcellent:
		t.Excellent++
	case domain.QualityGood:
		t.Good++
	case domain.QualityInaccuracy:
		t.Inaccuracy++
	case domain.QualityMistake:
		t.Mistake++
	case domain.QualityBlunder:
		t.Blunder++
	default:
		return false
	}
	t.Evaluated++
	if ev.CPLoss != nil {
		t.TotalCPLoss += math.Abs(*ev.CPLoss)
		t.Scored++
	}
	return true
}

// Bucket returns the count for a quality label.
func (t QualityTally) Bucket(q domain.Quality) int {
	switch q {
	case domain.QualityExcellent:
		return t.Excellent
	case domain.QualityGood:
		return t.Good
	case domain.QualityInaccuracy:
		return t.Inaccuracy
	case domain.QualityMistake:
		return t.Mistake
	case domain.QualityBlunder:
		return t.Blunder
	}
	return 0
}

func (t QualityTally) bucketSum() int {
	return t.Excellent + t.Good + t.Inaccuracy + t.Mistake + t.Blunder
}

// AverageCentipawnLoss is 0 when nothing was evaluated.
func (t QualityTally) AverageCentipawnLoss() float64 {
	if t.Evaluated == 0 {
		return 0
	}
	return t.TotalCPLoss / float64(t.Evaluated)
}

// Accuracy is a bounded linear penalty on ACPL, clamped to [0, 100].
func (t QualityTally) Accuracy() float64 {
	return AccuracyFromACPL(t.AverageCentipawnLoss())
}

func AccuracyFromACPL(acpl float64) float64 {
	acc := 100 - acpl/10
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}

// thinkTime accumulates a running mean and variance (Welford).
type thinkTime struct {
	n    int
	mean float64
	m2   float64
}

func (w *thinkTime) add(seconds float64) {
	w.n++
	delta := seconds - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (seconds - w.mean)
}

func (w thinkTime) stddev() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}
