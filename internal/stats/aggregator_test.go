package stats

import (
	"math"
	"testing"
	"time"

	"github.com/park285/chess-arena/internal/domain"
)

func cp(v float64) *float64 { return &v }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecordMoveGood12(t *testing.T) {
	agg := NewAggregator()
	agg.BeginBatch("b1", 1)
	if !agg.RecordMove("minimax-d3", &domain.Evaluation{Quality: domain.QualityGood, CPLoss: cp(12)}) {
		t.Fatalf("RecordMove rejected a valid evaluation")
	}
	tally := agg.Tally("minimax-d3")
	if tally.Good != 1 || tally.Evaluated != 1 || tally.TotalCPLoss != 12 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	if got := agg.AverageCentipawnLoss("minimax-d3"); got != 12 {
		t.Fatalf("acpl = %v, want 12", got)
	}
	if got := agg.Accuracy("minimax-d3"); !approx(got, 98.8) {
		t.Fatalf("accuracy = %v, want 98.8", got)
	}
}

func TestRecordMoveBucketInvariant(t *testing.T) {
	agg := NewAggregator()
	evals := []*domain.Evaluation{
		{Quality: domain.QualityExcellent, CPLoss: cp(0)},
		{Quality: domain.QualityBlunder, CPLoss: cp(-350)},
		{Quality: domain.QualityMistake},
		{Quality: "brilliant", CPLoss: cp(5)},
		nil,
		{Quality: domain.QualityInaccuracy, CPLoss: cp(60)},
	}
	for _, ev := range evals {
		agg.RecordMove("a", ev)
		tally := agg.Tally("a")
		if tally.bucketSum() != tally.Evaluated {
			t.Fatalf("bucket sum %d != evaluated %d", tally.bucketSum(), tally.Evaluated)
		}
		if tally.Evaluated < tally.Scored {
			t.Fatalf("evaluated %d < scored %d", tally.Evaluated, tally.Scored)
		}
	}
	tally := agg.Tally("a")
	if tally.Evaluated != 4 || tally.Scored != 3 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
	if tally.TotalCPLoss != 410 {
		t.Fatalf("total cp loss = %v, want absolute sum 410", tally.TotalCPLoss)
	}
}

func TestAccuracyClampedAndMonotonic(t *testing.T) {
	prev := 101.0
	for _, acpl := range []float64{0, 5, 12, 100, 999, 1000, 5000} {
		acc := AccuracyFromACPL(acpl)
		if acc < 0 || acc > 100 {
			t.Fatalf("accuracy(%v) = %v out of range", acpl, acc)
		}
		if acc > prev {
			t.Fatalf("accuracy increased at acpl %v", acpl)
		}
		prev = acc
	}
	if AccuracyFromACPL(5000) != 0 {
		t.Fatalf("expected clamp to 0")
	}
	if (QualityTally{}).AverageCentipawnLoss() != 0 {
		t.Fatalf("empty tally acpl must be 0")
	}
}

func TestRecordGameAttribution(t *testing.T) {
	white := domain.Agent{ID: "minimax", Kind: domain.KindLocalAlgorithm, Depth: 3, Variant: domain.VariantMinimax}
	black := domain.Agent{ID: "hybrid", Kind: domain.KindLocalAlgorithm, Depth: 2, Variant: domain.VariantHybrid}
	seats := domain.Assignment{White: white, Black: black}

	agg := NewAggregator()
	agg.BeginBatch("b", 3, white, black)
	results := []domain.GameResult{
		{Assignment: seats, Outcome: domain.OutcomeWhiteWins, Plies: 41},
		{Assignment: seats, Outcome: domain.OutcomeWhiteWins, Plies: 17},
		{Assignment: seats, Outcome: domain.OutcomeDraw, Plies: 90},
	}
	for i, res := range results {
		if err := agg.RecordGame(res); err != nil {
			t.Fatalf("RecordGame %d: %v", i, err)
		}
	}
	if err := agg.RecordGame(results[0]); err != ErrBatchComplete {
		t.Fatalf("expected ErrBatchComplete, got %v", err)
	}

	b, ok := agg.Batch()
	if !ok {
		t.Fatalf("Batch missing")
	}
	if b.Completed != 3 || b.Wins["minimax"] != 2 || b.Draws != 1 || b.Wins["hybrid"] != 0 {
		t.Fatalf("unexpected batch: %+v", b)
	}
	if b.TotalPlies != 148 || b.Longest != 90 || b.Shortest != 17 {
		t.Fatalf("unexpected lengths: %+v", b)
	}
	if got := agg.Score("minimax"); !approx(got, 2.5/3) {
		t.Fatalf("score = %v", got)
	}
	_, elo, hi := agg.Elo("hybrid")
	if elo >= 0 || hi < elo {
		t.Fatalf("unexpected elo %v (upper %v)", elo, hi)
	}
}

func TestRecordGameAttributesBySwappedSeats(t *testing.T) {
	a := domain.Agent{ID: "a", Kind: domain.KindLocalAlgorithm, Depth: 1}
	b := domain.Agent{ID: "b", Kind: domain.KindReferenceEngine}
	agg := NewAggregator()
	agg.BeginBatch("b", 2)
	_ = agg.RecordGame(domain.GameResult{Assignment: domain.Assignment{White: a, Black: b}, Outcome: domain.OutcomeWhiteWins})
	_ = agg.RecordGame(domain.GameResult{Assignment: domain.Assignment{White: b, Black: a}, Outcome: domain.OutcomeBlackWins})
	batch, _ := agg.Batch()
	if batch.Wins["a"] != 2 || batch.WhiteWins != 1 || batch.BlackWins != 1 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}

func TestRecordGameWithoutBatch(t *testing.T) {
	agg := NewAggregator()
	if err := agg.RecordGame(domain.GameResult{}); err != ErrNoBatch {
		t.Fatalf("expected ErrNoBatch, got %v", err)
	}
}

func TestThinkTimeAndReport(t *testing.T) {
	agg := NewAggregator()
	agg.BeginBatch("b", 1, domain.Agent{ID: "x", Kind: domain.KindReferenceEngine, TimeLimit: 100 * time.Millisecond})
	for _, d := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second} {
		agg.RecordThinkTime("x", d)
	}
	rep := agg.Report()
	row, ok := rep.Agent("x")
	if !ok {
		t.Fatalf("report missing agent x")
	}
	if row.Label != "Stockfish (100ms)" {
		t.Fatalf("label = %q", row.Label)
	}
	if row.ThinkMean != 2*time.Second || row.ThinkStdDev != time.Second {
		t.Fatalf("think stats = %v / %v", row.ThinkMean, row.ThinkStdDev)
	}

	agg.Reset()
	if _, ok := agg.Batch(); ok {
		t.Fatalf("batch should be gone after Reset")
	}
	if len(agg.Report().Agents) != 0 {
		t.Fatalf("agents should be gone after Reset")
	}
}
