// Package verifdriver implements the all-pairs verification pass: reading a
// descriptor file once, matching every unordered pair of non-zero-label
// records, partitioning scores into mated/non-mated vectors, and computing
// ROC.
package verifdriver

import (
	"context"
	"fmt"
	"io"

	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/engine"
	"github.com/chervyakov/facebench/internal/metric"
	"github.com/chervyakov/facebench/internal/timer"
)

// Matcher is the minimal engine surface this driver needs.
type Matcher interface {
	MatchTemplates(ctx context.Context, a, b []byte) (similarity float64, code engine.ErrorCode)
}

// Band is an inclusive [Lo, Hi] sanity range a score vector's median must
// fall within; an out-of-range median is fatal (it catches silent engine
// regressions that a single bad pair wouldn't reveal).
type Band struct {
	Lo, Hi float64
}

// Result is everything one verification run over a descriptor file produces.
type Result struct {
	MatchesTrue  []float64
	MatchesFalse []float64
	Skipped      int
	ROC          []float64 // aligned to DefaultFPRs
	Average      timer.ExtendedStats
}

// DefaultFPRs are the decades the verification pipeline reports ROC at.
var DefaultFPRs = []uint32{4, 5, 6, 7, 8}

// Run reads every descriptor record from r, matches every unordered pair
// (i, j) with i < j, and partitions similarity scores by whether the pair's
// class ids agree.
//
//   - A label of 0 on either side is fatal (reserved/invalid).
//   - A negative label (refusal) on either side makes the pair "skipped":
//     its similarity is recorded as 0.0 on the correct side without an
//     engine call.
//   - Otherwise matchTemplates is timed and its result classified by
//     |label_i| == |label_j|.
//
// The sanity-band check runs last, after ROC is computed, and its Result is
// returned alongside the error: callers must persist MatchesTrue/MatchesFalse
// (and may inspect ROC) even when Run returns a band-violation error, so the
// score files needed to diagnose the regression are on disk.
func Run(ctx context.Context, r io.Reader, descSize int, matcher Matcher, trueBand, falseBand Band, extended bool) (Result, error) {
	records, _, err := binio.ReadDescriptors(r, descSize)
	if err != nil {
		return Result{}, fmt.Errorf("verifdriver: read descriptors: %w", err)
	}

	t := timer.New(extended)
	var result Result

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]
			if a.Label == 0 || b.Label == 0 {
				return Result{}, fmt.Errorf("verifdriver: record %d or %d has label 0", i, j)
			}

			mated := a.ClassID() == b.ClassID()

			if a.Refused() || b.Refused() {
				result.Skipped++
				if mated {
					result.MatchesTrue = append(result.MatchesTrue, 0.0)
				} else {
					result.MatchesFalse = append(result.MatchesFalse, 0.0)
				}
				continue
			}

			t.Start()
			sim, code := matcher.MatchTemplates(ctx, a.Payload, b.Payload)
			t.Stop()
			if code != engine.Success {
				return Result{}, &engine.Error{Code: code, Info: fmt.Sprintf("matchTemplates(%d, %d)", i, j)}
			}

			if mated {
				result.MatchesTrue = append(result.MatchesTrue, sim)
			} else {
				result.MatchesFalse = append(result.MatchesFalse, sim)
			}
		}
	}

	result.ROC = metric.FastROC(result.MatchesTrue, append([]float64(nil), result.MatchesFalse...), DefaultFPRs)
	if extended {
		result.Average = t.ExtendedInfo(0.9)
	}

	if err := checkBand("matches_true", result.MatchesTrue, trueBand); err != nil {
		return result, err
	}
	if err := checkBand("matches_false", result.MatchesFalse, falseBand); err != nil {
		return result, err
	}
	return result, nil
}

// checkBand computes scores' median (via quickselect, not a full sort) and
// verifies it falls within band. An empty vector skips the check.
func checkBand(name string, scores []float64, band Band) error {
	if len(scores) == 0 {
		return nil
	}
	work := append([]float64(nil), scores...)
	median := metric.Median(work)
	if median < band.Lo || median > band.Hi {
		return fmt.Errorf("verifdriver: %s median %v outside sanity band [%v, %v]", name, median, band.Lo, band.Hi)
	}
	return nil
}

// PersistScores writes MatchesTrue and MatchesFalse to the given writers as
// raw little-endian float32 vectors.
func PersistScores(trueW, falseW io.Writer, result Result) error {
	if err := binio.WriteScores(trueW, result.MatchesTrue); err != nil {
		return err
	}
	return binio.WriteScores(falseW, result.MatchesFalse)
}
