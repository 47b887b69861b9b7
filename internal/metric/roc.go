// Package metric implements the fastROC kernel: converting raw mated /
// non-mated score vectors into TPR values at prescribed FPR decades, using
// quickselect-based order statistics rather than a full sort of the
// non-mated score vector.
package metric

import (
	"math"
	"sort"
)

// Sentinel is returned for a target FPR that is unattainable at the given
// corpus size (floor(len(matchesFalse) * 10^-fpr) == 0).
const Sentinel = -1.0

// FastROC computes TPR @ FPR for every decade in fprs, where fprs[i] means
// target FPR = 10^-fprs[i].
//
// matchesTrue holds mated scores and is read-only. matchesFalse holds
// non-mated scores and is mutated in place (partially partitioned, not
// sorted) as a side effect of the quickselect passes.
//
// Targets are processed in ascending fprs order (descending k), each
// quickselect restricted to the prefix already known to hold the previous
// (larger) target's top-k elements, so the whole pass costs O(M) amortized
// rather than O(M log M).
func FastROC(matchesTrue, matchesFalse []float64, fprs []uint32) []float64 {
	tprs := make([]float64, len(fprs))
	m := len(matchesFalse)

	type target struct {
		idx int
		k   int
	}
	targets := make([]target, len(fprs))
	for i, f := range fprs {
		targets[i] = target{idx: i, k: int(math.Floor(float64(m) * math.Pow(10, -float64(f))))}
	}
	sort.SliceStable(targets, func(a, b int) bool {
		return fprs[targets[a].idx] < fprs[targets[b].idx]
	})

	thresholds := make([]float64, len(fprs))
	isSentinel := make([]bool, len(fprs))
	prevK := 0
	bound := m
	for _, tg := range targets {
		if tg.k == 0 {
			isSentinel[tg.idx] = true
			continue
		}
		if prevK > 0 {
			bound = prevK - 1
		}
		thresholds[tg.idx] = selectDescending(matchesFalse, bound, tg.k-1)
		prevK = tg.k
	}

	for i := range fprs {
		if isSentinel[i] {
			tprs[i] = Sentinel
			continue
		}
		count := 0
		for _, s := range matchesTrue {
			if s > thresholds[i] {
				count++
			}
		}
		if len(matchesTrue) == 0 {
			tprs[i] = Sentinel
			continue
		}
		tprs[i] = float64(count) / float64(len(matchesTrue))
	}
	return tprs
}

// FastTPIR is FastROC applied to identification rank-r mated/non-mated score
// vectors; the TPIR computation reuses the verification ROC kernel verbatim
// (the harness treats "FPR" and "FPIR" as the same algorithm over different
// input vectors).
func FastTPIR(matchesTrue, matchesFalse []float64, fprs []uint32) []float64 {
	return FastROC(matchesTrue, matchesFalse, fprs)
}

// selectDescending partitions work[0:bound] so that the k-th largest element
// (0-indexed) ends up at position k, with every element before it >= it and
// every element after it <=, then returns that value. It mutates work.
func selectDescending(work []float64, bound, k int) float64 {
	lo, hi := 0, bound-1
	for lo < hi {
		p := partitionDescending(work, lo, hi)
		switch {
		case k == p:
			return work[p]
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	return work[lo]
}

// partitionDescending is a Lomuto partition over work[lo:hi+1] using
// work[hi] as pivot, ordering larger elements first. Returns the pivot's
// final index.
func partitionDescending(work []float64, lo, hi int) int {
	pivot := work[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if work[j] > pivot {
			work[i], work[j] = work[j], work[i]
			i++
		}
	}
	work[i], work[hi] = work[hi], work[i]
	return i
}
