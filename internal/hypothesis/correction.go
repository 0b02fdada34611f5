package hypothesis

import (
	"math"
	"sort"

	"qrnglab/domain/stats"
)

// rankOrder returns input indexes sorted by ascending p, ties in input order.
func rankOrder(results []stats.StatisticalResult) []int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].PValue < results[order[b]].PValue
	})
	return order
}

func newSet(method stats.CorrectionMethod, results []stats.StatisticalResult, alpha float64) stats.CorrectionSet {
	set := stats.CorrectionSet{
		Method:  method,
		Alpha:   alpha,
		Family:  len(results),
		Members: make([]stats.CorrectionMember, len(results)),
	}
	if len(results) > 0 {
		set.Scope = results[0].Scope
	}
	for i, r := range results {
		set.Members[i].Result = r
	}
	return set
}

// Holm applies the Holm-Bonferroni step-down procedure. Rank r (1 = smallest p)
// is compared against alpha/(k-r+1); the first failure stops all later ranks.
// Adjusted p = min(1, p*(k-r+1)), made non-decreasing in rank by a running max.
func Holm(results []stats.StatisticalResult, alpha float64) stats.CorrectionSet {
	return HolmFamily(results, alpha, len(results))
}

// HolmFamily runs Holm over a declared family of size k, of which only results
// were testable. Untested members count as p = 1 and rank after every result.
func HolmFamily(results []stats.StatisticalResult, alpha float64, k int) stats.CorrectionSet {
	if k < len(results) {
		k = len(results)
	}
	set := newSet(stats.CorrectionHolm, results, alpha)
	set.Family = k

	running := 0.0
	rejecting := true
	for pos, idx := range rankOrder(results) {
		rank := pos + 1
		m := &set.Members[idx]
		factor := float64(k - rank + 1)
		m.Rank = rank
		m.AdjustedAlpha = alpha / factor
		running = math.Max(running, math.Min(1, m.Result.PValue*factor))
		m.AdjustedP = running
		if rejecting && m.Result.PValue < m.AdjustedAlpha {
			m.Significant = true
		} else {
			rejecting = false
		}
	}
	return set
}

// BenjaminiHochberg applies the step-up FDR procedure. Rank r is compared against
// (r/k)*alpha and every rank up to the largest passing one is significant.
// AdjustedP is the q-value: running minimum of p*k/r taken from the largest rank.
func BenjaminiHochberg(results []stats.StatisticalResult, alpha float64) stats.CorrectionSet {
	set := newSet(stats.CorrectionBenjaminiHochberg, results, alpha)
	k := len(results)
	order := rankOrder(results)

	cutoff := 0
	for pos, idx := range order {
		rank := pos + 1
		m := &set.Members[idx]
		m.Rank = rank
		m.AdjustedAlpha = float64(rank) / float64(k) * alpha
		if m.Result.PValue <= m.AdjustedAlpha {
			cutoff = rank
		}
	}

	running := 1.0
	for pos := k - 1; pos >= 0; pos-- {
		m := &set.Members[order[pos]]
		q := m.Result.PValue * float64(k) / float64(pos+1)
		running = math.Min(running, math.Min(1, q))
		m.AdjustedP = running
		m.Significant = pos+1 <= cutoff
	}
	return set
}
