// internal/domino/scoring.go
package domino

// PipSums returns the pip total of every hand, index aligned with hands.
func PipSums(hands []Hand) []int {
	sums := make([]int, len(hands))
	for i, h := range hands {
		sums[i] = h.Pips()
	}
	return sums
}

// LowestPips picks the blocked-game winner: the eligible index with the lowest
// sum. Equal sums resolve to the lowest index. Returns -1 if nothing is
// eligible. A nil eligible slice means every index is eligible.
func LowestPips(sums []int, eligible []bool) int {
	best := -1
	for i, s := range sums {
		if eligible != nil && !eligible[i] {
			continue
		}
		if best == -1 || s < sums[best] {
			best = i
		}
	}
	return best
}

// EmptyHand returns the first eligible index whose hand is empty, or -1.
func EmptyHand(hands []Hand, eligible []bool) int {
	for i, h := range hands {
		if eligible != nil && !eligible[i] {
			continue
		}
		if len(h) == 0 {
			return i
		}
	}
	return -1
}
