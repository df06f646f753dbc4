// internal/domino/deck.go
package domino

import (
	"fmt"
	"math/rand"
	"strings"
)

// Difficulty is a named preset controlling how many tiles each seat is dealt.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// ParseDifficulty is case-insensitive and rejects unknown names.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Easy, Normal, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, normal or hard)", s)
}

// TilesPerSeat returns the deal size for the preset.
func (d Difficulty) TilesPerSeat() int {
	switch d {
	case Easy:
		return 8
	case Hard:
		return 14
	default:
		return 12
	}
}

// NewSet builds the 28 unordered pairs (a <= b) of a double-six set.
func NewSet() []Tile {
	set := make([]Tile, 0, SetSize)
	for a := 0; a <= MaxPip; a++ {
		for b := a; b <= MaxPip; b++ {
			set = append(set, Tile{A: a, B: b})
		}
	}
	return set
}

// Shuffle applies a uniform random permutation in place.
func Shuffle(tiles []Tile, r *rand.Rand) {
	r.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}

// Deal hands out perSeat tiles to each seat from the top of the deck. A seat
// gets fewer tiles once the deck runs short; callers that care about even
// hands must keep seats*perSeat <= len(deck). The undealt remainder is
// returned as the boneyard.
func Deal(deck []Tile, seats, perSeat int) ([]Hand, []Tile) {
	rest := make([]Tile, len(deck))
	copy(rest, deck)

	hands := make([]Hand, seats)
	for i := range hands {
		n := min(perSeat, len(rest))
		hands[i] = make(Hand, n)
		copy(hands[i], rest[:n])
		rest = rest[n:]
	}
	return hands, rest
}

// EvenDealSize is the largest per-seat count not above want that still lets
// every seat receive the same number of tiles from a full set.
func EvenDealSize(want, seats int) int {
	if seats <= 0 {
		return want
	}
	return min(want, SetSize/seats)
}
