// internal/domino/tile.go
package domino

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPip is the highest pip count on a double-six set.
const MaxPip = 6

// SetSize is the number of unique tiles in a double-six set.
const SetSize = (MaxPip + 1) * (MaxPip + 2) / 2

// MaxSeats is the most seats a single set can deal at least one tile to.
const MaxSeats = SetSize

// ErrInvalidTile is returned when a pip count falls outside [0, MaxPip].
var ErrInvalidTile = errors.New("invalid tile")

// Tile is a domino piece. Before placement only the pair matters; once placed on
// a chain, A is the left face and B the right face.
type Tile struct {
	A int
	B int
}

// NewTile validates both pip counts.
func NewTile(a, b int) (Tile, error) {
	if a < 0 || a > MaxPip || b < 0 || b > MaxPip {
		return Tile{}, fmt.Errorf("%w: [%d|%d]", ErrInvalidTile, a, b)
	}
	return Tile{A: a, B: b}, nil
}

// Reversed returns the tile with its faces swapped.
func (t Tile) Reversed() Tile {
	return Tile{A: t.B, B: t.A}
}

// Pips is the sum of both faces.
func (t Tile) Pips() int {
	return t.A + t.B
}

// Same reports whether o is the same physical tile in either orientation.
func (t Tile) Same(o Tile) bool {
	return t == o || t == o.Reversed()
}

// IsDouble reports whether both faces are equal.
func (t Tile) IsDouble() bool {
	return t.A == t.B
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d|%d]", t.A, t.B)
}

// MarshalJSON encodes the tile as a two element array, e.g. [3,5].
func (t Tile) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{t.A, t.B})
}

// UnmarshalJSON accepts a two element array and validates the pips.
func (t *Tile) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTile, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: expected 2 pips, got %d", ErrInvalidTile, len(pair))
	}
	parsed, err := NewTile(pair[0], pair[1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Hand is the multiset of tiles a seat holds.
type Hand []Tile

// Find returns the tile as held (its stored orientation) if the hand contains t
// in either orientation.
func (h Hand) Find(t Tile) (Tile, bool) {
	for _, held := range h {
		if held.Same(t) {
			return held, true
		}
	}
	return Tile{}, false
}

// Remove deletes a single occurrence of t (either orientation) and reports
// whether anything was removed.
func (h *Hand) Remove(t Tile) bool {
	for i, held := range *h {
		if held.Same(t) {
			*h = append((*h)[:i], (*h)[i+1:]...)
			return true
		}
	}
	return false
}

// Pips sums every face in the hand.
func (h Hand) Pips() int {
	total := 0
	for _, t := range h {
		total += t.Pips()
	}
	return total
}

// Clone returns an independent copy, never nil.
func (h Hand) Clone() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	return out
}
