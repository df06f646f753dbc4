// internal/domino/chain.go
package domino

import (
	"errors"
	"fmt"
	"strings"
)

// Side names an end of the chain.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ErrNoMatch is returned when neither orientation of a tile fits the target end.
var ErrNoMatch = errors.New("tile does not match")

// ParseSide defaults to Right for an empty string.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case "", Right:
		return Right, nil
	case Left:
		return Left, nil
	}
	return "", fmt.Errorf("unknown side %q (want left or right)", s)
}

// OrientLeft orients t so that its right face touches a chain whose left end is v.
func OrientLeft(t Tile, v int) (Tile, bool) {
	if t.B == v {
		return t, true
	}
	if t.A == v {
		return t.Reversed(), true
	}
	return Tile{}, false
}

// OrientRight orients t so that its left face touches a chain whose right end is v.
func OrientRight(t Tile, v int) (Tile, bool) {
	if t.A == v {
		return t, true
	}
	if t.B == v {
		return t.Reversed(), true
	}
	return Tile{}, false
}

// Chain is the ordered line of oriented tiles on the table.
type Chain struct {
	tiles []Tile
}

// Len is the number of placed tiles.
func (c *Chain) Len() int {
	return len(c.tiles)
}

// Empty reports whether nothing has been placed yet.
func (c *Chain) Empty() bool {
	return len(c.tiles) == 0
}

// Tiles returns a copy of the chain, never nil.
func (c *Chain) Tiles() []Tile {
	out := make([]Tile, len(c.tiles))
	copy(out, c.tiles)
	return out
}

// Ends returns the open left and right faces. ok is false on an empty chain.
func (c *Chain) Ends() (left, right int, ok bool) {
	if len(c.tiles) == 0 {
		return 0, 0, false
	}
	return c.tiles[0].A, c.tiles[len(c.tiles)-1].B, true
}

// Place orients t against the requested end and attaches it. On an empty chain
// the tile goes down exactly as given and side is ignored. The oriented tile is
// returned.
func (c *Chain) Place(t Tile, side Side) (Tile, error) {
	left, right, ok := c.Ends()
	if !ok {
		c.tiles = append(c.tiles, t)
		return t, nil
	}

	if side == Left {
		oriented, fits := OrientLeft(t, left)
		if !fits {
			return Tile{}, fmt.Errorf("%w left end %d", ErrNoMatch, left)
		}
		c.tiles = append([]Tile{oriented}, c.tiles...)
		return oriented, nil
	}

	oriented, fits := OrientRight(t, right)
	if !fits {
		return Tile{}, fmt.Errorf("%w right end %d", ErrNoMatch, right)
	}
	c.tiles = append(c.tiles, oriented)
	return oriented, nil
}

// Fits reports whether t could be placed anywhere on the chain.
func (c *Chain) Fits(t Tile) bool {
	left, right, ok := c.Ends()
	if !ok {
		return true
	}
	_, l := OrientLeft(t, left)
	_, r := OrientRight(t, right)
	return l || r
}

func (c *Chain) String() string {
	if len(c.tiles) == 0 {
		return "<empty>"
	}
	parts := make([]string, len(c.tiles))
	for i, t := range c.tiles {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
