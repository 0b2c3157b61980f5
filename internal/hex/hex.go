// Package hex holds the axial tile coordinates used to place servants,
// containers and castle hearts on the world grid.
package hex

import "fmt"

// Axial represents axial coordinates (q, r) for pointy-top orientation.
type Axial struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Directions for axial neighbors in pointy-top orientation.
var Directions = [6]Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Mul scales an axial vector by k.
func (a Axial) Mul(k int) Axial { return Axial{a.Q * k, a.R * k} }

func (a Axial) String() string { return fmt.Sprintf("(%d,%d)", a.Q, a.R) }

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	return Cube{X: a.Q, Y: -a.Q - a.R, Z: a.R}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// Neighbors returns the six adjacent tiles in direction order.
func (a Axial) Neighbors() []Axial {
	out := make([]Axial, 0, len(Directions))
	for _, d := range Directions {
		out = append(out, a.Add(d))
	}
	return out
}

// Distance returns hex distance between two axial coords.
func Distance(a, b Axial) int {
	ac, bc := a.ToCube(), b.ToCube()
	dx := abs(ac.X - bc.X)
	dy := abs(ac.Y - bc.Y)
	dz := abs(ac.Z - bc.Z)
	if dx > dy && dx > dz {
		return dx
	}
	if dy > dz {
		return dy
	}
	return dz
}

// Ring returns the tiles at exact distance k from c, starting from
// direction 4 and walking the six sides in order. Ring(c, 0) is [c].
func Ring(c Axial, k int) []Axial {
	if k <= 0 {
		return []Axial{c}
	}
	res := make([]Axial, 0, 6*k)
	cur := c.Add(Directions[4].Mul(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return res
}

// Disk returns all tiles at distance <= r from c.
func Disk(c Axial, r int) []Axial {
	if r < 0 {
		return nil
	}
	res := make([]Axial, 0, 1+3*r*(r+1))
	for q := -r; q <= r; q++ {
		for r2 := max(-r, -q-r); r2 <= min(r, -q+r); r2++ {
			res = append(res, c.Add(Axial{q, r2}))
		}
	}
	return res
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
