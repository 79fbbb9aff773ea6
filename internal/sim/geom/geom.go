// Package geom holds the integer geometry shared by the arena simulation.
// Every entity in the arena is an axis-aligned box in pixel coordinates with
// the origin at the top-left corner.
package geom

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

func (p Point) Scale(k int) Point { return Point{X: p.X * k, Y: p.Y * k} }

// Rect is an axis-aligned box; W and H are > 0 for anything placed in the arena.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Square is the size x size box whose top-left corner is p.
func Square(p Point, size int) Rect { return Rect{X: p.X, Y: p.Y, W: size, H: size} }

// Overlaps is the strict AABB test: boxes that only share an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X+o.W <= r.X+r.W && o.Y+o.H <= r.Y+r.H
}

// OverlapsAny reports whether r overlaps any of rs.
func (r Rect) OverlapsAny(rs []Rect) bool {
	for _, o := range rs {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

// DistSq is the squared euclidean distance between a and b.
func DistSq(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
