// Package pursuit implements the autonomous chaser: a fixed-length chain of
// square segments that steps one segment per move toward the nearest player.
package pursuit

import (
	"math/rand"

	"lanarena.io/internal/sim/geom"
)

type Config struct {
	Length      int
	SegmentSize int
	// MoveEvery is the number of ticks per move (1 = every tick).
	MoveEvery     int
	ChaseRadius   int
	WanderPercent int
}

// Target is a player as seen by the agent.
type Target struct {
	ID    int
	Pos   geom.Point
	Score int
}

var cardinals = [4]geom.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}

// Agent is not safe for concurrent use.
type Agent struct {
	cfg      Config
	segments []geom.Point
	dir      geom.Point
	counter  int
}

// New lays the body out horizontally, tail to the left of head, facing +X.
func New(cfg Config, head geom.Point) *Agent {
	if cfg.Length < 1 {
		cfg.Length = 1
	}
	if cfg.MoveEvery < 1 {
		cfg.MoveEvery = 1
	}
	segs := make([]geom.Point, cfg.Length)
	for i := range segs {
		segs[i] = geom.Point{X: head.X - i*cfg.SegmentSize, Y: head.Y}
	}
	return &Agent{cfg: cfg, segments: segs, dir: geom.Point{X: 1}}
}

func (a *Agent) Config() Config { return a.cfg }

func (a *Agent) Head() geom.Point { return a.segments[0] }

func (a *Agent) Dir() geom.Point { return a.dir }

// Segments returns a copy of the body, head first.
func (a *Agent) Segments() []geom.Point {
	out := make([]geom.Point, len(a.segments))
	copy(out, a.segments)
	return out
}

// SegmentRects returns the collision box of every segment, head first.
func (a *Agent) SegmentRects() []geom.Rect {
	out := make([]geom.Rect, len(a.segments))
	for i, s := range a.segments {
		out[i] = geom.Square(s, a.cfg.SegmentSize)
	}
	return out
}

// Update advances the move counter and, on every MoveEvery-th call, moves the
// body one segment. It reports whether the body moved.
func (a *Agent) Update(rng *rand.Rand, bounds geom.Rect, obstacles []geom.Rect, targets []Target) bool {
	a.counter++
	if a.counter < a.cfg.MoveEvery {
		return false
	}
	a.counter = 0

	head := a.segments[0]
	if t, d, ok := nearest(head, targets); ok && d <= a.cfg.ChaseRadius*a.cfg.ChaseRadius {
		a.steer(t.Pos.X-head.X, t.Pos.Y-head.Y)
	} else if rng.Intn(100) < a.cfg.WanderPercent {
		a.dir = cardinals[rng.Intn(len(cardinals))]
	}

	next := head.Add(a.dir.Scale(a.cfg.SegmentSize))
	if a.blocked(next, bounds, obstacles) {
		a.dir = a.dir.Scale(-1)
		next = head.Add(a.dir.Scale(a.cfg.SegmentSize))
	}
	a.advance(next)
	return true
}

// steer picks the dominant axis of the offset; zero offset keeps the heading.
func (a *Agent) steer(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	if geom.AbsInt(dx) > geom.AbsInt(dy) {
		a.dir = geom.Point{X: geom.Sign(dx)}
	} else {
		a.dir = geom.Point{Y: geom.Sign(dy)}
	}
}

func (a *Agent) blocked(p geom.Point, bounds geom.Rect, obstacles []geom.Rect) bool {
	s := a.cfg.SegmentSize
	if p.X < bounds.X || p.X >= bounds.X+bounds.W-s || p.Y < bounds.Y || p.Y >= bounds.Y+bounds.H-s {
		return true
	}
	return geom.Square(p, s).OverlapsAny(obstacles)
}

// advance moves the body rigidly: new head in front, last segment dropped.
func (a *Agent) advance(head geom.Point) {
	copy(a.segments[1:], a.segments[:len(a.segments)-1])
	a.segments[0] = head
}

// nearest picks the closest target by squared distance. Ties go to the higher
// score, then the lower id.
func nearest(head geom.Point, targets []Target) (Target, int, bool) {
	var (
		best  Target
		bestD int
		found bool
	)
	for _, t := range targets {
		d := geom.DistSq(head, t.Pos)
		switch {
		case !found, d < bestD:
		case d == bestD && (t.Score > best.Score || (t.Score == best.Score && t.ID < best.ID)):
		default:
			continue
		}
		best, bestD, found = t, d, true
	}
	return best, bestD, found
}
