// Package layout places obstacles, pickups and the pursuit entity by
// rejection sampling. Every sampler has a bounded attempt budget; running out
// of attempts yields fewer (or no) placements, never an error.
package layout

import (
	"math/rand"

	"lanarena.io/internal/sim/geom"
)

type Config struct {
	Width  int
	Height int

	// Obstacle batch. Counts and sizes are inclusive ranges.
	MinObstacles        int
	MaxObstacles        int
	AttemptsPerObstacle int
	ObstacleMargin      int
	ObstacleMinW        int
	ObstacleMaxW        int
	ObstacleMinH        int
	ObstacleMaxH        int

	PickupSize     int
	PickupMargin   int
	PickupAttempts int

	// Pursuit entity (re)placement.
	SegmentSize       int
	RelocateAttempts  int
	RelocateMargin    int
	RelocateClearance int
}

type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New returns a generator drawing from rng. The generator is not safe for
// concurrent use; it shares rng with its owner.
func New(cfg Config, rng *rand.Rand) *Generator {
	return &Generator{cfg: cfg, rng: rng}
}

func (g *Generator) Config() Config { return g.cfg }

// Obstacles builds a fresh batch of mutually non-overlapping rectangles that
// lie fully inside the arena margin.
func (g *Generator) Obstacles() []geom.Rect {
	c := g.cfg
	target := g.between(c.MinObstacles, c.MaxObstacles)
	if target <= 0 {
		return nil
	}
	budget := target * c.AttemptsPerObstacle
	out := make([]geom.Rect, 0, target)
	for i := 0; i < budget && len(out) < target; i++ {
		w := g.between(c.ObstacleMinW, c.ObstacleMaxW)
		h := g.between(c.ObstacleMinH, c.ObstacleMaxH)
		maxX := c.Width - c.ObstacleMargin - w
		maxY := c.Height - c.ObstacleMargin - h
		if maxX < c.ObstacleMargin || maxY < c.ObstacleMargin {
			continue
		}
		r := geom.Rect{X: g.between(c.ObstacleMargin, maxX), Y: g.between(c.ObstacleMargin, maxY), W: w, H: h}
		if r.OverlapsAny(out) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Pickup samples a pickup position whose square is clear of every obstacle.
func (g *Generator) Pickup(obstacles []geom.Rect) (geom.Point, bool) {
	c := g.cfg
	maxX := c.Width - c.PickupMargin - c.PickupSize
	maxY := c.Height - c.PickupMargin - c.PickupSize
	if maxX < c.PickupMargin || maxY < c.PickupMargin {
		return geom.Point{}, false
	}
	for i := 0; i < c.PickupAttempts; i++ {
		p := geom.Point{X: g.between(c.PickupMargin, maxX), Y: g.between(c.PickupMargin, maxY)}
		if geom.Square(p, c.PickupSize).OverlapsAny(obstacles) {
			continue
		}
		return p, true
	}
	return geom.Point{}, false
}

// PursuitStart samples a head position for a relocated pursuit entity: clear
// of obstacles and at least RelocateClearance away from every player.
func (g *Generator) PursuitStart(obstacles []geom.Rect, players []geom.Point) (geom.Point, bool) {
	c := g.cfg
	clearSq := c.RelocateClearance * c.RelocateClearance
	for i := 0; i < c.RelocateAttempts; i++ {
		p := g.RandomInterior()
		if geom.Square(p, c.SegmentSize).OverlapsAny(obstacles) {
			continue
		}
		near := false
		for _, pl := range players {
			if geom.DistSq(p, pl) < clearSq {
				near = true
				break
			}
		}
		if near {
			continue
		}
		return p, true
	}
	return geom.Point{}, false
}

// RandomInterior is an unconstrained point at least RelocateMargin from every
// arena edge.
func (g *Generator) RandomInterior() geom.Point {
	c := g.cfg
	return geom.Point{
		X: g.between(c.RelocateMargin, c.Width-c.RelocateMargin-1),
		Y: g.between(c.RelocateMargin, c.Height-c.RelocateMargin-1),
	}
}

// between returns a uniform int in [lo, hi]; lo when the range is empty.
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}
