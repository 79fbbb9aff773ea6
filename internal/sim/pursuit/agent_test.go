package pursuit

import (
	"math/rand"
	"testing"

	"lanarena.io/internal/sim/geom"
)

var arena = geom.Rect{W: 1240, H: 660}

func cfg() Config {
	return Config{Length: 20, SegmentSize: 20, MoveEvery: 3, ChaseRadius: 400, WanderPercent: 0}
}

func step(a *Agent, rng *rand.Rand, obstacles []geom.Rect, targets []Target) {
	for i := 0; i < a.cfg.MoveEvery; i++ {
		a.Update(rng, arena, obstacles, targets)
	}
}

func TestNewLayout(t *testing.T) {
	a := New(cfg(), geom.Point{X: 620, Y: 330})
	segs := a.Segments()
	if len(segs) != 20 {
		t.Fatalf("len=%d want 20", len(segs))
	}
	if segs[0] != (geom.Point{X: 620, Y: 330}) || segs[19] != (geom.Point{X: 620 - 19*20, Y: 330}) {
		t.Fatalf("unexpected layout: head=%v tail=%v", segs[0], segs[19])
	}
	if a.Dir() != (geom.Point{X: 1}) {
		t.Fatalf("dir=%v want +X", a.Dir())
	}
}

func TestMoveCadence(t *testing.T) {
	a := New(cfg(), geom.Point{X: 620, Y: 330})
	rng := rand.New(rand.NewSource(1))
	if a.Update(rng, arena, nil, nil) || a.Update(rng, arena, nil, nil) {
		t.Fatalf("moved before the third update")
	}
	if !a.Update(rng, arena, nil, nil) {
		t.Fatalf("expected move on the third update")
	}
	if a.Head() != (geom.Point{X: 640, Y: 330}) {
		t.Fatalf("head=%v", a.Head())
	}
}

func TestRigidTranslationKeepsLength(t *testing.T) {
	c := cfg()
	c.WanderPercent = 30
	c.MoveEvery = 1
	a := New(c, geom.Point{X: 620, Y: 330})
	rng := rand.New(rand.NewSource(42))
	targets := []Target{{ID: 0, Pos: geom.Point{X: 200, Y: 200}}}
	for i := 0; i < 500; i++ {
		before := a.Segments()
		a.Update(rng, arena, nil, targets)
		after := a.Segments()
		if len(after) != c.Length {
			t.Fatalf("update %d: len=%d", i, len(after))
		}
		for k := 1; k < len(after); k++ {
			if after[k] != before[k-1] {
				t.Fatalf("update %d: segment %d=%v want %v", i, k, after[k], before[k-1])
			}
		}
	}
}

func TestChaseDominantAxis(t *testing.T) {
	cases := []struct {
		target geom.Point
		want   geom.Point
	}{
		{geom.Point{X: 700, Y: 310}, geom.Point{X: 1}},
		{geom.Point{X: 500, Y: 290}, geom.Point{X: -1}},
		{geom.Point{X: 610, Y: 400}, geom.Point{Y: 1}},
		{geom.Point{X: 620, Y: 200}, geom.Point{Y: -1}},
		// |dx| == |dy| resolves to the vertical axis.
		{geom.Point{X: 680, Y: 380}, geom.Point{Y: 1}},
	}
	for _, c := range cases {
		a := New(cfg(), geom.Point{X: 600, Y: 300})
		step(a, rand.New(rand.NewSource(1)), nil, []Target{{ID: 0, Pos: c.target}})
		if a.Dir() != c.want {
			t.Fatalf("target %v: dir=%v want %v", c.target, a.Dir(), c.want)
		}
	}
}

func TestChaseNearestTieBreak(t *testing.T) {
	targets := []Target{
		{ID: 0, Pos: geom.Point{X: 700, Y: 300}, Score: 1},
		{ID: 1, Pos: geom.Point{X: 500, Y: 300}, Score: 5},
	}
	a := New(cfg(), geom.Point{X: 600, Y: 300})
	step(a, rand.New(rand.NewSource(1)), nil, targets)
	if a.Dir() != (geom.Point{X: -1}) {
		t.Fatalf("dir=%v, expected to chase the higher score on a tie", a.Dir())
	}

	targets[1].Score = 1
	a = New(cfg(), geom.Point{X: 600, Y: 300})
	step(a, rand.New(rand.NewSource(1)), nil, targets)
	if a.Dir() != (geom.Point{X: 1}) {
		t.Fatalf("dir=%v, expected lower id on equal score", a.Dir())
	}

	targets[0].Pos = geom.Point{X: 690, Y: 300}
	a = New(cfg(), geom.Point{X: 600, Y: 300})
	step(a, rand.New(rand.NewSource(1)), nil, targets)
	if a.Dir() != (geom.Point{X: 1}) {
		t.Fatalf("dir=%v, expected nearest target", a.Dir())
	}
}

func TestOutsideChaseRadiusKeepsHeading(t *testing.T) {
	a := New(cfg(), geom.Point{X: 600, Y: 300})
	step(a, rand.New(rand.NewSource(1)), nil, []Target{{Pos: geom.Point{X: 600, Y: 300 + 401}}})
	if a.Dir() != (geom.Point{X: 1}) {
		t.Fatalf("dir=%v want unchanged +X", a.Dir())
	}
}

func TestReverseAtArenaEdge(t *testing.T) {
	a := New(cfg(), geom.Point{X: 1200, Y: 300})
	step(a, rand.New(rand.NewSource(1)), nil, nil)
	if a.Dir() != (geom.Point{X: -1}) {
		t.Fatalf("dir=%v want -X", a.Dir())
	}
	if a.Head() != (geom.Point{X: 1180, Y: 300}) {
		t.Fatalf("head=%v want (1180,300)", a.Head())
	}
}

func TestReverseAtObstacle(t *testing.T) {
	a := New(cfg(), geom.Point{X: 600, Y: 300})
	wall := []geom.Rect{{X: 620, Y: 250, W: 60, H: 100}}
	step(a, rand.New(rand.NewSource(1)), wall, nil)
	if a.Dir() != (geom.Point{X: -1}) {
		t.Fatalf("dir=%v want -X", a.Dir())
	}
	if a.Head() != (geom.Point{X: 580, Y: 300}) {
		t.Fatalf("head=%v want (580,300)", a.Head())
	}
}
