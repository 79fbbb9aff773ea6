package arena

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"lanarena.io/internal/protocol"
	"lanarena.io/internal/sim/geom"
	"lanarena.io/internal/sim/pursuit"
	"lanarena.io/internal/sim/tuning"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestSim returns an arena with no obstacles, no pickups and a pursuit
// entity parked in the bottom-right corner that never moves.
func newTestSim(t *testing.T, mutate func(*Config)) (*Simulation, *fakeClock) {
	t.Helper()
	cfg := ConfigFromTuning(tuning.Defaults())
	cfg.Pursuit.MoveEvery = 1 << 30
	if mutate != nil {
		mutate(&cfg)
	}
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	s := New(cfg, clk, rand.New(rand.NewSource(1)))
	s.obstacles = nil
	s.pursuit = pursuit.New(cfg.Pursuit, geom.Point{X: cfg.Width - 40, Y: cfg.Height - 40})
	return s, clk
}

func addPlayer(t *testing.T, s *Simulation, id int, x, y int) {
	t.Helper()
	if !s.AddPlayer(Player{ID: id, Name: "p", Color: "Red", Pos: geom.Point{X: x, Y: y}}) {
		t.Fatalf("AddPlayer(%d) rejected", id)
	}
}

func mustPlayer(t *testing.T, s *Simulation, id int) Player {
	t.Helper()
	p, ok := s.Player(id)
	if !ok {
		t.Fatalf("player %d missing", id)
	}
	return p
}

func TestNoInputNoMovement(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 0, 200, 200)
	for i := 0; i < 100; i++ {
		s.Tick(nil)
	}
	if p := mustPlayer(t, s, 0); p.Pos != (geom.Point{X: 200, Y: 200}) {
		t.Fatalf("player moved without input: %v", p.Pos)
	}
}

func TestMovementAndClamp(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 0, 200, 200)
	addPlayer(t, s, 1, 0, 0)

	s.Tick(map[int]string{0: "UR", 1: "UL"})
	if p := mustPlayer(t, s, 0); p.Pos != (geom.Point{X: 205, Y: 195}) {
		t.Fatalf("diagonal move: %v", p.Pos)
	}
	if p := mustPlayer(t, s, 1); p.Pos != (geom.Point{X: 0, Y: 0}) {
		t.Fatalf("clamp at origin: %v", p.Pos)
	}

	// Opposite flags cancel.
	s.Tick(map[int]string{0: "UD"})
	if p := mustPlayer(t, s, 0); p.Pos != (geom.Point{X: 205, Y: 195}) {
		t.Fatalf("UD should cancel: %v", p.Pos)
	}

	addPlayer(t, s, 2, s.cfg.Width-s.cfg.PlayerSize-2, 300)
	s.Tick(map[int]string{2: "R"})
	if p := mustPlayer(t, s, 2); p.Pos.X != s.cfg.Width-s.cfg.PlayerSize {
		t.Fatalf("clamp at right edge: %v", p.Pos)
	}
}

func TestMoveBlockedByObstacle(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 0, 100, 100)
	s.obstacles = []geom.Rect{{X: 105, Y: 100, W: 50, H: 50}}
	s.Tick(map[int]string{0: "R"})
	if p := mustPlayer(t, s, 0); p.Pos != (geom.Point{X: 100, Y: 100}) {
		t.Fatalf("move into obstacle accepted: %v", p.Pos)
	}
}

func TestPickupScores(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 0, 100, 100)
	s.pickups = []geom.Point{{X: 110, Y: 110}, {X: 600, Y: 600}}
	res := s.Tick(nil)
	if p := mustPlayer(t, s, 0); p.Score != 1 {
		t.Fatalf("score=%d want 1", p.Score)
	}
	if len(s.pickups) != 1 || s.pickups[0] != (geom.Point{X: 600, Y: 600}) {
		t.Fatalf("pickups=%v", s.pickups)
	}
	if len(res.Collected) != 1 || res.Collected[0] != 0 {
		t.Fatalf("Collected=%v", res.Collected)
	}
}

func TestGameOverEnteredOnceAndFreezes(t *testing.T) {
	s, clk := newTestSim(t, func(c *Config) { c.WinScore = 2 })
	addPlayer(t, s, 0, 100, 100)
	addPlayer(t, s, 1, 400, 400)
	s.players[0].Score = 1
	s.pickups = []geom.Point{{X: 100, Y: 100}, {X: 105, Y: 105}}

	res := s.Tick(nil)
	if !res.GameOver || res.WinnerID != 0 {
		t.Fatalf("expected game over won by 0, got %+v", res)
	}
	if s.Phase() != PhaseGameOver {
		t.Fatalf("phase=%s", s.Phase())
	}
	// Processing stopped right after the winning pickup.
	if len(s.pickups) != 1 {
		t.Fatalf("pickups after win=%v", s.pickups)
	}

	before := s.Snapshot().Encode()
	clk.Advance(time.Minute)
	for i := 0; i < 50; i++ {
		if r := s.Tick(map[int]string{0: "R", 1: "D"}); r.GameOver {
			t.Fatalf("game over reported twice")
		}
	}
	if after := s.Snapshot().Encode(); after != before {
		t.Fatalf("arena mutated after game over:\n%s\n%s", before, after)
	}

	over := s.GameOver()
	if over.WinnerID != 0 || len(over.Ranking) != 2 || over.Ranking[0].Score != 2 || over.Ranking[1].Score != 0 {
		t.Fatalf("GameOver=%+v", over)
	}
}

func TestPursuitHitPenalty(t *testing.T) {
	cases := []struct {
		name    string
		penalty Penalty
		score   int
		want    int
	}{
		{"decrement", PenaltyDecrement, 3, 2},
		{"decrement floors at zero", PenaltyDecrement, 0, 0},
		{"reset", PenaltyReset, 7, 0},
	}
	for _, c := range cases {
		s, _ := newTestSim(t, func(cfg *Config) { cfg.Penalty = c.penalty })
		addPlayer(t, s, 1, 300, 300)
		s.players[1].Score = c.score
		s.pursuit = pursuit.New(s.cfg.Pursuit, geom.Point{X: 310, Y: 310})

		res := s.Tick(nil)
		p := mustPlayer(t, s, 1)
		if p.Score != c.want {
			t.Fatalf("%s: score=%d want %d", c.name, p.Score, c.want)
		}
		want := geom.Point{X: s.cfg.RespawnX + 1*s.cfg.RespawnStepX, Y: s.cfg.RespawnY}
		if p.Pos != want {
			t.Fatalf("%s: respawn=%v want %v", c.name, p.Pos, want)
		}
		if len(res.Hits) != 1 || res.Hits[0] != 1 {
			t.Fatalf("%s: Hits=%v", c.name, res.Hits)
		}
	}
}

func TestRelocationKeepsClearance(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		s, _ := newTestSim(t, nil)
		s.rng.Seed(seed)
		s.obstacles = s.layout.Obstacles()
		addPlayer(t, s, 0, 300, 300)
		s.obstacles = withoutOverlap(s.obstacles, geom.Rect{X: 290, Y: 290, W: 300, H: 60})
		s.pursuit = pursuit.New(s.cfg.Pursuit, geom.Point{X: 300, Y: 300})

		res := s.Tick(nil)
		if !res.Relocated {
			continue
		}
		head := s.pursuit.Head()
		for _, p := range s.Players() {
			if geom.DistSq(head, p.Pos) < s.cfg.Layout.RelocateClearance*s.cfg.Layout.RelocateClearance {
				t.Fatalf("seed=%d: relocated head %v too close to %v", seed, head, p.Pos)
			}
		}
		if geom.Square(head, s.cfg.Pursuit.SegmentSize).OverlapsAny(s.obstacles) {
			t.Fatalf("seed=%d: relocated into obstacle", seed)
		}
		if n := len(s.pursuit.Segments()); n != s.cfg.Pursuit.Length {
			t.Fatalf("seed=%d: segment count=%d", seed, n)
		}
	}
}

func withoutOverlap(rs []geom.Rect, keepClear geom.Rect) []geom.Rect {
	var out []geom.Rect
	for _, r := range rs {
		if !r.Overlaps(keepClear) {
			out = append(out, r)
		}
	}
	return out
}

func TestPickupTimer(t *testing.T) {
	s, clk := newTestSim(t, func(c *Config) { c.MaxPickups = 2 })

	clk.Advance(s.cfg.PickupEvery - time.Millisecond)
	if res := s.Tick(nil); res.PickupSpawned {
		t.Fatalf("spawned before interval elapsed")
	}
	clk.Advance(time.Millisecond)
	if res := s.Tick(nil); !res.PickupSpawned {
		t.Fatalf("expected spawn at interval")
	}
	clk.Advance(s.cfg.PickupEvery)
	s.Tick(nil)
	if len(s.pickups) != 2 {
		t.Fatalf("pickups=%d want 2", len(s.pickups))
	}
	clk.Advance(s.cfg.PickupEvery)
	if res := s.Tick(nil); res.PickupSpawned || len(s.pickups) != 2 {
		t.Fatalf("spawned past the maximum")
	}
}

func TestObstacleRegeneration(t *testing.T) {
	s, clk := newTestSim(t, nil)
	if len(s.obstacles) != 0 {
		t.Fatalf("test arena should start without obstacles")
	}
	clk.Advance(s.cfg.RegenEvery)
	res := s.Tick(nil)
	if !res.Regenerated || len(s.obstacles) == 0 {
		t.Fatalf("expected regeneration, got %+v obstacles=%d", res, len(s.obstacles))
	}
	for i, a := range s.obstacles {
		for j := i + 1; j < len(s.obstacles); j++ {
			if a.Overlaps(s.obstacles[j]) {
				t.Fatalf("regenerated obstacles overlap: %v %v", a, s.obstacles[j])
			}
		}
	}
	if res := s.Tick(nil); res.Regenerated {
		t.Fatalf("regenerated twice without time passing")
	}
}

func TestReset(t *testing.T) {
	s, _ := newTestSim(t, func(c *Config) { c.WinScore = 1 })
	addPlayer(t, s, 0, 100, 100)
	addPlayer(t, s, 3, 500, 100)
	s.players[3].Score = 0
	s.pickups = []geom.Point{{X: 100, Y: 100}, {X: 700, Y: 500}}
	s.Tick(nil)
	if s.Phase() != PhaseGameOver {
		t.Fatalf("setup: expected game over")
	}

	s.Reset()
	if s.Phase() != PhasePlaying {
		t.Fatalf("phase=%s after reset", s.Phase())
	}
	for _, p := range s.Players() {
		if p.Score != 0 {
			t.Fatalf("player %d score=%d after reset", p.ID, p.Score)
		}
	}
	if len(s.pickups) != 0 {
		t.Fatalf("pickups survived reset: %v", s.pickups)
	}
	if len(s.obstacles) == 0 {
		t.Fatalf("expected fresh obstacles after reset")
	}
	if n := len(s.Segments()); n != s.cfg.Pursuit.Length {
		t.Fatalf("segments=%d", n)
	}
}

func TestSnapshotOrderedByID(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 2, 200, 460)
	addPlayer(t, s, 0, 200, 200)
	s.pickups = []geom.Point{{X: 20, Y: 30}}
	s.obstacles = []geom.Rect{{X: 40, Y: 50, W: 60, H: 70}}

	m := s.Snapshot()
	if m.Phase != protocol.PhasePlaying || len(m.Players) != 2 || m.Players[0].ID != 0 || m.Players[1].ID != 2 {
		t.Fatalf("snapshot=%+v", m)
	}
	line := m.Encode()
	if !strings.HasPrefix(line, "STATE|PLAYING|P:0:200:200:0:p:Red;P:2:200:460:0:p:Red|C:20:30|S:") ||
		!strings.HasSuffix(line, "|W:40:50:60:70") {
		t.Fatalf("line=%s", line)
	}
	if len(m.Segments) != s.cfg.Pursuit.Length {
		t.Fatalf("segments=%d", len(m.Segments))
	}
}

func TestRankingTieBreak(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 3, 0, 0)
	addPlayer(t, s, 1, 0, 0)
	addPlayer(t, s, 2, 0, 0)
	s.players[3].Score = 5
	s.players[1].Score = 2
	s.players[2].Score = 5
	r := s.Ranking()
	if r[0].ID != 2 || r[1].ID != 3 || r[2].ID != 1 {
		t.Fatalf("ranking ids=%d,%d,%d", r[0].ID, r[1].ID, r[2].ID)
	}
}

func TestAddRemovePlayer(t *testing.T) {
	s, _ := newTestSim(t, nil)
	addPlayer(t, s, 0, 0, 0)
	if s.AddPlayer(Player{ID: 0}) {
		t.Fatalf("duplicate id accepted")
	}
	if !s.RemovePlayer(0) || s.RemovePlayer(0) {
		t.Fatalf("RemovePlayer mismatch")
	}
	if len(s.Players()) != 0 {
		t.Fatalf("players left")
	}
}
