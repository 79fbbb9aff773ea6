// Package arena is the authoritative game state and its per-tick update.
//
// A Simulation is not safe for concurrent use. The owner serializes every
// call (the game server holds its arena lock around all of them).
package arena

import (
	"math/rand"
	"sort"
	"time"

	"lanarena.io/internal/protocol"
	"lanarena.io/internal/sim/geom"
	"lanarena.io/internal/sim/layout"
	"lanarena.io/internal/sim/pursuit"
)

type Phase string

const (
	PhasePlaying  Phase = protocol.PhasePlaying
	PhaseGameOver Phase = protocol.PhaseGameOver
)

type Player struct {
	ID    int        `json:"id"`
	Name  string     `json:"name"`
	Color string     `json:"color"`
	Pos   geom.Point `json:"pos"`
	Score int        `json:"score"`
}

// TickResult describes what one Tick changed.
type TickResult struct {
	Tick uint64

	PursuitMoved bool
	// Hits lists the players penalized by the pursuit entity, ascending id.
	Hits []int
	// Collected lists, per pickup taken, the id of the player who took it.
	Collected []int

	Relocated     bool
	PickupSpawned bool
	Regenerated   bool

	// GameOver is set only on the tick that ended the match.
	GameOver bool
	WinnerID int
}

type Simulation struct {
	cfg    Config
	clock  Clock
	rng    *rand.Rand
	layout *layout.Generator

	tick      uint64
	phase     Phase
	winnerID  int
	players   map[int]*Player
	pickups   []geom.Point
	obstacles []geom.Rect
	pursuit   *pursuit.Agent

	lastPickup time.Time
	lastRegen  time.Time
}

// New builds a playing arena with a fresh obstacle batch and the pursuit
// entity at the arena center.
func New(cfg Config, clock Clock, rng *rand.Rand) *Simulation {
	if clock == nil {
		clock = SystemClock{}
	}
	s := &Simulation{
		cfg:     cfg,
		clock:   clock,
		rng:     rng,
		layout:  layout.New(cfg.Layout, rng),
		phase:   PhasePlaying,
		players: make(map[int]*Player),
	}
	s.pursuit = pursuit.New(cfg.Pursuit, geom.Point{X: cfg.Width / 2, Y: cfg.Height / 2})
	s.obstacles = s.layout.Obstacles()
	now := clock.Now()
	s.lastPickup = now
	s.lastRegen = now
	return s
}

func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) Phase() Phase { return s.phase }

func (s *Simulation) CurrentTick() uint64 { return s.tick }

// AddPlayer registers p. It reports false when the id is already taken.
func (s *Simulation) AddPlayer(p Player) bool {
	if _, ok := s.players[p.ID]; ok {
		return false
	}
	cp := p
	s.players[p.ID] = &cp
	return true
}

func (s *Simulation) RemovePlayer(id int) bool {
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	return true
}

func (s *Simulation) Player(id int) (Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns copies ordered by id.
func (s *Simulation) Players() []Player {
	out := make([]Player, 0, len(s.players))
	for _, id := range s.sortedIDs() {
		out = append(out, *s.players[id])
	}
	return out
}

func (s *Simulation) Pickups() []geom.Point {
	return append([]geom.Point(nil), s.pickups...)
}

func (s *Simulation) Obstacles() []geom.Rect {
	return append([]geom.Rect(nil), s.obstacles...)
}

func (s *Simulation) Segments() []geom.Point { return s.pursuit.Segments() }

// Tick runs one simulation step with the latest input flags per player id.
// Players missing from inputs do not move. After the match is over Tick
// changes nothing.
func (s *Simulation) Tick(inputs map[int]string) TickResult {
	s.tick++
	res := TickResult{Tick: s.tick}
	if s.phase == PhaseGameOver {
		return res
	}
	ids := s.sortedIDs()

	res.PursuitMoved = s.pursuit.Update(s.rng, s.bounds(), s.obstacles, s.targets(ids))

	for _, id := range ids {
		s.move(s.players[id], inputs[id])
	}

	segs := s.pursuit.SegmentRects()
	for _, id := range ids {
		p := s.players[id]
		if !s.playerBox(p).OverlapsAny(segs) {
			continue
		}
		s.penalize(p)
		res.Hits = append(res.Hits, id)
	}

	for _, id := range ids {
		p := s.players[id]
		box := s.playerBox(p)
		for i := 0; i < len(s.pickups); {
			if !box.Overlaps(geom.Square(s.pickups[i], s.cfg.PickupSize)) {
				i++
				continue
			}
			s.pickups = append(s.pickups[:i], s.pickups[i+1:]...)
			p.Score++
			res.Collected = append(res.Collected, id)
			if p.Score >= s.cfg.WinScore {
				s.phase = PhaseGameOver
				s.winnerID = id
				res.GameOver = true
				res.WinnerID = id
				return res
			}
		}
	}

	if len(res.Hits) > 0 {
		if start, ok := s.layout.PursuitStart(s.obstacles, s.positions(ids)); ok {
			s.pursuit = pursuit.New(s.cfg.Pursuit, start)
			res.Relocated = true
		}
	}

	now := s.clock.Now()
	if now.Sub(s.lastPickup) >= s.cfg.PickupEvery && len(s.pickups) < s.cfg.MaxPickups {
		if pt, ok := s.layout.Pickup(s.obstacles); ok {
			s.pickups = append(s.pickups, pt)
			res.PickupSpawned = true
		}
		s.lastPickup = now
	}
	if now.Sub(s.lastRegen) >= s.cfg.RegenEvery {
		s.obstacles = s.layout.Obstacles()
		s.lastRegen = now
		res.Regenerated = true
	}
	return res
}

// Reset starts a new match with the players that are currently present.
func (s *Simulation) Reset() {
	s.phase = PhasePlaying
	s.winnerID = 0
	s.pickups = nil
	s.pursuit = pursuit.New(s.cfg.Pursuit, s.layout.RandomInterior())
	s.obstacles = s.layout.Obstacles()
	for _, p := range s.players {
		p.Score = 0
	}
	now := s.clock.Now()
	s.lastPickup = now
	s.lastRegen = now
}

// Snapshot is the full arena state as broadcast to clients.
func (s *Simulation) Snapshot() protocol.StateMsg {
	m := protocol.StateMsg{Phase: string(s.phase)}
	for _, id := range s.sortedIDs() {
		p := s.players[id]
		m.Players = append(m.Players, protocol.PlayerRec{
			ID: p.ID, X: p.Pos.X, Y: p.Pos.Y, Score: p.Score, Name: p.Name, Color: p.Color,
		})
	}
	for _, c := range s.pickups {
		m.Pickups = append(m.Pickups, protocol.PointRec{X: c.X, Y: c.Y})
	}
	for _, seg := range s.pursuit.Segments() {
		m.Segments = append(m.Segments, protocol.PointRec{X: seg.X, Y: seg.Y})
	}
	for _, o := range s.obstacles {
		m.Obstacles = append(m.Obstacles, protocol.RectRec{X: o.X, Y: o.Y, W: o.W, H: o.H})
	}
	return m
}

// Ranking orders players by descending score, then ascending id.
func (s *Simulation) Ranking() []Player {
	out := s.Players()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// GameOver is the final ranking message for the match that just ended.
func (s *Simulation) GameOver() protocol.GameOverMsg {
	m := protocol.GameOverMsg{WinnerID: s.winnerID}
	for _, p := range s.Ranking() {
		m.Ranking = append(m.Ranking, protocol.RankEntry{Name: p.Name, Score: p.Score})
	}
	return m
}

func (s *Simulation) move(p *Player, flags string) {
	up, down, left, right := protocol.ParseFlags(flags)
	var dx, dy int
	if up {
		dy -= s.cfg.MoveSpeed
	}
	if down {
		dy += s.cfg.MoveSpeed
	}
	if left {
		dx -= s.cfg.MoveSpeed
	}
	if right {
		dx += s.cfg.MoveSpeed
	}
	if dx == 0 && dy == 0 {
		return
	}
	next := geom.Point{
		X: geom.Clamp(p.Pos.X+dx, 0, s.cfg.Width-s.cfg.PlayerSize),
		Y: geom.Clamp(p.Pos.Y+dy, 0, s.cfg.Height-s.cfg.PlayerSize),
	}
	if geom.Square(next, s.cfg.PlayerSize).OverlapsAny(s.obstacles) {
		return
	}
	p.Pos = next
}

func (s *Simulation) penalize(p *Player) {
	switch s.cfg.Penalty {
	case PenaltyReset:
		p.Score = 0
	default:
		if p.Score > 0 {
			p.Score--
		}
	}
	p.Pos = geom.Point{X: s.cfg.RespawnX + p.ID*s.cfg.RespawnStepX, Y: s.cfg.RespawnY}
}

func (s *Simulation) playerBox(p *Player) geom.Rect {
	return geom.Square(p.Pos, s.cfg.PlayerSize)
}

func (s *Simulation) bounds() geom.Rect {
	return geom.Rect{W: s.cfg.Width, H: s.cfg.Height}
}

func (s *Simulation) targets(ids []int) []pursuit.Target {
	out := make([]pursuit.Target, 0, len(ids))
	for _, id := range ids {
		p := s.players[id]
		out = append(out, pursuit.Target{ID: p.ID, Pos: p.Pos, Score: p.Score})
	}
	return out
}

func (s *Simulation) positions(ids []int) []geom.Point {
	out := make([]geom.Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.players[id].Pos)
	}
	return out
}

func (s *Simulation) sortedIDs() []int {
	ids := make([]int, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
