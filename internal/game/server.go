// Package game runs the authoritative arena for connected clients: it owns the
// session set, the fixed-rate tick loop and the state broadcast.
//
// One mutex guards the simulation, the session set and every session's pending
// input. The tick goroutine and all session readers contend for it; nothing
// blocks on I/O while holding it.
package game

import (
	"context"
	"log"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"lanarena.io/internal/sim/arena"
	"lanarena.io/internal/sim/geom"
	"lanarena.io/internal/sim/tuning"
)

type Config struct {
	Arena arena.Config

	// Colors and Spawns are indexed by player id; len(Colors) is the capacity.
	Colors []string
	Spawns []geom.Point

	TickInterval      time.Duration
	BroadcastInterval time.Duration

	OutQueue    int
	JoinTimeout time.Duration

	Seed  int64
	Clock arena.Clock
}

func ConfigFromTuning(t tuning.Tuning, seed int64) Config {
	spawns := make([]geom.Point, len(t.Players.Spawns))
	for i, sp := range t.Players.Spawns {
		spawns[i] = geom.Point{X: sp[0], Y: sp[1]}
	}
	return Config{
		Arena:             arena.ConfigFromTuning(t),
		Colors:            append([]string(nil), t.Players.Colors...),
		Spawns:            spawns,
		TickInterval:      t.TickInterval(),
		BroadcastInterval: t.BroadcastInterval(),
		OutQueue:          t.Session.OutQueue,
		JoinTimeout:       time.Duration(t.Session.JoinTimeoutMs) * time.Millisecond,
		Seed:              seed,
	}
}

type Server struct {
	cfg   Config
	log   *log.Logger
	clock arena.Clock

	events EventLogger

	mu            deadlock.Mutex
	sim           *arena.Simulation
	sessions      map[int]*session
	observers     map[uint64]chan string
	nextObserver  uint64
	matchID       string
	matchStarted  time.Time
	lastBroadcast time.Time
	pending       []Event
	counters      counters

	metrics atomic.Value // Metrics

	// active counts Serve calls that have not returned.
	active sync.WaitGroup
}

func New(cfg Config, logger *log.Logger) *Server {
	if cfg.Clock == nil {
		cfg.Clock = arena.SystemClock{}
	}
	if cfg.OutQueue <= 0 {
		cfg.OutQueue = 16
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[game] ", log.LstdFlags|log.Lmicroseconds)
	}
	s := &Server{
		cfg:       cfg,
		log:       logger,
		clock:     cfg.Clock,
		sim:       arena.New(cfg.Arena, cfg.Clock, rand.New(rand.NewSource(cfg.Seed))),
		sessions:  make(map[int]*session),
		observers: make(map[uint64]chan string),
	}
	now := s.clock.Now()
	s.matchID = uuid.NewString()
	s.matchStarted = now
	s.lastBroadcast = now
	s.metrics.Store(s.metricsLocked(0))
	return s
}

// SetEventLogger must be called before Run and before any connection is served.
func (s *Server) SetEventLogger(l EventLogger) { s.events = l }

// Run ticks at the configured rate until ctx is cancelled. A tick that
// overruns its budget is followed immediately by the next one; missed ticks
// are not caught up.
func (s *Server) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		start := time.Now()
		s.StepOnce()

		wait := s.cfg.TickInterval - time.Since(start)
		if wait <= 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// StepOnce runs a single tick, broadcasting when the broadcast interval has
// elapsed or the match just ended.
func (s *Server) StepOnce() arena.TickResult {
	start := time.Now()
	now := s.clock.Now()

	s.mu.Lock()
	inputs := make(map[int]string, len(s.sessions))
	for id, ss := range s.sessions {
		inputs[id] = ss.input
	}
	res := s.sim.Tick(inputs)

	if res.GameOver || now.Sub(s.lastBroadcast) >= s.cfg.BroadcastInterval {
		s.broadcastLocked(res.GameOver)
		s.lastBroadcast = now
	}
	if res.GameOver {
		s.counters.gameOvers++
		s.recordLocked(s.gameOverEventLocked(now))
	}
	stepMS := float64(time.Since(start).Microseconds()) / 1000.0
	s.metrics.Store(s.metricsLocked(stepMS))
	matchID := s.matchID
	events := s.takeEventsLocked()
	s.mu.Unlock()

	if res.GameOver {
		s.log.Printf("game over match=%s winner=%d tick=%d", matchID, res.WinnerID, res.Tick)
	}
	s.flush(events)
	return res
}

// Restart resets the arena for everyone and starts a new match id.
func (s *Server) Restart() {
	s.restart(nil)
}

// CloseAll closes every client connection. Their read loops then remove the
// sessions through the normal path.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := make([]Conn, 0, len(s.sessions))
	for _, ss := range s.sessions {
		conns = append(conns, ss.conn)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// Drain waits until every Serve call has returned, leave events included.
// Call it after the listeners are closed and CloseAll has run.
func (s *Server) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StateView is the admin view of the arena.
type StateView struct {
	Tick      uint64         `json:"tick"`
	Phase     string         `json:"phase"`
	MatchID   string         `json:"match_id"`
	Players   []arena.Player `json:"players"`
	Pickups   []geom.Point   `json:"pickups"`
	Obstacles []geom.Rect    `json:"obstacles"`
	Segments  []geom.Point   `json:"segments"`
}

func (s *Server) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateView{
		Tick:      s.sim.CurrentTick(),
		Phase:     string(s.sim.Phase()),
		MatchID:   s.matchID,
		Players:   s.sim.Players(),
		Pickups:   s.sim.Pickups(),
		Obstacles: s.sim.Obstacles(),
		Segments:  s.sim.Segments(),
	}
}

func (s *Server) restart(by *session) {
	now := s.clock.Now()
	s.mu.Lock()
	s.sim.Reset()
	s.matchID = uuid.NewString()
	s.matchStarted = now
	s.counters.restarts++
	ev := Event{Time: now, Tick: s.sim.CurrentTick(), MatchID: s.matchID, Kind: EventRestart, PlayerID: -1}
	if by != nil {
		ev.SessionID = by.id
		ev.PlayerID = by.playerID
		ev.Name = by.name
	}
	s.recordLocked(ev)
	matchID := s.matchID
	events := s.takeEventsLocked()
	s.mu.Unlock()

	s.log.Printf("restart match=%s by=%d", matchID, ev.PlayerID)
	s.flush(events)
}

func (s *Server) gameOverEventLocked(now time.Time) Event {
	over := s.sim.GameOver()
	ev := Event{
		Time:       now,
		Tick:       s.sim.CurrentTick(),
		MatchID:    s.matchID,
		Kind:       EventGameOver,
		PlayerID:   -1,
		WinnerID:   over.WinnerID,
		DurationMS: now.Sub(s.matchStarted).Milliseconds(),
	}
	for _, p := range s.sim.Ranking() {
		ev.Ranking = append(ev.Ranking, RankRow{PlayerID: p.ID, Name: p.Name, Score: p.Score})
	}
	return ev
}

func (s *Server) recordLocked(e Event) {
	if s.events == nil {
		return
	}
	s.pending = append(s.pending, e)
}

func (s *Server) takeEventsLocked() []Event {
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}

func (s *Server) flush(events []Event) {
	if s.events == nil {
		return
	}
	for _, e := range events {
		if err := s.events.WriteEvent(e); err != nil {
			s.log.Printf("event log: %v", err)
		}
	}
}

// sortedSessionsLocked returns sessions ordered by player id.
func (s *Server) sortedSessionsLocked() []*session {
	out := make([]*session, 0, len(s.sessions))
	for _, ss := range s.sessions {
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].playerID < out[j].playerID })
	return out
}
