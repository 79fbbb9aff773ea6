package game

import (
	"time"

	"github.com/google/uuid"

	"lanarena.io/internal/protocol"
	"lanarena.io/internal/sim/arena"
)

// Serve runs one client connection from handshake to disconnect and closes
// it on return. Transports call it in its own goroutine.
func (s *Server) Serve(conn Conn) {
	s.active.Add(1)
	defer s.active.Done()
	defer conn.Close()

	ss, ok := s.accept(conn)
	if !ok {
		return
	}
	go ss.writeLoop()
	s.readLoop(ss)
	s.remove(ss)
}

// accept waits for JOIN and admits the client if a slot is free. Lines other
// than JOIN before the handshake are dropped.
func (s *Server) accept(conn Conn) (*session, bool) {
	name, ok := s.awaitJoin(conn)
	if !ok {
		return nil, false
	}
	now := s.clock.Now()

	s.mu.Lock()
	id, color, ok := s.allocateLocked()
	if !ok {
		s.counters.joinsRejected++
		s.recordLocked(Event{
			Time: now, Tick: s.sim.CurrentTick(), MatchID: s.matchID, Kind: EventJoinFull,
			PlayerID: -1, Name: name, Remote: conn.RemoteAddr(),
		})
		events := s.takeEventsLocked()
		s.mu.Unlock()

		s.flush(events)
		_ = conn.WriteLine(protocol.JoinFullMsg{}.Encode())
		s.log.Printf("join rejected (full) name=%q remote=%s", name, conn.RemoteAddr())
		return nil, false
	}

	ss := &session{
		id:       uuid.NewString(),
		playerID: id,
		name:     name,
		color:    color,
		conn:     conn,
		joinedAt: now,
		out:      make(chan string, s.cfg.OutQueue),
		done:     make(chan struct{}),
	}
	// JOIN_OK is queued before the session becomes visible to the broadcaster.
	ss.send(protocol.JoinOKMsg{ID: id, Color: color}.Encode())
	s.sim.AddPlayer(arena.Player{ID: id, Name: name, Color: color, Pos: s.cfg.Spawns[id]})
	s.sessions[id] = ss
	s.counters.joins++
	s.recordLocked(Event{
		Time: now, Tick: s.sim.CurrentTick(), MatchID: s.matchID, Kind: EventJoin,
		SessionID: ss.id, PlayerID: id, Name: name, Color: color, Remote: conn.RemoteAddr(),
	})
	events := s.takeEventsLocked()
	s.mu.Unlock()

	s.flush(events)
	s.log.Printf("join id=%d name=%q color=%s remote=%s", id, name, color, conn.RemoteAddr())
	return ss, true
}

func (s *Server) awaitJoin(conn Conn) (string, bool) {
	dl, hasDeadline := conn.(readDeadliner)
	if hasDeadline && s.cfg.JoinTimeout > 0 {
		_ = dl.SetReadDeadline(time.Now().Add(s.cfg.JoinTimeout))
		defer dl.SetReadDeadline(time.Time{})
	}
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return "", false
		}
		msg, err := protocol.DecodeClient(line)
		if err != nil {
			continue
		}
		if j, ok := msg.(protocol.JoinMsg); ok {
			return protocol.NormalizeName(j.Name), true
		}
	}
}

// allocateLocked picks the lowest free id and the first palette color not in
// use. ok is false at capacity.
func (s *Server) allocateLocked() (id int, color string, ok bool) {
	capacity := len(s.cfg.Colors)
	if len(s.sessions) >= capacity {
		return 0, "", false
	}
	id = -1
	for i := 0; i < capacity; i++ {
		if _, used := s.sessions[i]; !used {
			id = i
			break
		}
	}
	inUse := make(map[string]bool, len(s.sessions))
	for _, ss := range s.sessions {
		inUse[ss.color] = true
	}
	for _, c := range s.cfg.Colors {
		if !inUse[c] {
			color = c
			break
		}
	}
	if id < 0 || color == "" {
		return 0, "", false
	}
	return id, color, true
}

func (s *Server) readLoop(ss *session) {
	for {
		line, err := ss.conn.ReadLine()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeClient(line)
		if err != nil {
			continue
		}
		switch m := msg.(type) {
		case protocol.InputMsg:
			s.mu.Lock()
			ss.input = m.Flags
			s.mu.Unlock()
		case protocol.RestartMsg:
			s.restart(ss)
		case protocol.JoinMsg:
			// Already joined.
		}
	}
}

// remove is the only way a session leaves the active set.
func (s *Server) remove(ss *session) {
	now := s.clock.Now()
	s.mu.Lock()
	if cur, ok := s.sessions[ss.playerID]; ok && cur == ss {
		delete(s.sessions, ss.playerID)
		s.sim.RemovePlayer(ss.playerID)
	}
	s.recordLocked(Event{
		Time: now, Tick: s.sim.CurrentTick(), MatchID: s.matchID, Kind: EventLeave,
		SessionID: ss.id, PlayerID: ss.playerID, Name: ss.name, Color: ss.color, Remote: ss.conn.RemoteAddr(),
	})
	events := s.takeEventsLocked()
	s.mu.Unlock()

	close(ss.done)
	s.flush(events)
	s.log.Printf("leave id=%d name=%q after=%s", ss.playerID, ss.name, now.Sub(ss.joinedAt).Round(time.Millisecond))
}
