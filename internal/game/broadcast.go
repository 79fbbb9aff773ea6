package game

// broadcastLocked encodes the arena once and queues it for every session and
// observer. When the match just ended the final ranking follows the state.
func (s *Server) broadcastLocked(gameOver bool) {
	lines := []string{s.sim.Snapshot().Encode()}
	if gameOver {
		lines = append(lines, s.sim.GameOver().Encode())
	}
	for _, ss := range s.sortedSessionsLocked() {
		for _, l := range lines {
			ss.send(l)
		}
	}
	for _, ch := range s.observers {
		for _, l := range lines {
			sendLatest(ch, l)
		}
	}
	s.counters.broadcasts++
}

// Subscribe registers a read-only observer. It immediately receives the current
// state and afterwards every broadcast line. cancel must be called exactly
// when the observer goes away; it is safe to call more than once.
func (s *Server) Subscribe(buffer int) (lines <-chan string, cancel func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan string, buffer)

	s.mu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers[id] = ch
	sendLatest(ch, s.sim.Snapshot().Encode())
	s.mu.Unlock()

	done := false
	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if done {
			return
		}
		done = true
		delete(s.observers, id)
	}
	return ch, cancel
}
