package game

// Metrics is a read-only view of the server, refreshed once per tick and safe
// to read from HTTP handlers.
type Metrics struct {
	Tick    uint64 `json:"tick"`
	Phase   string `json:"phase"`
	MatchID string `json:"match_id"`

	Players   int `json:"players"`
	Capacity  int `json:"capacity"`
	Observers int `json:"observers"`
	Pickups   int `json:"pickups"`
	Obstacles int `json:"obstacles"`

	StepMS float64 `json:"step_ms"`

	BroadcastsTotal    uint64 `json:"broadcasts_total"`
	JoinsTotal         uint64 `json:"joins_total"`
	JoinsRejectedTotal uint64 `json:"joins_rejected_total"`
	RestartsTotal      uint64 `json:"restarts_total"`
	GameOversTotal     uint64 `json:"game_overs_total"`
}

type counters struct {
	broadcasts    uint64
	joins         uint64
	joinsRejected uint64
	restarts      uint64
	gameOvers     uint64
}

func (s *Server) Metrics() Metrics {
	if s == nil {
		return Metrics{}
	}
	v := s.metrics.Load()
	if v == nil {
		return Metrics{}
	}
	m, ok := v.(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

// metricsLocked must be called with s.mu held.
func (s *Server) metricsLocked(stepMS float64) Metrics {
	return Metrics{
		Tick:               s.sim.CurrentTick(),
		Phase:              string(s.sim.Phase()),
		MatchID:            s.matchID,
		Players:            len(s.sessions),
		Capacity:           len(s.cfg.Colors),
		Observers:          len(s.observers),
		Pickups:            len(s.sim.Pickups()),
		Obstacles:          len(s.sim.Obstacles()),
		StepMS:             stepMS,
		BroadcastsTotal:    s.counters.broadcasts,
		JoinsTotal:         s.counters.joins,
		JoinsRejectedTotal: s.counters.joinsRejected,
		RestartsTotal:      s.counters.restarts,
		GameOversTotal:     s.counters.gameOvers,
	}
}
