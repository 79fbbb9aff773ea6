package main

import (
	"fmt"
	"strings"
	"time"

	"lanarena.io/internal/game"
)

type matchSummary struct {
	MatchID   string         `json:"match_id"`
	First     time.Time      `json:"first"`
	Last      time.Time      `json:"last"`
	Joins     int            `json:"joins"`
	Leaves    int            `json:"leaves"`
	Rejected  int            `json:"rejected"`
	Players   []string       `json:"players"`
	Finished  bool           `json:"finished"`
	WinnerID  int            `json:"winner_id"`
	Duration  time.Duration  `json:"duration_ns"`
	Ranking   []game.RankRow `json:"ranking,omitempty"`
	Restarted bool           `json:"restarted"`
}

func (m *matchSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "match %s %s..%s joins=%d leaves=%d rejected=%d",
		m.MatchID, m.First.UTC().Format(time.RFC3339), m.Last.UTC().Format(time.RFC3339), m.Joins, m.Leaves, m.Rejected)
	if m.Restarted {
		b.WriteString(" (restart)")
	}
	if !m.Finished {
		b.WriteString(" unfinished")
		return b.String()
	}
	fmt.Fprintf(&b, " winner=%d in %s:", m.WinnerID, m.Duration.Round(time.Second))
	for i, r := range m.Ranking {
		fmt.Fprintf(&b, " %d.%s=%d", i+1, r.Name, r.Score)
	}
	return b.String()
}

// summarizer groups events by match id in order of first appearance.
type summarizer struct {
	order []string
	byID  map[string]*matchSummary
	seen  map[string]map[string]bool
}

func newSummarizer() *summarizer {
	return &summarizer{byID: map[string]*matchSummary{}, seen: map[string]map[string]bool{}}
}

func (s *summarizer) add(e game.Event) {
	m, ok := s.byID[e.MatchID]
	if !ok {
		m = &matchSummary{MatchID: e.MatchID, First: e.Time, WinnerID: -1}
		s.byID[e.MatchID] = m
		s.order = append(s.order, e.MatchID)
		s.seen[e.MatchID] = map[string]bool{}
	}
	if e.Time.After(m.Last) {
		m.Last = e.Time
	}
	switch e.Kind {
	case game.EventJoin:
		m.Joins++
		if !s.seen[e.MatchID][e.Name] {
			s.seen[e.MatchID][e.Name] = true
			m.Players = append(m.Players, e.Name)
		}
	case game.EventLeave:
		m.Leaves++
	case game.EventJoinFull:
		m.Rejected++
	case game.EventRestart:
		m.Restarted = true
	case game.EventGameOver:
		m.Finished = true
		m.WinnerID = e.WinnerID
		m.Duration = time.Duration(e.DurationMS) * time.Millisecond
		m.Ranking = e.Ranking
	}
}

func (s *summarizer) matches() []*matchSummary {
	out := make([]*matchSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
