package main

import (
	"strings"
	"testing"
	"time"

	"lanarena.io/internal/game"
)

func TestSummarizerGroupsByMatch(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newSummarizer()
	for _, e := range []game.Event{
		{Time: t0, MatchID: "a", Kind: game.EventJoin, PlayerID: 0, Name: "ann"},
		{Time: t0.Add(time.Second), MatchID: "a", Kind: game.EventJoin, PlayerID: 1, Name: "bo"},
		{Time: t0.Add(2 * time.Second), MatchID: "a", Kind: game.EventJoinFull, PlayerID: -1, Name: "cy"},
		{Time: t0.Add(3 * time.Second), MatchID: "a", Kind: game.EventLeave, PlayerID: 0, Name: "ann"},
		{Time: t0.Add(4 * time.Second), MatchID: "a", Kind: game.EventJoin, PlayerID: 0, Name: "ann"},
		{Time: t0.Add(60 * time.Second), MatchID: "a", Kind: game.EventGameOver, PlayerID: -1, WinnerID: 1, DurationMS: 60000,
			Ranking: []game.RankRow{{PlayerID: 1, Name: "bo", Score: 15}, {PlayerID: 0, Name: "ann", Score: 4}}},
		{Time: t0.Add(61 * time.Second), MatchID: "b", Kind: game.EventRestart, PlayerID: 1, Name: "bo"},
	} {
		s.add(e)
	}

	ms := s.matches()
	if len(ms) != 2 || ms[0].MatchID != "a" || ms[1].MatchID != "b" {
		t.Fatalf("matches=%+v", ms)
	}
	a := ms[0]
	if a.Joins != 3 || a.Leaves != 1 || a.Rejected != 1 || len(a.Players) != 2 || !a.Finished || a.WinnerID != 1 {
		t.Fatalf("a=%+v", a)
	}
	if got := a.String(); !strings.Contains(got, "winner=1 in 1m0s: 1.bo=15 2.ann=4") {
		t.Fatalf("a.String()=%q", got)
	}
	b := ms[1]
	if b.Finished || !b.Restarted || b.WinnerID != -1 {
		t.Fatalf("b=%+v", b)
	}
	if got := b.String(); !strings.HasSuffix(got, "(restart) unfinished") {
		t.Fatalf("b.String()=%q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	e := game.Event{Time: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), Tick: 9, MatchID: "0123456789", Kind: game.EventJoin, PlayerID: 2, Name: "x"}
	want := `2026-01-02T03:04:05.000Z tick=9 match=01234567 join player=2 name="x"`
	if got := formatEvent(e); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
