package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"lanarena.io/internal/persistence/indexdb"
)

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	printMatches(&buf, []indexdb.MatchRow{{
		MatchID:    "m1",
		EndedAt:    time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		EndTick:    1800,
		DurationMS: 30400,
		WinnerID:   2,
		Ranking:    []indexdb.RankRow{{Rank: 1, Name: "zed", Score: 15}, {Rank: 2, Name: "amy", Score: 3}},
	}})
	out := buf.String()
	for _, want := range []string{"MATCH", "m1", "2026-02-03T04:05:06Z", "30s", "zed:15 amy:3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintSessionsOpenSession(t *testing.T) {
	var buf bytes.Buffer
	printSessions(&buf, []indexdb.SessionRow{{SessionID: "s1", PlayerID: 0, Name: "a", Color: "Red", Remote: "127.0.0.1:9", JoinedAt: time.Unix(0, 0)}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(strings.TrimSpace(lines[1]), "-") {
		t.Fatalf("out=%q", buf.String())
	}
}

func TestAdminURL(t *testing.T) {
	if got := adminURL(" http://h:1/ ", "/admin/v1/state"); got != "http://h:1/admin/v1/state" {
		t.Fatalf("got %q", got)
	}
}
