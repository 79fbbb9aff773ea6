package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"lanarena.io/internal/game"
	persistlog "lanarena.io/internal/persistence/log"
)

func main() {
	var (
		eventsDir = flag.String("events", "./data/events", "events dir containing events-*.jsonl.zst")
		file      = flag.String("file", "", "single events file (overrides -events)")
		matchID   = flag.String("match", "", "only this match id")
		asJSON    = flag.Bool("json", false, "print summaries as JSON lines")
		verbose   = flag.Bool("v", false, "print every event")
	)
	flag.Parse()

	s := newSummarizer()
	fn := func(e game.Event) error {
		if *matchID != "" && e.MatchID != *matchID {
			return nil
		}
		if *verbose {
			fmt.Println(formatEvent(e))
		}
		s.add(e)
		return nil
	}

	var err error
	if strings.TrimSpace(*file) != "" {
		err = persistlog.ReadEvents(*file, fn)
	} else {
		err = persistlog.ReadDir(*eventsDir, fn)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}

	matches := s.matches()
	if len(matches) == 0 {
		fmt.Fprintln(os.Stderr, "no events")
		os.Exit(2)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, m := range matches {
		if *asJSON {
			_ = enc.Encode(m)
			continue
		}
		fmt.Println(m.String())
	}
}

func formatEvent(e game.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s tick=%d match=%s %s", e.Time.UTC().Format("2006-01-02T15:04:05.000Z"), e.Tick, short(e.MatchID), e.Kind)
	if e.PlayerID >= 0 {
		fmt.Fprintf(&b, " player=%d", e.PlayerID)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, " name=%q", e.Name)
	}
	if e.Kind == game.EventGameOver {
		fmt.Fprintf(&b, " winner=%d", e.WinnerID)
	}
	return b.String()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
