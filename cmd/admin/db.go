package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"lanarena.io/internal/persistence/indexdb"
)

type dbFlags struct {
	dataDir *string
	dbPath  *string
	limit   *int
	asJSON  *bool
}

func newDBFlags(fs *flag.FlagSet) dbFlags {
	return dbFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		dbPath:  fs.String("db", "", "sqlite db path (default: <data>/index/arena.sqlite)"),
		limit:   fs.Int("limit", 20, "result limit"),
		asJSON:  fs.Bool("json", false, "print JSON"),
	}
}

func (f dbFlags) open() *indexdb.Reader {
	path := strings.TrimSpace(*f.dbPath)
	if path == "" {
		path = filepath.Join(*f.dataDir, "index", "arena.sqlite")
	}
	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return r
}

func matchesCmd(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	f := newDBFlags(fs)
	_ = fs.Parse(args)

	r := f.open()
	defer r.Close()
	ms, err := r.RecentMatches(context.Background(), *f.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	if *f.asJSON {
		printJSON(os.Stdout, ms)
		return
	}
	printMatches(os.Stdout, ms)
}

func sessionsCmd(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	f := newDBFlags(fs)
	_ = fs.Parse(args)

	r := f.open()
	defer r.Close()
	ss, err := r.RecentSessions(context.Background(), *f.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	if *f.asJSON {
		printJSON(os.Stdout, ss)
		return
	}
	printSessions(os.Stdout, ss)
}

func countsCmd(args []string) {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	f := newDBFlags(fs)
	_ = fs.Parse(args)

	r := f.open()
	defer r.Close()
	c, err := r.Counts(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(os.Stdout, c)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printMatches(w io.Writer, ms []indexdb.MatchRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tENDED\tTICK\tDURATION\tWINNER\tRANKING")
	for _, m := range ms {
		parts := make([]string, 0, len(m.Ranking))
		for _, r := range m.Ranking {
			parts = append(parts, fmt.Sprintf("%s:%d", r.Name, r.Score))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
			m.MatchID, m.EndedAt.UTC().Format(time.RFC3339), m.EndTick,
			(time.Duration(m.DurationMS) * time.Millisecond).Round(time.Second), m.WinnerID, strings.Join(parts, " "))
	}
	_ = tw.Flush()
}

func printSessions(w io.Writer, ss []indexdb.SessionRow) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tPLAYER\tNAME\tCOLOR\tREMOTE\tJOINED\tLEFT")
	for _, s := range ss {
		left := "-"
		if s.LeftAt != nil {
			left = s.LeftAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.SessionID, s.PlayerID, s.Name, s.Color, s.Remote, s.JoinedAt.UTC().Format(time.RFC3339), left)
	}
	_ = tw.Flush()
}
