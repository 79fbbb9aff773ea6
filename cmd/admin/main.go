package main

import (
	"fmt"
	"os"
)

const usage = `usage: admin <command> [flags]

commands:
  matches   recent finished matches from the sqlite index
  sessions  recent sessions from the sqlite index
  counts    row counts of the sqlite index
  state     live arena state (GET /admin/v1/state)
  restart   restart the arena (POST /admin/v1/restart)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "matches":
		matchesCmd(args)
	case "sessions":
		sessionsCmd(args)
	case "counts":
		countsCmd(args)
	case "state":
		stateCmd(args)
	case "restart":
		restartCmd(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
