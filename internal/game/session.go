package game

import (
	"time"
)

// Conn is one client connection speaking the line protocol. ReadLine returns
// a line without its terminator; WriteLine appends one.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// readDeadliner is implemented by transports that can bound a blocking read.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type session struct {
	id       string
	playerID int
	name     string
	color    string
	conn     Conn
	joinedAt time.Time

	out  chan string
	done chan struct{}

	// input is the latest raw flag string; guarded by Server.mu.
	input string
}

// send never blocks; a slow client loses its oldest queued line.
func (ss *session) send(line string) {
	sendLatest(ss.out, line)
}

// writeLoop drains the outbound queue until the session is removed. A failed
// write stops the writer only; the read side detects the dead connection.
func (ss *session) writeLoop() {
	for {
		select {
		case <-ss.done:
			return
		case line := <-ss.out:
			if err := ss.conn.WriteLine(line); err != nil {
				return
			}
		}
	}
}

func sendLatest(ch chan string, line string) {
	select {
	case ch <- line:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- line:
	default:
	}
}
