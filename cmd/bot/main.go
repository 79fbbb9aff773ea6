package main

import (
	"bufio"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"lanarena.io/internal/protocol"
)

func main() {
	var (
		addr    = flag.String("addr", "localhost:5000", "tcp game address")
		wsURL   = flag.String("ws", "", "websocket url (e.g. ws://localhost:8080/v1/ws); overrides -addr")
		name    = flag.String("name", "bot", "player name")
		restart = flag.Bool("restart", true, "send RESTART a few seconds after a match ends")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	var (
		c   lineConn
		err error
	)
	if *wsURL != "" {
		c, err = dialWS(*wsURL)
	} else {
		c, err = dialTCP(*addr)
	}
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer c.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = c.Close()
	}()

	if err := c.WriteLine(protocol.JoinMsg{Name: *name}.Encode()); err != nil {
		logger.Fatalf("send JOIN: %v", err)
	}

	b := &brain{selfID: -1}
	var restartAt time.Time
	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeServer(line)
		if err != nil {
			logger.Printf("bad line %q: %v", line, err)
			continue
		}
		switch m := msg.(type) {
		case protocol.JoinOKMsg:
			b.selfID = m.ID
			logger.Printf("JOIN_OK id=%d color=%s", m.ID, m.Color)
		case protocol.JoinFullMsg:
			logger.Printf("arena full")
			return
		case protocol.StateMsg:
			if m.Phase != protocol.PhasePlaying {
				if *restart && !restartAt.IsZero() && time.Now().After(restartAt) {
					restartAt = time.Time{}
					_ = c.WriteLine(protocol.RestartMsg{}.Encode())
				}
				continue
			}
			if flags, changed := b.next(m); changed {
				if err := c.WriteLine(protocol.InputMsg{Flags: flags}.Encode()); err != nil {
					return
				}
			}
		case protocol.GameOverMsg:
			logger.Printf("GAME_OVER winner=%d ranking=%v", m.WinnerID, m.Ranking)
			restartAt = time.Now().Add(3 * time.Second)
			b.last = ""
		}
	}
}

type lineConn interface {
	ReadLine() (string, error)
	WriteLine(string) error
	Close() error
}

type tcpConn struct {
	c net.Conn
	r *bufio.Reader
}

func dialTCP(addr string) (*tcpConn, error) {
	c, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &tcpConn{c: c, r: bufio.NewReader(c)}, nil
}

func (t *tcpConn) ReadLine() (string, error) {
	l, err := t.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(l, "\r\n"), nil
}

func (t *tcpConn) WriteLine(l string) error {
	_, err := t.c.Write([]byte(l + "\n"))
	return err
}

func (t *tcpConn) Close() error { return t.c.Close() }

type wsConn struct{ c *websocket.Conn }

func dialWS(url string) (*wsConn, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{c: c}, nil
}

func (w *wsConn) ReadLine() (string, error) {
	_, msg, err := w.c.ReadMessage()
	return string(msg), err
}

func (w *wsConn) WriteLine(l string) error {
	return w.c.WriteMessage(websocket.TextMessage, []byte(l))
}

func (w *wsConn) Close() error { return w.c.Close() }
