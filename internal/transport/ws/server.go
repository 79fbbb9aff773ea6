// Package ws serves the line protocol over WebSocket: one text frame carries
// exactly one protocol line, without the trailing newline.
package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lanarena.io/internal/game"
)

type Handler interface {
	Serve(conn game.Conn)
}

type Server struct {
	handler Handler
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h Handler, logger *log.Logger) *Server {
	return &Server{
		handler: h,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // LAN default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		conn.SetReadLimit(4 * 1024)
		s.handler.Serve(&frameConn{c: conn, remote: r.RemoteAddr})
	}
}

// frameConn adapts a websocket connection to game.Conn.
type frameConn struct {
	c      *websocket.Conn
	remote string

	wmu    sync.Mutex
	closed bool
}

var errNotText = errors.New("ws: binary frame")

func (f *frameConn) ReadLine() (string, error) {
	for {
		typ, msg, err := f.c.ReadMessage()
		if err != nil {
			return "", err
		}
		if typ != websocket.TextMessage {
			return "", errNotText
		}
		line := strings.TrimRight(string(msg), "\r\n")
		if line == "" {
			continue
		}
		return line, nil
	}
}

func (f *frameConn) WriteLine(line string) error {
	f.wmu.Lock()
	defer f.wmu.Unlock()
	if f.closed {
		return websocket.ErrCloseSent
	}
	_ = f.c.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return f.c.WriteMessage(websocket.TextMessage, []byte(line))
}

func (f *frameConn) SetReadDeadline(t time.Time) error { return f.c.SetReadDeadline(t) }

func (f *frameConn) Close() error {
	f.wmu.Lock()
	if !f.closed {
		f.closed = true
		_ = f.c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
	f.wmu.Unlock()
	return f.c.Close()
}

func (f *frameConn) RemoteAddr() string { return f.remote }
