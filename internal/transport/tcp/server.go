// Package tcp serves the line protocol over plain TCP.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"lanarena.io/internal/game"
)

// Handler runs one connection to completion.
type Handler interface {
	Serve(conn game.Conn)
}

type Server struct {
	handler Handler
	log     *log.Logger

	// WriteTimeout bounds a single line write; zero means no deadline.
	WriteTimeout time.Duration
	// MaxLine caps an inbound line; longer lines end the connection.
	MaxLine int
}

func NewServer(h Handler, logger *log.Logger) *Server {
	return &Server{
		handler:      h,
		log:          logger,
		WriteTimeout: 5 * time.Second,
		MaxLine:      4 * 1024,
	}
}

// Serve accepts connections on ln until ctx is cancelled or ln fails. The
// listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	var tempDelay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				s.log.Printf("tcp accept: %v; retrying in %s", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			_ = ln.Close()
			return err
		}
		tempDelay = 0
		if tc, ok := c.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}
		go s.handler.Serve(s.wrap(c))
	}
}

func (s *Server) wrap(c net.Conn) *lineConn {
	return &lineConn{
		c:            c,
		r:            bufio.NewReaderSize(c, 4*1024),
		writeTimeout: s.WriteTimeout,
		maxLine:      s.MaxLine,
	}
}

// lineConn adapts a net.Conn to newline-terminated lines. Reads happen on the
// session's reader goroutine and writes on its writer goroutine.
type lineConn struct {
	c net.Conn
	r *bufio.Reader

	writeTimeout time.Duration
	maxLine      int

	wmu sync.Mutex
}

// ReadLine returns the next line of at most maxLine bytes. Longer lines are
// discarded up to their terminator and reading continues with the next one.
func (l *lineConn) ReadLine() (string, error) {
	var sb strings.Builder
	skipping := false
	for {
		frag, err := l.r.ReadSlice('\n')
		if !skipping && l.maxLine > 0 && sb.Len()+len(frag) > l.maxLine {
			skipping = true
			sb.Reset()
		}
		if !skipping {
			sb.Write(frag)
		}
		switch {
		case err == nil:
			if skipping {
				skipping = false
				continue
			}
			return strings.TrimRight(sb.String(), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return "", err
		}
	}
}

func (l *lineConn) WriteLine(line string) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	if l.writeTimeout > 0 {
		_ = l.c.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	}
	_, err := l.c.Write([]byte(line + "\n"))
	return err
}

func (l *lineConn) SetReadDeadline(t time.Time) error { return l.c.SetReadDeadline(t) }

func (l *lineConn) Close() error { return l.c.Close() }

func (l *lineConn) RemoteAddr() string { return l.c.RemoteAddr().String() }
