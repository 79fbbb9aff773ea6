package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"testing"
	"time"

	"lanarena.io/internal/game"
	"lanarena.io/internal/sim/tuning"
)

func startServer(t *testing.T) (*game.Server, string, context.CancelFunc, <-chan error) {
	t.Helper()
	gs := game.New(game.ConfigFromTuning(tuning.Defaults(), 7), log.New(io.Discard, "", 0))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- NewServer(gs, log.New(io.Discard, "", 0)).Serve(ctx, ln) }()
	t.Cleanup(cancel)
	return gs, ln.Addr().String(), cancel, errCh
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, bufio.NewReader(c)
}

func readLine(t *testing.T, c net.Conn, r *bufio.Reader) string {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	l, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimRight(l, "\r\n")
}

func TestJoinOverTCP(t *testing.T) {
	gs, addr, _, _ := startServer(t)
	c, r := dial(t, addr)

	if _, err := c.Write([]byte("JOIN|tcp-player\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if l := readLine(t, c, r); l != "JOIN_OK|0|Red" {
		t.Fatalf("got %q", l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = gs.Run(ctx) }()
	if l := readLine(t, c, r); !strings.HasPrefix(l, "STATE|PLAYING|P:0:200:200:0:tcp-player:Red") {
		t.Fatalf("first state=%q", l)
	}
}

func TestDisconnectFreesSlot(t *testing.T) {
	gs, addr, _, _ := startServer(t)
	c, r := dial(t, addr)
	_, _ = c.Write([]byte("JOIN|a\n"))
	readLine(t, c, r)
	_ = c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(gs.State().Players) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("player not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOverlongLineDropped(t *testing.T) {
	gs, addr, _, _ := startServer(t)
	c, r := dial(t, addr)
	_, _ = c.Write([]byte("JOIN|" + strings.Repeat("x", 8*1024) + "\nJOIN|short\n"))
	if l := readLine(t, c, r); l != "JOIN_OK|0|Red" {
		t.Fatalf("got %q", l)
	}
	if st := gs.State(); len(st.Players) != 1 || st.Players[0].Name != "short" {
		t.Fatalf("players=%+v", st.Players)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	_, addr, cancel, errCh := startServer(t)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not stop")
	}
	if c, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		_ = c.Close()
		t.Fatalf("listener still accepting")
	}
}
