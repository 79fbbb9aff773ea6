package observer

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeSource struct {
	mu      sync.Mutex
	ch      chan string
	removed bool
}

func (f *fakeSource) Subscribe(buffer int) (<-chan string, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = make(chan string, buffer)
	f.ch <- "STATE|PLAYING||||"
	return f.ch, func() {
		f.mu.Lock()
		f.removed = true
		f.mu.Unlock()
	}
}

func (f *fakeSource) isRemoved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5555":   true,
		"[::1]:80":         true,
		"::1":              true,
		"192.168.1.20:900": false,
		"example.com:80":   false,
		"":                 false,
	}
	for in, want := range cases {
		if got := IsLoopbackRemote(in); got != want {
			t.Fatalf("IsLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestStreamsLines(t *testing.T) {
	src := &fakeSource{}
	srv := httptest.NewServer(NewServer(src, log.New(io.Discard, "", 0)).WSHandler())
	defer srv.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.ReadMessage()
	if err != nil || string(msg) != "STATE|PLAYING||||" {
		t.Fatalf("first frame=%q err=%v", msg, err)
	}

	src.mu.Lock()
	src.ch <- "GAME_OVER|0|a:15"
	src.mu.Unlock()
	_, msg, err = c.ReadMessage()
	if err != nil || string(msg) != "GAME_OVER|0|a:15" {
		t.Fatalf("second frame=%q err=%v", msg, err)
	}

	_ = c.Close()
	deadline := time.Now().Add(2 * time.Second)
	for !src.isRemoved() {
		if time.Now().After(deadline) {
			t.Fatalf("observer not unsubscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRejectsNonLoopback(t *testing.T) {
	h := NewServer(&fakeSource{}, log.New(io.Discard, "", 0)).WSHandler()
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/observer/ws", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	rw := httptest.NewRecorder()
	h(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("code=%d want 403", rw.Code)
	}
}
