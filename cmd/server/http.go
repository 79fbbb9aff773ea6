package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"lanarena.io/internal/game"
	"lanarena.io/internal/persistence/indexdb"
	"lanarena.io/internal/transport/observer"
	"lanarena.io/internal/transport/ws"
)

type httpOptions struct {
	EnableAdmin bool
	EnablePprof bool
}

func newMux(gs *game.Server, idx runtimeIndex, opts httpOptions, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, gs.Metrics(), idx)
	})

	if opts.EnableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				Metrics game.Metrics    `json:"metrics"`
				State   game.StateView `json:"state"`
			}{
				Metrics: gs.Metrics(),
				State:   gs.State(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/restart", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			gs.Restart()
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "match_id": gs.State().MatchID})
		})
		mux.HandleFunc("/admin/v1/matches", func(rw http.ResponseWriter, r *http.Request) {
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if idx == nil {
				http.Error(rw, "index disabled", http.StatusServiceUnavailable)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			matches, err := idx.Reader().RecentMatches(r.Context(), limit)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			if matches == nil {
				matches = []indexdb.MatchRow{}
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"matches": matches})
		})

		obsSrv := observer.NewServer(gs, logger)
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (ARENA_ENABLE_ADMIN_HTTP=false)")
	}
	if opts.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (ARENA_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(gs, logger).Handler())
	return mux
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, m game.Metrics, idx runtimeIndex) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		fmt.Fprintf(rw, "%s %d\n", name, v)
	}

	gauge("arena_tick", "Current arena tick.", m.Tick)
	playing := 0
	if m.Phase == "PLAYING" {
		playing = 1
	}
	gauge("arena_playing", "1 while a match is in progress, 0 after game over.", playing)
	gauge("arena_players", "Connected players.", m.Players)
	gauge("arena_capacity", "Maximum simultaneous players.", m.Capacity)
	gauge("arena_observers", "Connected read-only observers.", m.Observers)
	gauge("arena_pickups", "Pickups currently on the field.", m.Pickups)
	gauge("arena_obstacles", "Obstacles currently on the field.", m.Obstacles)
	fmt.Fprintf(rw, "# HELP arena_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE arena_step_ms gauge\n")
	fmt.Fprintf(rw, "arena_step_ms %.3f\n", m.StepMS)

	counter("arena_broadcasts_total", "State broadcasts sent.", m.BroadcastsTotal)
	counter("arena_joins_total", "Accepted joins.", m.JoinsTotal)
	counter("arena_joins_rejected_total", "Joins rejected because the arena was full.", m.JoinsRejectedTotal)
	counter("arena_restarts_total", "Arena restarts.", m.RestartsTotal)
	counter("arena_game_overs_total", "Matches that ended with a winner.", m.GameOversTotal)

	if idx == nil {
		return
	}
	st := idx.Stats()
	gauge("arena_index_queue_depth", "Index writer backlog.", st.QueueDepth)
	counter("arena_index_dropped_total", "Events dropped by the index writer.", st.DropTotal)
}
