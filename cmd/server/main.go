package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lanarena.io/internal/game"
	persistlog "lanarena.io/internal/persistence/log"
	"lanarena.io/internal/sim/tuning"
	"lanarena.io/internal/transport/tcp"
)

func main() {
	var (
		addr       = flag.String("addr", ":5000", "tcp game listen address")
		httpAddr   = flag.String("http", ":8080", "http listen address (websocket, metrics, admin; empty to disable)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (defaults apply when missing)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		envFile    = flag.String("env", ".env", "optional dotenv file")
		seed       = flag.Int64("seed", 0, "rng seed (0: time based)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite match index")
		disableLog = flag.Bool("disable_event_log", false, "disable the compressed event log")
		logRotate  = flag.Duration("event_log_rotate", time.Hour, "event log segment length (whole hours)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load %s: %v", *envFile, err)
		}
	}

	tune, fromFile, err := tuning.LoadOrDefaults(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if !fromFile {
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	gs := game.New(game.ConfigFromTuning(tune, *seed), logger)

	var sinks game.MultiEventLogger
	if !*disableLog {
		evLog := persistlog.NewEventLogger(*dataDir, persistlog.WithRotation(*logRotate))
		defer evLog.Close()
		sinks = append(sinks, evLog)
	}
	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		sinks = append(sinks, idx)
	}
	if len(sinks) > 0 {
		gs.SetEventLogger(sinks)
	}

	ctx, cancel := signalContext()
	defer cancel()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen %s: %v", *addr, err)
	}
	tcpDone := make(chan struct{})
	go func() {
		defer close(tcpDone)
		if err := tcp.NewServer(gs, logger).Serve(ctx, ln); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("tcp stopped: %v", err)
			cancel()
		}
	}()
	logger.Printf("game listening on %s (capacity=%d tick=%s broadcast=%s)", ln.Addr(), tune.Capacity(), tune.TickInterval(), tune.BroadcastInterval())

	var srv *http.Server
	if *httpAddr != "" {
		opts := httpOptions{
			EnableAdmin: envBool("ARENA_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
			EnablePprof: envBool("ARENA_ENABLE_PPROF_HTTP", false),
		}
		srv = newHTTPServer(*httpAddr, newMux(gs, idx, opts, logger))
		go func() {
			logger.Printf("http listening on %s", *httpAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("ListenAndServe: %v", err)
				cancel()
			}
		}()
	}

	if err := gs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("arena stopped: %v", err)
	}

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	<-tcpDone
	gs.CloseAll()
	if err := gs.Drain(shutdownCtx); err != nil {
		logger.Printf("sessions still open at exit: %v", err)
	}
	logger.Printf("bye")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
