package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"lanarena.io/internal/game"
)

// SQLiteIndex is a queryable secondary index over the event stream: sessions,
// restarts and finished matches with their ranking. Writes are queued and
// applied by one goroutine in batched transactions.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan game.Event
	wg   sync.WaitGroup
	once sync.Once

	// sendMu orders WriteEvent against close(ch).
	sendMu  sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	applied atomic.Uint64

	commitEvery   int
	commitMaxWait time.Duration
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropTotal     uint64 `json:"drop_total"`
	AppliedTotal  uint64 `json:"applied_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:            db,
		ch:            make(chan game.Event, 4096),
		commitEvery:   256,
		commitMaxWait: time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			remote TEXT NOT NULL,
			joined_at TEXT NOT NULL,
			joined_tick INTEGER NOT NULL,
			left_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_joined ON sessions(joined_at);`,
		`CREATE TABLE IF NOT EXISTS join_rejections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			match_id TEXT NOT NULL,
			name TEXT NOT NULL,
			remote TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS restarts (
			match_id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			tick INTEGER NOT NULL,
			by_player INTEGER NOT NULL,
			by_session TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			ended_at TEXT NOT NULL,
			end_tick INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			winner_id INTEGER NOT NULL,
			players INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ended ON matches(ended_at);`,
		`CREATE TABLE IF NOT EXISTS match_ranking (
			match_id TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			rank INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			score INTEGER NOT NULL,
			PRIMARY KEY (match_id, rank)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEvent queues e for indexing. It never blocks: when the writer falls
// behind the event is dropped and counted. The JSONL log remains the source
// of truth.
func (s *SQLiteIndex) WriteEvent(e game.Event) error {
	if s == nil {
		return nil
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
		AppliedTotal:  s.applied.Load(),
	}
}

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(session_id,match_id,player_id,name,color,remote,joined_at,joined_tick,left_at) VALUES(?,?,?,?,?,?,?,?,NULL)`)
	closeSession, _ := s.db.Prepare(`UPDATE sessions SET left_at=? WHERE session_id=?`)
	insertRejection, _ := s.db.Prepare(`INSERT INTO join_rejections(at,match_id,name,remote) VALUES(?,?,?,?)`)
	insertRestart, _ := s.db.Prepare(`INSERT OR REPLACE INTO restarts(match_id,at,tick,by_player,by_session) VALUES(?,?,?,?,?)`)
	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(match_id,ended_at,end_tick,duration_ms,winner_id,players) VALUES(?,?,?,?,?,?)`)
	insertRank, _ := s.db.Prepare(`INSERT OR REPLACE INTO match_ranking(match_id,rank,player_id,name,score) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertSession, closeSession, insertRejection, insertRestart, insertMatch, insertRank} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	idle := time.NewTicker(s.commitMaxWait)
	defer idle.Stop()

	for {
		var (
			e  game.Event
			ok bool
		)
		select {
		case e, ok = <-s.ch:
			if !ok {
				commit()
				return
			}
		case <-idle.C:
			if tx != nil && time.Since(lastCommit) >= s.commitMaxWait {
				commit()
			}
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		applied := false
		switch e.Kind {
		case game.EventJoin:
			applied = exec(insertSession, e.SessionID, e.MatchID, e.PlayerID, e.Name, e.Color, e.Remote, ts(e.Time), int64(e.Tick))
		case game.EventLeave:
			applied = exec(closeSession, ts(e.Time), e.SessionID)
		case game.EventJoinFull:
			applied = exec(insertRejection, ts(e.Time), e.MatchID, e.Name, e.Remote)
		case game.EventRestart:
			applied = exec(insertRestart, e.MatchID, ts(e.Time), int64(e.Tick), e.PlayerID, e.SessionID)
		case game.EventGameOver:
			applied = exec(insertMatch, e.MatchID, ts(e.Time), int64(e.Tick), e.DurationMS, e.WinnerID, len(e.Ranking))
			for i, r := range e.Ranking {
				if !applied {
					break
				}
				applied = exec(insertRank, e.MatchID, i+1, r.PlayerID, r.Name, r.Score)
			}
		}
		if applied {
			s.applied.Add(1)
		}
		if opCount >= s.commitEvery || time.Since(lastCommit) >= s.commitMaxWait {
			commit()
		}
	}
}
