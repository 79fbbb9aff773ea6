package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lanarena.io/internal/game"
	"lanarena.io/internal/persistence/indexdb"
)

type runtimeIndex interface {
	game.EventLogger
	Close() error
	Stats() indexdb.Stats
	Reader() *indexdb.Reader
}

// openRuntimeIndex returns nil when indexing is disabled.
func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ARENA_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "arena.sqlite"))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported ARENA_INDEX_BACKEND: %s", backend)
	}
}
