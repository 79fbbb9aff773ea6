package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"lanarena.io/internal/game"
)

// EventFiles lists the event log files under dir in chronological order.
func EventFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	// The hour stamp sorts lexically.
	sort.Strings(paths)
	return paths, nil
}

// ReadEvents decodes every event in one log file, calling fn in file order.
// A non-nil error from fn stops the scan and is returned as is.
func ReadEvents(path string, fn func(game.Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e game.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		// The current hour's frame is unterminated while the server runs.
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadDir is ReadEvents over every file EventFiles returns.
func ReadDir(dir string, fn func(game.Event) error) error {
	paths, err := EventFiles(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ReadEvents(p, fn); err != nil {
			return err
		}
	}
	return nil
}
