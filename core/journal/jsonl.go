package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLStore writes one JSON object per line with size based rotation.
type JSONLStore struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
}

// NewJSONLStore creates a store with rotation options in megabytes and days.
func NewJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &JSONLStore{writer: lj, path: path}, nil
}

// Append writes the entry and triggers rotation if needed.
func (s *JSONLStore) Append(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(append(b, '\n'))
	return err
}

// Query scans the active file and its rotated backups.
func (s *JSONLStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	base := s.path[:len(s.path)-len(ext)]
	files, err := filepath.Glob(base + "*" + ext)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				continue
			}
			if q.Match(e) {
				out = append(out, e)
			}
		}
		_ = file.Close()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return q.truncate(out), nil
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
