// Package history keeps a bounded record of finished sign-in runs on disk.
package history

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"qiandao/internal/automation"
)

// DefaultLimit is how many entries are kept.
const DefaultLimit = 200

// Entry is one finished run.
type Entry struct {
	Source string `json:"source"`
	automation.Result
}

// Store is a JSON file of entries, oldest first.
type Store struct {
	path  string
	limit int
	mu    sync.Mutex
}

// NewStore returns a store at path that keeps at most limit entries.
func NewStore(path string, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{path: path, limit: limit}
}

// Path is the backing file.
func (s *Store) Path() string { return s.path }

// Load reads all entries. A missing file is an empty history.
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// 文件损坏时保留一份再从头开始，不影响签到
		bad := s.path + ".bad"
		log.Printf("[history] %s is corrupt (%v), moving it to %s", s.path, err, bad)
		if rerr := os.Rename(s.path, bad); rerr != nil {
			return nil, fmt.Errorf("set aside corrupt history: %w", rerr)
		}
		return []Entry{}, nil
	}
	return entries, nil
}

// Append adds an entry and drops the oldest ones beyond the limit.
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked()
	if err != nil {
		return err
	}
	entries = append(entries, e)
	if over := len(entries) - s.limit; over > 0 {
		entries = entries[over:]
	}
	return s.saveLocked(entries)
}

func (s *Store) saveLocked(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Last returns the newest entry.
func (s *Store) Last() (Entry, bool, error) {
	entries, err := s.Load()
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[len(entries)-1], true, nil
}

// List returns up to n entries, newest first. n <= 0 returns all.
func (s *Store) List(n int) ([]Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// Stats summarises the history.
type Stats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Aborted   int `json:"aborted"`
	Streak    int `json:"streak"` // consecutive successes, newest backwards
}

// Summary computes Stats over all entries.
func (s *Store) Summary() (Stats, error) {
	entries, err := s.Load()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	st.Total = len(entries)
	for _, e := range entries {
		switch {
		case e.Success:
			st.Succeeded++
		case e.Aborted:
			st.Aborted++
			st.Failed++
		default:
			st.Failed++
		}
	}
	for i := len(entries) - 1; i >= 0 && entries[i].Success; i-- {
		st.Streak++
	}
	return st, nil
}
