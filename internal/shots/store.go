package shots

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimeLayout is the timestamp part of a screenshot file name.
const TimeLayout = "20060102_150405"

// Store writes proof screenshots as <prefix>_YYYYMMDD_HHMMSS.png under Dir.
type Store struct {
	Dir    string
	Prefix string
	now    func() time.Time
}

// NewStore creates a store; the directory is created on first save.
func NewStore(dir, prefix string) *Store {
	if prefix == "" {
		prefix = "qiandao"
	}
	return &Store{Dir: dir, Prefix: prefix, now: time.Now}
}

// Name returns the file name for a capture taken at t.
func (s *Store) Name(t time.Time) string {
	return fmt.Sprintf("%s_%s.png", s.Prefix, t.Format(TimeLayout))
}

// Save encodes img as PNG and returns the written path.
func (s *Store) Save(img image.Image) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	path := filepath.Join(s.Dir, s.Name(s.now()))

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close screenshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename screenshot: %w", err)
	}
	return path, nil
}

// List returns the store's screenshots, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read screenshot dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !s.owns(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(s.Dir, e.Name()))
	}
	// The timestamp layout sorts lexically in time order.
	sort.Strings(out)
	return out, nil
}

// Prune deletes all but the newest keep screenshots. keep <= 0 keeps all.
func (s *Store) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(files) <= keep {
		return 0, nil
	}
	removed := 0
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return removed, fmt.Errorf("remove %s: %w", f, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) owns(name string) bool {
	rest, ok := strings.CutPrefix(name, s.Prefix+"_")
	if !ok {
		return false
	}
	stamp, ok := strings.CutSuffix(rest, ".png")
	if !ok {
		return false
	}
	_, err := time.Parse(TimeLayout, stamp)
	return err == nil
}
