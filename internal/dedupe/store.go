package dedupe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	csmap "github.com/mhmtszr/concurrent-swiss-map"
)

// Store persists the filenames uploaded to each channel across runs, so a
// re-run can skip files the channel history no longer shows (old messages
// fall outside the fetch window). Lookups are safe from concurrent upload
// workers; Save is explicit and best effort.
type Store struct {
	path string
	seen *csmap.CsMap[string, struct{}]

	mu    sync.Mutex
	dirty bool
}

func storeKey(channelID, name string) string {
	return channelID + "\x00" + strings.ToLower(name)
}

// LoadStore reads the store file at path. A missing or unparsable file
// yields an empty store rather than an error: losing the seen list only
// costs redundant dedupe work, never correctness.
func LoadStore(path string) *Store {
	s := &Store{path: path, seen: csmap.Create[string, struct{}]()}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var channels map[string][]string
	if err := json.Unmarshal(data, &channels); err != nil {
		return s
	}
	for channelID, names := range channels {
		for _, name := range names {
			s.seen.Store(storeKey(channelID, name), struct{}{})
		}
	}
	return s
}

// Contains reports whether name was recorded as uploaded to channelID.
func (s *Store) Contains(channelID, name string) bool {
	return s.seen.Has(storeKey(channelID, name))
}

// Add records names as uploaded to channelID.
func (s *Store) Add(channelID string, names ...string) {
	for _, name := range names {
		s.seen.Store(storeKey(channelID, name), struct{}{})
	}
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Names returns the recorded filenames for channelID, sorted.
func (s *Store) Names(channelID string) []string {
	prefix := channelID + "\x00"
	var names []string
	s.seen.Range(func(key string, _ struct{}) bool {
		if rest, ok := strings.CutPrefix(key, prefix); ok {
			names = append(names, rest)
		}
		return false
	})
	sort.Strings(names)
	return names
}

// Save writes the store back to disk when anything changed. The write goes
// through a temp file so a crash cannot truncate the previous copy.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}

	channels := make(map[string][]string)
	s.seen.Range(func(key string, _ struct{}) bool {
		channelID, name, ok := strings.Cut(key, "\x00")
		if ok {
			channels[channelID] = append(channels[channelID], name)
		}
		return false
	})
	for _, names := range channels {
		sort.Strings(names)
	}

	data, err := json.MarshalIndent(channels, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
