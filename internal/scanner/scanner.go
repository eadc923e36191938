// Package scanner walks a directory tree and groups media files into upload
// units: MP4+GIF pairs that share a name, segmented batches, and singles.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/foxhunt/disdrop/internal/media"
)

// Heuristics holds the tunable thresholds behind grouping decisions. They
// are policy choices rather than discovered laws, so they live here as named
// configuration instead of inline constants.
type Heuristics struct {
	// MinDistinctSegments is how many distinct segment numbers must share a
	// root inside one directory before a numeric suffix is believed to be a
	// segment counter. Below this, a lone "shot_2.mp4" keeps its literal stem.
	MinDistinctSegments int

	// SegmentStemRatio is the fraction of a directory's media stems that must
	// carry a segment number before thread-title inference trusts the folder
	// as a segment dump.
	SegmentStemRatio float64

	// DominantRootRatio is the fraction of those segmented stems the most
	// common root must account for to become the suggested title.
	DominantRootRatio float64
}

// DefaultHeuristics returns the thresholds used in production.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		MinDistinctSegments: 2,
		SegmentStemRatio:    0.7,
		DominantRootRatio:   0.7,
	}
}

// PairItem is an MP4 and its GIF preview sharing one bucket.
type PairItem struct {
	RootKey string
	MP4Path string
	GIFPath string
}

// SingleItem is any media file that did not complete a pair.
type SingleItem struct {
	RootKey string
	Path    string
}

// Result is the immutable outcome of one scan. Derived results (after
// dedupe filtering) are new values, never in-place mutations.
type Result struct {
	Pairs   []PairItem
	Singles []SingleItem
}

// Scanner groups media files under a root directory according to its
// heuristics. The zero value is not usable; construct with New.
type Scanner struct {
	h Heuristics
}

// New returns a Scanner with the given heuristics.
func New(h Heuristics) *Scanner {
	return &Scanner{h: h}
}

// Default returns a Scanner with DefaultHeuristics.
func Default() *Scanner {
	return New(DefaultHeuristics())
}

// bucketKey identifies one grouping unit. A segment of 0 means the file is
// not part of a segmented group.
type bucketKey struct {
	dir     string
	root    string
	segment int
}

type fileEntry struct {
	path string
	dir  string // POSIX-style relative parent, "." for the scan root
	stem string
	ext  string // lowercased, including dot
}

// Scan recursively enumerates media files under root and buckets them by
// (directory, normalized root, segment number). A bucket holding exactly one
// .mp4 and one .gif becomes a PairItem; every other file is a SingleItem.
// Scanning a static tree is deterministic: pairs and singles come back
// sorted by (directory, root, segmented-last, segment ascending).
func (s *Scanner) Scan(root string) (*Result, error) {
	return s.scan(root, false)
}

// ScanTop is Scan restricted to media sitting directly in root, ignoring
// subdirectories.
func (s *Scanner) ScanTop(root string) (*Result, error) {
	return s.scan(root, true)
}

func (s *Scanner) scan(root string, topOnly bool) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	entries, err := collectMediaFiles(root)
	if err != nil {
		return nil, err
	}
	if topOnly {
		kept := entries[:0]
		for _, e := range entries {
			if e.dir == "." {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	// Count distinct segment numbers per (dir, root) so a numeric suffix is
	// only honored when the directory really holds sibling segments.
	segmentVotes := make(map[bucketKey]map[int]struct{})
	for _, e := range entries {
		fileRoot, segment, ok := media.NormalizeStem(e.stem)
		if !ok {
			continue
		}
		k := bucketKey{dir: e.dir, root: strings.ToLower(fileRoot)}
		if segmentVotes[k] == nil {
			segmentVotes[k] = make(map[int]struct{})
		}
		segmentVotes[k][segment] = struct{}{}
	}

	buckets := make(map[bucketKey]map[string]string)
	for _, e := range entries {
		key := bucketKey{dir: e.dir, root: strings.ToLower(e.stem)}
		if fileRoot, segment, ok := media.NormalizeStem(e.stem); ok {
			rootKey := bucketKey{dir: e.dir, root: strings.ToLower(fileRoot)}
			if len(segmentVotes[rootKey]) >= s.h.MinDistinctSegments {
				key = bucketKey{dir: e.dir, root: rootKey.root, segment: segment}
			}
		}
		if buckets[key] == nil {
			buckets[key] = make(map[string]string)
		}
		buckets[key][e.ext] = e.path
	}

	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.dir != b.dir {
			return a.dir < b.dir
		}
		if a.root != b.root {
			return a.root < b.root
		}
		// Non-segmented buckets sort before segmented ones at the same root.
		return a.segment < b.segment
	})

	result := &Result{}
	for _, k := range keys {
		files := buckets[k]
		rootKey := k.dir + "/" + k.root
		mp4, hasMP4 := files[".mp4"]
		gif, hasGIF := files[".gif"]
		if hasMP4 && hasGIF {
			result.Pairs = append(result.Pairs, PairItem{RootKey: rootKey, MP4Path: mp4, GIFPath: gif})
			delete(files, ".mp4")
			delete(files, ".gif")
		}
		exts := make([]string, 0, len(files))
		for ext := range files {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			result.Singles = append(result.Singles, SingleItem{RootKey: rootKey, Path: files[ext]})
		}
	}
	return result, nil
}

// collectMediaFiles walks root and returns every media file found. Entries
// that cannot be read are skipped; the walk itself only fails for the root.
func collectMediaFiles(root string) ([]fileEntry, error) {
	var entries []fileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil // unreadable entry, keep walking
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !media.IsMedia(name) {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		entries = append(entries, fileEntry{
			path: path,
			dir:  filepath.ToSlash(rel),
			stem: strings.TrimSuffix(name, filepath.Ext(name)),
			ext:  ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return entries, nil
}
