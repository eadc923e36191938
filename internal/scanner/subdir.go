package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/foxhunt/disdrop/internal/media"
)

// segmentsDirSuffix marks folders produced by the splitting pipeline, e.g.
// "my clip_segments". Stripping it yields the obvious thread title.
const segmentsDirSuffix = "_segments"

// TopLevelMediaSubdirs returns the names of root's immediate
// subdirectories that contain media, in scan order, deduplicated, and
// filtered to directories that still exist. Used to split a mixed upload
// target into one destination per subfolder; join a name back onto root to
// get the directory path.
func (s *Scanner) TopLevelMediaSubdirs(root string) ([]string, error) {
	result, err := s.Scan(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	seen := make(map[string]struct{})
	for _, key := range rootKeysInOrder(result) {
		first, _, _ := strings.Cut(key, "/")
		if first == "." {
			continue
		}
		if _, dup := seen[first]; dup {
			continue
		}
		seen[first] = struct{}{}
		if info, err := os.Stat(filepath.Join(root, first)); err == nil && info.IsDir() {
			dirs = append(dirs, first)
		}
	}
	return dirs, nil
}

// HasRootLevelMedia reports whether any media file lives directly in root
// rather than inside a subfolder.
func (s *Scanner) HasRootLevelMedia(root string) (bool, error) {
	result, err := s.Scan(root)
	if err != nil {
		return false, err
	}
	for _, key := range rootKeysInOrder(result) {
		if first, _, _ := strings.Cut(key, "/"); first == "." {
			return true, nil
		}
	}
	return false, nil
}

// SuggestThreadTitle proposes a display title for dir. A "_segments" suffix
// is stripped outright; otherwise, when most immediate children look like
// segments of one clip, the common root wins. Falls back to the directory
// name. Best effort only: a miss just yields a less pretty title.
func (s *Scanner) SuggestThreadTitle(dir string) string {
	base := filepath.Base(dir)
	if strings.HasSuffix(base, segmentsDirSuffix) && len(base) > len(segmentsDirSuffix) {
		return strings.TrimSuffix(base, segmentsDirSuffix)
	}
	if root, ok := s.inferSegmentBase(dir); ok {
		return root
	}
	return base
}

// inferSegmentBase examines the immediate media children of dir. When at
// least SegmentStemRatio of the stems parse to a segment number and a single
// root accounts for at least DominantRootRatio of those, that root is
// returned.
func (s *Scanner) inferSegmentBase(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	total := 0
	segmented := 0
	rootCounts := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() || !media.IsMedia(e.Name()) {
			continue
		}
		total++
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		root, _, ok := media.NormalizeStem(stem)
		if !ok {
			continue
		}
		segmented++
		rootCounts[root]++
	}
	if total == 0 || float64(segmented)/float64(total) < s.h.SegmentStemRatio {
		return "", false
	}

	bestRoot, bestCount := "", 0
	for root, count := range rootCounts {
		if count > bestCount || (count == bestCount && root < bestRoot) {
			bestRoot, bestCount = root, count
		}
	}
	if bestRoot == "" || float64(bestCount)/float64(segmented) < s.h.DominantRootRatio {
		return "", false
	}
	return bestRoot, true
}

// rootKeysInOrder merges the pair and single root keys back into the
// scanner's bucket-sort order. Pairs and Singles are each already sorted,
// so a two-finger merge restores the combined ordering; a pair wins ties
// against singles at the same key, matching how Scan emits them.
func rootKeysInOrder(result *Result) []string {
	keys := make([]string, 0, len(result.Pairs)+len(result.Singles))
	i, j := 0, 0
	for i < len(result.Pairs) && j < len(result.Singles) {
		if rootKeyLess(result.Singles[j].RootKey, result.Pairs[i].RootKey) {
			keys = append(keys, result.Singles[j].RootKey)
			j++
		} else {
			keys = append(keys, result.Pairs[i].RootKey)
			i++
		}
	}
	for ; i < len(result.Pairs); i++ {
		keys = append(keys, result.Pairs[i].RootKey)
	}
	for ; j < len(result.Singles); j++ {
		keys = append(keys, result.Singles[j].RootKey)
	}
	return keys
}

// rootKeyLess orders root keys the way Scan orders buckets: by directory,
// then by root. The root never contains a separator, so it starts after
// the last slash.
func rootKeyLess(a, b string) bool {
	ad, ar := splitRootKey(a)
	bd, br := splitRootKey(b)
	if ad != bd {
		return ad < bd
	}
	return ar < br
}

func splitRootKey(key string) (dir, root string) {
	i := strings.LastIndex(key, "/")
	return key[:i], key[i+1:]
}
