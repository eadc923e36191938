// Package dedupe decides which scanned media files are already present in a
// Discord channel and removes them from the upload plan. Matching goes
// through filename variant expansion because the CDN rewrites names on
// upload, so a plain set lookup would miss most duplicates.
package dedupe

import (
	"path/filepath"
	"sort"

	"github.com/foxhunt/disdrop/internal/media"
	"github.com/foxhunt/disdrop/internal/scanner"
)

// Catalog is the variant-expanded set of filenames already posted to a
// channel. Build one with NewCatalog and reuse it across Filter and Diagnose
// so both answer from the same expansion.
type Catalog struct {
	variants map[string]struct{}
	size     int
}

// NewCatalog expands every remote filename into its variant set. The
// catalog remembers how many names it was built from for reporting.
func NewCatalog(names []string) *Catalog {
	c := &Catalog{variants: make(map[string]struct{}, len(names)), size: len(names)}
	for _, name := range names {
		for _, v := range media.FilenameVariants(name) {
			c.variants[v] = struct{}{}
		}
	}
	return c
}

// Empty reports whether the catalog was built from zero names.
func (c *Catalog) Empty() bool {
	return c == nil || c.size == 0
}

// Size returns the number of remote filenames the catalog was built from.
func (c *Catalog) Size() int {
	if c == nil {
		return 0
	}
	return c.size
}

// Variants returns the catalog's expanded variant set, sorted.
func (c *Catalog) Variants() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.variants))
	for v := range c.variants {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Matches reports whether any variant of path's base name appears in the
// catalog's expanded set.
func (c *Catalog) Matches(path string) bool {
	if c.Empty() {
		return false
	}
	for _, v := range media.FilenameVariants(filepath.Base(path)) {
		if _, ok := c.variants[v]; ok {
			return true
		}
	}
	return false
}

// Filter returns a new Result with every file already present in the
// catalog removed. A pair whose halves both match is dropped whole; a pair
// with one matched half keeps the other half as a single under the pair's
// root key. Filtering an already-filtered result is a no-op, as is an empty
// catalog.
func Filter(result *scanner.Result, c *Catalog) *scanner.Result {
	if c.Empty() {
		out := &scanner.Result{}
		out.Pairs = append(out.Pairs, result.Pairs...)
		out.Singles = append(out.Singles, result.Singles...)
		return out
	}

	out := &scanner.Result{}
	var demoted []scanner.SingleItem
	for _, p := range result.Pairs {
		mp4Seen := c.Matches(p.MP4Path)
		gifSeen := c.Matches(p.GIFPath)
		switch {
		case mp4Seen && gifSeen:
			// both halves already posted
		case mp4Seen:
			demoted = append(demoted, scanner.SingleItem{RootKey: p.RootKey, Path: p.GIFPath})
		case gifSeen:
			demoted = append(demoted, scanner.SingleItem{RootKey: p.RootKey, Path: p.MP4Path})
		default:
			out.Pairs = append(out.Pairs, p)
		}
	}
	for _, s := range result.Singles {
		if !c.Matches(s.Path) {
			out.Singles = append(out.Singles, s)
		}
	}
	out.Singles = append(out.Singles, demoted...)
	return out
}

// FileReport records the dedupe verdict for one local file.
type FileReport struct {
	Path    string
	Matched bool
}

// Diagnostics summarizes what Filter would do without doing it. The reports
// cover every file in the result, pairs first, in scan order. The variant
// slices expose both sides of the comparison: every variant the planned
// files expand to, and every variant built from the channel history.
type Diagnostics struct {
	CatalogSize      int
	Reports          []FileReport
	PlannedVariants  []string
	ExistingVariants []string
	Hits             int
	Duplicates       []string
	DroppedPairs     int
	DemotedHalves    int
	DroppedSingles   int
}

// Diagnose evaluates every file in result against the catalog. The verdicts
// use the same Matches calls as Filter, so the counters here predict the
// filtered result exactly.
func Diagnose(result *scanner.Result, c *Catalog) Diagnostics {
	d := Diagnostics{CatalogSize: c.Size(), ExistingVariants: c.Variants()}
	planned := make(map[string]struct{})
	dupes := make(map[string]struct{})
	record := func(path string, matched bool) {
		d.Reports = append(d.Reports, FileReport{Path: path, Matched: matched})
		base := filepath.Base(path)
		for _, v := range media.FilenameVariants(base) {
			planned[v] = struct{}{}
		}
		if matched {
			dupes[base] = struct{}{}
		}
	}

	for _, p := range result.Pairs {
		mp4Seen := c.Matches(p.MP4Path)
		gifSeen := c.Matches(p.GIFPath)
		record(p.MP4Path, mp4Seen)
		record(p.GIFPath, gifSeen)
		switch {
		case mp4Seen && gifSeen:
			d.DroppedPairs++
		case mp4Seen || gifSeen:
			d.DemotedHalves++
		}
	}
	for _, s := range result.Singles {
		matched := c.Matches(s.Path)
		record(s.Path, matched)
		if matched {
			d.DroppedSingles++
		}
	}

	d.PlannedVariants = sortedKeys(planned)
	d.Duplicates = sortedKeys(dupes)
	existing := make(map[string]struct{}, len(d.ExistingVariants))
	for _, v := range d.ExistingVariants {
		existing[v] = struct{}{}
	}
	for _, v := range d.PlannedVariants {
		if _, ok := existing[v]; ok {
			d.Hits++
		}
	}
	return d
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
