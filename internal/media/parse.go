package media

import (
	"regexp"
	"strconv"
	"strings"
)

// Filename parsing utilities.
//
// This file consolidates the regular expressions and helpers used to detect
// segmented filenames (multi-part clips split for upload size limits) and to
// classify files by media extension. Parsing is kept deliberately tolerant:
// we accept several community naming conventions for segment numbering and
// derive a normalized root so related files group together.
var (
	// videoRe matches video file extensions used to include media files.
	videoRe = regexp.MustCompile(`(?i)\.(mp4|webm|mov|mkv)$`)

	// gifRe matches the GIF extension, kept separate from other images
	// because pairing logic treats GIFs as the preview half of a pair.
	gifRe = regexp.MustCompile(`(?i)\.gif$`)

	// imageRe matches still image file extensions.
	imageRe = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|webp)$`)

	// bracketTailRe matches one trailing bracketed tag, e.g. " [a1b2c3]".
	// Tags are stripped iteratively so "clip [x] [y]" reduces to "clip".
	bracketTailRe = regexp.MustCompile(`\s*\[[^\]]+\]\s*$`)

	// segmentPatterns are tried in order; the first match wins. Each pattern
	// anchors the whole stem and captures (root, number).
	segmentPatterns = []*regexp.Regexp{
		// Explicit markers: "clip part 2", "clip_seg2", "clip segment 02".
		regexp.MustCompile(`(?i)^(.*?)[\._\-\s]?(?:part|seg|segment)[\._\-\s]*(\d{1,3})$`),
		// Parenthesized counters: "clip (2)".
		regexp.MustCompile(`^(.*?)\s*\((\d{1,3})\)$`),
		// Bare numeric suffix after a separator: "clip_2", "clip-2", "clip.2".
		regexp.MustCompile(`^(.*?)[\._\-](\d{1,3})$`),
	}
)

// MaxSegment bounds the segment numbers we accept. Larger captures are
// treated as part of the name rather than a counter.
const MaxSegment = 999

// IsVideo reports whether filename has a recognized video extension.
func IsVideo(filename string) bool {
	return videoRe.MatchString(filename)
}

// IsGif reports whether filename has a GIF extension.
func IsGif(filename string) bool {
	return gifRe.MatchString(filename)
}

// IsImage reports whether filename has a recognized still image extension.
func IsImage(filename string) bool {
	return imageRe.MatchString(filename)
}

// IsMedia reports whether filename has any recognized media extension.
func IsMedia(filename string) bool {
	return IsVideo(filename) || IsGif(filename) || IsImage(filename)
}

// StripBracketTags removes every trailing bracketed token from stem.
// CDN-style hash suffixes ("clip [a1b2]") collapse back to the base name.
func StripBracketTags(stem string) string {
	for {
		stripped := bracketTailRe.ReplaceAllString(stem, "")
		if stripped == stem {
			return stem
		}
		stem = stripped
	}
}

// NormalizeStem splits a filename stem into a root name and a segment
// number. Trailing bracketed tags are ignored for the purpose of segment
// detection; when a pattern matches the stripped form, the returned root is
// derived from it. When no pattern matches (or the captured number falls
// outside [1, MaxSegment]), the stem itself is the root and ok is false.
func NormalizeStem(stem string) (root string, segment int, ok bool) {
	stem = strings.TrimSpace(stem)
	candidate := StripBracketTags(stem)
	for _, pat := range segmentPatterns {
		m := pat.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 || n > MaxSegment {
			continue
		}
		return strings.Trim(m[1], " .-_"), n, true
	}
	return stem, 0, false
}
