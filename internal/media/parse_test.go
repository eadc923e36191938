package media

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIsVideo(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"clip.mp4", true},
		{"clip.MP4", true},
		{"clip.webm", true},
		{"clip.mov", true},
		{"clip.mkv", true},
		{"clip.gif", false},
		{"notes.txt", false},
	}
	for _, tc := range tests {
		if got := IsVideo(tc.in); got != tc.want {
			t.Errorf("IsVideo(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsGifAndImage(t *testing.T) {
	t.Parallel()
	if !IsGif("preview.GIF") {
		t.Error("IsGif(preview.GIF) = false, want true")
	}
	if IsGif("photo.png") {
		t.Error("IsGif(photo.png) = true, want false")
	}
	for _, name := range []string{"a.png", "a.jpg", "a.JPEG", "a.webp"} {
		if !IsImage(name) {
			t.Errorf("IsImage(%q) = false, want true", name)
		}
	}
	if IsImage("a.gif") {
		t.Error("IsImage(a.gif) = true, want false")
	}
	if !IsMedia("a.gif") || !IsMedia("a.mp4") || !IsMedia("a.png") {
		t.Error("IsMedia should accept every recognized media extension")
	}
	if IsMedia("a.nfo") {
		t.Error("IsMedia(a.nfo) = true, want false")
	}
}

func TestStripBracketTags(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"clip [a1b2]", "clip"},
		{"clip [x] [y]", "clip"},
		{"clip", "clip"},
		{"[solo]", ""},
		{"a [b] c", "a [b] c"},
	}
	for _, tc := range tests {
		if got := StripBracketTags(tc.in); got != tc.want {
			t.Errorf("StripBracketTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeStem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		root    string
		segment int
		ok      bool
	}{
		{"clip part 2", "clip", 2, true},
		{"clip_seg3", "clip", 3, true},
		{"Clip Segment 12", "Clip", 12, true},
		{"clip (2)", "clip", 2, true},
		{"clip_2", "clip", 2, true},
		{"clip-15", "clip", 15, true},
		{"clip.7", "clip", 7, true},
		{"clip [ab12]_2", "clip [ab12]", 2, true},
		{"clip_2 [ab12]", "clip", 2, true},
		{"clip_0", "clip_0", 0, false},
		{"clip_1000", "clip_1000", 0, false},
		{"clip", "clip", 0, false},
		{"clip 2", "clip 2", 0, false},
		{"  clip_2  ", "clip", 2, true},
	}
	for _, tc := range tests {
		root, segment, ok := NormalizeStem(tc.in)
		if root != tc.root || segment != tc.segment || ok != tc.ok {
			t.Errorf("NormalizeStem(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tc.in, root, segment, ok, tc.root, tc.segment, tc.ok)
		}
	}
}

func TestFilenameVariantsAlwaysIncludesLowercase(t *testing.T) {
	t.Parallel()
	got := FilenameVariants("Simple.mp4")
	if len(got) == 0 || got[0] != "simple.mp4" {
		t.Errorf("FilenameVariants(Simple.mp4) = %v, want lowercased input first", got)
	}
}

func TestFilenameVariantsBracketTag(t *testing.T) {
	t.Parallel()
	got := FilenameVariants("My Clip [ab12].mp4")
	want := []string{"my clip [ab12].mp4", "my clip.mp4", "my_clip_ab12.mp4", "my_clip.mp4"}
	for _, w := range want {
		if !contains(got, w) {
			t.Errorf("FilenameVariants(My Clip [ab12].mp4) missing %q (got %v)", w, got)
		}
	}
}

func TestFilenameVariantsEchoForms(t *testing.T) {
	t.Parallel()
	if got := FilenameVariants("x [x].mp4"); !contains(got, "x_x.mp4") {
		t.Errorf("bracket echo variant missing: %v", got)
	}
	if got := FilenameVariants("x_x.mp4"); !contains(got, "x [x].mp4") {
		t.Errorf("underscore echo variant missing: %v", got)
	}
}

// Matching must be symmetric across the CDN rename: the local spelling and
// the remote spelling have to share at least one variant in either direction.
func TestFilenameVariantsIntersectAcrossRename(t *testing.T) {
	t.Parallel()
	pairs := []struct{ local, remote string }{
		{"My Clip [ab12].mp4", "My_Clip_ab12.mp4"},
		{"My Clip [ab12].mp4", "my clip.mp4"},
		{"spaced name.gif", "spaced_name.gif"},
	}
	for _, tc := range pairs {
		if !intersects(FilenameVariants(tc.local), FilenameVariants(tc.remote)) {
			t.Errorf("variants of %q and %q do not intersect", tc.local, tc.remote)
		}
	}
}

func TestFilenameVariantsNoDuplicates(t *testing.T) {
	t.Parallel()
	got := FilenameVariants("clip_2.mp4")
	seen := map[string]int{}
	for _, v := range got {
		seen[v]++
	}
	for v, n := range seen {
		if n > 1 {
			t.Errorf("variant %q appears %d times in %v", v, n, got)
		}
	}
}

func TestSplitExt(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, stem, ext string }{
		{"clip.mp4", "clip", ".mp4"},
		{"a.b.mp4", "a.b", ".mp4"},
		{"noext", "noext", ""},
		{".hidden", ".hidden", ""},
	}
	for _, tc := range tests {
		stem, ext := splitExt(tc.in)
		if diff := cmp.Diff([2]string{tc.stem, tc.ext}, [2]string{stem, ext}); diff != "" {
			t.Errorf("splitExt(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
