package theme

import "testing"

func TestNewViewportSizing(t *testing.T) {
	t.Parallel()
	vp := Default().NewViewport(40, 12)
	if vp.Width != 40 || vp.Height != 12 {
		t.Errorf("NewViewport(40, 12) = %dx%d, want 40x12", vp.Width, vp.Height)
	}
	if got := vp.Style.GetBorderStyle(); got.Top != "" || got.Left != "" {
		t.Errorf("NewViewport border = %+v, want none", got)
	}
}

func TestIconFallback(t *testing.T) {
	t.Parallel()
	th := New(WithIconSet(IconSet{"video": "V"}))
	if got := th.Icon("video"); got != "V" {
		t.Errorf("Icon(video) = %q, want V", got)
	}
	// Unknown names fall back to the ASCII set, unset names to empty.
	if got := th.Icon("folder"); got != asciiIcons["folder"] {
		t.Errorf("Icon(folder) = %q, want ASCII fallback %q", got, asciiIcons["folder"])
	}
	if got := th.Icon("nope"); got != "" {
		t.Errorf("Icon(nope) = %q, want empty", got)
	}
}
