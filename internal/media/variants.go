package media

import (
	"regexp"
	"strings"
)

// Filename variant expansion.
//
// Discord's CDN rewrites attachment filenames on upload: spaces become
// underscores, and bracketed hash tags get folded into the name. Two
// filenames are treated as the same artifact when their variant sets
// intersect, which lets dedupe recognize a local "My Clip [ab12].mp4" in a
// channel history that lists "My_Clip_ab12.mp4". The expansion is a fuzzy
// heuristic: it trades missed duplicates for occasional false positives, so
// every match should be surfaced in diagnostics rather than applied silently.
var (
	// bracketEchoRe matches stems like "x [x]suffix" where the bracket
	// content repeats the prefix.
	bracketEchoRe = regexp.MustCompile(`^([^\[\s]+)\s*\[([^\]]+)\](.*)$`)

	// underscoreEchoRe matches stems like "x_x suffix" with equal halves.
	underscoreEchoRe = regexp.MustCompile(`^([^\s_]+)_([^\s_]+)(.*)$`)
)

// FilenameVariants returns the spellings of name that are considered
// equivalent under the CDN's renaming rules. The result always includes the
// lowercased input, contains no duplicates, and preserves a deterministic
// order (original first).
func FilenameVariants(name string) []string {
	lower := strings.ToLower(name)
	stem, ext := splitExt(lower)

	variants := []string{lower}
	seen := map[string]struct{}{lower: {}}
	add := func(s string) {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			variants = append(variants, s)
		}
	}

	stripped := strings.TrimSpace(StripBracketTags(stem))
	add(stripped + ext)

	// "x [x]suffix" <-> "x_x suffix": the CDN folds an echoed bracket tag
	// into an underscore form, and we generate the inverse as well.
	if m := bracketEchoRe.FindStringSubmatch(stem); m != nil && m[1] == m[2] {
		add(m[1] + "_" + m[1] + m[3] + ext)
	}
	if m := underscoreEchoRe.FindStringSubmatch(stem); m != nil && m[1] == m[2] {
		add(m[1] + " [" + m[1] + "]" + m[3] + ext)
	}

	for _, s := range []string{stem, stripped} {
		add(underscored(s) + ext)
		add(strings.ReplaceAll(s, "_", " ") + ext)
	}

	return variants
}

// underscored removes bracket characters and joins the remaining words with
// underscores: "a b [c]" becomes "a_b_c".
func underscored(stem string) string {
	noBrackets := strings.NewReplacer("[", "", "]", "").Replace(stem)
	fields := strings.Fields(noBrackets)
	if len(fields) == 0 {
		return noBrackets
	}
	return strings.Join(fields, "_")
}

// splitExt splits at the final dot. A leading dot or missing dot yields an
// empty extension, matching how hidden files are named.
func splitExt(name string) (stem, ext string) {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name, ""
	}
	return name[:dot], name[dot:]
}
