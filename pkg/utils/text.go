package utils

import (
	"regexp"
	"strings"
)

var (
	reScript      = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle       = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reBoilerplate = regexp.MustCompile(`(?is)<(nav|header|footer)[^>]*>.*?</(nav|header|footer)>`)
	reTags        = regexp.MustCompile(`<[^>]*>`)
	reSpaces      = regexp.MustCompile(`[ \t]+`)
)

// CleanHTMLText strips scripts, styles, page chrome and tags, decodes common
// entities and collapses whitespace.
func CleanHTMLText(html string) string {
	s := reScript.ReplaceAllString(html, "")
	s = reStyle.ReplaceAllString(s, "")
	s = reBoilerplate.ReplaceAllString(s, "")
	s = reTags.ReplaceAllString(s, " ")

	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&#39;", "'",
		"&quot;", "\"",
	).Replace(s)

	s = reSpaces.ReplaceAllString(s, " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

// Truncate cuts s to at most max bytes on a rune boundary and marks the cut
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return CutAtRune(s, max) + "\n[TRUNCATED]"
}

// CutAtRune returns the longest prefix of s that fits in max bytes without
// splitting a rune
func CutAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// NormalizeKey lowercases and trims s for use in cache keys
func NormalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
