package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanHTMLText(t *testing.T) {
	html := `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><nav>Home | About</nav><h1>Sintra &amp; Cascais</h1>
<p>Day   trips&nbsp;from Lisbon</p><footer>(c) 2024</footer></body></html>`

	require.Equal(t, "Sintra & Cascais\nDay trips from Lisbon", CleanHTMLText(html))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", 10))
	require.Equal(t, "abc\n[TRUNCATED]", Truncate("abcdef", 3))
	require.Equal(t, "caf\n[TRUNCATED]", Truncate("café", 4))
}

func TestCutAtRune(t *testing.T) {
	require.Equal(t, "short", CutAtRune("short", 10))
	require.Equal(t, "caf", CutAtRune("café", 4))
	require.Equal(t, "café", CutAtRune("café au lait", 5))
}

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, "hotel ritz paris", NormalizeKey("  Hotel   RITZ Paris "))
}
