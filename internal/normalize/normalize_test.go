package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/normalize"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare host", "example.com", "https://example.com/", true},
		{"strips www", "https://www.Example.com/Pricing", "https://example.com/Pricing", true},
		{"drops query and fragment", "https://example.com/pricing?ref=1#top", "https://example.com/pricing", true},
		{"collapses duplicate slashes", "https://example.com//a///b", "https://example.com/a/b", true},
		{"empty path becomes slash", "https://example.com", "https://example.com/", true},
		{"rejects ftp", "ftp://example.com", "", false},
		{"rejects empty", "", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := normalize.NormalizeURL(c.in)
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestMatchesDomain(t *testing.T) {
	assert.True(t, normalize.MatchesDomain("https://example.com/pricing", "example.com"))
	assert.True(t, normalize.MatchesDomain("https://app.example.com/pricing", "example.com"))
	assert.False(t, normalize.MatchesDomain("https://notexample.com/pricing", "example.com"))
	assert.False(t, normalize.MatchesDomain("https://example.com/pricing", "other.com"))
}

func TestStripHTMLToText(t *testing.T) {
	html := `<html><head><style>.x{}</style><script>alert(1)</script></head>
	<body><!-- hi --><h1>Pricing&nbsp;&amp;&nbsp;Plans</h1><p>Starter &quot;plan&quot;</p></body></html>`
	got := normalize.StripHTMLToText(html)
	assert.Equal(t, `Pricing & Plans Starter "plan"`, got)
}

func TestContentHashIsDeterministic(t *testing.T) {
	a := normalize.ContentHash("hello world")
	b := normalize.ContentHash("hello world")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestNormalizeHTMLForHashLowercases(t *testing.T) {
	got := normalize.NormalizeHTMLForHash("<H1>PRICING</H1>")
	assert.Equal(t, "pricing", got)
}
