package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSourceName(t *testing.T) {
	tests := []struct {
		name        string
		key         SortKey
		label       string
		displayName string
	}{
		{"01-Introduction", 1, "01", "Introduction"},
		{"02 - Getting Started", 2, "02", "Getting Started"},
		{"3.Advanced Topics", 3, "3", "Advanced Topics"},
		{"10_Closing_Words", 10, "10", "Closing_Words"},
		{"007", 7, "007", "007"},
		{"Appendix", SortKeyLast, "", "Appendix"},
		{"  Extras  ", SortKeyLast, "", "Extras"},
	}

	for _, tc := range tests {
		key, label, displayName := parseSourceName(tc.name)
		assert.Equal(t, tc.key, key, tc.name)
		assert.Equal(t, tc.label, label, tc.name)
		assert.Equal(t, tc.displayName, displayName, tc.name)
	}
}

func TestParseSourceNameStripsLeadingRun(t *testing.T) {
	// the display name never contains the stripped digit run
	for _, name := range []string{"01-Intro", "42 Intro", "9._Intro"} {
		_, label, displayName := parseSourceName(name)
		assert.NotContains(t, displayName, label)
		assert.Equal(t, "Intro", displayName)
	}
}

func TestParseSourceNameOrdering(t *testing.T) {
	a, _, _ := parseSourceName("01-A")
	b, _, _ := parseSourceName("02-B")
	unnumbered, _, _ := parseSourceName("Extras")

	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(unnumbered))
	assert.Zero(t, a.Compare(a))
}

func TestStripExtension(t *testing.T) {
	assert.Equal(t, "01-Intro", stripExtension("01-Intro.mp4"))
	assert.Equal(t, "archive.tar", stripExtension("archive.tar.gz"))
	assert.Equal(t, "noext", stripExtension("noext"))
	assert.Equal(t, ".hidden", stripExtension(".hidden"))
}
