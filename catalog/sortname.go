package catalog

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// SortKey is the numeric prefix of a source name. Names without a
// prefix sort last.
type SortKey uint64

// SortKeyLast is the key assigned to names without a numeric prefix.
const SortKeyLast SortKey = math.MaxUint64

func (k SortKey) Compare(other SortKey) int {
	return cmp.Compare(k, other)
}

// separators stripped between the numeric prefix and the display name.
const sortSeparators = " .-_()"

// parseSourceName splits a source name such as "03 - Interfaces" into
// its sort key (3), sort label ("03") and display name ("Interfaces").
// Without a leading digit run the whole name is the display name and
// the key sorts last.
func parseSourceName(name string) (key SortKey, label string, displayName string) {
	run := 0
	for run < len(name) && name[run] >= '0' && name[run] <= '9' {
		run++
	}
	if run == 0 {
		return SortKeyLast, "", strings.TrimSpace(name)
	}

	label = name[:run]
	n, err := strconv.ParseUint(label, 10, 64)
	if err != nil {
		// digit run too long for uint64, still sorts before unnumbered
		n = uint64(SortKeyLast) - 1
	}

	displayName = strings.TrimLeftFunc(name[run:], func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(sortSeparators, r)
	})
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		// nothing but the number, keep the original name visible
		displayName = name
	}
	return SortKey(n), label, displayName
}

// stripExtension removes the final extension from a filename.
func stripExtension(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}
