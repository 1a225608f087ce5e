package catalog

import (
	"path/filepath"
	"slices"
	"strings"

	"lectern/capability"
)

// Caption sidecar convention: captions for section "01-A" live in a
// sibling directory "01-A_subtitles", and match an item by basename
// with the extension stripped.
const sidecarSuffix = "_subtitles"

var captionExtensions = []string{".srt", ".vtt"}

// MatchCaption looks up the sidecar caption file for an item. Absence
// of the sidecar directory or of a matching file is not an error, it
// yields no caption. When several candidates share the basename the
// lexicographically first one wins, which keeps the pick stable across
// filesystems.
func MatchCaption(parent capability.Capability, sectionSourceName, itemSourceName string) (string, bool) {
	sidecar := parent.Child(sectionSourceName+sidecarSuffix, capability.KindDirectory)
	entries, err := sidecar.Entries()
	if err != nil {
		return "", false
	}

	want := stripExtension(itemSourceName)
	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if !slices.Contains(captionExtensions, strings.ToLower(filepath.Ext(name))) {
			continue
		}
		if stripExtension(name) == want {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	slices.Sort(candidates)
	return filepath.Join(sidecar.Path, candidates[0]), true
}
