package catalog

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/djherbis/times"

	"lectern/capability"
)

// RawItem is a media file candidate found by the walker.
type RawItem struct {
	SourceName string
	Capability capability.Capability
	SizeBytes  int64
	// AddedAt is the file birth time, unix seconds.
	AddedAt int64
}

// RawSection is a section candidate found by the walker. Items is a
// lazy, single-pass sequence; re-enumeration starts over from the
// capability.
type RawSection struct {
	SourceName string
	Capability capability.Capability
	Items      iter.Seq[RawItem]
}

// DefaultMediaExtensions are the recognized media file extensions.
var DefaultMediaExtensions = []string{
	".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi", ".divx",
}

// Walker enumerates a directory capability to a fixed depth: direct
// subdirectories of the root are sections, recognized media files
// inside a section are items. Which extensions count as media is
// configuration, not logic.
type Walker struct {
	mediaExts map[string]bool
}

func NewWalker(extensions []string) *Walker {
	if len(extensions) == 0 {
		extensions = DefaultMediaExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Walker{mediaExts: exts}
}

// Walk yields the section candidates under the root capability, in
// filesystem order. Files at the root and caption sidecar directories
// are skipped. The sequence is finite and single-pass.
func (w *Walker) Walk(root capability.Capability) (iter.Seq[RawSection], error) {
	entries, err := root.Entries()
	if err != nil {
		return nil, err
	}

	return func(yield func(RawSection) bool) {
		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			if strings.HasSuffix(name, sidecarSuffix) {
				continue
			}
			section := RawSection{
				SourceName: name,
				Capability: root.Child(name, capability.KindDirectory),
			}
			section.Items = w.items(section.Capability)
			if !yield(section) {
				return
			}
		}
	}, nil
}

// items yields the media files directly inside a section capability.
func (w *Walker) items(dir capability.Capability) iter.Seq[RawItem] {
	return func(yield func(RawItem) bool) {
		entries, err := dir.Entries()
		if err != nil {
			// unreadable section, no items; the builder drops it
			return
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			if !w.mediaExts[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			fi, err := entry.Info()
			if err != nil {
				continue
			}
			item := RawItem{
				SourceName: name,
				Capability: dir.Child(name, capability.KindFile),
				SizeBytes:  fi.Size(),
				AddedAt:    fi.ModTime().Unix(),
			}
			if ts := times.Get(fi); ts.HasBirthTime() {
				item.AddedAt = ts.BirthTime().Unix()
			}
			if !yield(item) {
				return
			}
		}
	}
}
