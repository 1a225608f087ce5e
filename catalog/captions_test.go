package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/capability"
)

func TestMatchCaption(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"01-A/01-Intro.mp4":            "video",
		"01-A/02-Next.mp4":             "video",
		"01-A_subtitles/01-Intro.srt":  "caption",
		"01-A_subtitles/03-Unused.srt": "caption without item",
	})
	parent := capability.ForDirectory(root)

	ref, ok := MatchCaption(parent, "01-A", "01-Intro.mp4")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "01-A_subtitles", "01-Intro.srt"), ref)

	// item without a corresponding sidecar file yields no caption
	_, ok = MatchCaption(parent, "01-A", "02-Next.mp4")
	assert.False(t, ok)
}

func TestMatchCaptionMissingSidecarDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"01-A/01-Intro.mp4": "video",
	})

	_, ok := MatchCaption(capability.ForDirectory(root), "01-A", "01-Intro.mp4")
	assert.False(t, ok)
}

func TestMatchCaptionDeterministicTieBreak(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"01-A/01-Intro.mp4":           "video",
		"01-A_subtitles/01-Intro.vtt": "vtt",
		"01-A_subtitles/01-Intro.srt": "srt",
	})

	// lexicographically first candidate wins, regardless of readdir order
	ref, ok := MatchCaption(capability.ForDirectory(root), "01-A", "01-Intro.mp4")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "01-A_subtitles", "01-Intro.srt"), ref)
}

func TestMatchCaptionIgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"01-A/01-Intro.mp4":           "video",
		"01-A_subtitles/01-Intro.txt": "not a caption",
	})

	_, ok := MatchCaption(capability.ForDirectory(root), "01-A", "01-Intro.mp4")
	assert.False(t, ok)
}
