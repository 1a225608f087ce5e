// Package idhash generates short, deterministic identifiers.
//
// Ids are derived from names, not from inodes or scan order, so an item
// keeps its id across re-scans as long as its path components do not
// change.
package idhash

import (
	"crypto/rand"
	"crypto/sha256"
	"strings"

	"github.com/jxskiss/base62"
)

// Hash returns a base62-encoded id, based upon sha256 of string.
func Hash(s string) string {
	return HashBytes([]byte(s))
}

// HashBytes returns a base62-encoded id, based upon sha256 of bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return base62.StdEncoding.EncodeToString(sum[:16])
}

// HashPath returns the id for a hierarchy of names, e.g. collection name,
// section name, source filename. The separator cannot occur in a single
// path component coming from a filesystem, so distinct hierarchies never
// collide.
func HashPath(names ...string) string {
	return Hash(strings.Join(names, "/"))
}

// NewRandomID generates a random base62-encoded id.
func NewRandomID() string {
	var r [16]byte
	if _, err := rand.Read(r[:]); err != nil {
		panic(err)
	}
	return base62.StdEncoding.EncodeToString(r[:])
}
