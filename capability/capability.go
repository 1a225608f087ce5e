// Package capability models revocable, permission-scoped references to
// the directories and files a user has granted access to. Capabilities
// are persisted per collection and re-validated, not re-created, on
// every session start.
package capability

import (
	"errors"
	"os"
	"path/filepath"

	"lectern/database"
	"lectern/idhash"
)

var (
	// ErrDenied is returned when the user declined or revoked access.
	ErrDenied = errors.New("directory access denied")
	// ErrAbandoned is returned when the user dismissed the consent
	// prompt without deciding. Distinct from ErrDenied: callers treat
	// it as a silent no-op, not an error to surface.
	ErrAbandoned = errors.New("directory access prompt dismissed")
)

type State string

const (
	StateGranted State = "granted"
	StateDenied  State = "denied"
	StatePrompt  State = "prompt"
)

type Kind string

const (
	KindDirectory Kind = "directory"
	KindFile      Kind = "file"
)

// Capability is a handle granting read access to one directory subtree
// or file.
type Capability struct {
	ID    string
	Path  string
	Kind  Kind
	State State
}

// ForDirectory creates a fresh, not yet validated capability for a
// directory picked by the user.
func ForDirectory(path string) Capability {
	return Capability{
		ID:    idhash.NewRandomID(),
		Path:  filepath.Clean(path),
		Kind:  KindDirectory,
		State: StatePrompt,
	}
}

// Child derives a capability for a named child of a directory
// capability.
func (c Capability) Child(name string, kind Kind) Capability {
	return Capability{
		ID:    idhash.HashPath(c.ID, name),
		Path:  filepath.Join(c.Path, name),
		Kind:  kind,
		State: c.State,
	}
}

// Entries enumerates the direct children of a directory capability.
// Order is filesystem-defined, callers sort themselves.
func (c Capability) Entries() ([]os.DirEntry, error) {
	return os.ReadDir(c.Path)
}

// Name returns the source name of the directory or file the capability
// points at.
func (c Capability) Name() string {
	return filepath.Base(c.Path)
}

// accessible probes whether the subtree can currently be read.
func (c Capability) accessible() bool {
	fi, err := os.Stat(c.Path)
	if err != nil {
		return false
	}
	if c.Kind == KindDirectory {
		if !fi.IsDir() {
			return false
		}
		_, err = os.ReadDir(c.Path)
		return err == nil
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// PromptResult is the user's answer to a consent prompt.
type PromptResult int

const (
	PromptGranted PromptResult = iota
	PromptDenied
	PromptDismissed
)

// Prompter shows a consent prompt for re-requesting access to a
// capability. Implemented by the interactive front end; RequestAccess
// suspends until the user responds.
type Prompter interface {
	RequestAccess(c Capability, summary string) PromptResult
}

// NoPrompt is the non-interactive Prompter: every re-request counts as
// dismissed by the user.
type NoPrompt struct{}

func (NoPrompt) RequestAccess(Capability, string) PromptResult {
	return PromptDismissed
}

// Store persists capabilities across sessions and re-validates them on
// use.
type Store struct {
	repo     database.CapabilityRepo
	prompter Prompter
}

func NewStore(repo database.CapabilityRepo, prompter Prompter) *Store {
	if prompter == nil {
		prompter = NoPrompt{}
	}
	return &Store{
		repo:     repo,
		prompter: prompter,
	}
}

// Persist stores the capability keyed by collection id, overwriting any
// prior entry. summary is the human-readable name shown on re-request.
func (s *Store) Persist(collectionID string, c Capability, summary string) error {
	return s.repo.StoreCapability(database.CapabilityRecord{
		CollectionID: collectionID,
		ID:           c.ID,
		Path:         c.Path,
		Kind:         string(c.Kind),
		State:        string(c.State),
		Name:         summary,
	})
}

// Get returns the capability stored for a collection.
func (s *Store) Get(collectionID string) (Capability, string, error) {
	record, err := s.repo.GetCapability(collectionID)
	if err != nil {
		return Capability{}, "", err
	}
	c := Capability{
		ID:    record.ID,
		Path:  record.Path,
		Kind:  Kind(record.Kind),
		State: State(record.State),
	}
	return c, record.Name, nil
}

// Revalidate checks whether the capability still grants access. If not
// already granted it issues exactly one interactive re-request; it is
// never retried silently. Returns the capability with its new state, or
// ErrDenied / ErrAbandoned.
func (s *Store) Revalidate(c Capability, summary string) (Capability, error) {
	if c.accessible() {
		c.State = StateGranted
		return c, nil
	}

	switch s.prompter.RequestAccess(c, summary) {
	case PromptGranted:
		if c.accessible() {
			c.State = StateGranted
			return c, nil
		}
		c.State = StateDenied
		return c, ErrDenied
	case PromptDenied:
		c.State = StateDenied
		return c, ErrDenied
	default:
		c.State = StatePrompt
		return c, ErrAbandoned
	}
}

// Forget removes the stored capability for a collection. It cannot
// revoke any OS-level permission from this layer.
func (s *Store) Forget(collectionID string) error {
	return s.repo.DeleteCapability(collectionID)
}
