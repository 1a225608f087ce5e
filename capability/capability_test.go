package capability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/database"
)

// fakePrompter answers every consent prompt with a fixed result and
// counts how often it was asked.
type fakePrompter struct {
	result PromptResult
	asked  int
	// grant optionally creates the directory when the user "grants"
	grant func()
}

func (f *fakePrompter) RequestAccess(Capability, string) PromptResult {
	f.asked++
	if f.result == PromptGranted && f.grant != nil {
		f.grant()
	}
	return f.result
}

func newTestStore(t *testing.T, prompter Prompter) *Store {
	t.Helper()
	db, err := database.New(&database.Options{
		Filename: filepath.Join(t.TempDir(), "lectern.db"),
	})
	require.NoError(t, err)
	return NewStore(db, prompter)
}

func TestRevalidateAccessible(t *testing.T) {
	prompter := &fakePrompter{result: PromptDenied}
	store := newTestStore(t, prompter)

	c, err := store.Revalidate(ForDirectory(t.TempDir()), "course")
	require.NoError(t, err)
	assert.Equal(t, StateGranted, c.State)
	// no prompt when access still works
	assert.Zero(t, prompter.asked)
}

func TestRevalidateDenied(t *testing.T) {
	prompter := &fakePrompter{result: PromptDenied}
	store := newTestStore(t, prompter)

	missing := ForDirectory(filepath.Join(t.TempDir(), "gone"))
	c, err := store.Revalidate(missing, "course")
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, StateDenied, c.State)
	// exactly one re-request, never retried silently
	assert.Equal(t, 1, prompter.asked)
}

func TestRevalidateAbandoned(t *testing.T) {
	prompter := &fakePrompter{result: PromptDismissed}
	store := newTestStore(t, prompter)

	missing := ForDirectory(filepath.Join(t.TempDir(), "gone"))
	c, err := store.Revalidate(missing, "course")
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StatePrompt, c.State)
	assert.Equal(t, 1, prompter.asked)
}

func TestRevalidateRegrant(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "restored")
	prompter := &fakePrompter{
		result: PromptGranted,
		grant:  func() { _ = os.Mkdir(missing, 0o755) },
	}
	store := newTestStore(t, prompter)

	c, err := store.Revalidate(ForDirectory(missing), "course")
	require.NoError(t, err)
	assert.Equal(t, StateGranted, c.State)
	assert.Equal(t, 1, prompter.asked)
}

func TestRevalidateGrantWithoutAccess(t *testing.T) {
	// the prompt claims granted but the directory still cannot be read
	prompter := &fakePrompter{result: PromptGranted}
	store := newTestStore(t, prompter)

	missing := ForDirectory(filepath.Join(t.TempDir(), "gone"))
	c, err := store.Revalidate(missing, "course")
	assert.ErrorIs(t, err, ErrDenied)
	assert.Equal(t, StateDenied, c.State)
}

func TestPersistGetForget(t *testing.T) {
	store := newTestStore(t, NoPrompt{})

	c := ForDirectory(t.TempDir())
	c.State = StateGranted
	require.NoError(t, store.Persist("coll1", c, "Go Course"))

	got, summary, err := store.Get("coll1")
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.Equal(t, "Go Course", summary)

	require.NoError(t, store.Forget("coll1"))
	_, _, err = store.Get("coll1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestChildCapability(t *testing.T) {
	root := ForDirectory("/media/course")
	child := root.Child("01-A", KindDirectory)
	assert.Equal(t, filepath.Join("/media/course", "01-A"), child.Path)
	assert.Equal(t, KindDirectory, child.Kind)
	assert.NotEqual(t, root.ID, child.ID)
	// derived ids are deterministic
	assert.Equal(t, child.ID, root.Child("01-A", KindDirectory).ID)

	assert.Equal(t, "01-A", child.Name())
}
