package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lectern/capability"
	"lectern/catalog"
	"lectern/database"
	"lectern/probe"
)

// fixedProber reports the same duration and preview for every media
// file.
type fixedProber struct{}

func (fixedProber) Probe(context.Context, string) probe.Result {
	return probe.Result{
		Available:       true,
		DurationSeconds: 120,
		Preview:         []byte("jpeg-bytes"),
	}
}

type fixture struct {
	server *httptest.Server
	repo   *database.Repository
}

// newFixture ingests one two-section course through the API and serves
// it from an httptest server.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(&database.Options{
		Filename: filepath.Join(t.TempDir(), "lectern.db"),
	})
	require.NoError(t, err)

	capabilities := capability.NewStore(db, capability.NoPrompt{})
	builder := catalog.NewBuilder(&catalog.BuilderOptions{
		Walker:           catalog.NewWalker(nil),
		Prober:           fixedProber{},
		Capabilities:     capabilities,
		Repo:             db,
		ProbeConcurrency: 2,
	})
	repo := catalog.NewRepo(&catalog.RepoOptions{Repo: db})
	require.NoError(t, repo.Load())
	require.NoError(t, repo.BuildSearchIndex(context.Background()))

	r := mux.NewRouter()
	New(&Options{
		Catalog:      repo,
		Builder:      builder,
		Capabilities: capabilities,
		Repo:         db,
	}).RegisterHandlers(r)

	f := &fixture{
		server: httptest.NewServer(r),
		repo:   db,
	}
	t.Cleanup(f.server.Close)

	course := filepath.Join(t.TempDir(), "Go Course")
	for path, content := range map[string]string{
		"01-Basics/01-Intro.mp4":           "x",
		"01-Basics/02-Setup.mp4":           "x",
		"01-Basics_subtitles/01-Intro.srt": "1\n",
		"02-Advanced/01-Channels.mp4":      "x",
	} {
		full := filepath.Join(course, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	resp := f.post(t, "/api/collections", map[string]string{"Path": course})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	return f
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// collection returns the single ingested collection with sections.
func (f *fixture) collection(t *testing.T) Collection {
	t.Helper()
	resp := f.get(t, "/api/collections")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	collections := decode[[]Collection](t, resp)
	require.Len(t, collections, 1)

	resp = f.get(t, "/api/collection/"+collections[0].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[Collection](t, resp)
}

func TestIngestAndListCollections(t *testing.T) {
	f := newFixture(t)

	c := f.collection(t)
	assert.Equal(t, "Go Course", c.Name)
	assert.Equal(t, 2, c.SectionCount)
	assert.Equal(t, 3, c.ItemCount)
	assert.Equal(t, float64(360), c.TotalDurationSeconds)
	require.Len(t, c.Sections, 2)
	assert.Equal(t, "Basics", c.Sections[0].Name)
	require.Len(t, c.Sections[0].Items, 2)
	assert.Equal(t, "Intro", c.Sections[0].Items[0].Name)
	assert.NotEmpty(t, c.Sections[0].Items[0].CaptionPath)
	assert.Empty(t, c.Sections[0].Items[1].CaptionPath)
}

func TestIngestBadRequests(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/api/collections", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// NoPrompt dismisses the consent prompt for an unreadable path
	resp = f.post(t, "/api/collections", map[string]string{"Path": "/no/such/dir"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	empty := t.TempDir()
	resp = f.post(t, "/api/collections", map[string]string{"Path": empty})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Contains(t, body["error"], "no media found")
}

func TestProgressLifecycle(t *testing.T) {
	f := newFixture(t)
	item := f.collection(t).Sections[0].Items[0]
	base := "/api/item/" + item.ID + "/progress"

	resp := f.get(t, base)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, base, map[string]float64{
		"PositionSeconds": 60,
		"DurationSeconds": 120,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, base)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	record := decode[database.ProgressRecord](t, resp)
	assert.Equal(t, float64(60), record.PositionSeconds)
	assert.False(t, record.Complete())

	// halfway through one of three items
	resp = f.get(t, "/api/collection/"+f.collection(t).ID+"/progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[map[string]int](t, resp)["progress"])

	resp = f.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, base)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestMarkCompleteAndAggregates(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t)
	section := c.Sections[0]

	for _, item := range section.Items {
		resp := f.post(t, "/api/item/"+item.ID+"/complete", nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()
	}

	resp := f.get(t, "/api/section/"+section.ID+"/progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, decode[map[string]int](t, resp)["progress"])

	// 2 of 3 items complete
	resp = f.get(t, "/api/collection/"+c.ID+"/progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 67, decode[map[string]int](t, resp)["progress"])

	detail := f.collection(t)
	assert.True(t, detail.Sections[0].Items[0].Complete)
	assert.Equal(t, 1.0, detail.Sections[0].Items[0].FractionWatched)
}

func TestResumeAndHide(t *testing.T) {
	f := newFixture(t)
	items := f.collection(t).Sections[0].Items

	for _, item := range items {
		resp := f.post(t, "/api/item/"+item.ID+"/progress", map[string]float64{
			"PositionSeconds": 30,
			"DurationSeconds": 120,
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()
	}

	resp := f.get(t, "/api/resume")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recent := decode[[]Item](t, resp)
	assert.Len(t, recent, 2)

	resp = f.post(t, "/api/item/"+items[0].ID+"/hide", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/resume")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recent = decode[[]Item](t, resp)
	require.Len(t, recent, 1)
	assert.Equal(t, items[1].ID, recent[0].ID)

	// hidden keeps its resume position
	resp = f.get(t, "/api/item/"+items[0].ID+"/progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(30), decode[database.ProgressRecord](t, resp).PositionSeconds)

	resp = f.post(t, "/api/item/unknown/hide", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestResumeLimit(t *testing.T) {
	f := newFixture(t)
	items := f.collection(t).Sections[0].Items

	for _, item := range items {
		resp := f.post(t, "/api/item/"+item.ID+"/progress", map[string]float64{
			"PositionSeconds": 10,
			"DurationSeconds": 120,
		})
		resp.Body.Close()
	}

	resp := f.get(t, "/api/resume?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]Item](t, resp), 1)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	item := f.collection(t).Sections[0].Items[0]

	resp := f.get(t, "/api/item/"+item.ID+"/preview")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	resp = f.get(t, "/api/item/unknown/preview")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/search?q=channels")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]Item](t, resp)
	require.NotEmpty(t, items)
	assert.Equal(t, "Channels", items[0].Name)
}

func TestForgetCollection(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t)

	resp := f.do(t, http.MethodDelete, "/api/collection/"+c.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/collection/"+c.ID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodDelete, "/api/collection/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/preference/playback_speed")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodPut, "/api/preference/playback_speed",
		map[string]string{"Value": "1.5"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/preference/playback_speed")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.5", decode[map[string]string](t, resp)["value"])
}

func TestCollectionAggregateInListing(t *testing.T) {
	f := newFixture(t)
	items := f.collection(t).Sections[1].Items
	require.Len(t, items, 1)

	resp := f.post(t, fmt.Sprintf("/api/item/%s/complete", items[0].ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/api/collections")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	collections := decode[[]Collection](t, resp)
	require.Len(t, collections, 1)
	assert.Equal(t, 33, collections[0].Progress)
}
