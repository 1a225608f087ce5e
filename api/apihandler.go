// Package api exposes the catalog and progress engine to the local
// front end. It is a thin view layer: all joins and aggregates are
// delegated to the catalog and database packages.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"lectern/capability"
	"lectern/catalog"
	"lectern/database"
)

type Options struct {
	Catalog      *catalog.Repo
	Builder      *catalog.Builder
	Capabilities *capability.Store
	Repo         *database.Repository
}

type API struct {
	catalog      *catalog.Repo
	builder      *catalog.Builder
	capabilities *capability.Store
	repo         *database.Repository
}

func New(o *Options) *API {
	return &API{
		catalog:      o.Catalog,
		builder:      o.Builder,
		capabilities: o.Capabilities,
		repo:         o.Repo,
	}
}

func (a *API) RegisterHandlers(r *mux.Router) {
	gzip := handlers.CompressHandler

	s := r.PathPrefix("/api/").Subrouter()
	s.Handle("/collections", gzip(http.HandlerFunc(a.collectionsHandler))).Methods("GET")
	s.HandleFunc("/collections", a.ingestHandler).Methods("POST")
	s.Handle("/collection/{coll}", gzip(http.HandlerFunc(a.collectionHandler))).Methods("GET")
	s.HandleFunc("/collection/{coll}", a.forgetHandler).Methods("DELETE")
	s.HandleFunc("/collection/{coll}/progress", a.collectionProgressHandler).Methods("GET")
	s.HandleFunc("/section/{section}/progress", a.sectionProgressHandler).Methods("GET")
	s.HandleFunc("/item/{item}/progress", a.itemProgressHandler).Methods("GET")
	s.HandleFunc("/item/{item}/progress", a.recordProgressHandler).Methods("POST")
	s.HandleFunc("/item/{item}/progress", a.clearProgressHandler).Methods("DELETE")
	s.HandleFunc("/item/{item}/complete", a.markCompleteHandler).Methods("POST")
	s.HandleFunc("/item/{item}/hide", a.hideRecencyHandler).Methods("POST")
	s.HandleFunc("/item/{item}/preview", a.previewHandler).Methods("GET")
	s.HandleFunc("/resume", a.resumeHandler).Methods("GET")
	s.HandleFunc("/search", a.searchHandler).Methods("GET")
	s.HandleFunc("/preference/{key}", a.getPreferenceHandler).Methods("GET")
	s.HandleFunc("/preference/{key}", a.setPreferenceHandler).Methods("PUT")
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	j := json.NewEncoder(w)
	j.SetIndent("", "  ")
	j.Encode(obj)
}

func serveError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ingestHandler scans a user-picked directory into a new collection.
func (a *API) ingestHandler(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		serveError(w, http.StatusBadRequest, "path required")
		return
	}

	c, err := a.builder.Ingest(r.Context(), capability.ForDirectory(req.Path), req.Name)
	switch {
	case errors.Is(err, capability.ErrAbandoned):
		// user dismissed the consent prompt, not an error banner
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, capability.ErrDenied):
		serveError(w, http.StatusForbidden, "directory access denied")
		return
	case errors.Is(err, catalog.ErrEmptyCatalog):
		serveError(w, http.StatusUnprocessableEntity,
			"no media found: select a folder containing section subfolders with media files")
		return
	case errors.Is(err, database.ErrStoreUnavailable):
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	case err != nil:
		serveError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.catalog.Add(c)
	if err := a.catalog.BuildSearchIndex(r.Context()); err != nil {
		log.Printf("search index rebuild: %s", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	j := json.NewEncoder(w)
	j.SetIndent("", "  ")
	j.Encode(a.copyCollection(c, false))
}

// forgetHandler removes a collection and its stored capability. It
// cannot revoke OS-level permission.
func (a *API) forgetHandler(w http.ResponseWriter, r *http.Request) {
	collectionID := mux.Vars(r)["coll"]
	if a.catalog.GetCollection(collectionID) == nil {
		serveError(w, http.StatusNotFound, "collection not found")
		return
	}
	if err := a.catalog.Remove(collectionID); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	if err := a.capabilities.Forget(collectionID); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) collectionsHandler(w http.ResponseWriter, r *http.Request) {
	records := a.repo.GetAll()
	cc := []Collection{}
	for _, c := range a.catalog.GetCollections() {
		summary := a.copyCollection(c, false)
		summary.Progress = catalog.AggregateCollection(c, records)
		cc = append(cc, summary)
	}
	serveJSON(cc, w)
}

func (a *API) collectionHandler(w http.ResponseWriter, r *http.Request) {
	c := a.catalog.GetCollection(mux.Vars(r)["coll"])
	if c == nil {
		serveError(w, http.StatusNotFound, "collection not found")
		return
	}
	if err := a.catalog.Touch(c.ID); err != nil {
		log.Printf("touch collection %s: %s", c.ID, err)
	}
	detail := a.copyCollection(c, true)
	detail.Progress = catalog.AggregateCollection(c, a.repo.GetAll())
	serveJSON(detail, w)
}

func (a *API) collectionProgressHandler(w http.ResponseWriter, r *http.Request) {
	c := a.catalog.GetCollection(mux.Vars(r)["coll"])
	if c == nil {
		serveError(w, http.StatusNotFound, "collection not found")
		return
	}
	serveJSON(map[string]int{"progress": catalog.AggregateCollection(c, a.repo.GetAll())}, w)
}

func (a *API) sectionProgressHandler(w http.ResponseWriter, r *http.Request) {
	_, s := a.catalog.GetSectionByID(mux.Vars(r)["section"])
	if s == nil {
		serveError(w, http.StatusNotFound, "section not found")
		return
	}
	serveJSON(map[string]int{"progress": catalog.AggregateSection(s, a.repo.GetAll())}, w)
}

func (a *API) itemProgressHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["item"]
	record, err := a.repo.Get(itemID)
	if errors.Is(err, database.ErrNotFound) {
		serveError(w, http.StatusNotFound, "no progress recorded")
		return
	}
	if err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	serveJSON(record, w)
}

// recordProgressHandler upserts the playback position of an item. The
// caller samples it on a fixed interval during playback and once more
// at end of item.
func (a *API) recordProgressHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["item"]
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		serveError(w, http.StatusBadRequest, "invalid progress body")
		return
	}
	if err := a.repo.Record(itemID, req.PositionSeconds, req.DurationSeconds); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) clearProgressHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.Clear(mux.Vars(r)["item"]); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) markCompleteHandler(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["item"]

	var req progressRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	duration := req.DurationSeconds
	if duration == 0 {
		if _, _, item := a.catalog.GetItemByID(itemID); item != nil {
			duration = item.DurationSeconds
		}
	}

	if err := a.repo.MarkComplete(itemID, duration); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// hideRecencyHandler removes an item from resume views while keeping
// its resume position.
func (a *API) hideRecencyHandler(w http.ResponseWriter, r *http.Request) {
	err := a.repo.ClearRecency(mux.Vars(r)["item"])
	if errors.Is(err, database.ErrNotFound) {
		serveError(w, http.StatusNotFound, "no progress recorded")
		return
	}
	if err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) previewHandler(w http.ResponseWriter, r *http.Request) {
	mimeType, data, err := a.repo.GetImage(mux.Vars(r)["item"])
	if errors.Is(err, database.ErrNotFound) {
		serveError(w, http.StatusNotFound, "no preview available")
		return
	}
	if err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (a *API) resumeHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records := a.repo.GetAll()
	recent := catalog.MostRecentlyWatched(a.catalog.AllItems(), records, limit)

	items := []Item{}
	for _, i := range recent {
		items = append(items, a.copyItem(i, records))
	}
	serveJSON(items, w)
}

func (a *API) searchHandler(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	itemIDs, err := a.catalog.SearchItem(r.Context(), term)
	if err != nil {
		serveError(w, http.StatusInternalServerError, err.Error())
		return
	}

	records := a.repo.GetAll()
	items := []Item{}
	for _, id := range itemIDs {
		if _, _, item := a.catalog.GetItemByID(id); item != nil {
			items = append(items, a.copyItem(item, records))
		}
	}
	serveJSON(items, w)
}

func (a *API) getPreferenceHandler(w http.ResponseWriter, r *http.Request) {
	value, err := a.repo.GetPreference(mux.Vars(r)["key"])
	if errors.Is(err, database.ErrNotFound) {
		serveError(w, http.StatusNotFound, "preference not set")
		return
	}
	if err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	serveJSON(map[string]string{"value": value}, w)
}

func (a *API) setPreferenceHandler(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		serveError(w, http.StatusBadRequest, "invalid preference body")
		return
	}
	if err := a.repo.SetPreference(mux.Vars(r)["key"], req.Value); err != nil {
		serveError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) copyCollection(c *catalog.Collection, includeSections bool) Collection {
	out := Collection{
		ID:                   c.ID,
		Name:                 c.DisplayName,
		SourceName:           c.SourceName,
		SectionCount:         c.SectionCount,
		ItemCount:            c.ItemCount,
		TotalDurationSeconds: c.TotalDurationSeconds,
		LastAccessed:         c.LastAccessed,
	}
	if !includeSections {
		return out
	}

	records := a.repo.GetAll()
	for _, s := range c.Sections {
		section := Section{
			ID:                   s.ID,
			Name:                 s.DisplayName,
			SourceName:           s.SourceName,
			SortLabel:            s.SortLabel,
			ItemCount:            s.ItemCount,
			TotalDurationSeconds: s.TotalDurationSeconds,
			Progress:             catalog.AggregateSection(s, records),
			PreviewRef:           s.PreviewRef,
		}
		for _, i := range s.Items {
			section.Items = append(section.Items, a.copyItem(i, records))
		}
		out.Sections = append(out.Sections, section)
	}
	return out
}

func (a *API) copyItem(i *catalog.Item, records []database.ProgressRecord) Item {
	out := Item{
		ID:              i.ID,
		Name:            i.DisplayName,
		SourceName:      i.SourceName,
		SortLabel:       i.SortLabel,
		SizeBytes:       i.SizeBytes,
		DurationSeconds: i.DurationSeconds,
		PreviewRef:      i.PreviewRef,
		CaptionPath:     i.CaptionPath,
		AddedAt:         i.AddedAt,
	}
	for _, record := range records {
		if record.ItemID == i.ID {
			out.PositionSeconds = record.PositionSeconds
			out.FractionWatched = record.FractionWatched()
			out.Complete = record.Complete()
			out.LastWatchedAt = record.LastWatchedAt
			break
		}
	}
	return out
}
