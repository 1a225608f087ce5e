// lectern ingests user-granted directory trees of media files into a
// catalog of collections, sections and items, enriches items with
// duration, preview image and caption track, and persists playback
// progress across sessions.
package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"lectern/api"
	"lectern/capability"
	"lectern/catalog"
	"lectern/database"
	"lectern/probe"
)

func main() {
	config, err := loadConfig()
	if err != nil {
		log.Fatalf("loadConfig: %s", err)
	}

	switch config.Logfile {
	case "", "stdout":
	case "none":
		log.SetOutput(io.Discard)
	default:
		f, err := os.OpenFile(config.Logfile,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	db, err := database.New(&database.Options{
		Filename: config.Dbfile,
	})
	if err != nil {
		log.Fatalf("database.New: %s", err)
	}

	capabilities := capability.NewStore(db, capability.NoPrompt{})

	prober := probe.New(probe.Options{
		FFprobePath:     config.Probe.FfprobePath,
		FFmpegPath:      config.Probe.FfmpegPath,
		Timeout:         time.Duration(config.Probe.TimeoutSeconds) * time.Second,
		PreviewMaxWidth: config.Probe.PreviewMaxWidth,
	})

	builder := catalog.NewBuilder(&catalog.BuilderOptions{
		Walker:           catalog.NewWalker(config.MediaExtensions),
		Prober:           prober,
		Capabilities:     capabilities,
		Repo:             db,
		ProbeConcurrency: config.Probe.Concurrency,
	})

	catalogRepo := catalog.NewRepo(&catalog.RepoOptions{Repo: db})
	if err := catalogRepo.Load(); err != nil {
		log.Fatalf("catalog load: %s", err)
	}
	revalidateCapabilities(catalogRepo, capabilities)

	if err := catalogRepo.BuildSearchIndex(context.Background()); err != nil {
		log.Printf("search index: %s", err)
	}

	r := mux.NewRouter()
	a := api.New(&api.Options{
		Catalog:      catalogRepo,
		Builder:      builder,
		Capabilities: capabilities,
		Repo:         db,
	})
	a.RegisterHandlers(r)

	log.Printf("Listening on %s", config.Listen)
	if err := http.ListenAndServe(config.Listen, HTTPLog(r)); err != nil {
		log.Fatalf("ListenAndServe: %s", err)
	}
}

// revalidateCapabilities re-checks every stored directory capability at
// session start. Collections stay loaded either way: the catalog keeps
// working from the store, only playback needs the files themselves.
func revalidateCapabilities(repo *catalog.Repo, capabilities *capability.Store) {
	for _, c := range repo.GetCollections() {
		stored, summary, err := capabilities.Get(c.ID)
		if err != nil {
			log.Printf("Collection %s: no stored capability: %s", c.DisplayName, err)
			continue
		}
		validated, err := capabilities.Revalidate(stored, summary)
		switch {
		case err == nil:
			log.Printf("Collection %s: access granted (%s)", c.DisplayName, validated.Path)
		case errors.Is(err, capability.ErrAbandoned):
			// silent no-op, the user can re-grant from the front end
			log.Printf("Collection %s: access not re-requested", c.DisplayName)
		default:
			log.Printf("Collection %s: access revoked", c.DisplayName)
		}
		if err := capabilities.Persist(c.ID, validated, summary); err != nil {
			log.Printf("Collection %s: persist capability: %s", c.DisplayName, err)
		}
	}
}
