package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsuzuri-app/tsuzuri/internal/api/recovery"
	"github.com/tsuzuri-app/tsuzuri/internal/auth"
)

// NewRouter creates the HTTP router with all API routes.
//
// Health and metrics stay open so probes and scrapers work without
// credentials; everything under /api/entries and /api/index requires the
// API key when one is configured.
func NewRouter(h *EntryHandler, authorizer auth.Authorizer) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler()
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Entry endpoints. Fixed segments are registered before {entryId} so
	// they never get swallowed by the variable route.
	entries := router.PathPrefix("/api/entries").Subrouter()
	entries.Use(auth.Middleware(authorizer))
	entries.HandleFunc("", h.CreateEntry).Methods("POST")
	entries.HandleFunc("", h.ListEntries).Methods("GET")
	entries.HandleFunc("/past-photo", h.CreatePastPhotoEntry).Methods("POST")
	entries.HandleFunc("/by-photo/{photoId}", h.GetEntryByPhoto).Methods("GET")
	entries.HandleFunc("/on/{date}", h.ListEntriesOnDate).Methods("GET")
	entries.HandleFunc("/{entryId}", h.GetEntry).Methods("GET")
	entries.HandleFunc("/{entryId}", h.UpdateEntry).Methods("PUT")
	entries.HandleFunc("/{entryId}", h.DeleteEntry).Methods("DELETE")

	// Index maintenance
	index := router.PathPrefix("/api/index").Subrouter()
	index.Use(auth.Middleware(authorizer))
	index.HandleFunc("/rebuild", h.RebuildIndex).Methods("POST")

	return router
}
