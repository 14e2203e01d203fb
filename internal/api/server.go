package api

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/streed/synapse/internal/config"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/services"
)

const serviceName = "Synapse API"

// AssetProvider interface for accessing web assets
type AssetProvider interface {
	GetTemplates() (*template.Template, error)
	GetStaticHandler() http.Handler
}

type APIServer struct {
	cfg       *config.Config
	notes     *services.NotesService
	metrics   http.Handler
	templates *template.Template
	static    http.Handler
	server    *http.Server
}

// NewAPIServer builds a server over notes. assets and metricsHandler are
// optional; without them the web UI and /metrics are not mounted.
func NewAPIServer(cfg *config.Config, notes *services.NotesService, assets AssetProvider, metricsHandler http.Handler) *APIServer {
	s := &APIServer{
		cfg:     cfg,
		notes:   notes,
		metrics: metricsHandler,
	}

	if assets != nil {
		templates, err := assets.GetTemplates()
		if err != nil {
			logger.Warn("Failed to load web templates: %v (web UI will be disabled)", err)
		} else {
			s.templates = templates
			s.static = assets.GetStaticHandler()
			logger.Debug("Loaded embedded web templates")
		}
	}
	return s
}

// Handler returns the routed, CORS-wrapped handler.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.instrument)

	if s.templates != nil {
		router.HandleFunc("/", s.handleWebUI).Methods("GET")
		if s.static != nil {
			router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", s.static))
		}
	}

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods("GET")
	}

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/{id}", s.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods("DELETE")
	api.HandleFunc("/notes/{id}/relations", s.handleCreateRelation).Methods("POST")
	api.HandleFunc("/notes/{id}/related", s.handleRelatedNotes).Methods("GET")

	api.HandleFunc("/search", s.handleSearch).Methods("POST")
	api.HandleFunc("/tags", s.handleListTags).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         86400,
	})
	return c.Handler(router)
}

func (s *APIServer) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP API server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
