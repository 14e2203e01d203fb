package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/streed/synapse/internal/constants"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/models"
)

type CreateNoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type RelationRequest struct {
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, err := s.notes.Create(r.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{"note": note})
}

func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			writeError(w, interrors.Validation(fmt.Errorf("invalid limit %q", limitStr)))
			return
		}
		limit = l
	}

	notes, err := s.notes.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"notes": notes, "count": len(notes)})
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"note": note})
}

func (s *APIServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"message": "Note deleted successfully"})
}

func (s *APIServer) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.notes.Relate(r.Context(), mux.Vars(r)["id"], req.TargetID, req.Type); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{"message": "Relation created successfully"})
}

func (s *APIServer) handleRelatedNotes(w http.ResponseWriter, r *http.Request) {
	related, err := s.notes.Related(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"notes": related, "count": len(related)})
}

func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.notes.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"query":   req.Query,
		"results": results,
		"count":   len(results),
	})
}

func (s *APIServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.notes.Tags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"tags": tags})
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.notes.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"stats": stats})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.notes.Ping(ctx); err != nil {
		logger.Warn("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"status":  "unhealthy",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Web UI

func (s *APIServer) handleWebUI(w http.ResponseWriter, r *http.Request) {
	notes, err := s.notes.List(r.Context(), constants.RecentNotesLimit)
	if err != nil {
		logger.Error("Failed to load notes for web UI: %v", err)
		notes = []*models.Note{}
	}

	data := map[string]any{
		"Notes":    notes,
		"Provider": s.cfg.EmbeddingProvider,
		"Backend":  s.cfg.GraphBackend,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		logger.Error("Failed to render template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
