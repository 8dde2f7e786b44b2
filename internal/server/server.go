// Package server exposes the ingestion pipeline and knowledge store over a
// small JSON API.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/merchantlab/curator/internal/extract"
	"github.com/merchantlab/curator/internal/pipeline"
	"github.com/merchantlab/curator/internal/store"
)

// Server is the HTTP server for the ingestion API.
type Server struct {
	db   *store.DB
	pipe *pipeline.Pipeline
	mux  *http.ServeMux
}

// New creates a new Server.
func New(db *store.DB, pipe *pipeline.Pipeline) *Server {
	s := &Server{db: db, pipe: pipe, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/ingest", s.handleIngest)
	s.mux.HandleFunc("/api/entries", s.handleEntries)
	s.mux.HandleFunc("/api/entries/", s.handleEntry)
	s.mux.HandleFunc("/api/status", s.handleStatus)
}

type ingestRequest struct {
	SourceType         string `json:"source_type"`
	URL                string `json:"url"`
	Text               string `json:"text"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	SkipQualityCheck   bool   `json:"skip_quality_check"`
	SkipDuplicateCheck bool   `json:"skip_duplicate_check"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if s.pipe == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion pipeline not available")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ac := pipeline.AgentContext{
		SkipQualityCheck:   req.SkipQualityCheck,
		SkipDuplicateCheck: req.SkipDuplicateCheck,
	}
	switch extract.SourceType(req.SourceType) {
	case extract.SourceURL:
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "url is required for source_type=url")
			return
		}
		ac.Source = extract.SourceURL
		ac.URL = req.URL
	case extract.SourceText:
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required for source_type=text")
			return
		}
		ac.Source = extract.SourceText
		ac.Text = &extract.TextInput{Text: req.Text, Title: req.Title, Description: req.Description}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported source_type %q (file ingestion is CLI-only)", req.SourceType))
		return
	}

	outcome, err := s.pipe.Ingest(r.Context(), ac)
	if err != nil {
		log.Printf("Ingestion failed: %v", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entry_id":   outcome.EntryID,
		"stored":     outcome.Stored,
		"assessment": outcome.Assessment,
		"analysis": map[string]any{
			"title":        outcome.Analysis.Title,
			"platform":     outcome.Analysis.Platform,
			"category":     outcome.Analysis.Category,
			"goal":         outcome.Analysis.Goal,
			"key_insights": outcome.Analysis.KeyInsights,
			"tags":         outcome.Analysis.Tags,
		},
	})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.db.ListEntries(limit)
	if err != nil {
		log.Printf("Listing entries failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, entrySummary(&e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "entry id required")
		return
	}

	entry, err := s.db.GetEntry(id)
	if err != nil {
		log.Printf("Getting entry failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	detail := entrySummary(entry)
	detail["content"] = entry.Content
	detail["description"] = entry.Description
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.db.CountEntries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	ingestions, err := s.db.CountIngestions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":    count,
		"ingestions": ingestions,
		"database":   s.db.Path(),
	})
}

func entrySummary(e *store.Entry) map[string]any {
	return map[string]any{
		"id":                e.ID,
		"title":             e.Title,
		"platform":          e.Platform,
		"category":          e.Category,
		"goal":              e.Goal,
		"quality_score":     e.QualityScore,
		"tags":              e.Tags,
		"key_insights":      e.KeyInsights,
		"source_type":       e.SourceType,
		"extraction_method": e.ExtractionMethod,
		"confidence_score":  e.ConfidenceScore,
		"created_at":        e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port.
func Serve(db *store.DB, pipe *pipeline.Pipeline, port int) error {
	srv := New(db, pipe)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
