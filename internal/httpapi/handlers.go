package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/CaseMark/multi-language-processor/internal/config"
	"github.com/CaseMark/multi-language-processor/internal/document"
	"github.com/CaseMark/multi-language-processor/internal/jobs"
	"github.com/CaseMark/multi-language-processor/internal/search"
	"github.com/CaseMark/multi-language-processor/internal/viewer"
	"github.com/CaseMark/multi-language-processor/pkg/log"
)

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pairs := s.corpus.List()
		summaries := make([]document.Summary, 0, len(pairs))
		for _, pair := range pairs {
			summaries = append(summaries, pair.Summary())
		}
		writeJSON(w, http.StatusOK, summaries)
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.intake == nil {
		writeError(w, http.StatusNotImplemented, "upload intake is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	formFile, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer formFile.Close()

	data, err := io.ReadAll(formFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	job, created, err := s.intake.Receive(r.Context(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := http.StatusAccepted
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if decoded, err := url.PathUnescape(rest); err == nil {
		rest = decoded
	}

	if id, ok := strings.CutSuffix(rest, "/spans"); ok {
		s.handleSpans(w, r, strings.TrimSuffix(id, "/"))
		return
	}

	id := strings.TrimSuffix(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		pair, err := s.corpus.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, pair)
	case http.MethodDelete:
		s.handleDeleteDocument(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	pair, err := s.corpus.Get(id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.corpus.Remove(id)
	if s.store != nil {
		if err := s.store.DeleteDocument(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if s.vault != nil && pair.VaultKey != "" {
		if err := s.vault.Delete(r.Context(), pair.VaultKey); err != nil {
			// The index and store no longer know the document; losing the
			// vault copy only matters for reprocessing.
			log.Warn("delete vault object %s: %v", pair.VaultKey, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	scope, err := search.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := search.SearchCorpus(s.corpus.List(), query, scope)
	// Echo the query so the client can drop responses that raced a
	// newer keystroke.
	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Scope:   scope.String(),
		Results: results,
	})
}

type searchResponse struct {
	Query   string          `json:"query"`
	Scope   string          `json:"scope"`
	Results []search.Result `json:"results"`
}

type spansRequest struct {
	Side         string   `json:"side"`
	Query        string   `json:"query"`
	PinnedChunks []string `json:"pinned_chunks"`
}

func (s *Server) handleSpans(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	var req spansRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	pair, err := s.corpus.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	var text string
	switch req.Side {
	case "", "original":
		text = pair.OriginalText
	case "translated":
		text = pair.TranslatedText
	default:
		writeError(w, http.StatusBadRequest, "side must be original or translated")
		return
	}

	spans := viewer.ComputeSpans(text, req.Query, req.PinnedChunks)
	writeJSON(w, http.StatusOK, map[string]any{
		"spans":    spans,
		"segments": viewer.Segments(text, spans),
	})
}

type enqueueJobRequest struct {
	Source     string `json:"source"`
	DedupeKey  string `json:"dedupe_key"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	VaultKey   string `json:"vault_key"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		var req enqueueJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Source == "" {
			req.Source = "manual"
		}
		if req.VaultKey == "" {
			writeError(w, http.StatusBadRequest, "vault_key is required")
			return
		}
		if req.DedupeKey == "" {
			req.DedupeKey = req.VaultKey
		}

		job, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    req.Source,
			DedupeKey: req.DedupeKey,
			Payload: jobs.JobPayload{
				DocumentID: req.DocumentID,
				Filename:   req.Filename,
				VaultKey:   req.VaultKey,
			},
		})
		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}
		writeJSON(w, code, map[string]any{
			"created": created,
			"job":     job,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := map[string]any{
		"documents": s.corpus.Len(),
		"jobs":      len(s.queue.List()),
	}
	if s.sweeper != nil {
		if info, err := s.sweeper.TriggerInfo(time.Now()); err == nil {
			status["sweep"] = info
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
