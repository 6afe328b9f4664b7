package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingualens/lingualens/internal/config"
	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/sources"
)

func (s *Server) handleExplainQuick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, ok := decodeExplainRequest(w, r, explain.ModeQuick)
	if !ok {
		return
	}
	s.applyHeaderCredentials(r)
	s.explainer.Supersede(req.RequestID)

	outcome := s.explainer.ExplainQuick(r.Context(), req)
	if outcome.Err != nil {
		writeError(w, statusForFailure(outcome.Err), explain.Reason(outcome.Err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cached": outcome.Cached,
		"result": outcome.Quick,
	})
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"configured": s.credentials.Configured(),
		})
	case http.MethodPut:
		var req struct {
			APIKey  string `json:"apiKey"`
			BaseURL string `json:"baseUrl"`
			APIURL  string `json:"apiUrl"` // legacy alias for baseUrl
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if strings.TrimSpace(req.APIKey) == "" {
			writeError(w, http.StatusBadRequest, "apiKey is required")
			return
		}
		baseURL := req.BaseURL
		if baseURL == "" {
			baseURL = req.APIURL
		}
		s.credentials.StoreCredentials(req.APIKey, baseURL)
		writeJSON(w, http.StatusOK, map[string]any{
			"configured": s.credentials.Configured(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.profiles.List())
	case http.MethodPost:
		var p explain.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		saved, err := s.profiles.Save(r.Context(), p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleProfileByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r.URL.Path, "/api/profiles/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing profile id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var p explain.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		p.ID = id
		saved, err := s.profiles.Save(r.Context(), p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	case http.MethodDelete:
		if err := s.profiles.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		entries, err := s.history.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodDelete:
		if err := s.history.Clear(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "history store is not configured")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathSuffix(r.URL.Path, "/api/history/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing history id")
		return
	}
	if err := s.history.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.GetRuntimeSettings())
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
		saved, err := s.settings.UpdateRuntimeSettings(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if s.collections == nil {
		writeError(w, http.StatusNotImplemented, "collection store is not configured")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Name      string             `json:"name"`
		Documents []sources.Document `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	count, err := s.collections.Ingest(r.Context(), req.Name, req.Documents)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"count": count,
	})
}

func (s *Server) handleWarmJobs(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, "precompute queue is not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.queue.List())
}

// applyHeaderCredentials stores credentials carried on the request itself.
// Clients may supply the key per request instead of through the credentials
// endpoint.
func (s *Server) applyHeaderCredentials(r *http.Request) {
	apiKey := strings.TrimSpace(r.Header.Get("X-OpenAI-Key"))
	if apiKey == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			apiKey = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}
	if apiKey == "" {
		return
	}
	s.credentials.StoreCredentials(apiKey, strings.TrimSpace(r.Header.Get("X-OpenAI-Base")))
}

// decodeExplainRequest parses the request body and fills the fields a
// client may omit.
func decodeExplainRequest(w http.ResponseWriter, r *http.Request, mode explain.Mode) (explain.Request, bool) {
	var req explain.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return explain.Request{}, false
	}
	if strings.TrimSpace(req.SubtitleText) == "" {
		writeError(w, http.StatusBadRequest, "subtitleText is required")
		return explain.Request{}, false
	}
	req.Mode = mode
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Timestamp == 0 {
		req.Timestamp = time.Now().UnixMilli()
	}
	return req, true
}

func statusForFailure(err error) int {
	switch {
	case explain.IsKind(err, explain.FailMissingCredential):
		return http.StatusUnauthorized
	case explain.IsKind(err, explain.FailRefusal):
		return http.StatusUnprocessableEntity
	case explain.IsKind(err, explain.FailCacheUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func pathSuffix(p string, prefix string) string {
	id := strings.TrimSuffix(strings.TrimPrefix(p, prefix), "/")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	return id
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
