// Package httpapi exposes the C1-C8 core over HTTP (spec.md §6), grounded
// on the teacher's internal/server/server.go: a bare net/http.ServeMux
// with no router library, thin handlers that decode query params, call
// into the core, and encode a JSON response.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nooblyjs/wiki-index-core/internal/debug"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/query"
	"github.com/nooblyjs/wiki-index-core/internal/service"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

// requestIDHeader echoes the per-request correlation id back to the caller,
// generated fresh when the caller doesn't supply one.
const requestIDHeader = "X-Request-Id"

// userIDHeader is where the authenticated identity resolved upstream is
// expected (spec.md §6 Authentication boundary: "each request carries an
// authenticated user identity resolved upstream; the core trusts the
// identity").
const userIDHeader = "X-User-Id"

// Handler wires a *service.Service into an http.Handler.
type Handler struct {
	svc *service.Service
	mux *http.ServeMux
}

// New registers every route in spec.md §6 against svc.
func New(svc *service.Service) *Handler {
	h := &Handler{svc: svc, mux: http.NewServeMux()}
	h.mux.HandleFunc("/search", h.handleSearch)
	h.mux.HandleFunc("/search/suggestions", h.handleSuggestions)
	h.mux.HandleFunc("/search/stats", h.handleStats)
	h.mux.HandleFunc("/search/rebuild", h.handleRebuild)
	h.mux.HandleFunc("/spaces", h.handleSpaces)
	h.mux.HandleFunc("/spaces/", h.handleSpaceSubroutes)
	h.mux.HandleFunc("/user/activity", h.handleUserActivity)
	h.mux.HandleFunc("/user/visit", h.handleUserVisit)
	h.mux.HandleFunc("/user/star", h.handleUserStar)
	h.mux.HandleFunc("/user/folder-view-preferences", h.handleFolderViewPreferences)
	h.mux.HandleFunc("/user/folder-view-preference", h.handleFolderViewPreference)
	h.mux.HandleFunc("/settings/ai", h.handleSettingsAI)
	h.mux.HandleFunc("/settings/ai/test", h.handleSettingsAITest)
	h.mux.HandleFunc("/aicontext/rebuild", h.handleAIContextRebuild)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, reqID)
	debug.LogHTTP("%s %s request_id=%s", r.Method, r.URL.Path, reqID)
	h.mux.ServeHTTP(w, r)
}

func userID(r *http.Request) types.UserID {
	return types.UserID(r.Header.Get(userIDHeader))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError is the sole translator from internal/errs kinds to HTTP
// status codes (spec.md §9 "sole translator" rule).
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var e *errs.Error
	if e = asErrsError(err); e != nil {
		switch e.Kind {
		case errs.KindNotFound:
			status = http.StatusNotFound
		case errs.KindValidationFailed:
			status = http.StatusBadRequest
		case errs.KindPermissionDenied:
			status = http.StatusForbidden
		case errs.KindConflict:
			status = http.StatusConflict
		case errs.KindBusy:
			status = http.StatusConflict
		case errs.KindUpstreamUnavailable:
			status = http.StatusBadGateway
		case errs.KindInternal:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func asErrsError(err error) *errs.Error {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*errs.Error); ok {
			return e
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query_ := q.Get("q")
	if query_ == "" {
		writeJSON(w, http.StatusOK, []types.SearchResult{})
		return
	}

	f := query.Filters{
		IncludeContent: q.Get("includeContent") == "true",
	}
	if v := q.Get("maxResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MaxResults = n
		}
	}
	if v := q.Get("fileTypes"); v != "" {
		f.FileTypes = make(map[types.FileCategory]bool)
		for _, t := range strings.Split(v, ",") {
			f.FileTypes[types.FileCategory(t)] = true
		}
	}
	if v := q.Get("spaceNames"); v != "" {
		f.SpaceNames = make(map[string]bool)
		for _, n := range strings.Split(v, ",") {
			f.SpaceNames[n] = true
		}
	} else if v := q.Get("spaceName"); v != "" {
		f.SpaceNames = map[string]bool{v: true}
	}

	results, err := h.svc.Query.Search(r.Context(), query_, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 10
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, h.svc.Query.Suggest(q.Get("q"), limit))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.Query.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documentCount":   stats.DocumentCount,
		"tokenCount":      stats.TokenCount,
		"spaceCount":      stats.SpaceCount,
		"lastBuildAt":     stats.LastBuildAt,
		"buildDurationMs": stats.BuildDurationMs,
	})
}

func (h *Handler) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	if err := h.svc.StartRebuildAsync(context.Background()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "rebuild started"})
}

// handleAIContextRebuild is C8's manual trigger endpoint (spec.md §4.8:
// "callers observing [the is-processing flag] get a Busy response from the
// trigger endpoint"), the AI-context counterpart of handleRebuild.
func (h *Handler) handleAIContextRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	if err := h.svc.StartAIContextAsync(context.Background()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "ai-context generation started"})
}

func (h *Handler) handleSpaces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.svc.Spaces.ListVisible(userID(r)))
	case http.MethodPost:
		var body struct {
			Name        string           `json:"name"`
			Description string           `json:"description"`
			Visibility  types.Visibility `json:"visibility"`
			Root        string           `json:"root"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, errs.ValidationFailed("handleSpaces", err))
			return
		}
		sp, err := h.svc.Spaces.Create(spacesCreateParams(userID(r), body.Name, body.Description, body.Visibility, body.Root))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sp)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET or POST required"})
	}
}

func (h *Handler) handleSpaceSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/spaces/")
	parts := strings.SplitN(rest, "/", 2)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, errs.ValidationFailed("handleSpaceSubroutes", err))
		return
	}
	spaceID := types.SpaceID(id)

	if len(parts) == 1 {
		writeError(w, errs.NotFound("handleSpaceSubroutes", rest, nil))
		return
	}

	switch parts[1] {
	case "folders":
		h.handleSpaceFolders(w, r, spaceID)
	case "templates":
		h.handleSpaceTemplates(w, r, spaceID)
	default:
		http.NotFound(w, r)
	}
}
