package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nooblyjs/wiki-index-core/internal/aicontext/llm"
	"github.com/nooblyjs/wiki-index-core/internal/errs"
	"github.com/nooblyjs/wiki-index-core/internal/types"
)

func (h *Handler) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Activity.GetActivity(userID(r)))
}

func (h *Handler) handleUserVisit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var body struct {
		SpaceName string `json:"spaceName"`
		Path      string `json:"path"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.ValidationFailed("handleUserVisit", err))
		return
	}
	if err := h.svc.Activity.RecordVisit(userID(r), body.SpaceName, body.Path, body.Title); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleUserStar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var body struct {
		SpaceName string           `json:"spaceName"`
		Path      string           `json:"path"`
		Title     string           `json:"title"`
		Action    types.StarAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.ValidationFailed("handleUserStar", err))
		return
	}
	if err := h.svc.Activity.ToggleStar(userID(r), body.SpaceName, body.Path, body.Title, body.Action); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleFolderViewPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Activity.GetFolderViews(userID(r)))
}

func (h *Handler) handleFolderViewPreference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}
	var body struct {
		SpaceID    types.SpaceID  `json:"spaceId"`
		FolderPath string         `json:"folderPath"`
		ViewMode   types.ViewMode `json:"viewMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.ValidationFailed("handleFolderViewPreference", err))
		return
	}
	if err := h.svc.Activity.SetFolderView(userID(r), body.SpaceID, body.FolderPath, body.ViewMode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleSettingsAI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.svc.Activity.GetAISettings(userID(r)))
	case http.MethodPost:
		var settings types.AISettings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeError(w, errs.ValidationFailed("handleSettingsAI", err))
			return
		}
		resolved, err := h.svc.Activity.SetAISettings(userID(r), settings)
		if err != nil {
			writeError(w, err)
			return
		}
		// Reconfigure the live LLM provider off the resolved (unmasked)
		// settings, not the request body, so resubmitting an already-masked
		// key doesn't downgrade the generator to the no-op provider.
		if resolved.Enabled {
			h.svc.AIContext.SetProvider(llm.FromSettings(resolved.Provider, resolved.APIKey, resolved.Model))
		} else {
			h.svc.AIContext.SetProvider(llm.NoopProvider{})
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET or POST required"})
	}
}

// handleSettingsAITest implements spec.md §6's "test endpoint probes the
// LLM provider and returns { success, latencyMs, error? }".
func (h *Handler) handleSettingsAITest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	start := time.Now()
	_, err := h.svc.AIContext.TestProvider(r.Context(), "ping")
	latencyMs := time.Since(start).Milliseconds()

	resp := map[string]interface{}{"success": err == nil, "latencyMs": latencyMs}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
