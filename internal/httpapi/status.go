package httpapi

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/pkg/icron"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"catalog_configured": s.catalog != nil,
		"orchestrator_ready": s.sub != nil,
		"batch_ready":        s.batchOrc != nil,
		"ui_enabled":         s.uiEnabled,
	}
	if s.registry != nil {
		status["active_jobs"] = len(s.registry.List())
	}
	if s.reloginCronExpr != "" {
		if info, err := icron.GetTriggerInfo(s.reloginCronExpr, time.Now()); err == nil {
			status["catalog_relogin"] = info
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCacheList(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotImplemented, "cache is not configured")
		return
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		paths, err := s.cache.Since(t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.cache.List()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotImplemented, "cache is not configured")
		return
	}
	if err := s.cache.Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (s *Server) handleCacheEvict(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotImplemented, "cache is not configured")
		return
	}
	fileID := r.PathValue("fileId")
	if err := s.cache.Evict(cache.NewCatalogFingerprint(fileID)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evicted": fileID})
}

func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	target, err := s.targetLanguageTag()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_language": target.String()})
}

type setLanguageRequest struct {
	TargetLanguage string `json:"target_language"`
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	var req setLanguageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	target, err := language.Parse(req.TargetLanguage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_language: "+err.Error())
		return
	}
	next := s.settings.Get()
	next.Translate.TargetLanguage = target
	if err := s.settings.Update(next); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_language": target.String()})
}
