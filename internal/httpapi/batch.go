package httpapi

import (
	"net/http"

	"github.com/larkspur-labs/subproxy/internal/batchprofile"
)

type batchAnalyzeRequest struct {
	Source string `json:"source"`
	Folder string `json:"folder"`
}

func (s *Server) handleBatchAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.batchOrc == nil {
		writeError(w, http.StatusNotImplemented, "batch orchestrator is not configured")
		return
	}
	var req batchAnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	rec, err := s.batchOrc.Analyze(req.Source, req.Folder)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type batchStartRequest struct {
	TargetLanguage string `json:"target_language"`
}

func (s *Server) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if s.batchOrc == nil {
		writeError(w, http.StatusNotImplemented, "batch orchestrator is not configured")
		return
	}
	var req batchStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	target, err := s.resolveTargetLanguage(req.TargetLanguage)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := s.batchOrc.Start(r.Context(), target); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"started": true})
}

func (s *Server) handleBatchProgress(w http.ResponseWriter, r *http.Request) {
	if s.batchOrc == nil {
		writeError(w, http.StatusNotImplemented, "batch orchestrator is not configured")
		return
	}
	rec, ok := s.batchOrc.Progress()
	if !ok {
		writeError(w, http.StatusNotFound, "no batch has run yet")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBatchCancel(w http.ResponseWriter, r *http.Request) {
	if s.batchOrc == nil {
		writeError(w, http.StatusNotImplemented, "batch orchestrator is not configured")
		return
	}
	s.batchOrc.Cancel()
	writeJSON(w, http.StatusOK, map[string]any{"cancelling": true})
}

func (s *Server) handleBatchHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "batch history is not configured")
		return
	}
	limit := queryInt(r, "limit", 50)
	history, err := s.history.ListBatchHistory(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleListBatchProfiles(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusNotImplemented, "batch profiles are not configured")
		return
	}
	profiles, err := s.profiles.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (s *Server) handleSaveBatchProfile(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusNotImplemented, "batch profiles are not configured")
		return
	}
	var profile batchprofile.Profile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.profiles.Save(profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}
