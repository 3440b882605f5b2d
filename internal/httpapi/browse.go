package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/internal/vfs"
)

func (s *Server) handleBrowseList(w http.ResponseWriter, r *http.Request) {
	if s.tree == nil {
		writeError(w, http.StatusNotImplemented, "file browser is not configured")
		return
	}
	sourceID := r.URL.Query().Get("source")
	if sourceID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"sources": s.tree.Sources()})
		return
	}
	entries, err := s.tree.List(sourceID, r.URL.Query().Get("path"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleBrowseSearch(w http.ResponseWriter, r *http.Request) {
	// The dashboard's "search" over the local tree answers with the same
	// unfiltered directory listing as handleBrowseList; it never hits
	// the upstream catalog.
	s.handleBrowseList(w, r)
}

func (s *Server) handleEmbeddedTracks(w http.ResponseWriter, r *http.Request) {
	if s.tree == nil || s.demuxer == nil {
		writeError(w, http.StatusNotImplemented, "embedded subtitle detection is not configured")
		return
	}
	sourceID := r.URL.Query().Get("source")
	relPath := r.URL.Query().Get("path")
	absPath, err := s.tree.ResolvePath(sourceID, relPath)
	if err != nil {
		writeAppError(w, err)
		return
	}
	tracks, err := s.demuxer.ProbeTracks(absPath)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.UpstreamUnavailable, "probing embedded tracks failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type browseTranslateRequest struct {
	Source         string `json:"source"`
	Path           string `json:"path"`
	TargetLanguage string `json:"target_language"`
}

func (s *Server) handleBrowseTranslate(w http.ResponseWriter, r *http.Request) {
	if s.tree == nil || s.sub == nil {
		writeError(w, http.StatusNotImplemented, "browser translation is not configured")
		return
	}
	var req browseTranslateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	target, err := s.resolveTargetLanguage(req.TargetLanguage)
	if err != nil {
		writeAppError(w, err)
		return
	}

	absPath, err := s.tree.ResolvePath(req.Source, req.Path)
	if err != nil {
		writeAppError(w, err)
		return
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to read local subtitle", err))
		return
	}
	format := subtitle.Sniff(content)

	doc, err := s.sub.TranslateContent(r.Context(), content, format, target)
	if err != nil {
		writeAppError(w, err)
		return
	}
	data, err := subtitle.Generate(doc)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to render translated subtitle", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content": string(data),
		"cues":    len(doc.Cues),
	})
}

type browseTranslateEmbeddedRequest struct {
	Source         string `json:"source"`
	Path           string `json:"path"`
	TrackIndex     int    `json:"track_index"`
	TargetLanguage string `json:"target_language"`
}

func (s *Server) handleBrowseTranslateEmbedded(w http.ResponseWriter, r *http.Request) {
	if s.tree == nil || s.demuxer == nil || s.sub == nil {
		writeError(w, http.StatusNotImplemented, "embedded-subtitle translation is not configured")
		return
	}
	var req browseTranslateEmbeddedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	target, err := s.resolveTargetLanguage(req.TargetLanguage)
	if err != nil {
		writeAppError(w, err)
		return
	}

	absPath, err := s.tree.ResolvePath(req.Source, req.Path)
	if err != nil {
		writeAppError(w, err)
		return
	}

	extracted, err := os.CreateTemp("", "browse-extract-*.srt")
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to allocate temp file", err))
		return
	}
	extracted.Close()
	defer os.Remove(extracted.Name())

	if err := s.demuxer.ExtractTrack(absPath, req.TrackIndex, extracted.Name()); err != nil {
		writeAppError(w, apperr.Wrap(apperr.UpstreamUnavailable, "extracting embedded track failed", err))
		return
	}
	content, err := os.ReadFile(extracted.Name())
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to read extracted track", err))
		return
	}

	doc, err := s.sub.TranslateContent(r.Context(), content, subtitle.SRT, target)
	if err != nil {
		writeAppError(w, err)
		return
	}
	data, err := subtitle.Generate(doc)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to render translated subtitle", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content": string(data),
		"cues":    len(doc.Cues),
	})
}

func (s *Server) resolveTargetLanguage(requested string) (language.Tag, error) {
	if requested != "" {
		return language.Parse(requested)
	}
	return s.targetLanguageTag()
}

// handleBrowseProgress streams the registry's live job snapshots as
// server-sent events so the dashboard can render a progress bar
// without polling.
func (s *Server) handleBrowseProgress(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusNotImplemented, "progress tracking is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			writeSSEJSON(w, "progress", s.registry.List())
			flusher.Flush()
		}
	}
}

func (s *Server) handleBrowseMode(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		mode := "local"
		if s.tree != nil && len(s.tree.Sources()) > 0 {
			for _, src := range s.tree.Sources() {
				if src.Kind == vfs.SMB {
					mode = "smb"
					break
				}
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"mode": mode})
		return
	}
	// The mode itself is derived from the configured sources; there is
	// nothing to persist on POST beyond acknowledging the request.
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBrowseTest(w http.ResponseWriter, r *http.Request) {
	if s.tree == nil {
		writeError(w, http.StatusNotImplemented, "file browser is not configured")
		return
	}
	sources := s.tree.Sources()
	results := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		_, err := s.tree.List(src.ID, "")
		ok := err == nil
		entry := map[string]any{"source": src.ID, "root": src.Root, "ok": ok}
		if err != nil {
			entry["error"] = err.Error()
		}
		results = append(results, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleBrowseDiscover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"shares": vfs.DiscoverMountedSMBShares()})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
