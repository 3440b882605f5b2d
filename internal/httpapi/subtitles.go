package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/text/language"

	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/internal/catalog"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
)

// targetLanguageTag returns the dashboard's currently configured
// target language. Every translate-on-the-fly route reads it fresh
// from the settings store rather than caching it, so a language
// change takes effect on the very next request.
func (s *Server) targetLanguageTag() (language.Tag, error) {
	if s.settings == nil {
		return language.Tag{}, apperr.New(apperr.NotConfigured, "settings store is not configured")
	}
	return s.settings.Get().Translate.TargetLanguage, nil
}

func (s *Server) handleSearchSubtitles(w http.ResponseWriter, r *http.Request) {
	if s.sub == nil {
		writeError(w, http.StatusNotImplemented, "orchestrator is not configured")
		return
	}
	q := r.URL.Query()
	season, _ := strconv.Atoi(q.Get("season_number"))
	episode, _ := strconv.Atoi(q.Get("episode_number"))

	results, err := s.sub.ProxySearch(catalog.SearchQuery{
		IMDBID:  q.Get("imdb_id"),
		Query:   q.Get("query"),
		Season:  season,
		Episode: episode,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	targetLang := ""
	if s.settings != nil {
		targetLang = s.settings.Get().Translate.TargetLanguage.String()
	}

	data := make([]map[string]any, 0, len(results))
	for _, res := range results {
		data = append(data, map[string]any{
			"id": res.FileID,
			"attributes": map[string]any{
				"release":        res.ReleaseName,
				"download_count": res.DownloadsAll,
				"language":       targetLang,
				"files":          []map[string]any{{"file_id": res.FileID}},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

type downloadLinkRequest struct {
	FileID    string `json:"file_id"`
	SubFormat string `json:"sub_format"`
}

func (s *Server) handleRequestDownloadLink(w http.ResponseWriter, r *http.Request) {
	var req downloadLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	format := req.SubFormat
	if format == "" {
		format = "srt"
	}
	fileName := fmt.Sprintf("%s.%s", req.FileID, format)

	writeJSON(w, http.StatusOK, map[string]any{
		"link":           fmt.Sprintf("/api/v1/download/%s/%s", req.FileID, fileName),
		"file_name":      fileName,
		"requests":       1,
		"remaining":      1000,
		"message":        "",
		"reset_time":     "24h",
		"reset_time_utc": "",
	})
}

func (s *Server) handleProxyDownload(w http.ResponseWriter, r *http.Request) {
	if s.sub == nil {
		writeError(w, http.StatusNotImplemented, "orchestrator is not configured")
		return
	}
	fileID := r.PathValue("fileId")
	fileName := r.PathValue("fileName")

	target, err := s.targetLanguageTag()
	if err != nil {
		writeAppError(w, err)
		return
	}

	doc, err := s.sub.ProxyDownloadAndTranslate(r.Context(), fileID, fileName, target)
	if err != nil {
		writeAppError(w, err)
		return
	}

	data, err := subtitle.Generate(doc)
	if err != nil {
		writeAppError(w, apperr.Wrap(apperr.Internal, "failed to render subtitle", err))
		return
	}

	if doc.Format == subtitle.VTT {
		w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.sub == nil {
		writeError(w, http.StatusNotImplemented, "orchestrator is not configured")
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	format := subtitle.Sniff(content)

	target, err := s.targetLanguageTag()
	if err != nil {
		writeAppError(w, err)
		return
	}

	doc, err := s.sub.TranslateContent(r.Context(), content, format, target)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"file_name": header.Filename,
		"cues":      len(doc.Cues),
	})
}

func (s *Server) handleInfos(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("kind") {
	case "user":
		writeJSON(w, http.StatusOK, map[string]any{"allowed_downloads": 1000, "level": "proxy"})
	case "languages":
		writeJSON(w, http.StatusOK, map[string]any{"data": []string{"en"}})
	case "formats":
		writeJSON(w, http.StatusOK, map[string]any{"data": []string{"srt", "vtt"}})
	default:
		writeError(w, http.StatusNotFound, "unknown info resource")
	}
}
