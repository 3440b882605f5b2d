package httpapi

import (
	"net/http"

	"golang.org/x/text/language"
)

// settingsView is the JSON shape sent to and received from the
// dashboard. Secret fields are masked on the way out and, on the way
// in, an empty secret field, or one still holding the mask, means
// "leave the stored value alone" rather than "clear it" or "store the
// mask".
type settingsView struct {
	CatalogBaseURL  string `json:"catalog_base_url"`
	CatalogAPIKey   string `json:"catalog_api_key"`
	CatalogUsername string `json:"catalog_username"`
	CatalogPassword string `json:"catalog_password"`
	LLMAPIURL       string `json:"llm_api_url"`
	LLMAPIKey       string `json:"llm_api_key"`
	LLMModel        string `json:"llm_model"`
	TargetLanguage  string `json:"target_language"`
	LocalRoots      []string `json:"local_roots"`
	CacheDir        string `json:"cache_dir"`
}

const maskedSecret = "********"

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return maskedSecret
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	if r.Method == http.MethodGet {
		current := s.settings.Get()
		writeJSON(w, http.StatusOK, settingsView{
			CatalogBaseURL:  current.Catalog.BaseURL,
			CatalogAPIKey:   mask(current.Catalog.APIKey),
			CatalogUsername: current.Catalog.Username,
			CatalogPassword: mask(current.Catalog.Password),
			LLMAPIURL:       current.LLM.APIURL,
			LLMAPIKey:       mask(current.LLM.APIKey),
			LLMModel:        current.LLM.Model,
			TargetLanguage:  current.Translate.TargetLanguage.String(),
			LocalRoots:      current.VFS.LocalRoots,
			CacheDir:        current.CacheDir,
		})
		return
	}

	var view settingsView
	if err := decodeJSON(r, &view); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	next := s.settings.Get()
	next.Catalog.BaseURL = view.CatalogBaseURL
	next.Catalog.Username = view.CatalogUsername
	if view.CatalogAPIKey != "" && view.CatalogAPIKey != maskedSecret {
		next.Catalog.APIKey = view.CatalogAPIKey
	}
	if view.CatalogPassword != "" && view.CatalogPassword != maskedSecret {
		next.Catalog.Password = view.CatalogPassword
	}
	next.LLM.APIURL = view.LLMAPIURL
	next.LLM.Model = view.LLMModel
	if view.LLMAPIKey != "" && view.LLMAPIKey != maskedSecret {
		next.LLM.APIKey = view.LLMAPIKey
	}
	if view.TargetLanguage != "" {
		target, err := language.Parse(view.TargetLanguage)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid target_language: "+err.Error())
			return
		}
		next.Translate.TargetLanguage = target
	}
	if len(view.LocalRoots) > 0 {
		next.VFS.LocalRoots = view.LocalRoots
	}
	if view.CacheDir != "" {
		next.CacheDir = view.CacheDir
	}

	if err := s.settings.Update(next); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
