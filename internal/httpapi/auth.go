package httpapi

import "net/http"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User    string `json:"user"`
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
	Status  string `json:"status"`
}

// handleCatalogLogin is a thin wrapper around the catalog adapter's
// session. It exists so the dashboard's login form has something to
// call; the catalog's own bearer token is refreshed independently by
// a cron job, not by this request.
func (s *Server) handleCatalogLogin(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotImplemented, "catalog is not configured")
		return
	}
	var req loginRequest
	_ = decodeJSON(r, &req)

	if err := s.catalog.Login(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		User:   req.Username,
		Status: "ok",
	})
}

func (s *Server) handleCatalogLogout(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusNotImplemented, "catalog is not configured")
		return
	}
	if err := s.catalog.Logout(); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
