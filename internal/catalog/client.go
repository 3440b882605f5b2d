package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/larkspur-labs/subproxy/internal/apperr"
	"golang.org/x/sync/singleflight"
)

// HTTPClient talks to an OpenSubtitles-compatible REST API. The
// session token is refreshed out of band by a cron job (see
// catalogRelogin in cmd/main.go), not lazily on a 401 response, so a translation already
// in flight never races a re-login clearing the token it is using.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	group singleflight.Group
}

func NewHTTPClient(baseURL, apiKey, username, password string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *HTTPClient) Login() error {
	if c.username == "" {
		return nil // API-key-only deployments never log in
	}
	payload, _ := json.Marshal(map[string]string{"username": c.username, "password": c.password})
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to build login request", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "catalog login failed", err)
	}
	defer resp.Body.Close()

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "failed to decode login response", err)
	}
	if resp.StatusCode != http.StatusOK || body.Token == "" {
		return apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("catalog login rejected with status %d", resp.StatusCode))
	}

	c.mu.Lock()
	c.token = body.Token
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Logout() error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Search(query SearchQuery) ([]SearchResult, error) {
	key := fmt.Sprintf("%s|%s|%d|%d", query.IMDBID, query.Query, query.Season, query.Episode)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.doSearch(query)
	})
	if err != nil {
		return nil, err
	}
	return v.([]SearchResult), nil
}

func (c *HTTPClient) doSearch(query SearchQuery) ([]SearchResult, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/subtitles", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to build search request", err)
	}
	q := req.URL.Query()
	q.Set("languages", "en")
	if query.IMDBID != "" {
		q.Set("imdb_id", query.IMDBID)
	}
	if query.Query != "" {
		q.Set("query", query.Query)
	}
	if query.Season > 0 {
		q.Set("season_number", fmt.Sprintf("%d", query.Season))
	}
	if query.Episode > 0 {
		q.Set("episode_number", fmt.Sprintf("%d", query.Episode))
	}
	req.URL.RawQuery = q.Encode()
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "catalog search failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.UpstreamUnavailable, fmt.Sprintf("catalog search returned status %d", resp.StatusCode))
	}

	var parsed struct {
		Data []struct {
			Attributes struct {
				Release     string `json:"release"`
				DownloadCount int  `json:"download_count"`
				Files       []struct {
					FileID int `json:"file_id"`
				} `json:"files"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "failed to decode search response", err)
	}

	results := make([]SearchResult, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if len(d.Attributes.Files) == 0 {
			continue
		}
		results = append(results, SearchResult{
			FileID:       fmt.Sprintf("%d", d.Attributes.Files[0].FileID),
			ReleaseName:  d.Attributes.Release,
			DownloadsAll: d.Attributes.DownloadCount,
		})
	}
	if len(results) == 0 {
		return nil, apperr.New(apperr.Empty, "no subtitles found upstream")
	}
	return results, nil
}

func (c *HTTPClient) Download(fileID string) (DownloadResult, error) {
	payload, _ := json.Marshal(map[string]string{"file_id": fileID})
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/download", bytes.NewReader(payload))
	if err != nil {
		return DownloadResult{}, apperr.Wrap(apperr.Internal, "failed to build download request", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DownloadResult{}, apperr.Wrap(apperr.UpstreamUnavailable, "catalog download failed", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Link     string `json:"link"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return DownloadResult{}, apperr.Wrap(apperr.UpstreamUnavailable, "failed to decode download response", err)
	}
	if parsed.Link == "" {
		return DownloadResult{}, apperr.New(apperr.UpstreamUnavailable, "catalog did not return a download link")
	}

	fileResp, err := c.httpClient.Get(parsed.Link)
	if err != nil {
		return DownloadResult{}, apperr.Wrap(apperr.UpstreamUnavailable, "failed to fetch subtitle file", err)
	}
	defer fileResp.Body.Close()

	content, err := io.ReadAll(fileResp.Body)
	if err != nil {
		return DownloadResult{}, apperr.Wrap(apperr.UpstreamUnavailable, "failed to read subtitle file", err)
	}

	return DownloadResult{Content: content, Format: formatFromName(parsed.FileName)}, nil
}

func (c *HTTPClient) setCommonHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Api-Key", c.apiKey)
	}
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func formatFromName(name string) string {
	if len(name) > 4 && name[len(name)-4:] == ".vtt" {
		return "vtt"
	}
	return "srt"
}
