package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/internal/catalog"
	"github.com/larkspur-labs/subproxy/internal/config"
	"github.com/larkspur-labs/subproxy/internal/llmclient"
	"github.com/larkspur-labs/subproxy/internal/progress"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/internal/translate"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type fakeCatalog struct {
	downloadContent []byte
	downloadFormat  string
	searchResults   []catalog.SearchResult
	downloads       int
}

func (f *fakeCatalog) Search(q catalog.SearchQuery) ([]catalog.SearchResult, error) {
	return f.searchResults, nil
}

func (f *fakeCatalog) Download(fileID string) (catalog.DownloadResult, error) {
	f.downloads++
	return catalog.DownloadResult{Content: f.downloadContent, Format: f.downloadFormat}, nil
}

func (f *fakeCatalog) Login() error  { return nil }
func (f *fakeCatalog) Logout() error { return nil }

var markerEcho = regexp.MustCompile(`<<~(\d+)~>>([^\n]*)`)

// echoLLMServer replies to every chat request by echoing each marked
// line back with a recognizable prefix, so assertions can tell a
// translation happened without depending on real model output.
func echoLLMServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []llmclient.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		var user string
		for _, m := range body.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}

		matches := markerEcho.FindAllStringSubmatch(user, -1)
		var reply string
		for _, m := range matches {
			reply += fmt.Sprintf("<<~%s~>>XX-%s\n", m[1], m[2])
		}

		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
}

func newTestOrchestrator(t *testing.T, cat catalog.Client) (*Orchestrator, string) {
	srv := echoLLMServer(t)
	t.Cleanup(srv.Close)

	client, err := llmclient.NewClient(llmclient.Config{
		APIKey: "test", APIURL: srv.URL, Model: "test-model",
	})
	require.NoError(t, err)

	engine := translate.NewEngine(client, config.TranslateConfig{})
	store := cache.NewStore(t.TempDir())
	gate := progress.NewGate()
	registry := progress.NewRegistry()

	return New(cat, store, engine, gate, registry), srv.URL
}

func TestOrchestrator_ProxyDownloadAndTranslate_CachesResult(t *testing.T) {
	cat := &fakeCatalog{
		downloadContent: []byte("1\n00:00:00,000 --> 00:00:01,000\nHello there\n"),
		downloadFormat:  "srt",
	}
	orch, _ := newTestOrchestrator(t, cat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc, err := orch.ProxyDownloadAndTranslate(ctx, "42", "movie.srt", language.Spanish)
	require.NoError(t, err)
	require.Len(t, doc.Cues, 1)
	require.Contains(t, doc.Cues[0].Text, "Hello there")
	require.Equal(t, 1, cat.downloads)

	require.True(t, orch.IsCached("42", language.Spanish, subtitle.SRT))

	// second call must be served from cache, not a second download
	doc2, err := orch.ProxyDownloadAndTranslate(ctx, "42", "movie.srt", language.Spanish)
	require.NoError(t, err)
	require.Equal(t, doc.Cues[0].Text, doc2.Cues[0].Text)
	require.Equal(t, 1, cat.downloads)
}

func TestOrchestrator_TranslateContent_DoesNotWriteToCache(t *testing.T) {
	cat := &fakeCatalog{}
	orch, _ := newTestOrchestrator(t, cat)

	content := []byte("1\n00:00:00,000 --> 00:00:01,000\nHello there\n")
	_, err := orch.TranslateContent(context.Background(), content, subtitle.SRT, language.Spanish)
	require.NoError(t, err)
	require.Empty(t, orch.cache.List())
}

func TestOrchestrator_TranslateEmbeddedTrack_CachesByVideoAndTrack(t *testing.T) {
	cat := &fakeCatalog{}
	orch, _ := newTestOrchestrator(t, cat)

	content := []byte("1\n00:00:00,000 --> 00:00:01,000\nHello there\n")
	_, err := orch.TranslateEmbeddedTrack(context.Background(), content, subtitle.SRT, language.Spanish, "/media/Show/S01E01.mkv", 2, nil)
	require.NoError(t, err)

	fp := cache.NewEmbeddedFingerprint("/media/Show/S01E01.mkv", 2)
	require.True(t, orch.cache.IsCached(fp, language.Spanish, subtitle.SRT))
}

func TestOrchestrator_TranslateContent_RejectsNonEnglish(t *testing.T) {
	cat := &fakeCatalog{}
	orch, _ := newTestOrchestrator(t, cat)

	content := []byte("1\n00:00:00,000 --> 00:00:01,000\n" + repeatedFrenchText() + "\n")
	_, err := orch.TranslateContent(context.Background(), content, subtitle.SRT, language.German)
	require.Error(t, err)
}

func TestOrchestrator_ProxySearch_Delegates(t *testing.T) {
	cat := &fakeCatalog{searchResults: []catalog.SearchResult{{FileID: "1"}}}
	orch, _ := newTestOrchestrator(t, cat)

	results, err := orch.ProxySearch(catalog.SearchQuery{Query: "anything"})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func repeatedFrenchText() string {
	return "Je ne sais pas pourquoi cette phrase est tellement longue mais elle doit l'être pour la détection de la langue"
}
