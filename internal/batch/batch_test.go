package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/larkspur-labs/subproxy/internal/cache"
	"github.com/larkspur-labs/subproxy/internal/config"
	"github.com/larkspur-labs/subproxy/internal/llmclient"
	"github.com/larkspur-labs/subproxy/internal/media"
	"github.com/larkspur-labs/subproxy/internal/orchestrator"
	"github.com/larkspur-labs/subproxy/internal/progress"
	"github.com/larkspur-labs/subproxy/internal/translate"
	"github.com/larkspur-labs/subproxy/internal/vfs"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// stubDemuxer reports an English track for every probed file when
// hasEnglish is set. Tests in this package only ever analyze a single
// candidate video at a time, so a per-call flag is enough; matching by
// filename would be unreliable since probe/extract always operate on
// an anonymously named temp copy of the original file.
type stubDemuxer struct {
	hasEnglish bool
	extracted  string
}

func (d *stubDemuxer) ProbeTracks(path string) ([]media.Track, error) {
	if !d.hasEnglish {
		return nil, nil
	}
	return []media.Track{{Index: 2, Language: language.English, CodecName: "subrip"}}, nil
}

func (d *stubDemuxer) ExtractTrack(path string, trackIndex int, outPath string) error {
	return os.WriteFile(outPath, []byte("1\n00:00:00,000 --> 00:00:01,000\n"+d.extracted+"\n"), 0o644)
}

var markerEcho = regexp.MustCompile(`<<~(\d+)~>>([^\n]*)`)

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
		var reply string
		for _, m := range markerEcho.FindAllStringSubmatch(user, -1) {
			reply += fmt.Sprintf("<<~%s~>>XX-%s\n", m[1], m[2])
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
}

func newTestSubOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	srv := echoLLMServer(t)
	t.Cleanup(srv.Close)
	client, err := llmclient.NewClient(llmclient.Config{APIKey: "k", APIURL: srv.URL, Model: "test"})
	require.NoError(t, err)
	engine := translate.NewEngine(client, config.TranslateConfig{})
	store := cache.NewStore(t.TempDir())
	return orchestrator.New(nil, store, engine, progress.NewGate(), progress.NewRegistry())
}

func TestBatchOrchestrator_AnalyzeFindsEnglishTracks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("fake container bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not a video"), 0o644))

	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	demuxer := &stubDemuxer{hasEnglish: true}
	bo := New(tree, demuxer, newTestSubOrchestrator(t))

	rec, err := bo.Analyze("main", "")
	require.NoError(t, err)
	require.Equal(t, Completed, rec.Status)
	require.Len(t, rec.Videos, 1)
	require.Equal(t, "movie.mkv", rec.Videos[0].FileName)

	// header temp files must never leak
	leftovers, _ := filepath.Glob(filepath.Join(os.TempDir(), "batch-header-*"))
	require.Empty(t, leftovers)
}

func TestBatchOrchestrator_AnalyzeRejectsConcurrentBatch(t *testing.T) {
	root := t.TempDir()
	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	bo := New(tree, &stubDemuxer{}, newTestSubOrchestrator(t))

	bo.current = &Record{Status: Translating}
	_, err := bo.Analyze("main", "")
	require.Error(t, err)
}

func TestBatchOrchestrator_StartRequiresCompletedAnalysis(t *testing.T) {
	root := t.TempDir()
	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	bo := New(tree, &stubDemuxer{}, newTestSubOrchestrator(t))

	err := bo.Start(context.Background(), language.Spanish)
	require.Error(t, err)
}

func TestBatchOrchestrator_StartTranslatesAndWritesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("fake container bytes"), 0o644))

	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	demuxer := &stubDemuxer{hasEnglish: true, extracted: "Hello there"}
	bo := New(tree, demuxer, newTestSubOrchestrator(t))

	_, err := bo.Analyze("main", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bo.Start(ctx, language.Spanish))

	require.Eventually(t, func() bool {
		rec, ok := bo.Progress()
		return ok && rec.Status == Completed && rec.Completed == 1
	}, 3*time.Second, 10*time.Millisecond)

	outPath := filepath.Join(root, "movie.es.srt")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, len(data) > 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF)
	require.Contains(t, string(data), "Hello there")
}

func TestBatchOrchestrator_StartUsesFolderGlossary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("fake container bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "term_map.en-es.json"), []byte(`{"Okarun":"Okarun-ES"}`), 0o644))

	var capturedSystem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []llmclient.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, m := range body.Messages {
			if m.Role == "system" {
				capturedSystem = m.Content
			}
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"<<~0~>>hola Okarun"}}]}`)
	}))
	t.Cleanup(srv.Close)
	client, err := llmclient.NewClient(llmclient.Config{APIKey: "k", APIURL: srv.URL, Model: "test"})
	require.NoError(t, err)
	engine := translate.NewEngine(client, config.TranslateConfig{})
	store := cache.NewStore(t.TempDir())
	sub := orchestrator.New(nil, store, engine, progress.NewGate(), progress.NewRegistry())

	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	demuxer := &stubDemuxer{hasEnglish: true, extracted: "Okarun is here"}
	bo := New(tree, demuxer, sub)

	_, err = bo.Analyze("main", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bo.Start(ctx, language.Spanish))

	require.Eventually(t, func() bool {
		rec, ok := bo.Progress()
		return ok && rec.Status == Completed
	}, 3*time.Second, 10*time.Millisecond)

	require.Contains(t, capturedSystem, "Okarun-ES")
}

func TestBatchOrchestrator_CancelStopsBeforeNextVideo(t *testing.T) {
	root := t.TempDir()
	tree := vfs.NewTree([]vfs.Source{{ID: "main", Root: root, Kind: vfs.Local}})
	bo := New(tree, &stubDemuxer{}, newTestSubOrchestrator(t))

	bo.current = &Record{Status: Completed, Total: 1, Videos: []Video{{Path: "x.mkv"}}}
	bo.Cancel()
	require.True(t, bo.isCancelled())

	bo.run(context.Background(), bo.current, language.Spanish)
	require.Equal(t, Cancelled, bo.current.Status)
	require.Equal(t, 0, bo.current.Completed)
	require.Empty(t, bo.current.CurrentVideo)
}
