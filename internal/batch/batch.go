package batch

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/internal/media"
	"github.com/larkspur-labs/subproxy/internal/orchestrator"
	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/internal/termmap"
	"github.com/larkspur-labs/subproxy/internal/vfs"
	"github.com/larkspur-labs/subproxy/pkg/file"
	"github.com/larkspur-labs/subproxy/pkg/log"
	"golang.org/x/text/language"
)

// headerProbeBytes caps how much of a video's header analyze reads
// before handing it to the demuxer, so probing a folder full of large
// files doesn't pull them in their entirety.
const headerProbeBytes = 20 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Orchestrator runs the at-most-one-active batch workflow. analyze and
// start are synchronous from the caller's perspective except for the
// translation loop itself, which start hands off to a background
// goroutine.
type Orchestrator struct {
	tree    *vfs.Tree
	demuxer media.Demuxer
	sub     *orchestrator.Orchestrator

	mu        sync.Mutex
	current   *Record
	cancelled bool
}

func New(tree *vfs.Tree, demuxer media.Demuxer, sub *orchestrator.Orchestrator) *Orchestrator {
	return &Orchestrator{tree: tree, demuxer: demuxer, sub: sub}
}

// Analyze recursively walks sourceID/folder looking for video files
// that carry an embedded English subtitle track. Only the container
// header is read per file; the probe's temp copy is removed
// immediately after each file, win or lose. It fails with Busy if a
// batch is already active.
func (o *Orchestrator) Analyze(sourceID, folder string) (Record, error) {
	o.mu.Lock()
	if o.current != nil && !isTerminal(o.current.Status) {
		o.mu.Unlock()
		return Record{}, apperr.New(apperr.Busy, "a batch is already active")
	}
	rec := &Record{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Folder:    folder,
		Status:    Analyzing,
		StartTime: time.Now(),
	}
	o.current = rec
	o.cancelled = false
	o.mu.Unlock()

	paths, err := o.walkVideos(sourceID, folder)
	if err != nil {
		o.mu.Lock()
		rec.Status = Failed
		rec.Err = err
		o.mu.Unlock()
		return *rec, err
	}

	var videos []Video
	for _, relPath := range paths {
		v, ok, err := o.probeOne(sourceID, relPath)
		if err != nil {
			log.Warn("batch analyze: skipping %s: %v", relPath, err)
			continue
		}
		if ok {
			videos = append(videos, v)
		}
	}

	o.mu.Lock()
	rec.Videos = videos
	rec.Total = len(videos)
	rec.Status = Completed
	o.mu.Unlock()

	return *rec, nil
}

// walkVideos recursively lists sourceID/root and returns every
// source-relative path whose extension matches a known video
// container.
func (o *Orchestrator) walkVideos(sourceID, root string) ([]string, error) {
	var out []string
	var walk func(relPath string) error
	walk = func(relPath string) error {
		entries, err := o.tree.List(sourceID, relPath)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				if err := walk(e.Path); err != nil {
					return err
				}
				continue
			}
			if isVideoFile(e.Name) {
				out = append(out, e.Path)
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "failed to walk batch folder", err)
	}
	return out, nil
}

// probeOne copies path's header to a temp file, probes it for an
// English subtitle track, and reports ok=false if none is found. The
// temp file is always removed before returning.
func (o *Orchestrator) probeOne(sourceID, relPath string) (Video, bool, error) {
	absPath, err := o.tree.ResolvePath(sourceID, relPath)
	if err != nil {
		return Video{}, false, err
	}

	headerPath, err := copyHeader(absPath, headerProbeBytes)
	if err != nil {
		return Video{}, false, err
	}
	defer os.Remove(headerPath)

	tracks, err := o.demuxer.ProbeTracks(headerPath)
	if err != nil {
		return Video{}, false, err
	}
	for _, t := range tracks {
		if isEnglish(t.Language) {
			return Video{
				Path:       relPath,
				FileName:   filepath.Base(relPath),
				TrackIndex: t.Index,
				Language:   t.Language,
			}, true, nil
		}
	}
	return Video{}, false, nil
}

// copyHeader copies at most maxBytes from the start of srcPath into a
// new temp file and returns its path.
func copyHeader(srcPath string, maxBytes int64) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", apperr.Wrap(apperr.BadInput, "failed to open video for header analysis", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "batch-header-*"+filepath.Ext(srcPath))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to create temp header file", err)
	}
	defer tmp.Close()

	if _, err := io.CopyN(tmp, bufio.NewReader(src), maxBytes); err != nil && err != io.EOF {
		os.Remove(tmp.Name())
		return "", apperr.Wrap(apperr.Internal, "failed to copy video header", err)
	}
	return tmp.Name(), nil
}

// Start requires a prior Analyze that found at least one video, and
// runs the translate-and-write loop over them sequentially in a
// background goroutine. It returns immediately; callers poll Progress.
func (o *Orchestrator) Start(ctx context.Context, targetLang language.Tag) error {
	o.mu.Lock()
	rec := o.current
	if rec == nil || rec.Status != Completed || rec.Total == 0 {
		o.mu.Unlock()
		return apperr.New(apperr.BadInput, "no completed analysis with videos to translate")
	}
	rec.Status = Translating
	o.cancelled = false
	o.mu.Unlock()

	go o.run(ctx, rec, targetLang)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, rec *Record, targetLang language.Tag) {
	for _, v := range rec.Videos {
		if o.isCancelled() {
			o.mu.Lock()
			rec.Status = Cancelled
			o.mu.Unlock()
			return
		}

		o.mu.Lock()
		rec.CurrentVideo = v.Path
		o.mu.Unlock()

		if err := o.translateOne(ctx, rec.SourceID, v, targetLang); err != nil {
			log.Error("batch: video %s failed: %v", v.Path, err)
		} else {
			o.mu.Lock()
			rec.Completed++
			o.mu.Unlock()
		}
	}

	o.mu.Lock()
	rec.Status = Completed
	o.mu.Unlock()
}

// translateOne runs the per-video extract-translate-write loop. The
// downloaded-to-temp video copy is always removed, on every exit path.
func (o *Orchestrator) translateOne(ctx context.Context, sourceID string, v Video, targetLang language.Tag) error {
	absPath, err := o.tree.ResolvePath(sourceID, v.Path)
	if err != nil {
		return err
	}

	videoTemp, err := downloadToTemp(absPath)
	if err != nil {
		return err
	}
	defer os.Remove(videoTemp)

	srtTemp, err := os.CreateTemp("", "batch-extract-*.srt")
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to create temp subtitle file", err)
	}
	srtTemp.Close()
	defer os.Remove(srtTemp.Name())

	if err := o.demuxer.ExtractTrack(videoTemp, v.TrackIndex, srtTemp.Name()); err != nil {
		return err
	}

	raw, err := os.ReadFile(srtTemp.Name())
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to read extracted subtitle", err)
	}

	glossary := loadGlossary(absPath, targetLang)

	translated, err := o.sub.TranslateEmbeddedTrack(ctx, raw, subtitle.SRT, targetLang, v.Path, v.TrackIndex, glossary)
	if err != nil {
		return err
	}

	return writeSubtitleNextToVideo(absPath, translated, targetLang)
}

// writeSubtitleNextToVideo writes {basename}.{langCode}.srt next to
// the source video, UTF-8 BOM prepended, with no Unicode
// normalization of the translated text.
func writeSubtitleNextToVideo(videoPath string, doc *subtitle.Document, targetLang language.Tag) error {
	data, err := subtitle.Generate(doc)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to render translated subtitle", err)
	}

	outPath := file.ReplaceExt(videoPath, targetLang.String()+".srt")

	out := make([]byte, 0, len(utf8BOM)+len(data))
	out = append(out, utf8BOM...)
	out = append(out, data...)

	tmp := outPath + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to write translated subtitle", err)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.Internal, "failed to finalize translated subtitle", err)
	}
	return nil
}

// loadGlossary looks for a term_map.en-<lang>.json alongside the video
// or in one of its ancestor directories (e.g. a show's root folder,
// shared across every season and episode underneath it). Absence is
// not an error: most folders never carry one.
func loadGlossary(videoPath string, targetLang language.Tag) termmap.TermMap {
	dir := filepath.Dir(videoPath)
	base, _ := targetLang.Base()
	path := termmap.FindInAncestors(dir, "en", base.String())
	if path == "" {
		return nil
	}
	tm, err := termmap.Load(path)
	if err != nil {
		log.Warn("failed to load term map %s: %v", path, err)
		return nil
	}
	return tm
}

func downloadToTemp(absPath string) (string, error) {
	src, err := os.Open(absPath)
	if err != nil {
		return "", apperr.Wrap(apperr.BadInput, "failed to open source video", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "batch-video-*"+filepath.Ext(absPath))
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "failed to create temp video file", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", apperr.Wrap(apperr.Internal, "failed to copy source video", err)
	}
	return tmp.Name(), nil
}

// Progress returns a point-in-time snapshot of the active (or most
// recently finished) batch record.
func (o *Orchestrator) Progress() (Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return Record{}, false
	}
	return *o.current, true
}

// Cancel flags the running batch for cancellation. The worker observes
// the flag between videos; an in-flight video always finishes first.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled = true
}

func (o *Orchestrator) isCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func isTerminal(s Status) bool {
	return s == Completed || s == Failed || s == Cancelled
}
