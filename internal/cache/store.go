package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/larkspur-labs/subproxy/pkg/file"
	"golang.org/x/text/language"
)

const (
	originalFileName = "original.srt"
	metadataFileName = "metadata.json"
)

// Metadata is the small side document stored alongside a cache
// entry's original and translated artifacts, so the dashboard and any
// future re-run can identify what the entry came from without having
// to re-derive it from the Fingerprint alone.
type Metadata struct {
	FileName   string `json:"fileName"`
	FileID     string `json:"fileId,omitempty"`
	VideoPath  string `json:"videoPath,omitempty"`
	TrackIndex *int   `json:"trackIndex,omitempty"`
}

// Entry describes one cached translation on disk, or one fingerprint
// whose original has been fetched but whose translation has not yet
// landed (InProgress).
type Entry struct {
	Fingerprint    Fingerprint
	TargetLanguage language.Tag
	Format         subtitle.Format
	Path           string
	CreatedAt      time.Time
	InProgress     bool
}

// Store is a directory-backed cache of translated subtitle documents.
// Entries are written atomically (temp file + rename) so a crash
// mid-translation never leaves a truncated cache file that a later
// Get call could serve as if it were complete.
type Store struct {
	dir string
	mu  sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// entryDir is the per-fingerprint directory holding the original
// source, its metadata, and every language's translation of it.
func (s *Store) entryDir(fp Fingerprint) string {
	return filepath.Join(s.dir, fp.Key())
}

// fileName follows the original implementation's direction literally:
// the cache file name is keyed by the actual target language code,
// e.g. "translated_es.srt", so a later change of target language can
// never be confused with a previous language's cached output.
func fileName(lang language.Tag, format subtitle.Format) string {
	return fmt.Sprintf("translated_%s.%s", lang.String(), format)
}

func (s *Store) path(fp Fingerprint, lang language.Tag, format subtitle.Format) string {
	return filepath.Join(s.entryDir(fp), fileName(lang, format))
}

// parseFileName reverses fileName for listing cache entries back off
// disk: "translated_es.srt" -> (es, srt, true).
func parseFileName(name string) (language.Tag, subtitle.Format, bool) {
	const prefix = "translated_"
	if !strings.HasPrefix(name, prefix) {
		return language.Tag{}, "", false
	}
	rest := strings.TrimPrefix(name, prefix)
	ext := filepath.Ext(rest)
	if ext == "" {
		return language.Tag{}, "", false
	}
	format, err := subtitle.ParseFormat(ext)
	if err != nil {
		return language.Tag{}, "", false
	}
	langCode := strings.TrimSuffix(rest, ext)
	lang, err := language.Parse(langCode)
	if err != nil {
		return language.Tag{}, "", false
	}
	return lang, format, true
}

// IsCached reports whether a translation already exists for fp in
// lang/format without reading its contents.
func (s *Store) IsCached(fp Fingerprint, lang language.Tag, format subtitle.Format) bool {
	_, err := os.Stat(s.path(fp, lang, format))
	return err == nil
}

// Get loads a cached translation, returning ok=false if none exists.
func (s *Store) Get(fp Fingerprint, lang language.Tag, format subtitle.Format) (*subtitle.Document, bool, error) {
	data, err := os.ReadFile(s.path(fp, lang, format))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	doc, err := subtitle.Parse(format, data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// writeAtomic writes data to path through a temp file plus rename, so
// a reader never observes a partially written file.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// StoreOriginal persists the fetched English source and its metadata
// for fp, ahead of translation. Writing these two files without a
// corresponding translated_* file yet is what makes the entry show up
// as "in progress" to List until Put is called for some language.
func (s *Store) StoreOriginal(fp Fingerprint, original []byte, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.entryDir(fp)
	if err := writeAtomic(filepath.Join(dir, originalFileName), original); err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, metadataFileName), data)
}

// Put atomically writes doc to the cache under fp/lang/format.
func (s *Store) Put(fp Fingerprint, lang language.Tag, doc *subtitle.Document) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := subtitle.Generate(doc)
	if err != nil {
		return Entry{}, err
	}

	target := s.path(fp, lang, doc.Format)
	if err := writeAtomic(target, data); err != nil {
		return Entry{}, err
	}

	return Entry{
		Fingerprint:    fp,
		TargetLanguage: lang,
		Format:         doc.Format,
		Path:           target,
		CreatedAt:      time.Now(),
	}, nil
}

// Evict removes every cached translation for fp, across all target
// languages and formats, along with its original and metadata.
func (s *Store) Evict(fp Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.entryDir(fp))
}

// Clear removes every cache entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(s.dir); err != nil {
		return err
	}
	return os.MkdirAll(s.dir, 0o755)
}

// List walks the cache directory and returns one Entry per cached
// translation file, plus one synthetic in-progress Entry for any
// fingerprint that has an original and metadata but no translation
// yet. It is used by the dashboard's cache view, so errors reading an
// individual stray file are skipped rather than failing the whole
// listing.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []Entry
	fpDirs, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	for _, fpDir := range fpDirs {
		if !fpDir.IsDir() {
			continue
		}
		dirPath := filepath.Join(s.dir, fpDir.Name())
		files, err := os.ReadDir(dirPath)
		if err != nil {
			continue
		}

		fp := fingerprintFromKey(fpDir.Name())
		var hasMetadata bool
		var metaModTime time.Time
		translatedCount := 0

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if f.Name() == metadataFileName {
				if info, err := f.Info(); err == nil {
					hasMetadata = true
					metaModTime = info.ModTime()
				}
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			lang, format, ok := parseFileName(f.Name())
			if !ok {
				continue
			}
			translatedCount++
			entries = append(entries, Entry{
				Fingerprint:    fp,
				TargetLanguage: lang,
				Format:         format,
				Path:           filepath.Join(dirPath, f.Name()),
				CreatedAt:      info.ModTime(),
			})
		}

		if hasMetadata && translatedCount == 0 {
			entries = append(entries, Entry{
				Fingerprint: fp,
				Path:        dirPath,
				CreatedAt:   metaModTime,
				InProgress:  true,
			})
		}
	}
	return entries
}

// Since lists every cache file written after t, as paths relative to
// the cache root. Backs the dashboard's "what got cached during this
// run" view behind a ?since= query parameter, without walking and
// parsing the full Entry listing List builds.
func (s *Store) Since(t time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := file.FindRecentAfter(s.dir, t)
	if err != nil {
		return nil, err
	}
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		if r, err := filepath.Rel(s.dir, p); err == nil {
			rel = append(rel, r)
		}
	}
	return rel, nil
}
