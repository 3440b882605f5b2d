// Package cache implements the content-addressed cache of translated
// subtitle documents. Every cache entry is keyed by a Fingerprint
// (identifying the source subtitle) plus the actual target language
// code, so changing the target language never serves a stale
// translation produced for a different language.
package cache

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
)

// Kind tells how a Fingerprint identifies its source subtitle: by
// catalog file ID (the common case, returned by proxy_search
// results), by the demuxed video file and track it came from, or as a
// non-persistent local sequence number for ad-hoc content that never
// touched the catalog or a video container.
type Kind string

const (
	CatalogBacked  Kind = "catalog"
	EmbeddedBacked Kind = "embedded"
	LocalBacked    Kind = "local"
)

// Fingerprint identifies a source English subtitle independent of
// target language. Two Fingerprints with the same Key are considered
// the same subtitle for caching purposes.
type Fingerprint struct {
	Kind Kind

	CatalogID string // OpenSubtitles-style file id, set when Kind == CatalogBacked

	FileName   string // sanitized video file name, set when Kind == EmbeddedBacked
	TrackIndex int    // demuxed track index, set when Kind == EmbeddedBacked

	Local uint64 // monotonic counter, set when Kind == LocalBacked
}

// NewCatalogFingerprint builds a Fingerprint for a subtitle known to
// the upstream catalog by file ID.
func NewCatalogFingerprint(catalogID string) Fingerprint {
	return Fingerprint{Kind: CatalogBacked, CatalogID: catalogID}
}

// NewEmbeddedFingerprint builds a Fingerprint for a subtitle track
// demuxed out of a video container, identified by the video's file
// name and the track's index. It is deterministic across runs, so a
// re-analyzed batch recognizes a track it already translated.
func NewEmbeddedFingerprint(videoFileName string, trackIndex int) Fingerprint {
	return Fingerprint{Kind: EmbeddedBacked, FileName: sanitizeFileName(videoFileName), TrackIndex: trackIndex}
}

// localSeq is a process-lifetime-only counter: restarting the process
// resets it, which is exactly why a LocalBacked Fingerprint is
// documented as non-persistent.
var localSeq atomic.Uint64

// NewLocalFingerprint builds a Fingerprint for ad-hoc content that has
// no catalog identity and no backing video file. It is unique only
// within the current process lifetime and is never written to the
// cache.
func NewLocalFingerprint() Fingerprint {
	return Fingerprint{Kind: LocalBacked, Local: localSeq.Add(1)}
}

var unsafeFileNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// sanitizeFileName strips the directory and extension from name and
// replaces every run of characters unsafe for a cache directory
// segment with a single underscore.
func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return unsafeFileNameChars.ReplaceAllString(base, "_")
}

// Key returns a filesystem-safe identifier unique to this
// Fingerprint, used as the cache entry's directory name.
func (f Fingerprint) Key() string {
	switch f.Kind {
	case CatalogBacked:
		return "catalog-" + f.CatalogID
	case EmbeddedBacked:
		return fmt.Sprintf("embedded_%s_track%d", f.FileName, f.TrackIndex)
	case LocalBacked:
		return fmt.Sprintf("local_%d", f.Local)
	default:
		return fmt.Sprintf("unknown-%v", f)
	}
}

var embeddedKeyPattern = regexp.MustCompile(`^embedded_(.+)_track(\d+)$`)

// fingerprintFromKey reverses Key for listing: it recovers enough of
// the original Fingerprint to report and to re-evict by. A
// LocalBacked key never reaches this function since that kind is
// never written to disk.
func fingerprintFromKey(key string) Fingerprint {
	switch {
	case strings.HasPrefix(key, "catalog-"):
		return Fingerprint{Kind: CatalogBacked, CatalogID: strings.TrimPrefix(key, "catalog-")}
	case embeddedKeyPattern.MatchString(key):
		groups := embeddedKeyPattern.FindStringSubmatch(key)
		idx, _ := strconv.Atoi(groups[2])
		return Fingerprint{Kind: EmbeddedBacked, FileName: groups[1], TrackIndex: idx}
	default:
		return Fingerprint{}
	}
}
