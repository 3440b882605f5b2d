// Package vfs exposes local filesystem roots (and already-mounted SMB
// shares) as a single browsable tree for the file browser and the
// batch orchestrator.
package vfs

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/larkspur-labs/subproxy/internal/apperr"
)

// Kind distinguishes a purely local root from a mounted SMB share.
// Both are walked identically once mounted; the distinction only
// matters for how the source was configured.
type Kind string

const (
	Local Kind = "local"
	SMB   Kind = "smb"
)

// Source is one browsable root.
type Source struct {
	ID   string
	Name string
	Root string
	Kind Kind
}

// Entry is one file or directory within a Source.
type Entry struct {
	Name    string
	Path    string // relative to the source root
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Tree lists entries under configured sources.
type Tree struct {
	sources []Source
}

func NewTree(sources []Source) *Tree {
	return &Tree{sources: sources}
}

func (t *Tree) Sources() []Source {
	out := make([]Source, len(t.sources))
	copy(out, t.sources)
	return out
}

func (t *Tree) source(id string) (Source, bool) {
	for _, s := range t.sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// List returns the immediate children of relPath within source id.
func (t *Tree) List(sourceID, relPath string) ([]Entry, error) {
	src, ok := t.source(sourceID)
	if !ok {
		return nil, apperr.New(apperr.BadInput, "unknown source "+sourceID)
	}

	full := filepath.Join(src.Root, filepath.Clean("/"+relPath))
	infos, err := os.ReadDir(full)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadInput, "failed to list directory", err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		fi, err := info.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    info.Name(),
			Path:    filepath.Join(relPath, info.Name()),
			IsDir:   info.IsDir(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// ResolvePath maps a source-relative path to an absolute filesystem
// path, for handing off to the demuxer or subtitle codec.
func (t *Tree) ResolvePath(sourceID, relPath string) (string, error) {
	src, ok := t.source(sourceID)
	if !ok {
		return "", apperr.New(apperr.BadInput, "unknown source "+sourceID)
	}
	return filepath.Join(src.Root, filepath.Clean("/"+relPath)), nil
}
