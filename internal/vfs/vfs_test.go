package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTree_List(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "Season 1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.mkv"), []byte("x"), 0o644))

	tree := NewTree([]Source{{ID: "main", Name: "Movies", Root: root, Kind: Local}})
	entries, err := tree.List("main", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// directories sort before files
	require.True(t, entries[0].IsDir)
	require.Equal(t, "Season 1", entries[0].Name)
}

func TestTree_List_UnknownSource(t *testing.T) {
	tree := NewTree(nil)
	_, err := tree.List("nope", "")
	require.Error(t, err)
}

func TestTree_ResolvePath_PreventsEscapingRoot(t *testing.T) {
	root := t.TempDir()
	tree := NewTree([]Source{{ID: "main", Root: root, Kind: Local}})
	resolved, err := tree.ResolvePath("main", "../../etc/passwd")
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(resolved))
	require.Contains(t, resolved, root)
}

func TestDiscoverMountedSMBShares_NoPanicWithoutProcMounts(t *testing.T) {
	require.NotPanics(t, func() {
		DiscoverMountedSMBShares()
	})
}
