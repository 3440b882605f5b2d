package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestSettingsStore_UpdatePersistsFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "settings.json")

	store, err := NewStore(path, Settings{CacheDir: tmp})
	require.NoError(t, err)

	next := Settings{CacheDir: tmp, LLM: LLMConfig{APIKey: "new-key"}}
	require.NoError(t, store.Update(next))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new-key", loaded.LLM.APIKey)
	require.Equal(t, "new-key", store.Get().LLM.APIKey)
}

func TestLoadStore_FallsBackWhenFileMissing(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "missing.json")
	fallback := Settings{CacheDir: tmp}

	store, err := LoadStore(path, fallback)
	require.NoError(t, err)
	require.Equal(t, fallback, store.Get())
}

func TestTargetLanguageSideFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "language-config.json")

	got, err := LoadTargetLanguage(path)
	require.NoError(t, err)
	require.Equal(t, language.Und, got)

	require.NoError(t, SaveTargetLanguage(path, language.Japanese))

	got, err = LoadTargetLanguage(path)
	require.NoError(t, err)
	require.Equal(t, language.Japanese, got)
}
