package cache

import (
	"testing"
	"time"

	"github.com/larkspur-labs/subproxy/internal/subtitle"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func sampleDoc() *subtitle.Document {
	return &subtitle.Document{
		Format: subtitle.SRT,
		Cues: []subtitle.Cue{
			{Index: 1, Start: time.Second, End: 2 * time.Second, Text: "hola"},
		},
	}
}

func TestStore_PutThenGet(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	fp := NewCatalogFingerprint("abc123")

	require.False(t, s.IsCached(fp, language.Spanish, subtitle.SRT))

	_, err := s.Put(fp, language.Spanish, sampleDoc())
	require.NoError(t, err)
	require.True(t, s.IsCached(fp, language.Spanish, subtitle.SRT))

	doc, ok, err := s.Get(fp, language.Spanish, subtitle.SRT)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hola", doc.Cues[0].Text)
}

func TestStore_DifferentTargetLanguagesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	fp := NewCatalogFingerprint("abc123")

	_, err := s.Put(fp, language.Spanish, sampleDoc())
	require.NoError(t, err)

	require.False(t, s.IsCached(fp, language.French, subtitle.SRT))
	_, ok, err := s.Get(fp, language.French, subtitle.SRT)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFingerprint_EmbeddedKeyIsDeterministic(t *testing.T) {
	fp1 := NewEmbeddedFingerprint("/media/Show/S01E01.mkv", 2)
	fp2 := NewEmbeddedFingerprint("/media/Show/S01E01.mkv", 2)
	require.Equal(t, fp1.Key(), fp2.Key())
	require.Equal(t, "embedded_S01E01_track2", fp1.Key())
}

func TestFingerprint_LocalIsNotDeterministic(t *testing.T) {
	fp1 := NewLocalFingerprint()
	fp2 := NewLocalFingerprint()
	require.NotEqual(t, fp1.Key(), fp2.Key())
}

func TestStore_Evict(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	fp := NewCatalogFingerprint("evict-me")

	_, err := s.Put(fp, language.Spanish, sampleDoc())
	require.NoError(t, err)
	require.NoError(t, s.Evict(fp))
	require.False(t, s.IsCached(fp, language.Spanish, subtitle.SRT))
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	_, err := s.Put(NewCatalogFingerprint("a"), language.Spanish, sampleDoc())
	require.NoError(t, err)
	_, err = s.Put(NewCatalogFingerprint("b"), language.French, sampleDoc())
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	require.Empty(t, s.List())
}

func TestStore_StoreOriginalThenPut_AppearsInProgressUntilTranslated(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	fp := NewEmbeddedFingerprint("movie.mkv", 3)
	trackIndex := 3

	require.NoError(t, s.StoreOriginal(fp, []byte("1\n00:00:00,000 --> 00:00:01,000\nhello\n"), Metadata{
		FileName:   "movie.mkv",
		TrackIndex: &trackIndex,
	}))

	entries := s.List()
	require.Len(t, entries, 1)
	require.True(t, entries[0].InProgress)
	require.Equal(t, fp.Key(), entries[0].Fingerprint.Key())

	_, err := s.Put(fp, language.Spanish, sampleDoc())
	require.NoError(t, err)

	entries = s.List()
	require.Len(t, entries, 1)
	require.False(t, entries[0].InProgress)
	require.Equal(t, language.Spanish, entries[0].TargetLanguage)
}

func TestStore_SinceOnlyReturnsFilesWrittenAfterCutoff(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	_, err := s.Put(NewCatalogFingerprint("old"), language.Spanish, sampleDoc())
	require.NoError(t, err)

	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)

	_, err = s.Put(NewCatalogFingerprint("new"), language.Spanish, sampleDoc())
	require.NoError(t, err)

	paths, err := s.Since(cutoff)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Contains(t, paths[0], NewCatalogFingerprint("new").Key())
}
