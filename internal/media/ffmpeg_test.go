package media

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func withMockFFprobe(t *testing.T, output string, exitCode int) {
	mockDir := t.TempDir()
	mockProbe := filepath.Join(mockDir, "ffprobe")
	script := "#!/bin/sh\necho '" + output + "'\nexit " + strconv.Itoa(exitCode)
	if runtime.GOOS == "windows" {
		t.Skip("mock shell script not supported on windows")
	}
	require.NoError(t, os.WriteFile(mockProbe, []byte(script), 0o755))

	original := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", original) })
	os.Setenv("PATH", mockDir+":"+original)
}

func TestFFDemuxer_ProbeTracks_MultipleStreams(t *testing.T) {
	withMockFFprobe(t, `{"streams":[{"index":2,"codec_name":"subrip","tags":{"language":"eng","title":"English SDH"}},{"index":3,"codec_name":"ass","tags":{"language":"jpn"}}]}`, 0)

	d := NewFFDemuxer()
	tracks, err := d.ProbeTracks("dummy.mkv")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "English SDH", tracks[0].Title)
	require.Equal(t, "ja", tracks[1].Language.String())
}

func TestFFDemuxer_ProbeTracks_NoSubtitleStreams(t *testing.T) {
	withMockFFprobe(t, `{"streams":[]}`, 0)

	d := NewFFDemuxer()
	tracks, err := d.ProbeTracks("dummy.mkv")
	require.NoError(t, err)
	require.Empty(t, tracks)
}

func TestFFDemuxer_ProbeTracks_FFprobeNotFound(t *testing.T) {
	original := os.Getenv("PATH")
	t.Cleanup(func() { os.Setenv("PATH", original) })
	os.Setenv("PATH", "")

	d := NewFFDemuxer()
	_, err := d.ProbeTracks("dummy.mkv")
	require.Error(t, err)
}
