package media

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/larkspur-labs/subproxy/internal/apperr"
	"github.com/larkspur-labs/subproxy/pkg/log"
	"golang.org/x/text/language"
)

// FFDemuxer shells out to ffprobe for header-only stream probing and
// ffmpeg for track extraction.
type FFDemuxer struct {
	ffmpegCmd  string
	ffprobeCmd string
}

func NewFFDemuxer() *FFDemuxer {
	return &FFDemuxer{ffmpegCmd: "ffmpeg", ffprobeCmd: "ffprobe"}
}

func (d *FFDemuxer) ProbeTracks(path string) ([]Track, error) {
	cmdPath, err := exec.LookPath(d.ffprobeCmd)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "ffprobe not found", err)
	}

	cmd := exec.Command(cmdPath, "-v", "quiet", "-print_format", "json", "-show_streams", "-select_streams", "s", path)
	output, err := cmd.Output()
	if err != nil {
		if len(output) == 0 {
			log.Error("ffprobe failed for %s: %v", path, err)
			return nil, apperr.Wrap(apperr.UpstreamUnavailable, "ffprobe failed", err)
		}
		// ffprobe can exit non-zero while still emitting usable JSON on
		// some malformed containers; fall through and try to parse it.
	}

	var probe struct {
		Streams []struct {
			Index     int    `json:"index"`
			CodecName string `json:"codec_name"`
			Tags      struct {
				Language string `json:"language"`
				Title    string `json:"title"`
			} `json:"tags"`
			Disposition struct {
				Default int `json:"default"`
			} `json:"disposition"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to parse ffprobe output", err)
	}

	tracks := make([]Track, 0, len(probe.Streams))
	for _, s := range probe.Streams {
		lang := s.Tags.Language
		tag := language.Und
		if lang != "" {
			tag = language.Make(lang)
			if strings.EqualFold(lang, "english") {
				tag = language.English
			}
		}
		tracks = append(tracks, Track{
			Index:     s.Index,
			Language:  tag,
			Title:     s.Tags.Title,
			CodecName: s.CodecName,
			IsDefault: s.Disposition.Default == 1,
		})
	}
	return tracks, nil
}

func (d *FFDemuxer) ExtractTrack(path string, trackIndex int, outPath string) error {
	cmdPath, err := exec.LookPath(d.ffmpegCmd)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "ffmpeg not found", err)
	}

	cmd := exec.Command(cmdPath,
		"-y",
		"-i", path,
		"-map", fmt.Sprintf("0:%d", trackIndex),
		"-c:s", "srt",
		"-f", "srt",
		outPath,
	)
	if err := cmd.Run(); err != nil {
		return apperr.Wrap(apperr.Internal, "ffmpeg extraction failed", err)
	}
	return nil
}
