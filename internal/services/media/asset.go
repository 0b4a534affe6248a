package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Video is a downloaded video and the metadata yt-dlp reported for it.
// Path is fixed at construction. Metadata stays nil until a fetch succeeds
// and is written at most once.
type Video struct {
	SourceURL string
	OwnerID   string
	Path      string
	Format    string

	Width       *int
	Height      *int
	Duration    *int
	Description *string

	fetched bool
}

// Audio is an audio track extracted from a video URL.
type Audio struct {
	SourceURL string
	OwnerID   string
	Path      string
	Format    string
	Codec     string
}

// Assets creates request-scoped assets inside one work directory.
type Assets struct {
	dir         string
	videoFormat string
	audioFormat string
	audioCodec  string
}

func NewAssets(dir, videoFormat, audioFormat, audioCodec string) *Assets {
	return &Assets{
		dir:         dir,
		videoFormat: videoFormat,
		audioFormat: audioFormat,
		audioCodec:  audioCodec,
	}
}

// Dir returns the directory every asset path lives in.
func (a *Assets) Dir() string {
	return a.dir
}

// NewVideo returns a video asset with a fresh path: video_<owner>_<uuid>.mp4
func (a *Assets) NewVideo(sourceURL, ownerID string) *Video {
	return &Video{
		SourceURL: sourceURL,
		OwnerID:   ownerID,
		Path:      a.path("video", ownerID, "mp4"),
		Format:    a.videoFormat,
	}
}

// NewAudio returns an audio asset with a fresh path: audio_<owner>_<uuid>.<codec>
func (a *Assets) NewAudio(sourceURL, ownerID string) *Audio {
	return &Audio{
		SourceURL: sourceURL,
		OwnerID:   ownerID,
		Path:      a.path("audio", ownerID, a.audioCodec),
		Format:    a.audioFormat,
		Codec:     a.audioCodec,
	}
}

func (a *Assets) path(kind, ownerID, ext string) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s_%s_%s.%s", kind, ownerID, uuid.NewString(), ext))
}

// IsAssetName reports whether name is an asset file, <kind>_<owner>_<uuid>.<ext>,
// or one yt-dlp derives from it (<name>.part, <stem>.f137.mp4, <stem>.webm).
func IsAssetName(name string) bool {
	kind, rest, ok := strings.Cut(name, "_")
	if !ok || (kind != "video" && kind != "audio") {
		return false
	}
	stem, _, ok := strings.Cut(rest, ".")
	if !ok {
		return false
	}
	i := strings.LastIndexByte(stem, '_')
	if i <= 0 {
		return false
	}
	id := stem[i+1:]
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// HasDescription reports whether the fetch recovered non-empty description text.
func (v *Video) HasDescription() bool {
	return v.Description != nil && *v.Description != ""
}

func (v *Video) applyInfo(info videoInfo) {
	if v.fetched {
		return
	}
	v.fetched = true

	v.Width = info.Width
	v.Height = info.Height
	if info.Duration != nil {
		d := int(*info.Duration + 0.5)
		v.Duration = &d
	}
	v.Description = info.Description
}
