package media

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	VideoExts = []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv"}
	AudioExts = []string{".wav", ".mp3", ".aac", ".ogg", ".flac"}
)

// Allowed reports whether name has an accepted upload extension.
func Allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return contains(VideoExts, ext) || contains(AudioExts, ext)
}

// IsVideo decides whether path needs audio extraction first. The extension
// wins; otherwise the content head is sniffed.
func IsVideo(path string, head []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if contains(VideoExts, ext) {
		return true
	}
	if contains(AudioExts, ext) || len(head) == 0 {
		return false
	}
	return strings.HasPrefix(mimetype.Detect(head).String(), "video/")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
