package review

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"demodesk/storage"
)

// DemosRoot is the file-store folder holding the four status folders.
const DemosRoot = "/demos"

// sidecarSuffix is appended to an audio file name to form its metadata
// sidecar name, e.g. track.mp3 -> track.mp3.metadata.json.
const sidecarSuffix = ".metadata.json"

// StatusFolder returns the folder encoding a demo status.
func StatusFolder(status string) string {
	return DemosRoot + "/" + status
}

// SidecarPath returns the sidecar path for an audio path.
func SidecarPath(audioPath string) string {
	return audioPath + sidecarSuffix
}

// IsSidecar reports whether name is a metadata sidecar file.
func IsSidecar(name string) bool {
	return strings.HasSuffix(name, sidecarSuffix)
}

// IsAudio reports whether name is a demo audio file.
func IsAudio(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".wav")
}

// FolderDigest hashes a folder's file names and modification times. Two
// listings digest equal exactly when no file was added, removed, renamed
// or rewritten in between.
func FolderDigest(files []storage.FileInfo) string {
	lines := make([]string, 0, len(files))
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("%s|%d", f.Name, f.Modified.Unix()))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
