package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// metaLines renders the fingerprint as key=value lines.
func (fp FileFingerprint) metaLines() []string {
	return []string{
		"source=" + fp.Path,
		"source_size=" + strconv.FormatInt(fp.Size, 10),
		"source_modtime=" + fp.ModTime.UTC().Format(time.RFC3339Nano),
	}
}

// matches reports whether meta was written for this fingerprint.
func (fp FileFingerprint) matches(meta map[string]string) bool {
	return meta["source_size"] == strconv.FormatInt(fp.Size, 10) &&
		meta["source_modtime"] == fp.ModTime.UTC().Format(time.RFC3339Nano)
}
