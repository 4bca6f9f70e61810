package domain

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// StoredFile is an entry of the key-value file store
type StoredFile struct {
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Data       []byte    `json:"-"`
}

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidPath     = errors.New("invalid file path")
	ErrSettingNotFound = errors.New("setting not found")
)

// CleanFilePath normalizes a store key: forward slashes, no leading slash,
// no dot segments. Keys that escape the root or are empty are rejected.
func CleanFilePath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	clean := strings.TrimPrefix(path.Clean("/"+p), "/")
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}
