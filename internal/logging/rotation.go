package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Rotation renames the log file to a timestamped sibling once it grows
// past maxSize, so long-running bots do not fill the disk with one file.
type Rotation struct {
	path    string
	maxSize int64
}

func NewRotation(path string, maxSize int64) *Rotation {
	return &Rotation{
		path:    path,
		maxSize: maxSize,
	}
}

func (r *Rotation) ShouldRotate() bool {
	info, err := os.Stat(r.path)
	if err != nil {
		return false
	}
	return info.Size() >= r.maxSize
}

func (r *Rotation) Rotate() (string, error) {
	timestamp := time.Now().Format("20060102-150405")
	ext := filepath.Ext(r.path)
	base := r.path[:len(r.path)-len(ext)]

	newPath := fmt.Sprintf("%s-%s%s", base, timestamp, ext)

	err := os.Rename(r.path, newPath)
	return newPath, err
}
