package lib

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

func IsContain(items []string, item string) bool {
	for _, eachItem := range items {
		if eachItem == item {
			return true
		}
	}
	return false
}

func fileExists(fname string) bool {
	info, err := os.Stat(fname)
	return err == nil && !info.IsDir()
}

// FileStem is the file name up to its first dot: "a.b.mp4" -> "a".
func FileStem(fname string) string {
	return strings.Split(fname, ".")[0]
}

// ListVideos returns the regular files of dir sorted by name.
func ListVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list input videos: %w", err)
	}
	var fnames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fnames = append(fnames, entry.Name())
	}
	sort.Strings(fnames)
	return fnames, nil
}
