package utils

import (
	"os"
	"strings"
)

// PathExists reports whether anything is present at path. Every stat error,
// permission problems included, counts as absent.
func PathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsHidden reports whether a file or directory name is a dot-entry.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
