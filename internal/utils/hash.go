// Package utils holds small helpers shared by the modules.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// PathKeyLength is the number of hex characters kept from the digest.
const PathKeyLength = 16

// PathKey derives a stable identifier for a filesystem path. The same folder
// yields the same key across scans, so clients can hold on to it.
func PathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(hash[:])[:PathKeyLength]
}
