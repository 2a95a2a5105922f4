// Package scanner enumerates library roots for candidate media folders.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/utils"
)

// FolderStatus is the reconciliation state of a scanned folder.
type FolderStatus string

const (
	StatusPending    FolderStatus = "pending"
	StatusVerified   FolderStatus = "verified"
	StatusSkipped    FolderStatus = "skipped"
	StatusProcessing FolderStatus = "processing"
)

// titleYearPattern matches "Title (2010)" folder names.
var titleYearPattern = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)

// DetectedMetadata links a folder to the media row it matched.
type DetectedMetadata struct {
	MediaID uint   `json:"mediaId"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
}

// ScannedFolder is a candidate media folder found under a library root.
type ScannedFolder struct {
	ID               string            `json:"id"`
	Path             string            `json:"path"`
	Name             string            `json:"name"`
	Type             string            `json:"type"`
	Title            string            `json:"title"`
	Year             int               `json:"year"`
	Status           FolderStatus      `json:"status"`
	DetectedMetadata *DetectedMetadata `json:"detectedMetadata,omitempty"`
}

// FolderScanner lists the direct child directories of library roots.
type FolderScanner struct {
	now func() time.Time
	log hclog.Logger
}

// NewFolderScanner creates a scanner using the wall clock for undated folders.
func NewFolderScanner() *FolderScanner {
	return &FolderScanner{
		now: time.Now,
		log: logger.Named("scanner"),
	}
}

// ParseFolderName splits "Title (YYYY)" into its parts. Names without a
// trailing year keep the raw name as title and get fallbackYear.
func ParseFolderName(name string, fallbackYear int) (string, int) {
	if m := titleYearPattern.FindStringSubmatch(name); m != nil {
		year, err := strconv.Atoi(m[2])
		if err == nil {
			return strings.TrimSpace(m[1]), year
		}
	}
	return name, fallbackYear
}

// ScanFolders returns candidates from every root in order. Missing or
// unreadable roots are logged and skipped, and a path listed twice is only
// scanned the first time. Every candidate starts out pending.
func (s *FolderScanner) ScanFolders(roots []config.Root) []ScannedFolder {
	folders := []ScannedFolder{}
	seen := make(map[string]bool)
	currentYear := s.now().Year()

	for _, root := range roots {
		if root.Path == "" {
			continue
		}
		clean := filepath.Clean(root.Path)
		if seen[clean] {
			continue
		}
		seen[clean] = true

		entries, err := os.ReadDir(clean)
		if err != nil {
			s.log.Warn("skipping unreadable library root", "root", clean, "type", root.Type, "error", err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || utils.IsHidden(entry.Name()) {
				continue
			}
			path := filepath.Join(clean, entry.Name())
			title, year := ParseFolderName(entry.Name(), currentYear)
			folders = append(folders, ScannedFolder{
				ID:     utils.PathKey(path),
				Path:   path,
				Name:   entry.Name(),
				Type:   root.Type,
				Title:  title,
				Year:   year,
				Status: StatusPending,
			})
		}
		s.log.Debug("scanned library root", "root", clean, "type", root.Type, "entries", len(entries))
	}
	return folders
}

// CountFolders counts the visible direct child directories of root.
func (s *FolderScanner) CountFolders(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", root, err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() && !utils.IsHidden(entry.Name()) {
			count++
		}
	}
	return count, nil
}
