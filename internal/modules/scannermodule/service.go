package scannermodule

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/repository"
	"github.com/mantonx/shelfsync/internal/modules/scannermodule/scanner"
	"github.com/shirou/gopsutil/v4/disk"
)

// MediaIndex is the slice of the media repository the scanner needs.
type MediaIndex interface {
	IdentityIndex(ctx context.Context) (map[repository.Identity]uint, error)
	Count(ctx context.Context) (int64, error)
}

// DiskUsage describes free space on the volume holding a library root.
type DiskUsage struct {
	Path        string  `json:"path"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usedPercent"`
}

// LibraryStats compares database rows against folders on disk.
type LibraryStats struct {
	DBFileCount      int64              `json:"dbFileCount"`
	MovieFolderCount int                `json:"movieFolderCount"`
	TVFolderCount    int                `json:"tvFolderCount"`
	TotalFolders     int                `json:"totalFolders"`
	Disk             []DiskUsage        `json:"disk"`
	Changes          *scanner.ChangeLog `json:"changes,omitempty"`
}

// Service correlates folder scans with the media table.
type Service struct {
	library config.LibraryConfig
	scanner *scanner.FolderScanner
	media   MediaIndex
	watcher *scanner.LibraryWatcher
}

// NewService creates the scan service. watcher may be nil.
func NewService(library config.LibraryConfig, media MediaIndex, watcher *scanner.LibraryWatcher) *Service {
	return &Service{
		library: library,
		scanner: scanner.NewFolderScanner(),
		media:   media,
		watcher: watcher,
	}
}

// ScanFolders scans the configured roots and marks folders whose type, title
// and year match a media row as verified. A non-empty status keeps only
// folders in that state.
func (s *Service) ScanFolders(ctx context.Context, status scanner.FolderStatus) ([]scanner.ScannedFolder, error) {
	folders := s.scanner.ScanFolders(s.library.Roots())

	index, err := s.media.IdentityIndex(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]scanner.ScannedFolder, 0, len(folders))
	for _, folder := range folders {
		if mediaType, id, ok := matchFolder(index, folder); ok {
			folder.Type = mediaType
			folder.Status = scanner.StatusVerified
			folder.DetectedMetadata = &scanner.DetectedMetadata{MediaID: id, Title: folder.Title, Year: folder.Year}
		}
		if status == "" || folder.Status == status {
			filtered = append(filtered, folder)
		}
	}

	if s.watcher != nil {
		s.watcher.MarkScanned()
	}
	logger.Info("folder scan finished", "found", len(folders), "returned", len(filtered))
	return filtered, nil
}

// matchFolder looks a folder up by type, title and year. Folders from a
// mixed root are tried as a movie, then as tv, and take the matching type.
func matchFolder(index map[repository.Identity]uint, folder scanner.ScannedFolder) (string, uint, bool) {
	types := []string{folder.Type}
	if folder.Type == config.RootTypeMixed {
		types = []string{string(database.MediaTypeMovie), string(database.MediaTypeTV)}
	}
	for _, t := range types {
		if id, ok := index[repository.Identity{Type: t, Title: folder.Title, Year: folder.Year}]; ok {
			return t, id, true
		}
	}
	return "", 0, false
}

// Stats counts media rows and library folders. Unset roots count as zero;
// a configured root that cannot be read is an error.
func (s *Service) Stats(ctx context.Context) (*LibraryStats, error) {
	count, err := s.media.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &LibraryStats{DBFileCount: count, Disk: []DiskUsage{}}

	if stats.MovieFolderCount, err = s.countRoot(s.library.RootFor("movie")); err != nil {
		return nil, err
	}
	if stats.TVFolderCount, err = s.countRoot(s.library.RootFor("tv")); err != nil {
		return nil, err
	}

	for _, root := range s.library.Roots() {
		n, err := s.countRoot(root.Path)
		if err != nil {
			return nil, err
		}
		stats.TotalFolders += n

		usage, err := disk.UsageWithContext(ctx, filepath.Clean(root.Path))
		if err != nil {
			logger.Debug("disk usage unavailable", "root", root.Path, "error", err)
			continue
		}
		stats.Disk = append(stats.Disk, DiskUsage{
			Path:        root.Path,
			Total:       usage.Total,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		})
	}

	if s.watcher != nil {
		changes := s.watcher.Snapshot()
		stats.Changes = &changes
	}
	return stats, nil
}

func (s *Service) countRoot(root string) (int, error) {
	if root == "" {
		return 0, nil
	}
	n, err := s.scanner.CountFolders(root)
	if err != nil {
		return 0, fmt.Errorf("count folders: %w", err)
	}
	return n, nil
}
