package scannermodule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/scannermodule/scanner"
)

// getScanFolders handles GET /api/scan/folders[?status=pending]. Failures
// are reported in the body with a 200.
func (m *Module) getScanFolders(c *gin.Context) {
	folders, err := m.service.ScanFolders(c.Request.Context(), scanner.FolderStatus(c.Query("status")))
	if err != nil {
		logger.Error("folder scan failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   "Failed to scan library folders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"folders":    folders,
		"totalFound": len(folders),
	})
}

// getLibraryStats handles GET /api/stats/library
func (m *Module) getLibraryStats(c *gin.Context) {
	stats, err := m.service.Stats(c.Request.Context())
	if err != nil {
		logger.Error("library stats failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	response := gin.H{
		"success":          true,
		"dbFileCount":      stats.DBFileCount,
		"movieFolderCount": stats.MovieFolderCount,
		"tvFolderCount":    stats.TVFolderCount,
		"totalFolders":     stats.TotalFolders,
		"disk":             stats.Disk,
		"lastChange":       nil,
		"pendingChanges":   0,
	}
	if stats.Changes != nil {
		response["lastChange"] = stats.Changes.LastChange
		response["pendingChanges"] = stats.Changes.PendingChanges
	}
	c.JSON(http.StatusOK, response)
}
