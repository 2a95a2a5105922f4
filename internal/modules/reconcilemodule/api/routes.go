package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers reconciliation routes under the /api group
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	mediaGroup := router.Group("/media")
	{
		mediaGroup.POST("/add-from-tmdb", handler.AddFromCatalog)
		mediaGroup.GET("/verify-recent", handler.VerifyRecent)
		mediaGroup.GET("/:id/verify", handler.VerifyMedia)
		mediaGroup.POST("/:id/populate-episodes", handler.PopulateEpisodes)
	}

	router.GET("/tmdb/search", handler.SearchCatalog)
	router.GET("/stats/audit", handler.AuditStatus)
}
