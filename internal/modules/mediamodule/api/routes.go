package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all media module routes under the /api group
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	mediaGroup := router.Group("/media")
	{
		mediaGroup.GET("", handler.ListMedia)
		mediaGroup.GET("/random", handler.RandomMedia)
		mediaGroup.GET("/:id", handler.GetMedia)
		mediaGroup.PUT("/:id", handler.UpdateMedia)
		mediaGroup.DELETE("/:id", handler.DeleteMedia)
		mediaGroup.PUT("/:id/file", handler.SetMediaFile)
		mediaGroup.PUT("/:id/watch-status", handler.UpdateWatchStatus)
	}

	router.PUT("/episodes/:id/watch-status", handler.UpdateEpisodeWatchStatus)
	router.GET("/genres", handler.ListGenres)
}
