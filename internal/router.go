package internal

import (
	"face-swap/internal/handler"

	"github.com/gin-gonic/gin"
)

func setupRoutes(router *gin.Engine, h *handler.Handler) {

	router.GET("/health", func(c *gin.Context) {
		h.HandleHealth(c)
	})
	router.POST("/analyze-photo", func(c *gin.Context) {
		h.HandleAnalyzePhoto(c)
	})
	router.POST("/swap-face", func(c *gin.Context) {
		h.HandleSwapFace(c)
	})
	router.POST("/select-best-photo", func(c *gin.Context) {
		h.HandleSelectBestPhoto(c)
	})
	router.GET("/history", func(c *gin.Context) {
		h.HandleGetHistory(c)
	})
}
