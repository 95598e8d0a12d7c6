package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"face-swap/internal/pkg/clients/image_client"
	"face-swap/internal/pkg/model/swap_model"
	"face-swap/internal/pkg/service/swap_service"
)

const defaultHistoryLimit = 20

func respondData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// errorStatus translates the service error taxonomy into HTTP statuses:
// bad input and fetch failures are the caller's fault, everything else
// (no face, swap failure, models unavailable) is a 500.
func errorStatus(err error) int {
	var fetchErr *image_client.FetchError

	switch {
	case errors.Is(err, swap_service.ErrInvalidInput),
		errors.Is(err, swap_service.ErrNoValidImages),
		errors.As(err, &fetchErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Health())
}

func (h *Handler) HandleAnalyzePhoto(c *gin.Context) {

	var req swap_model.AnalyzePhotoRequest
	if err := c.BindJSON(&req); err != nil || req.ImageURL == "" {
		respondError(c, http.StatusBadRequest, "Missing image_url in request body")
		return
	}

	log.Println("Analyzing photo:", req.ImageURL)

	report, err := h.service.AnalyzePhoto(req.ImageURL)
	if err != nil {
		log.Println(err)
		respondError(c, errorStatus(err), err.Error())
		return
	}

	respondData(c, report)
}

func (h *Handler) HandleSwapFace(c *gin.Context) {

	var req swap_model.SwapFaceRequest
	if err := c.BindJSON(&req); err != nil || req.TargetURL == "" || req.SourceURL == "" {
		respondError(c, http.StatusBadRequest, "Missing target_url or source_url in request body")
		return
	}

	log.Println("Face swap request, target:", req.TargetURL, "source:", req.SourceURL)

	jpegData, err := h.service.SwapFace(req.TargetURL, req.SourceURL)
	if err != nil {
		log.Println(err)
		respondError(c, errorStatus(err), err.Error())
		return
	}

	c.Data(http.StatusOK, "image/jpeg", jpegData)
}

func (h *Handler) HandleSelectBestPhoto(c *gin.Context) {

	var req swap_model.SelectBestRequest
	if err := c.BindJSON(&req); err != nil || req.ImageURLs == nil {
		respondError(c, http.StatusBadRequest, "Missing image_urls in request body")
		return
	}

	log.Printf("Selecting best photo from %d candidates", len(req.ImageURLs))

	result, err := h.service.SelectBestPhoto(req.ImageURLs)
	if err != nil {
		log.Println(err)
		respondError(c, errorStatus(err), err.Error())
		return
	}

	respondData(c, result)
}

func (h *Handler) HandleGetHistory(c *gin.Context) {

	limit := defaultHistoryLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			respondError(c, http.StatusBadRequest, "invalid limit format")
			return
		}
		limit = parsed
	}

	records, err := h.service.GetHistory(limit)
	if err != nil {
		log.Println(err)
		respondError(c, http.StatusInternalServerError, "failed to get analysis history")
		return
	}

	respondData(c, records)
}
