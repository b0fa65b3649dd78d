package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/itinerary"
)

type ItineraryHandler struct {
	repo itinerary.Repository
}

type itineraryResponse struct {
	TripKey string                `json:"trip_key"`
	Days    []domain.ItineraryDay `json:"days"`
}

func NewItineraryHandler(repo itinerary.Repository) *ItineraryHandler {
	return &ItineraryHandler{repo: repo}
}

func (h *ItineraryHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
}

func (h *ItineraryHandler) list(c *gin.Context) {
	key := tripKey(c)
	days, err := h.repo.ListByTrip(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if days == nil {
		days = []domain.ItineraryDay{}
	}
	c.JSON(http.StatusOK, itineraryResponse{TripKey: key, Days: days})
}
