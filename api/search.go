package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/service/booking"
)

type SearchHandler struct {
	flights booking.FlightSessions
	hotels  booking.HotelSessions
}

func NewSearchHandler(flights booking.FlightSessions, hotels booking.HotelSessions) *SearchHandler {
	return &SearchHandler{flights: flights, hotels: hotels}
}

func (h *SearchHandler) Register(router *gin.RouterGroup) {
	router.POST("/flights", h.searchFlights)
	router.POST("/hotels", h.searchHotels)
}

func (h *SearchHandler) searchFlights(c *gin.Context) {
	var criteria domain.FlightCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offers, err := h.flights.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *SearchHandler) searchHotels(c *gin.Context) {
	var criteria domain.HotelCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offers, err := h.hotels.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}
