package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/service/booking"
)

// ReservationHandler is the post-booking lookup surface: confirmations are
// fetched by provider reference, independent of any live session.
type ReservationHandler struct {
	flights booking.FlightSessions
	hotels  booking.HotelSessions
}

func NewReservationHandler(flights booking.FlightSessions, hotels booking.HotelSessions) *ReservationHandler {
	return &ReservationHandler{flights: flights, hotels: hotels}
}

func (h *ReservationHandler) Register(router *gin.RouterGroup) {
	router.GET("/flight/:ref", h.flight)
	router.GET("/hotel/:ref", h.hotel)
}

func (h *ReservationHandler) flight(c *gin.Context) {
	conf, err := h.flights.Reservation(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (h *ReservationHandler) hotel(c *gin.Context) {
	conf, err := h.hotels.Reservation(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}
