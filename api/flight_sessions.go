package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/service/booking"
)

type FlightSessionHandler struct {
	sessions booking.FlightSessions
}

type updateSessionRequest struct {
	Status string `json:"status"`
}

type revalidateSessionRequest struct {
	PaymentMode string `json:"payment_mode"`
}

type completeFlightRequest struct {
	Travelers []domain.Traveler  `json:"travelers"`
	Payment   domain.PaymentInfo `json:"payment"`
}

func NewFlightSessionHandler(sessions booking.FlightSessions) *FlightSessionHandler {
	return &FlightSessionHandler{sessions: sessions}
}

func (h *FlightSessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.start)
	router.GET("", h.current)
	router.PATCH("", h.update)
	router.DELETE("", h.cancel)
	router.POST("/revalidate", h.revalidate)
	router.POST("/complete", h.complete)
	router.POST("/restore", h.restore)
}

func (h *FlightSessionHandler) start(c *gin.Context) {
	var req booking.FlightSelection
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := h.sessions.Start(c.Request.Context(), tripKey(c), req.Offer, req.Criteria)
	c.JSON(http.StatusCreated, sess)
}

func (h *FlightSessionHandler) current(c *gin.Context) {
	sess := h.sessions.Current(c.Request.Context(), tripKey(c))
	if sess == nil {
		respondNoSession(c)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *FlightSessionHandler) update(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Update(c.Request.Context(), tripKey(c), booking.SessionPatch{
		Status: domain.SessionStatus(req.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *FlightSessionHandler) revalidate(c *gin.Context) {
	var req revalidateSessionRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	res, err := h.sessions.RevalidatePrice(c.Request.Context(), tripKey(c), req.PaymentMode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *FlightSessionHandler) complete(c *gin.Context) {
	var req completeFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conf, err := h.sessions.CompleteBooking(c.Request.Context(), tripKey(c), req.Travelers, req.Payment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (h *FlightSessionHandler) cancel(c *gin.Context) {
	h.sessions.Cancel(c.Request.Context(), tripKey(c))
	c.Status(http.StatusNoContent)
}

func (h *FlightSessionHandler) restore(c *gin.Context) {
	sess, err := h.sessions.Restore(c.Request.Context(), tripKey(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if sess == nil {
		respondNoSession(c)
		return
	}
	c.JSON(http.StatusOK, sess)
}
