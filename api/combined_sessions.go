package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/service/booking"
)

type CombinedSessionHandler struct {
	sessions booking.CombinedSessions
}

type startCombinedRequest struct {
	Flight *booking.FlightSelection `json:"flight"`
	Hotel  *booking.HotelSelection  `json:"hotel"`
}

type completeCombinedRequest struct {
	Travelers []domain.Traveler  `json:"travelers"`
	Guests    []domain.Guest     `json:"guests"`
	Payment   domain.PaymentInfo `json:"payment"`
}

type combinedCostResponse struct {
	TotalCents int64 `json:"total_cents"`
}

func NewCombinedSessionHandler(sessions booking.CombinedSessions) *CombinedSessionHandler {
	return &CombinedSessionHandler{sessions: sessions}
}

func (h *CombinedSessionHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.start)
	router.GET("", h.current)
	router.DELETE("", h.cancel)
	router.GET("/cost", h.cost)
	router.POST("/complete", h.complete)
	router.POST("/restore", h.restore)
}

func (h *CombinedSessionHandler) start(c *gin.Context) {
	var req startCombinedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), tripKey(c), req.Flight, req.Hotel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *CombinedSessionHandler) current(c *gin.Context) {
	sess := h.sessions.Current(c.Request.Context(), tripKey(c))
	if sess == nil {
		respondNoSession(c)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *CombinedSessionHandler) cost(c *gin.Context) {
	total := h.sessions.TotalCost(c.Request.Context(), tripKey(c))
	c.JSON(http.StatusOK, combinedCostResponse{TotalCents: total})
}

func (h *CombinedSessionHandler) complete(c *gin.Context) {
	var req completeCombinedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conf, err := h.sessions.Complete(c.Request.Context(), tripKey(c), req.Travelers, req.Guests, req.Payment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conf)
}

func (h *CombinedSessionHandler) cancel(c *gin.Context) {
	h.sessions.Cancel(c.Request.Context(), tripKey(c))
	c.Status(http.StatusNoContent)
}

func (h *CombinedSessionHandler) restore(c *gin.Context) {
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
