package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TripKeyHeader carries the client's trip identity; every session route is
// scoped by it.
const TripKeyHeader = "X-Trip-Key"

func RequireTripKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(TripKeyHeader) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "missing " + TripKeyHeader + " header",
				"code":  codeMissingTripKey,
			})
			return
		}
		c.Next()
	}
}

func tripKey(c *gin.Context) string {
	return c.GetHeader(TripKeyHeader)
}
