package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/voyago/tripbooking/config"
)

func TestNewRedisStore(t *testing.T) {
	s := NewRedisStore(config.RedisConfig{Addr: "localhost:6379"}, 5*time.Minute, zerolog.Nop())
	assert.NotNil(t, s)
	assert.NoError(t, s.Close())
}

func TestKeyNamespaces(t *testing.T) {
	assert.Equal(t, "flight_session:tenant-1:trip-1", flightSessionKey("tenant-1:trip-1"))
	assert.Equal(t, "hotel_session:tenant-1:trip-1", hotelSessionKey("tenant-1:trip-1"))
	assert.Equal(t, "combined_session:tenant-1:trip-1", combinedSessionKey("tenant-1:trip-1"))
	assert.Equal(t, "cache:flight_search:abc", flightSearchKey("abc"))
	assert.Equal(t, "cache:hotel_search:abc", hotelSearchKey("abc"))
}
