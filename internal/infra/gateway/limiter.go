package gateway

import (
	"time"

	"golang.org/x/time/rate"
)

// newLimiter paces requests to a text model. Zero or negative rpm disables pacing.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}
