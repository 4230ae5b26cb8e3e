package lastfm

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"

	"tonearm/internal/metrics"
)

// newDefaultLimiter creates a rate limiter using env overrides if present.
// Last.fm asks clients to stay under ~5 requests per second per origin.
func newDefaultLimiter() *rate.Limiter {
	rps := 4.0
	burst := 4
	if v := os.Getenv("LASTFM_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv("LASTFM_API_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func incRetry(method string) { metrics.IncAPIRetry(method) }
