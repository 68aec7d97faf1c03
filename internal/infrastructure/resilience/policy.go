package resilience

import "time"

type Config struct {
	RetryMaxAttempts int
	// RetryBaseDelay is the wait after the first failed attempt; each later
	// wait doubles it (RetryMultiplier).
	RetryBaseDelay  time.Duration
	RetryMaxBackoff time.Duration
	RetryMultiplier float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts: 3,
		RetryBaseDelay:   2 * time.Second,
		RetryMaxBackoff:  0,
		RetryMultiplier:  2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryBaseDelay < 0 {
		out.RetryBaseDelay = 0
	}
	// Zero max backoff leaves the exponential growth uncapped.
	if out.RetryMaxBackoff > 0 && out.RetryMaxBackoff < out.RetryBaseDelay {
		out.RetryMaxBackoff = out.RetryBaseDelay
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
