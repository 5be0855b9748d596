package resilience

import "time"

// FromRetryConfig builds a RetryConfig from flat configuration values.
// Zero values keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = orInt(maxAttempts, cfg.MaxAttempts)
	cfg.InitialBackoff = orDur(initialBackoffMs, time.Millisecond, cfg.InitialBackoff)
	cfg.MaxBackoff = orDur(maxBackoffMs, time.Millisecond, cfg.MaxBackoff)
	cfg.Multiplier = orFloat(multiplier, cfg.Multiplier)
	cfg.JitterFraction = orFloat(jitterFraction, cfg.JitterFraction)
	return cfg
}

// FromCircuitConfig builds a CircuitBreakerConfig from flat configuration
// values. Zero values keep the defaults.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = orInt(failureThreshold, cfg.FailureThreshold)
	cfg.ResetTimeout = orDur(resetTimeoutSecs, time.Second, cfg.ResetTimeout)
	return cfg
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func orDur(v int, unit, def time.Duration) time.Duration {
	if v > 0 {
		return time.Duration(v) * unit
	}
	return def
}
