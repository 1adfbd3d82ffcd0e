// Package resilience holds the retry and circuit breaker helpers used by
// httpclient around the transcription sidecar and remote audio fetches.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("whisper"))
//	err := cb.Execute(func() error {
//	    _, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), call)
//	    return err
//	})
package resilience
