// Package httpclient is the outbound HTTP client shared by the remote audio
// fetcher and the transcription sidecar provider. It classifies failures
// into typed errors and can wrap calls in retry and a circuit breaker.
//
//	c, _ := httpclient.New(httpclient.Config{Timeout: 30 * time.Second})
//	resp, err := c.Stream(ctx, httpclient.Request{Method: http.MethodGet, Path: url})
//	if err != nil {
//	    if httpclient.IsTimeout(err) { ... }
//	}
//	defer resp.Close()
package httpclient
