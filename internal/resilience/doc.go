// Package resilience groups the fault tolerance helpers used by the watcher.
//
// The subpackages provide:
//   - circuitbreaker: a gobreaker wrapper guarding the OAuth token endpoint
//   - retry: bounded retries with exponential backoff and jitter for
//     notification delivery, plus the unbounded Backoff policy the feed
//     supervisor uses between sessions
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.TokenEndpointConfig())
//	cred, err := circuitbreaker.Execute(cb, func() (*entity.Credential, error) {
//	    return exchange(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.EmailConfig(), func() error {
//	    return sendMail()
//	})
//
//	backoff := retry.NewBackoff(retry.FixedBackoff(5 * time.Second))
//	_ = retry.Sleep(ctx, backoff.Next())
package resilience
