package middleware

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"calldata-rpc/message"
)

// RetryMiddleware re-issues a call whose response kind is unavailable or
// timeout, up to maxRetries times with exponential backoff from baseDelay.
// Any other failure is returned immediately. Meant for the client chain.
func RetryMiddleware(maxRetries int, baseDelay time.Duration, logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	retryable := []string{message.KindUnavailable, message.KindTimeout}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			resp := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if !resp.Failed() || !slices.Contains(retryable, resp.Kind) {
					return resp
				}
				delay := baseDelay * time.Duration(1<<i)
				logger.Info("retrying call",
					zap.String("method", req.ServiceMethod),
					zap.Int("attempt", i+1),
					zap.Duration("delay", delay),
					zap.String("error", resp.Error))

				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return resp
				case <-timer.C:
				}
				resp = next(ctx, req)
			}
			return resp
		}
	}
}
