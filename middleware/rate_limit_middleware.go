package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"calldata-rpc/message"
)

// RateLimitMiddleware admits r calls per second with bursts of up to burst,
// using a token bucket shared by every caller of the chain.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			if !limiter.Allow() {
				return message.Errorf(req.ServiceMethod, message.KindRateLimited, "rate limit exceeded")
			}
			return next(ctx, req)
		}
	}
}
