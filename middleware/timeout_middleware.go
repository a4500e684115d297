package middleware

import (
	"context"
	"time"

	"calldata-rpc/message"
)

// TimeOutMiddleware answers with a timeout error when next has not returned
// within timeout. next keeps running with a cancelled context.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *message.Message, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case resp := <-done:
				return resp
			case <-ctx.Done():
				return message.Errorf(req.ServiceMethod, message.KindTimeout, "request timed out")
			}
		}
	}
}
