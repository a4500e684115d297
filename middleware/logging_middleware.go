package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"calldata-rpc/message"
)

type requestIDKey struct{}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware logs one line per call with its duration and outcome.
// Calls without a request id get a fresh one.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Message) *message.Message {
			id := RequestID(ctx)
			if id == "" {
				id = uuid.NewString()
				ctx = WithRequestID(ctx, id)
			}

			start := time.Now()
			resp := next(ctx, req)

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("method", req.ServiceMethod),
				zap.Duration("duration", time.Since(start)),
			}
			if resp.Failed() {
				logger.Warn("call failed", append(fields,
					zap.String("kind", resp.Kind),
					zap.String("error", resp.Error))...)
			} else {
				logger.Debug("call", fields...)
			}
			return resp
		}
	}
}
