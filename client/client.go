// Package client calls services through the registry: each call discovers
// the instances of its service, picks one with the balancer and runs over a
// pooled multiplexed transport.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"calldata-rpc/codec"
	"calldata-rpc/codecerr"
	"calldata-rpc/loadbalance"
	"calldata-rpc/message"
	"calldata-rpc/middleware"
	"calldata-rpc/registry"
	"calldata-rpc/transport"
)

type Client struct {
	registry registry.Registry
	balancer loadbalance.Balancer
	pool     *transport.Pool
	handler  middleware.HandlerFunc
	logger   *zap.Logger

	codecType   codec.CodecType
	poolSize    int
	timeout     time.Duration
	retries     int
	retryDelay  time.Duration
	heartbeat   time.Duration
	middlewares []middleware.Middleware
}

type Option func(*Client)

func WithCodec(t codec.CodecType) Option {
	return func(c *Client) { c.codecType = t }
}

// WithPoolSize sets the number of connections kept per server.
func WithPoolSize(n int) Option {
	return func(c *Client) { c.poolSize = n }
}

// WithTimeout bounds each attempt of a call. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry retries calls that failed as unavailable or timed out.
func WithRetry(retries int, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMiddleware adds middlewares that run inside logging and retry, once
// per attempt.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mws...) }
}

// NewClient returns a client resolving services through reg. A nil bal
// means round robin.
func NewClient(reg registry.Registry, bal loadbalance.Balancer, opts ...Option) *Client {
	c := &Client{
		registry:  reg,
		balancer:  bal,
		logger:    zap.NewNop(),
		codecType: codec.CodecTypeJSON,
		poolSize:  1,
		timeout:   5 * time.Second,
		heartbeat: transport.DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.balancer == nil {
		c.balancer = &loadbalance.RoundRobinBalancer{}
	}

	c.pool = transport.NewPool(transport.PoolConfig{
		Size:  c.poolSize,
		Codec: c.codecType,
		Options: []transport.Option{
			transport.WithHeartbeat(c.heartbeat),
			transport.WithLogger(c.logger),
		},
	})

	mws := []middleware.Middleware{middleware.LoggingMiddleware(c.logger)}
	if c.retries > 0 {
		mws = append(mws, middleware.RetryMiddleware(c.retries, c.retryDelay, c.logger))
	}
	mws = append(mws, c.middlewares...)
	c.handler = middleware.Chain(mws...)(c.invoke)
	return c
}

type balanceKey struct{}

// WithBalanceKey sets the key hashing balancers route on. Calls without one
// use their service method.
func WithBalanceKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, balanceKey{}, key)
}

// Call invokes serviceMethod ("Service.Method") with args and decodes the
// result into reply. Errors reported by the server come back as
// *codecerr.Error carrying the server's kind.
func (c *Client) Call(ctx context.Context, serviceMethod string, args any, reply any) error {
	if _, _, ok := strings.Cut(serviceMethod, "."); !ok {
		return fmt.Errorf("invalid serviceMethod format: %v", serviceMethod)
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}

	resp := c.handler(ctx, &message.Message{ServiceMethod: serviceMethod, Payload: payload})
	if resp.Failed() {
		return codecerr.Remote(resp.Kind, resp.Error)
	}
	if reply == nil {
		return nil
	}
	return json.Unmarshal(resp.Payload, reply)
}

// invoke performs one attempt: discover, pick, send.
func (c *Client) invoke(ctx context.Context, req *message.Message) *message.Message {
	serviceName, _, _ := strings.Cut(req.ServiceMethod, ".")

	instances, err := c.registry.Discover(ctx, serviceName)
	if err != nil {
		return message.Errorf(req.ServiceMethod, message.KindUnavailable, "discover "+serviceName+": "+err.Error())
	}
	key, _ := ctx.Value(balanceKey{}).(string)
	if key == "" {
		key = req.ServiceMethod
	}
	instance, err := c.balancer.Pick(key, instances)
	if err != nil {
		if errors.Is(err, loadbalance.ErrNoInstances) {
			err = fmt.Errorf("no instances of %s", serviceName)
		}
		return message.Errorf(req.ServiceMethod, message.KindUnavailable, err.Error())
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	t, err := c.pool.Get(ctx, instance.Addr)
	if err != nil {
		// the instance is unreachable, drop whatever else is pooled for it
		c.pool.Evict(instance.Addr)
		return message.Errorf(req.ServiceMethod, message.KindUnavailable, err.Error())
	}
	return t.RoundTrip(ctx, req)
}

// Close closes every pooled connection.
func (c *Client) Close() error {
	return c.pool.Close()
}
