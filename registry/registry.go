// Package registry tracks which addresses serve which RPC services.
package registry

import "context"

// ServiceInstance is one reachable server of a service.
type ServiceInstance struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight"` // for weighted balancers
	Version string `json:"version"`
}

// Registry is a service directory. Implementations must be safe for
// concurrent use.
type Registry interface {
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, serviceName string, addr string) error
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)
	// Watch emits the full instance list after every change until ctx is done,
	// then closes the channel.
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}
