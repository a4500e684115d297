package main

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"calldata-rpc/gateway"
	"calldata-rpc/middleware"
	"calldata-rpc/registry"
	"calldata-rpc/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the codec RPC server and, when configured, the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// etcdRegistry connects to etcd when endpoints are configured, else nil.
func (a *app) etcdRegistry() (*registry.EtcdRegistry, error) {
	rc := a.cfg.Registry
	if len(rc.EtcdEndpoints) == 0 {
		return nil, nil
	}
	return registry.NewEtcdRegistry(registry.EtcdConfig{
		Endpoints:   rc.EtcdEndpoints,
		Prefix:      rc.Prefix,
		DialTimeout: rc.DialTimeout,
		Logger:      a.logger,
	})
}

func (a *app) serve(ctx context.Context) error {
	sc := a.cfg.Server

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svr := server.NewServer(
		server.WithLogger(a.logger),
		server.WithMaxBodyLen(sc.MaxBodyBytes),
		server.WithRegistryTTL(a.cfg.Registry.TTLSeconds),
	)
	svr.Use(middleware.LoggingMiddleware(a.logger))
	svr.Use(middleware.NewMetrics(metrics).Middleware())
	if a.cfg.Limits.Rate > 0 {
		svr.Use(middleware.RateLimitMiddleware(a.cfg.Limits.Rate, a.cfg.Limits.Burst))
	}
	codecSvc := a.codec()
	if err := svr.Register(codecSvc); err != nil {
		return err
	}

	etcd, err := a.etcdRegistry()
	if err != nil {
		return err
	}
	var reg registry.Registry
	if etcd != nil {
		defer etcd.Close()
		reg = etcd
	}

	l, err := net.Listen(sc.Network, sc.Listen)
	if err != nil {
		return err
	}
	errs := make(chan error, 2)
	go func() { errs <- svr.ServeListener(l, sc.Advertise, reg) }()

	var gw *gateway.Gateway
	if a.cfg.Gateway.Listen != "" {
		gl, err := net.Listen("tcp", a.cfg.Gateway.Listen)
		if err != nil {
			l.Close()
			return err
		}
		gw = gateway.New(codecSvc, metrics, a.logger)
		go func() { errs <- gw.Serve(gl) }()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errs:
		a.logger.Error("server stopped", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
	defer cancel()
	var shutdownErr error
	if gw != nil {
		shutdownErr = gw.Shutdown(shutdownCtx)
	}
	shutdownErr = errors.Join(shutdownErr, svr.Shutdown(shutdownCtx))
	return errors.Join(serveErr, shutdownErr)
}
