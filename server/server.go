// Package server implements the RPC server: service registration, the
// middleware chain, parallel request processing and graceful shutdown.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest
//	    → Codec.Decode → Middleware Chain → businessHandler (reflect.Call) → Codec.Encode → write response
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"calldata-rpc/codec"
	"calldata-rpc/codecerr"
	"calldata-rpc/message"
	"calldata-rpc/middleware"
	"calldata-rpc/protocol"
	"calldata-rpc/registry"
)

// DefaultRegistryTTL is the lease, in seconds, of registry entries.
const DefaultRegistryTTL int64 = 10

// Server registers services and answers framed requests for them.
type Server struct {
	serviceMap    map[string]*service
	middlewares   []middleware.Middleware
	handler       middleware.HandlerFunc
	logger        *zap.Logger
	maxBodyLen    uint32
	registryTTL   int64
	registry      registry.Registry
	advertiseAddr string // registered address; differs from ":8080"-style listen addresses

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup // in-flight requests
	shutdown atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxBodyLen bounds the request frames the server accepts.
func WithMaxBodyLen(n uint32) Option {
	return func(s *Server) { s.maxBodyLen = n }
}

// WithRegistryTTL sets the lease of registry entries, in seconds.
func WithRegistryTTL(ttl int64) Option {
	return func(s *Server) { s.registryTTL = ttl }
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		serviceMap:  make(map[string]*service),
		conns:       make(map[net.Conn]struct{}),
		logger:      zap.NewNop(),
		maxBodyLen:  protocol.DefaultMaxBodyLen,
		registryTTL: DefaultRegistryTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register publishes the RPC methods of rcvr under its type name.
func (svr *Server) Register(rcvr any) error {
	svc, err := NewService(rcvr)
	if err != nil {
		return err
	}
	if _, dup := svr.serviceMap[svc.name]; dup {
		return fmt.Errorf("rpc: service %q already registered", svc.name)
	}
	svr.serviceMap[svc.name] = svc
	svr.logger.Info("service registered",
		zap.String("service", svc.name),
		zap.Strings("methods", svc.Methods()))
	return nil
}

// Use appends a middleware. Middlewares run in the order they were added.
// Call Use before Serve.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Serve listens on address and serves until Shutdown. See ServeListener.
func (svr *Server) Serve(network, address, advertiseAddr string, reg registry.Registry) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	return svr.ServeListener(listener, advertiseAddr, reg)
}

// ServeListener registers every service with reg under advertiseAddr, when reg
// is non-nil, and accepts connections on l until Shutdown. It returns nil
// after a graceful shutdown.
func (svr *Server) ServeListener(l net.Listener, advertiseAddr string, reg registry.Registry) error {
	svr.mu.Lock()
	svr.listener = l
	svr.mu.Unlock()

	svr.handler = middleware.Chain(svr.middlewares...)(svr.businessHandler)

	if advertiseAddr == "" {
		advertiseAddr = l.Addr().String()
	}
	svr.advertiseAddr = advertiseAddr
	if reg != nil {
		svr.registry = reg
		for serviceName := range svr.serviceMap {
			err := reg.Register(context.Background(), serviceName, registry.ServiceInstance{
				Addr:   advertiseAddr,
				Weight: 1,
			}, svr.registryTTL)
			if err != nil {
				l.Close()
				return fmt.Errorf("register %s: %w", serviceName, err)
			}
		}
	}
	svr.logger.Info("server listening",
		zap.String("addr", l.Addr().String()),
		zap.String("advertise", advertiseAddr))

	for {
		conn, err := l.Accept()
		if err != nil {
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		if !svr.trackConn(conn) {
			conn.Close()
			return nil
		}
		go svr.handleConn(conn)
	}
}

func (svr *Server) trackConn(conn net.Conn) bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.conns[conn] = struct{}{}
	return true
}

func (svr *Server) untrackConn(conn net.Conn) {
	svr.mu.Lock()
	delete(svr.conns, conn)
	svr.mu.Unlock()
}

// handleConn reads frames sequentially and dispatches each request to its
// own goroutine. Responses share writeMu so frames never interleave.
func (svr *Server) handleConn(conn net.Conn) {
	defer svr.untrackConn(conn)
	defer conn.Close()
	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.DecodeLimit(conn, svr.maxBodyLen)
		if err != nil {
			if errors.Is(err, protocol.ErrBodyTooLarge) {
				svr.logger.Warn("dropping connection", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
			return
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		if !svr.admit() {
			resp := message.Errorf("", message.KindUnavailable, "server shutting down")
			svr.reply(header, codec.GetCodec(codec.CodecType(header.CodecType)), resp, conn, writeMu)
			continue
		}
		go svr.handleRequest(header, body, conn, writeMu)
	}
}

// admit counts a request as in flight unless Shutdown has started. The check
// and wg.Add share mu with Shutdown, so no Add can race its Wait.
func (svr *Server) admit() bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.wg.Add(1)
	return true
}

func (svr *Server) handleRequest(header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer svr.wg.Done()

	c := codec.GetCodec(codec.CodecType(header.CodecType))
	var resp *message.Message
	msg := message.Message{}
	if err := c.Decode(body, &msg); err != nil {
		resp = message.Errorf("", message.KindInternal, "malformed request: "+err.Error())
	} else {
		resp = svr.handler(context.Background(), &msg)
	}
	svr.reply(header, c, resp, conn, writeMu)
}

func (svr *Server) reply(header *protocol.Header, c codec.Codec, resp *message.Message, conn net.Conn, writeMu *sync.Mutex) {
	result, err := c.Encode(resp)
	if err != nil {
		svr.logger.Error("encode response", zap.String("method", resp.ServiceMethod), zap.Error(err))
		return
	}

	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := protocol.Encode(conn, &replyHeader, result); err != nil {
		svr.logger.Warn("write response", zap.Uint32("seq", header.Seq), zap.Error(err))
	}
}

// Shutdown deregisters the services, stops accepting connections and waits
// for in-flight requests until ctx is done. Idle connections are closed once
// the requests have drained.
func (svr *Server) Shutdown(ctx context.Context) error {
	if svr.registry != nil {
		for serviceName := range svr.serviceMap {
			if err := svr.registry.Deregister(ctx, serviceName, svr.advertiseAddr); err != nil {
				svr.logger.Warn("deregister", zap.String("service", serviceName), zap.Error(err))
			}
		}
	}

	svr.mu.Lock()
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}
	svr.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("timeout waiting for ongoing requests to finish: %w", ctx.Err())
	}

	svr.mu.Lock()
	for conn := range svr.conns {
		conn.Close()
	}
	svr.mu.Unlock()
	return err
}

// businessHandler resolves "Service.Method", decodes the JSON args, invokes
// the method and encodes the reply. Failures become error responses: a
// *codecerr.Error keeps its kind, anything else is internal.
func (svr *Server) businessHandler(ctx context.Context, req *message.Message) (resp *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			svr.logger.Error("handler panic", zap.String("method", req.ServiceMethod), zap.Any("panic", r))
			resp = message.Errorf(req.ServiceMethod, message.KindInternal, fmt.Sprintf("rpc: handler panic: %v", r))
		}
	}()

	serviceName, methodName, ok := strings.Cut(req.ServiceMethod, ".")
	if !ok || strings.Contains(methodName, ".") {
		return message.Errorf(req.ServiceMethod, message.KindInternal, "invalid service method format")
	}
	svc := svr.serviceMap[serviceName]
	if svc == nil {
		return message.Errorf(req.ServiceMethod, message.KindInternal, "rpc: can't find service "+serviceName)
	}
	method := svc.method[methodName]
	if method == nil {
		return message.Errorf(req.ServiceMethod, message.KindInternal, "rpc: can't find method "+req.ServiceMethod)
	}

	argv := reflect.New(method.ArgType)
	replyv := reflect.New(method.ReplyType)

	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, argv.Interface()); err != nil {
			return message.Errorf(req.ServiceMethod, message.KindInternal, "rpc: bad args: "+err.Error())
		}
	}

	if methodErr := svc.Call(method, argv, replyv); methodErr != nil {
		kind := message.KindInternal
		var ce *codecerr.Error
		if errors.As(methodErr, &ce) && ce.Kind != "" {
			kind = string(ce.Kind)
		}
		return message.Errorf(req.ServiceMethod, kind, methodErr.Error())
	}

	payload, err := json.Marshal(replyv.Interface())
	if err != nil {
		return message.Errorf(req.ServiceMethod, message.KindInternal, "rpc: marshal reply: "+err.Error())
	}
	return &message.Message{ServiceMethod: req.ServiceMethod, Payload: payload}
}
