// Package gateway serves the codec over HTTP with gin.
//
//	POST /v1/calldata   JSON call request      -> {"data","arguments"}
//	POST /v1/callback   {"value","type"}       -> {"display"}
//	POST /v1/inspect    {"data","types"}       -> parsed call
//	GET  /v1/tags                              -> {"tags"}
//	GET  /healthz
//	GET  /metrics
//
// Codec failures answer 400 with {"error","kind"}.
package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"calldata-rpc/api"
	"calldata-rpc/codecerr"
)

const requestIDHeader = "X-Request-ID"

// ErrorBody is the JSON body of a failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type Gateway struct {
	svc    *api.Codec
	engine *gin.Engine
	logger *zap.Logger
	srv    *http.Server
}

// New builds the routes over svc. Metrics are served from gatherer; a nil
// gatherer serves the default registry.
func New(svc *api.Codec, gatherer prometheus.Gatherer, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)

	g := &Gateway{svc: svc, engine: gin.New(), logger: logger}
	g.engine.Use(gin.Recovery(), requestID(), g.accessLog())

	v1 := g.engine.Group("/v1")
	v1.POST("/calldata", g.build)
	v1.POST("/callback", g.callback)
	v1.POST("/inspect", g.inspect)
	v1.GET("/tags", g.tags)

	g.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// Serve answers HTTP requests on l until Shutdown.
func (g *Gateway) Serve(l net.Listener) error {
	g.srv = &http.Server{
		Handler:           g.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("gateway listening", zap.String("addr", l.Addr().String()))
	err := g.srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.srv == nil {
		return nil
	}
	return g.srv.Shutdown(ctx)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (g *Gateway) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		g.logger.Debug("http request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (g *Gateway) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	kind := codecerr.KindOf(err)
	if kind == "" {
		status = http.StatusInternalServerError
		g.logger.Error("gateway request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: err.Error(), Kind: string(kind)})
}

func badRequest(err error) error {
	return codecerr.New(codecerr.PhaseParse, codecerr.KindInvalidEnvelope).
		Cause(err).
		Detail("malformed request body").
		Build()
}

func (g *Gateway) build(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		g.fail(c, badRequest(err))
		return
	}
	reply, err := g.svc.BuildJSON(body)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) callback(c *gin.Context) {
	var args api.CallbackArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		g.fail(c, badRequest(err))
		return
	}
	var reply api.CallbackReply
	if err := g.svc.Callback(&args, &reply); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) inspect(c *gin.Context) {
	var args api.InspectArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		g.fail(c, badRequest(err))
		return
	}
	var reply api.InspectReply
	if err := g.svc.Inspect(&args, &reply); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) tags(c *gin.Context) {
	var reply api.TagsReply
	if err := g.svc.Tags(&api.TagsArgs{}, &reply); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
