// Package server exposes the calculator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/implied-vol/internal/calculator"
	"github.com/contactkeval/implied-vol/internal/logger"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "implied-vol"

const shutdownTimeout = 5 * time.Second

// Server is the HTTP front end of a Calculator.
type Server struct {
	calc   *calculator.Calculator
	engine *gin.Engine
}

// New builds the router. Routes:
//
//	POST /api/v1/iv     implied volatility from a market price
//	POST /api/v1/price  theoretical price from a volatility
//	GET  /health
func New(calc *calculator.Calculator) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	s := &Server{calc: calc, engine: r}

	api := r.Group("/api/v1")
	{
		api.POST("/iv", s.ImpliedVol)
		api.POST("/price", s.Price)
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// IVRequest accepts numbers either as JSON numbers or numeric strings.
// Days is time to expiry in days.
type IVRequest struct {
	Spot   json.Number `json:"spot"`
	Strike json.Number `json:"strike"`
	Days   json.Number `json:"days"`
	Rate   json.Number `json:"rate"`
	Price  json.Number `json:"price"`
	Kind   string      `json:"kind"`
}

// PriceRequest is the body of POST /api/v1/price.
type PriceRequest struct {
	Spot   json.Number `json:"spot"`
	Strike json.Number `json:"strike"`
	Days   json.Number `json:"days"`
	Rate   json.Number `json:"rate"`
	Vol    json.Number `json:"vol"`
	Kind   string      `json:"kind"`
}

// ImpliedVol handles POST /api/v1/iv.
func (s *Server) ImpliedVol(c *gin.Context) {
	var req IVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	out := s.calc.ImpliedVol(c.Request.Context(), calculator.Form{
		Spot:        req.Spot.String(),
		Strike:      req.Strike.String(),
		Days:        req.Days.String(),
		Rate:        req.Rate.String(),
		MarketPrice: req.Price.String(),
		Kind:        req.Kind,
	})
	respond(c, out)
}

// Price handles POST /api/v1/price.
func (s *Server) Price(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	out := s.calc.Price(calculator.PriceForm{
		Spot:   req.Spot.String(),
		Strike: req.Strike.String(),
		Days:   req.Days.String(),
		Rate:   req.Rate.String(),
		Vol:    req.Vol.String(),
		Kind:   req.Kind,
	})
	respond(c, out)
}

func respond(c *gin.Context, out calculator.Outcome) {
	if out.Err != nil {
		if errors.Is(out.Err, context.DeadlineExceeded) || errors.Is(out.Err, context.Canceled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": out.Err.Error(), "message": out.Message})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": out.Err.Error(), "message": out.Message})
		return
	}
	c.JSON(http.StatusOK, out)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": calculator.MsgInvalidInput})
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http %s %s status=%d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Infof("shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
