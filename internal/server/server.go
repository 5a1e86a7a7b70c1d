// Package server exposes the lattice pricer and the implied volatility
// solver over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
	"github.com/contactkeval/option-lattice/internal/pricing/binomial"
)

// Server serves HTTP requests for the pricing service.
type Server struct {
	pricer   *binomial.Pricer
	maxSteps int
	router   *gin.Engine
}

// NewServer creates a new HTTP server and sets up routing. Requests for more
// than maxSteps lattice steps are rejected; maxSteps <= 0 means no limit.
func NewServer(maxSteps int) *Server {
	server := &Server{pricer: binomial.NewPricer(), maxSteps: maxSteps}

	server.setupRouter()
	return server
}

func (server *Server) setupRouter() {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	v1 := router.Group("/v1")
	v1.POST("/price", server.price)
	v1.POST("/impliedvol", server.impliedVol)
	server.router = router
}

// Handler returns the routed handler, for tests and custom listeners.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	logger.Infof("starting pricing server on %s", address)
	return server.router.Run(address)
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.Debugf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}

// abortWithError maps solver and pricer errors onto status codes.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pricing.ErrInvalidParameter):
		status = http.StatusBadRequest
	case errors.Is(err, pricing.ErrNonConvergent):
		status = http.StatusUnprocessableEntity
	}
	c.AbortWithStatusJSON(status, errorResponse(err))
}

type priceRequest struct {
	Spot       float64 `json:"spot" binding:"required,gt=0"`
	Strike     float64 `json:"strike" binding:"required,gt=0"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility" binding:"required,gt=0"`
	Maturity   float64 `json:"maturity" binding:"required,gt=0"`
	Kind       string  `json:"kind" binding:"required"`
	Steps      int     `json:"steps" binding:"required,min=1"`
}

type priceResponse struct {
	Kind     binomial.Kind `json:"kind"`
	Steps    int           `json:"steps"`
	Price    float64       `json:"price"`
	Analytic *float64      `json:"analytic,omitempty"`
}

func (server *Server) price(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	kind, err := binomial.ParseKind(req.Kind)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if server.maxSteps > 0 && req.Steps > server.maxSteps {
		abortWithError(c, fmt.Errorf("%w: steps %d above limit %d", pricing.ErrInvalidParameter, req.Steps, server.maxSteps))
		return
	}

	params := binomial.Params{
		Spot:       req.Spot,
		Strike:     req.Strike,
		Rate:       req.Rate,
		Volatility: req.Volatility,
		Maturity:   req.Maturity,
	}
	p, err := server.pricer.Price(params, kind, req.Steps)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := priceResponse{Kind: kind, Steps: req.Steps, Price: p}
	switch kind {
	case binomial.EuropeanCall, binomial.EuropeanPut:
		bs := pricing.BlackScholesPrice(kind == binomial.EuropeanCall, req.Spot, req.Strike, req.Maturity, req.Rate, req.Volatility)
		resp.Analytic = &bs
	}
	c.JSON(http.StatusOK, resp)
}

type impliedVolRequest struct {
	Price    float64 `json:"price" binding:"gte=0"`
	Forward  float64 `json:"forward" binding:"required,gt=0"`
	Strike   float64 `json:"strike" binding:"required,gt=0"`
	Rate     float64 `json:"rate"`
	Maturity float64 `json:"maturity" binding:"required,gt=0"`

	// optional bracket, defaults to pricing.DefaultBisection
	Lo float64 `json:"lo" binding:"gte=0"`
	Hi float64 `json:"hi" binding:"gte=0"`
}

type impliedVolResponse struct {
	Vol  float64 `json:"vol"`
	Vega float64 `json:"vega"`
}

func (server *Server) impliedVol(c *gin.Context) {
	var req impliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	solver := pricing.DefaultBisection
	if req.Hi > 0 {
		solver.Lo, solver.Hi = req.Lo, req.Hi
	}
	vol, err := solver.ImpliedVol(req.Price, req.Forward, req.Strike, req.Rate, req.Maturity)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, impliedVolResponse{
		Vol:  vol,
		Vega: pricing.Black76Vega(req.Forward, req.Strike, req.Rate, req.Maturity, vol),
	})
}
