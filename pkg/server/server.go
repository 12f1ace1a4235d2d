// Package server exposes the query engine over HTTP
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"git.canoozie.net/riddling/copurchase/pkg/model"
	"git.canoozie.net/riddling/copurchase/pkg/query"
)

// CustomValidator plugs go-playground/validator into echo's Bind/Validate
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates a bound request struct
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// QueryRequest is the body of POST /query. Either Query holds the text
// form, or Type and Parameters hold the structured form.
type QueryRequest struct {
	Query      string            `json:"query" validate:"required_without=Type"`
	Type       string            `json:"type" validate:"required_without=Query"`
	Parameters map[string]string `json:"parameters"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves the query engine over HTTP
type Server struct {
	engine  *query.Engine
	echo    *echo.Echo
	metrics *Metrics
	logger  model.Logger
}

// New creates a server around engine
func New(engine *query.Engine, logger model.Logger) *Server {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Use(middleware.Recover())

	s := &Server{
		engine:  engine,
		echo:    e,
		metrics: NewMetrics("copurchase"),
		logger:  logger,
	}
	e.Use(s.requestMetrics)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	s.echo.POST("/query", s.handleQuery)
	s.echo.GET("/products/:id", s.handleProduct)
	s.echo.GET("/products/:id/histogram", s.handleHistogram)
	s.echo.GET("/products/:id/divergent-path", s.handleDivergentPath)
	s.echo.GET("/products/:id/neighbors", s.handleNeighbors)
	s.echo.GET("/pairs/consistent", s.handleConsistentPairs)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Metrics returns the collectors of the server
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.logger.Info("Listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		s.metrics.HTTPRequests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
		return err
	}
}

// execute runs q and writes the result, mapping errors to status codes
func (s *Server) execute(c echo.Context, q *query.Query) error {
	start := time.Now()
	result, err := s.engine.Executor.Execute(c.Request().Context(), q)
	elapsed := time.Since(start)

	if err != nil {
		status, outcome := classify(err)
		s.metrics.ObserveQuery(string(q.Type), outcome, elapsed)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Query %s failed: %v", q.String(), err)
		} else {
			s.logger.Debug("Rejected query %s: %v", q.String(), err)
		}
		return c.JSON(status, ErrorResponse{Error: err.Error()})
	}

	s.metrics.ObserveQuery(string(q.Type), outcomeOK, elapsed)
	s.logger.Debug("Query %s took %s", q.String(), elapsed)
	return c.JSON(http.StatusOK, result)
}

func classify(err error) (int, string) {
	var unknown model.ErrUnknownSnapshot
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		return http.StatusBadRequest, outcomeInvalid
	case errors.As(err, &unknown):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, outcomeError
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

func (s *Server) handleQuery(c echo.Context) error {
	req := new(QueryRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "either query or type is required"})
	}

	var q *query.Query
	if req.Query != "" {
		parsed, err := query.Parse(req.Query)
		if err != nil {
			s.metrics.ObserveQuery("unparsed", outcomeInvalid, 0)
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		q = parsed
	} else {
		params := req.Parameters
		if params == nil {
			params = make(map[string]string)
		}
		q = &query.Query{Type: query.QueryType(req.Type), Parameters: params}
	}
	return s.execute(c, q)
}

// productParams starts a parameter map from the :id path segment and the
// given query string keys
func productParams(c echo.Context, idKey string, keys ...string) map[string]string {
	params := map[string]string{idKey: c.Param("id")}
	for _, k := range keys {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	return params
}

func (s *Server) handleProduct(c echo.Context) error {
	q := &query.Query{Type: query.QueryTypeProduct, Parameters: productParams(c, query.ParamProductID)}

	result, err := s.engine.Executor.Execute(c.Request().Context(), q)
	if err != nil {
		status, outcome := classify(err)
		s.metrics.ObserveQuery(string(q.Type), outcome, 0)
		return c.JSON(status, ErrorResponse{Error: err.Error()})
	}
	if len(result.Products) == 0 {
		s.metrics.ObserveQuery(string(q.Type), outcomeNotFound, 0)
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: model.ErrProductNotFound.Error()})
	}
	s.metrics.ObserveQuery(string(q.Type), outcomeOK, 0)
	return c.JSON(http.StatusOK, result.Products[0])
}

func (s *Server) handleHistogram(c echo.Context) error {
	return s.execute(c, &query.Query{
		Type:       query.QueryTypeRatingHistogram,
		Parameters: productParams(c, query.ParamProductID),
	})
}

func (s *Server) handleDivergentPath(c echo.Context) error {
	return s.execute(c, &query.Query{
		Type:       query.QueryTypeDivergentPath,
		Parameters: productParams(c, query.ParamStartID, query.ParamMaxDepth, query.ParamSnapshot),
	})
}

func (s *Server) handleNeighbors(c echo.Context) error {
	return s.execute(c, &query.Query{
		Type:       query.QueryTypeFindNeighbors,
		Parameters: productParams(c, query.ParamProductID, query.ParamDirection, query.ParamAlgorithm, query.ParamMaxDepth, query.ParamSnapshot),
	})
}

func (s *Server) handleConsistentPairs(c echo.Context) error {
	return s.execute(c, &query.Query{
		Type:       query.QueryTypeConsistentPairs,
		Parameters: map[string]string{},
	})
}
