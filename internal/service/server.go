package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"railseed/internal/seed"
)

// APIError is the JSON body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the control API.
const (
	ErrorCodeRunInProgress = "RUN_IN_PROGRESS"
	ErrorCodeNoRuns        = "NO_RUNS"
	ErrorCodeRunNotFound   = "RUN_NOT_FOUND"
	ErrorCodeRunFailed     = "RUN_FAILED"
	ErrorCodeBadRequest    = "BAD_REQUEST"
	ErrorCodeInternal      = "INTERNAL"
)

func respondWithError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIError{Code: code, Message: message})
}

// NewRouter builds the control API for schedule mode.
//
//	GET  /healthz    liveness plus whether a run is executing
//	GET  /runs       past runs, newest first (?limit=N)
//	GET  /runs/last  report of the most recent run
//	GET  /runs/:id   report of one run
//	POST /runs       run now; 409 while another run is executing
//	GET  /metrics    Prometheus metrics
func NewRouter(svc *SeedService) *gin.Engine {
	defaultLimit := svc.cfg.History.Limit

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(svc.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "running": svc.Running()})
	})

	runs := r.Group("/runs")
	{
		runs.GET("", func(c *gin.Context) {
			limit := defaultLimit
			if q := c.Query("limit"); q != "" {
				n, err := cast.ToIntE(q)
				if err != nil || n < 0 {
					respondWithError(c, http.StatusBadRequest, ErrorCodeBadRequest, "limit must be a non-negative integer")
					return
				}
				limit = n
			}
			reports, err := svc.History(c.Request.Context(), limit)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, ErrorCodeInternal, err.Error())
				return
			}
			if reports == nil {
				reports = []*seed.Report{}
			}
			c.JSON(http.StatusOK, reports)
		})
		runs.GET("/last", func(c *gin.Context) {
			report := svc.LastReport()
			if report == nil {
				respondWithError(c, http.StatusNotFound, ErrorCodeNoRuns, "no run has completed yet")
				return
			}
			c.JSON(http.StatusOK, report)
		})
		runs.GET("/:id", func(c *gin.Context) {
			report, err := svc.Run(c.Request.Context(), c.Param("id"))
			switch {
			case errors.Is(err, ErrRunNotFound):
				respondWithError(c, http.StatusNotFound, ErrorCodeRunNotFound, err.Error())
			case err != nil:
				respondWithError(c, http.StatusInternalServerError, ErrorCodeInternal, err.Error())
			default:
				c.JSON(http.StatusOK, report)
			}
		})
		runs.POST("", func(c *gin.Context) {
			report, err := svc.RunOnce(c.Request.Context())
			switch {
			case errors.Is(err, ErrRunInProgress):
				respondWithError(c, http.StatusConflict, ErrorCodeRunInProgress, err.Error())
			case report == nil:
				respondWithError(c, http.StatusInternalServerError, ErrorCodeRunFailed, err.Error())
			case err != nil:
				// The report carries the cause and rollback state.
				c.JSON(http.StatusInternalServerError, report)
			default:
				c.JSON(http.StatusOK, report)
			}
		})
	}

	r.GET("/metrics", gin.WrapH(svc.recorder.Handler()))
	return r
}

// requestLogger logs each request through zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Serve runs the control API on addr until ctx is cancelled, then shuts
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("control server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
