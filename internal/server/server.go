package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cwbudde/recipefit/internal/fit"
	"github.com/cwbudde/recipefit/internal/metrics"
	"github.com/cwbudde/recipefit/internal/opt"
	"github.com/cwbudde/recipefit/internal/store"
)

// Options wires the server's collaborators. All fields are optional.
type Options struct {
	// Store receives completed jobs and backs the solutions endpoints.
	Store store.Store
	// TraceDir enables per-job step traces under <TraceDir>/jobs/<id>/.
	TraceDir string
	Metrics  *metrics.Collector
	Rules    *fit.RuleTable
	// MaxIterations applies to jobs that do not set their own.
	MaxIterations int
}

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	runner     *runner
	store      store.Store
	metrics    *metrics.Collector
	rules      *fit.RuleTable
	addr       string
	engine     *gin.Engine
	server     *http.Server

	// ctx is the parent of all job contexts; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new HTTP server
func NewServer(addr string, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	jm := NewJobManager()

	s := &Server{
		jobManager: jm,
		runner: &runner{
			jobs:     jm,
			store:    opts.Store,
			metrics:  opts.Metrics,
			rules:    opts.Rules,
			traceDir: opts.TraceDir,
			maxIters: opts.MaxIterations,
		},
		store:   opts.Store,
		metrics: opts.Metrics,
		rules:   opts.Rules,
		addr:    addr,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), loggingMiddleware(), corsMiddleware())

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api/v1")
	api.POST("/optimize", s.handleOptimize)

	api.POST("/jobs", s.handleCreateJob)
	api.GET("/jobs", s.handleListJobs)
	api.GET("/jobs/:id", s.handleGetJob)
	api.DELETE("/jobs/:id", s.handleCancelJob)
	api.GET("/jobs/:id/recipe", s.handleGetJobRecipe)
	api.GET("/jobs/:id/ws", s.handleJobStream)

	if s.store != nil {
		api.GET("/solutions", s.handleListSolutions)
		api.GET("/solutions/:id", s.handleGetSolution)
		api.DELETE("/solutions/:id", s.handleDeleteSolution)
	}
	return r
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels all jobs and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server", "running_jobs", len(s.jobManager.GetRunningJobs()))
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleOptimize runs one optimization synchronously.
func (s *Server) handleOptimize(c *gin.Context) {
	var req JobConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}

	optimizer, err := opt.New(opt.Config{Solver: req.Solver, MaxIterations: req.MaxIterations})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sol, err := fit.Optimize(req.Ingredients, req.NutrientTargets, fit.Options{
		Rules:     s.rules,
		Optimizer: optimizer,
	})
	if err != nil {
		writeOptimizeError(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOptimization(sol.Solver, sol.State.String(), sol.Iterations, sol.Elapsed)
	}

	c.JSON(http.StatusOK, sol)
}

func writeOptimizeError(c *gin.Context, err error) {
	var inputErr *fit.InputError
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": inputErr.Field})
	case errors.Is(err, fit.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("Optimization failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleCreateJob starts an optimization in the background. Recipe errors
// surface as a failed job.
func (s *Server) handleCreateJob(c *gin.Context) {
	var req JobConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Solver != "" && req.Solver != opt.SolverPGD && req.Solver != opt.SolverMayfly {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown solver: " + req.Solver})
		return
	}

	job := s.jobManager.CreateJob(req)

	ctx, cancel := context.WithCancel(s.ctx)
	s.jobManager.setCancel(job.ID, cancel)
	go func() {
		defer cancel()
		s.runner.run(ctx, job.ID)
	}()

	c.JSON(http.StatusCreated, job)
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, s.jobManager.ListJobs())
}

type jobStatus struct {
	Job
	ElapsedSeconds float64 `json:"elapsed"`
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, exists := s.jobManager.GetJob(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, jobStatus{Job: job, ElapsedSeconds: job.Elapsed().Seconds()})
}

func (s *Server) handleCancelJob(c *gin.Context) {
	id := c.Param("id")
	if _, exists := s.jobManager.GetJob(id); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if !s.jobManager.CancelJob(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "job already finished"})
		return
	}
	c.Status(http.StatusAccepted)
}

// handleGetJobRecipe returns the solution of a completed job.
func (s *Server) handleGetJobRecipe(c *gin.Context) {
	job, exists := s.jobManager.GetJob(c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if job.State != StateCompleted || job.Solution == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no results yet", "state": job.State})
		return
	}
	c.JSON(http.StatusOK, job.Solution)
}

func (s *Server) handleListSolutions(c *gin.Context) {
	infos, err := s.store.ListSolutions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) handleGetSolution(c *gin.Context) {
	rec, err := s.store.LoadSolution(c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteSolution(c *gin.Context) {
	if err := s.store.DeleteSolution(c.Param("id")); err != nil {
		writeStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
