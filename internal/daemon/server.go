package daemon

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"syncheal/internal/logger"
	"syncheal/internal/model"
	"syncheal/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo     *echo.Echo
	manager  *RootManager
	rootRepo *repository.RootRepository
	histRepo *repository.HistoryRepository
	strategy model.ConflictStrategy
	port     int
	stopCh   chan struct{}
}

// NewServer wires the control API. strategy is used for roots added without
// an explicit one.
func NewServer(manager *RootManager, strategy model.ConflictStrategy, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		manager:  manager,
		rootRepo: repository.NewRootRepository(),
		histRepo: repository.NewHistoryRepository(),
		strategy: strategy,
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// For the entire daemon
	s.echo.GET("/status", s.handleStatus)
	s.echo.POST("/stop", s.handleStop)

	// For a specific root
	g := s.echo.Group("/roots")
	g.GET("", s.handleListRoots)
	g.POST("", s.handleAddRoot)
	g.DELETE("/:id", s.handleRemoveRoot)
	g.POST("/:id/pause", s.handlePauseRoot)
	g.POST("/:id/resume", s.handleResumeRoot)

	// History
	s.echo.GET("/history", s.handleHistory)
}

func (s *Server) Start() {
	go func() {
		addr := "127.0.0.1:" + strconv.Itoa(s.port)
		logger.Log.Info("daemon server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("daemon server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.manager.StopAll()
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	stats, err := s.histRepo.GetStats()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"roots":   s.manager.Snapshots(),
		"history": stats,
	})
}

func (s *Server) handleStop(c echo.Context) error {
	snaps := s.manager.Snapshots()
	resolved := 0
	for _, snap := range snaps {
		resolved += snap.Resolved
	}

	select {
	case s.stopCh <- struct{}{}:
	default:
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":   "stopping",
		"roots":    len(snaps),
		"resolved": resolved,
	})
}

func (s *Server) handleListRoots(c echo.Context) error {
	roots, err := s.rootRepo.GetAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	snaps := make(map[uint]model.RootSnapshot)
	for _, snap := range s.manager.Snapshots() {
		snaps[snap.RootID] = snap
	}

	return c.JSON(http.StatusOK, map[string]any{
		"roots":   roots,
		"running": snaps,
	})
}

type addRootRequest struct {
	Path     string                 `json:"path"`
	Strategy model.ConflictStrategy `json:"strategy"`
}

func (s *Server) handleAddRoot(c echo.Context) error {
	var req addRootRequest
	if err := c.Bind(&req); err != nil || req.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "path required"})
	}

	if req.Strategy == "" {
		req.Strategy = s.strategy
	}
	if !req.Strategy.Valid() || req.Strategy == model.StrategyAsk {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "strategy must be one of NEWER_WINS, LOCAL_WINS, SERVER_WINS, SKIP"})
	}

	path, err := filepath.Abs(req.Path)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": model.ErrRootNotFound.Error()})
	}

	root, err := s.rootRepo.Add(path, req.Strategy)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := s.manager.StartRoot(root); err != nil {
		_ = s.rootRepo.Delete(root.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, root)
}

func (s *Server) handleRemoveRoot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	_ = s.manager.StopRoot(uint(id))

	if err := s.rootRepo.Delete(uint(id)); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handlePauseRoot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := s.manager.PauseRoot(uint(id)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeRoot(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := s.manager.ResumeRoot(uint(id)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleHistory(c echo.Context) error {
	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil {
			n = parsed
		}
	}

	var (
		histories []model.History
		err       error
	)
	if c.QueryParam("failed") == "true" {
		histories, err = s.histRepo.GetFailed()
	} else {
		histories, err = s.histRepo.GetRecent(n)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}
