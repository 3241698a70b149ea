// Package httpapi exposes the bot's small HTTP surface: a health endpoint
// for uptime probes and the shortener callback that redirects visitors back
// into the chat after they passed the shortened link.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contentgate/contentgate/internal/bot/auth"
	"github.com/contentgate/contentgate/internal/bot/config"
	"github.com/contentgate/contentgate/internal/bot/models"
	"github.com/contentgate/contentgate/internal/bot/repositories/repomanager"
	"github.com/contentgate/contentgate/internal/logging"
)

// Server serves the health and callback routes.
type Server struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	secret      []byte
	addr        string
	logger      logging.Logger

	httpServer *http.Server
}

// NewServer constructs a Server; Run starts it.
func NewServer(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *Server {
	return &Server{
		db:          db,
		repomanager: m,
		secret:      []byte(cfg.ShortenerCallbackSecret),
		addr:        cfg.EndpointAddrHTTP,
		logger:      logger.With("module", "httpapi"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleHealth)
	r.GET("/cb/:token", s.handleCallback)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCallback verifies the signed callback token, marks the matching
// shortener request completed, and redirects to the stored deep link.
func (s *Server) handleCallback(c *gin.Context) {
	claims, err := auth.ParseCallbackToken(c.Param("token"), s.secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid link"})
		return
	}

	ctx := c.Request.Context()
	repo := s.repomanager.ShortenerRequests(s.db)
	if err := repo.UpdateStatusByToken(ctx, claims.AccessToken, models.ShortenerStatusCompleted); err != nil {
		// the redirect still works; completion tracking is best effort
		s.logger.Warn(ctx, "error marking shortener request completed", "error", err)
	}

	c.Redirect(http.StatusFound, claims.Redirect)
}
