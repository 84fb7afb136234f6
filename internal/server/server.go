package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/varoOP/vinime/internal/telegram"
)

const (
	WebhookPath     = "/api/webhook"
	SecretHeader    = "X-Telegram-Bot-Api-Secret-Token"
	shutdownTimeout = 10 * time.Second
)

// Dispatcher takes an update off the request goroutine
type Dispatcher interface {
	Dispatch(ctx context.Context, upd telegram.Update)
}

type Server struct {
	log        zerolog.Logger
	dispatcher Dispatcher
	secret     string
	router     *gin.Engine

	// base outlives single requests; updates run on it
	base context.Context
	now  func() time.Time
}

func NewServer(log zerolog.Logger, dispatcher Dispatcher, secret string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		log:        log.With().Str("module", "server").Logger(),
		dispatcher: dispatcher,
		secret:     secret,
		base:       context.Background(),
		now:        time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())

	router.GET("/", s.health)
	router.GET("/health", s.health)
	router.GET(WebhookPath, s.health)
	router.POST(WebhookPath, s.webhook)

	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()
		s.log.Trace().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", s.now().Sub(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "VinimeBot is running! 🎌",
		"webhook":   "active",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

// webhook acknowledges an update at once and handles it in the background.
func (s *Server) webhook(c *gin.Context) {
	if s.secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(SecretHeader)), []byte(s.secret)) != 1 {
		s.log.Warn().Str("remote", c.ClientIP()).Msg("webhook call with bad secret token")
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}

	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		s.log.Debug().Err(err).Msg("invalid update body")
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	s.dispatcher.Dispatch(s.base, upd)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.base = ctx

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Msgf("listening on %s", addr)
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

	s.log.Info().Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
