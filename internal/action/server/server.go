package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/actions"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	"github.com/Chative-core-poc-v1/actionserver/internal/callback"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type (
	// WebhookRequest is what the dialog engine posts for every action call.
	WebhookRequest struct {
		NextAction  string             `json:"next_action" binding:"required"`
		SenderID    string             `json:"sender_id"`
		Tracker     *tracker.Tracker   `json:"tracker" binding:"required"`
		Domain      map[string]any     `json:"domain"`
		Version     string             `json:"version"`
		TriggerInfo *model.TriggerInfo `json:"trigger_info,omitempty"`
	}

	WebhookResponse struct {
		Events    []SlotEvent        `json:"events"`
		Responses []model.BotMessage `json:"responses"`
	}

	// Waker nudges a scheduler runner to poll immediately.
	Waker interface {
		Wake()
	}

	// CallbackHandler runs the script bound to a callback identifier.
	CallbackHandler interface {
		Handle(ctx context.Context, identifier string, request map[string]any) (any, error)
	}

	Options struct {
		Dispatcher *Dispatcher
		Scheduler  Waker
		Callbacks  CallbackHandler
	}

	Server struct {
		dispatcher *Dispatcher
		scheduler  Waker
		callbacks  CallbackHandler
	}
)

func New(opts Options) *Server {
	return &Server{dispatcher: opts.Dispatcher, scheduler: opts.Scheduler, callbacks: opts.Callbacks}
}

// Router builds the gin engine with every route the runtime serves.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.health)
	if s.dispatcher != nil {
		r.POST("/webhook", s.webhook)
	}
	if s.scheduler != nil {
		r.GET("/api/events/dispatch/:event_id", s.dispatchEvent)
	}
	if s.callbacks != nil {
		r.POST("/callback/d/:identifier", s.callback)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("http server listening")
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logx.Info().Str("addr", addr).Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload: " + err.Error()})
		return
	}
	if req.Tracker.SenderID == "" {
		req.Tracker.SenderID = req.SenderID
	}

	ctx := c.Request.Context()
	if req.TriggerInfo != nil {
		ctx = actions.WithTriggerInfo(ctx, req.TriggerInfo)
	}
	var collector model.Collector
	events := s.dispatcher.ProcessAction(ctx, &collector, req.Tracker, req.Domain, req.NextAction)
	responses := collector.Messages()
	if responses == nil {
		responses = []model.BotMessage{}
	}
	c.JSON(http.StatusOK, WebhookResponse{Events: events, Responses: responses})
}

func (s *Server) dispatchEvent(c *gin.Context) {
	id := c.Param("event_id")
	s.scheduler.Wake()
	logx.Debug().Str("event_id", id).Msg("scheduler woken for event")
	c.JSON(http.StatusOK, gin.H{"success": true, "event_id": id})
}

func (s *Server) callback(c *gin.Context) {
	id := c.Param("identifier")
	body := map[string]any{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload: " + err.Error()})
			return
		}
	}

	out, err := s.callbacks.Handle(c.Request.Context(), id, body)
	switch {
	case errors.Is(err, callback.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, callback.ErrUnknown):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case err != nil:
		logx.Error().Err(err).Str("identifier", id).Msg("callback failed")
		c.JSON(errx.StatusOf(err), gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
