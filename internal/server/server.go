// Package server exposes the reconciled collections as JSON and pushes change
// events to websocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pipeline-dashboard-go/internal/config"
	"pipeline-dashboard-go/internal/filter"
	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Commands runs pipeline commands.
type Commands interface {
	Start(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error)
	Edit(ctx context.Context, pipelineID int64, params models.PipelineParams) (*models.CommandResponse, error)
	Stop(ctx context.Context, pipelineID int64) (*models.CommandResponse, error)
	Delete(ctx context.Context, pipelineID int64) (*models.CommandResponse, error)
}

// TradePager loads additional pages of trades into the store.
type TradePager interface {
	RefreshTrades(ctx context.Context, page int) error
}

// Messages is the source of the transient status message.
type Messages interface {
	Current() models.Message
	OnChange(fn func(models.Message))
}

// Server is the HTTP front of the dashboard.
type Server struct {
	logger   *zap.Logger
	store    *store.Store
	engine   *filter.Engine
	commands Commands
	pager    TradePager
	messages Messages
	hub      *Hub
	http     *http.Server
	now      func() time.Time
}

// NewServer creates a server and subscribes its hub to status messages.
func NewServer(cfg config.Server, st *store.Store, engine *filter.Engine, commands Commands, pager TradePager, messages Messages, logger *zap.Logger) *Server {
	log := logger.Named("server")
	s := &Server{
		logger:   log,
		store:    st,
		engine:   engine,
		commands: commands,
		pager:    pager,
		messages: messages,
		hub:      NewHub(log),
		now:      time.Now,
	}
	messages.OnChange(func(m models.Message) {
		s.hub.Broadcast(Event{Type: EventMessage, Message: &m})
	})
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the handler serving every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.HealthHandler)

	mux.HandleFunc("GET /api/pipelines", s.PipelinesHandler)
	mux.HandleFunc("GET /api/pipelines/options", s.OptionsHandler)
	mux.HandleFunc("PUT /api/pipelines/options", s.ToggleOptionsHandler)
	mux.HandleFunc("GET /api/pipelines/{id}", s.PipelineHandler)
	mux.HandleFunc("POST /api/pipelines", s.StartHandler)
	mux.HandleFunc("PUT /api/pipelines/{id}", s.EditHandler)
	mux.HandleFunc("POST /api/pipelines/{id}/stop", s.StopHandler)
	mux.HandleFunc("DELETE /api/pipelines/{id}", s.DeleteHandler)

	mux.HandleFunc("GET /api/trades", s.TradesHandler)
	mux.HandleFunc("GET /api/positions", s.PositionsHandler)
	mux.HandleFunc("GET /api/balances", s.BalancesHandler)
	mux.HandleFunc("GET /api/metrics", s.MetricsHandler)
	mux.HandleFunc("GET /api/resources", s.ResourcesHandler)
	mux.HandleFunc("GET /api/message", s.MessageHandler)
	mux.HandleFunc("GET /api/statistics", s.StatisticsHandler)

	mux.HandleFunc("GET /ws", s.WebsocketHandler)

	return mux
}

// Run serves HTTP and pushes store changes to websocket clients until ctx is
// cancelled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.forwardChanges(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Starting web server", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Stopping web server")
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) forwardChanges(ctx context.Context) {
	changes, unsubscribe := s.store.Subscribe(64)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			s.hub.Broadcast(Event{Type: EventChange, Change: &c})
		}
	}
}
