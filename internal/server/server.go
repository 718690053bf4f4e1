// Package server wires configuration, storage, services and routes into
// a running HTTP server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/lacocina/comanda/app/controllers"
	"github.com/lacocina/comanda/app/repositories"
	"github.com/lacocina/comanda/app/routes"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/config"
	"github.com/lacocina/comanda/pkg/cache"
	"github.com/lacocina/comanda/pkg/database"
	"github.com/lacocina/comanda/pkg/event"
	"github.com/lacocina/comanda/pkg/graphql"
	"github.com/lacocina/comanda/pkg/logger"
	"github.com/lacocina/comanda/pkg/metrics"
	"github.com/lacocina/comanda/pkg/middleware"
	"github.com/lacocina/comanda/pkg/reqid"
	"github.com/lacocina/comanda/pkg/router"
	"github.com/lacocina/comanda/pkg/storage"
	"github.com/lacocina/comanda/pkg/ws"
)

// Server owns every long-lived resource of the process.
type Server struct {
	http     *http.Server
	router   *router.Router
	db       *gorm.DB
	feed     *ws.Hub
	mongoLog *logger.MongoHandler
}

// New connects every backing service and mounts the routes. Redis and
// the MongoDB log sink are optional; their absence is logged, not fatal.
func New() (*Server, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	db, err := database.Connect()
	if err != nil {
		return nil, err
	}

	if err := cache.Connect(); err != nil {
		logger.Warn("redis unavailable, caching disabled", "error", err)
	}

	var mongoLog *logger.MongoHandler
	if uri := config.MongoLogURI(); uri != "" {
		mongoLog, err = logger.NewMongoHandler(uri, config.MongoLogDB())
		if err != nil {
			logger.Warn("mongo log sink unavailable", "error", err)
		} else {
			logger.SetHandler(logger.NewMultiHandler(logger.L.Handler(), mongoLog))
		}
	}

	storage.Connect()

	productRepo := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	userRepo := repositories.NewUserRepository(db)

	orderSvc := services.NewOrderService(orderRepo, productRepo, userRepo)
	statsSvc := services.NewStatsService(orderRepo)
	productSvc := services.NewProductService(productRepo)
	authSvc := services.NewAuthService(userRepo)

	feed := ws.NewHub()
	go feed.Run()
	registerListeners(feed)

	schema, err := graphql.NewSchema(productRepo)
	if err != nil {
		return nil, err
	}

	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(120, time.Minute),
	)

	routes.RegisterAPI(r, routes.Controllers{
		Auth:     controllers.NewAuthController(authSvc),
		Orders:   controllers.NewOrderController(orderSvc, statsSvc),
		Products: controllers.NewProductController(productSvc),
		System:   controllers.NewSystemController(feed),
		Schema:   graphql.Handler(schema),
		Feed:     feed,
	})

	return &Server{
		http: &http.Server{
			Addr:              ":" + config.AppPort(),
			Handler:           r.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:   r,
		db:       db,
		feed:     feed,
		mongoLog: mongoLog,
	}, nil
}

// registerListeners connects domain events to the live feed and the
// stats cache.
func registerListeners(feed *ws.Hub) {
	invalidate := func(interface{}) {
		_ = cache.DelPrefix(services.StatsCachePrefix)
	}
	event.Listen(event.OrderCreated, func(payload interface{}) {
		feed.Publish(map[string]interface{}{"event": event.OrderCreated, "order": payload})
		invalidate(payload)
	})
	event.Listen(event.OrderStatusChanged, func(payload interface{}) {
		feed.Publish(map[string]interface{}{"event": event.OrderStatusChanged, "order": payload})
		invalidate(payload)
	})
}

// Handler exposes the mounted handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Routes lists every mounted route, used by route:list.
func (s *Server) Routes() []router.RouteInfo { return s.router.Routes() }

// Close releases every backing resource without serving. Callers that
// only needed the wiring (route:list) use this instead of Run.
func (s *Server) Close() { s.close() }

// Run serves until the context is cancelled, then shuts down cleanly.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", s.http.Addr, "env", config.AppEnv())
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	event.Flush()
	cache.Close()
	if s.mongoLog != nil {
		s.mongoLog.Close()
	}
	if err := database.Close(s.db); err != nil {
		logger.Error("closing database", "error", err)
	}
}
