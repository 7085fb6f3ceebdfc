package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"timerhub/config"
	"timerhub/internal/barsvc"
	"timerhub/internal/discovery"
	"timerhub/internal/events"
	"timerhub/internal/health"
	"timerhub/internal/logs"
	"timerhub/internal/middleware"
	"timerhub/internal/notify"
	"timerhub/internal/registry"
	"timerhub/internal/timerctrl"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	Registry *registry.Registry
	Bars     *registry.BarList
	Bus      *events.Bus

	disc   *discovery.Responder
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	// 1) Logging
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	// 2) Core state
	a.Registry = registry.New(a.cfg.Timers.OnlineThreshold)
	a.Bars = registry.NewBarList()
	a.Bus = events.NewBus()
	dedup := notify.NewDeduper(a.cfg.Notify.DedupWindow)

	// 3) Router + middleware
	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	health.RegisterRoutes(a.Router)

	// 4) Device protocol + operator API
	port, _ := strconv.Atoi(a.cfg.Server.HTTPPort)
	ctrl := timerctrl.New(a.Registry, a.Bars, a.Bus, dedup, port)
	ctrl.RegisterRoutes(a.Router)

	// 5) Bar service pages + printable QR codes
	barsvc.New(a.Registry, a.Bars, a.Bus).RegisterRoutes(a.Router)

	// 6) Dashboard event stream
	feed := events.NewFeed(a.Bus)
	a.Router.HandleFunc("/api/events", feed.Handle).Methods(http.MethodGet)

	// 7) LAN discovery
	if a.cfg.Discovery.Enabled {
		a.disc = discovery.NewResponder(a.cfg.Discovery.Port)
	}

	a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	if a.disc != nil {
		if err := a.disc.Start(); err != nil {
			return err
		}
		defer a.disc.Stop()
	}

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      cors.AllowAll().Handler(a.Router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
