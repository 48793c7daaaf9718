package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canvas-editor/config"
	"canvas-editor/core"
	"canvas-editor/handlers/api/designs"
	sessionapi "canvas-editor/handlers/api/sessions"
	"canvas-editor/handlers/api/snapshots"
	"canvas-editor/handlers/websocket"
	logmw "canvas-editor/middleware"
	"canvas-editor/sessions"
	"canvas-editor/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(store core.DesignStore, reg *sessions.Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(logmw.RequestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	snapshotStore, hasSnapshots := store.(core.SnapshotStore)

	r.Route("/api/v2", func(r chi.Router) {
		r.Route("/designs", func(r chi.Router) {
			r.Get("/", designs.HandleListDesigns(store))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", designs.HandleGetDesign(store))
				r.Put("/", designs.HandleSaveDesign(store, reg.Limits()))
				r.Delete("/", designs.HandleDeleteDesign(store))

				// Snapshot routes - only for backends that keep history
				if !hasSnapshots {
					return
				}
				r.Route("/snapshots", func(r chi.Router) {
					r.Post("/", snapshots.HandleCreateSnapshot(snapshotStore, store))
					r.Get("/", snapshots.HandleListSnapshots(snapshotStore))
					r.Get("/count", snapshots.HandleGetSnapshotCount(snapshotStore))
					r.Route("/{snapshotId}", func(r chi.Router) {
						r.Get("/", snapshots.HandleGetSnapshot(snapshotStore))
						r.Put("/", snapshots.HandleUpdateSnapshot(snapshotStore))
						r.Delete("/", snapshots.HandleDeleteSnapshot(snapshotStore))
						r.Post("/restore", snapshots.HandleRestoreSnapshot(snapshotStore, store))
					})
				})
				r.Route("/settings", func(r chi.Router) {
					r.Get("/", snapshots.HandleGetDesignSettings(snapshotStore))
					r.Put("/", snapshots.HandleUpdateDesignSettings(snapshotStore))
				})
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			sessionapi.Routes(r, reg)
		})
	})

	r.Get("/api/sessions/active", websocket.HandleActiveSessions(reg))

	if hasSnapshots {
		logrus.Info("Snapshot API routes registered")
	} else {
		logrus.Warn("Snapshot API not available for this storage type")
	}

	return r
}

func waitForShutdown(ctx context.Context, server *http.Server, ioo *socketio.Server, store core.DesignStore) {
	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	ioo.Close(nil)

	if closer, ok := store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close store")
		}
	}
}

func main() {
	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	store, err := stores.GetStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open store")
	}

	reg := sessions.NewRegistry(store, sessions.Options{
		Store:         cfg.Editor.StoreOptions(),
		FrameInterval: cfg.Editor.FrameInterval(),
		IdleTimeout:   cfg.SessionIdle,
	})
	go reg.Run(ctx)

	r := setupRouter(store, reg)
	ioo := websocket.SetupSocketIO(reg)
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	server := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ctx, server, ioo, store)
}
