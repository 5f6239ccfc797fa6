package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/movieshelf/internal/middleware"
)

const shutdownTimeout = 5 * time.Second

// prefetchHome warms the first page of the home screen lists.
func prefetchHome(ctx context.Context) {
	if Config.TMDBAPIKey == "" {
		return
	}

	popular := movieQueries.PopularMovies(1)
	defer popular.Close()
	trending := movieQueries.TrendingMovies("", 1)
	defer trending.Close()

	if r := popular.Mount(ctx); r.IsError() {
		Logger.Warnf("[App] failed to prefetch popular movies: %v", r.Error)
	}
	if r := trending.Mount(ctx); r.IsError() {
		Logger.Warnf("[App] failed to prefetch trending movies: %v", r.Error)
	}
}

func newRouter() *gin.Engine {
	if !strings.EqualFold(Config.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoopbackOnly())
	r.Use(middleware.Logger(Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Gzip())

	handler.RegisterRoutes(r)
	return r
}

func main() {
	// Initialize logger
	InitializeLogger()

	// Load configuration
	InitializeConfig()

	// Initialize storage
	InitializeStorage()

	// Initialize services
	InitializeServices()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start query cache cleanup routine
	if err := serviceContainer.Cleanup.Start(ctx); err != nil {
		Logger.Errorf("[App] failed to start cache cleanup: %v", err)
	}

	go prefetchHome(ctx)

	var srv *http.Server
	if Config.DevtoolsAddr != "" {
		srv = &http.Server{
			Addr:              Config.DevtoolsAddr,
			Handler:           newRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			Logger.Infof("[App] starting devtools inspector on %s", Config.DevtoolsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Logger.Errorf("[App] devtools server failed: %v", err)
				stop()
			}
		}()
	} else {
		Logger.Infof("[App] devtools inspector disabled")
	}

	<-ctx.Done()
	Logger.Infof("[App] shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			Logger.Errorf("[App] devtools shutdown: %v", err)
		}
	}

	if err := serviceContainer.Close(); err != nil {
		Logger.Errorf("[App] failed to close storage: %v", err)
	}
}
