package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/readinglist/internal/config"
	http_controllers "github.com/mrlokans/readinglist/internal/http"
	"github.com/mrlokans/readinglist/internal/scheduler"
	"github.com/mrlokans/readinglist/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is canceled, then shuts it down within
// the configured timeout after calling onShutdown.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting server at %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutdown Server, waiting %v before killing", timeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Call shutdown callback first (e.g., to stop task queue)
		if onShutdown != nil {
			onShutdown(shutdownCtx)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server exiting")
	return nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting readinglist v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := Open(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Global.ShutdownTimeoutInSeconds)*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Printf("Error closing app: %v", err)
		}
	}()

	if app.Tokens.CurrentToken() == "" {
		log.Printf("WARNING: not logged in. Items are saved locally only until you run 'readinglist login'.")
	}

	// Mutations left over from the previous run go out before anything new.
	if n, err := app.Engine.ResumePending(ctx); err != nil {
		log.Printf("[SYNC] Failed to resume outbox: %v", err)
	} else if n > 0 {
		log.Printf("[SYNC] Resumed %d pending mutations", n)
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRefreshQueue(app.Engine),
			tasks.NewReplayOutboxQueue(app.Engine),
			tasks.NewPurgeRemovedQueue(app.Store, cfg.Sync.PurgeAfter),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	refreshScheduler := scheduler.NewRefreshScheduler(scheduler.Config{
		Enabled:  cfg.Sync.RefreshEnabled,
		Schedule: cfg.Sync.RefreshSchedule,
	}, periodicJob(app, taskClient, cfg.Sync.PurgeAfter))
	if err := refreshScheduler.Start(ctx); err != nil {
		log.Printf("WARNING: refresh scheduler not started: %v", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Engine:   app.Engine,
		Database: app.DB,
		Version:  version,
	}
	if taskClient != nil {
		routerCfg.Tasks = taskClient
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		refreshScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	if err := Serve(ctx, router, cfg, onShutdown); err != nil {
		log.Printf("Server error: %v", err)
	}
}

// periodicJob refreshes, replays the outbox and purges old tombstones. With a
// task queue the work is enqueued so it survives restarts and gets retries;
// without one it runs in place.
func periodicJob(app *App, taskClient *tasks.Client, purgeAfter time.Duration) scheduler.Job {
	if taskClient != nil {
		return func(ctx context.Context) error {
			_, err := taskClient.Enqueue(
				tasks.ReplayOutboxTask{},
				tasks.RefreshTask{Reason: "schedule"},
				tasks.PurgeRemovedTask{},
			)
			return err
		}
	}
	return func(ctx context.Context) error {
		if _, err := app.Engine.ResumePending(ctx); err != nil {
			return err
		}
		if err := app.Engine.RefreshAndWait(ctx); err != nil {
			return err
		}
		if purgeAfter <= 0 {
			purgeAfter = tasks.DefaultPurgeAfter
		}
		_, err := app.Store.PurgeRemoved(time.Now().Add(-purgeAfter))
		return err
	}
}
