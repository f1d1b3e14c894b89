package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/archive"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/config"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/metrics"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/queue"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/store"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/web"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		q     queue.Queue
		redis web.Checker
	)
	switch cfg.QueueBackend {
	case "redis":
		rc := store.NewRedis(cfg.RedisAddr)
		defer rc.Close()
		q = queue.NewRedisQueue(rc.Client, cfg.QueueKey)
		redis = rc
	case "none":
		q = queue.Discard{}
	default:
		q = queue.NewInMemory(256)
	}

	repo := students.NewRepository(db)
	svc, err := intake.NewService(repo, intake.Options{
		DataDir:    cfg.DataDir,
		PreviewDir: cfg.UploadDir,
		PreviewURL: "/uploads",
		Publisher:  q,
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	// The in-memory queue only exists in this process, so its consumer does too.
	var workerDone chan struct{}
	if mem, ok := q.(*queue.InMemory); ok {
		proc := worker.NewProcessor(svc, archiver(ctx, cfg), m)
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := proc.Run(ctx, mem); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
	}

	h := web.NewHandler(svc, repo, db, redis)
	r := web.NewRouter(h, web.RouterOptions{
		UploadDir:       cfg.UploadDir,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Metrics:         m,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on :%s (data=%s uploads=%s queue=%s)", cfg.HTTPPort, svc.DataDir(), cfg.UploadDir, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Println("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}
	if workerDone != nil {
		select {
		case <-workerDone:
		case <-shutdownCtx.Done():
			log.Println("in-process worker did not drain in time")
		}
	}

	log.Println("server exited")
	return nil
}

// archiver returns the object-storage mirror, or nil when it is not configured
// or unreachable.
func archiver(ctx context.Context, cfg config.App) worker.Archiver {
	if !cfg.Archive.Enabled() {
		return nil
	}
	st, err := archive.New(cfg.Archive)
	if err != nil {
		log.Printf("warning: archive disabled: %v", err)
		return nil
	}
	if err := st.EnsureBucket(ctx); err != nil {
		log.Printf("warning: archive disabled: %v", err)
		return nil
	}
	log.Printf("archiving images to bucket %s at %s", cfg.Archive.Bucket, cfg.Archive.Endpoint)
	return st
}
