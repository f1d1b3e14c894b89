package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/archive"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/config"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/intake"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/metrics"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/queue"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/store"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/students"
	"github.com/tejaswa-jaiswal/facedata-iist/internal/worker"
)

// Worker consumes image events from redis, reconciles counters and archives images.
func main() {
	cfg := config.Load()
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis, got %q (the memory queue is consumed inside the api)", cfg.QueueBackend)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rc := store.NewRedis(cfg.RedisAddr)
	defer rc.Close()
	if !rc.Healthy(ctx) {
		log.Printf("warning: redis at %s not reachable yet, consumer will retry", cfg.RedisAddr)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsPort != "" {
		go serveMetrics(cfg.MetricsPort)
	}

	svc, err := intake.NewService(students.NewRepository(db), intake.Options{
		DataDir: cfg.DataDir,
		Metrics: m,
	})
	if err != nil {
		log.Fatalf("intake init failed: %v", err)
	}

	var arch worker.Archiver
	if cfg.Archive.Enabled() {
		st, err := archive.New(cfg.Archive)
		if err != nil {
			log.Fatalf("archive init failed: %v", err)
		}
		if err := st.EnsureBucket(ctx); err != nil {
			log.Fatalf("archive bucket: %v", err)
		}
		arch = st
	}

	// Catch up on anything that drifted while no worker was running.
	if fixed, err := svc.ReconcileAll(ctx); err != nil {
		log.Printf("startup reconcile failed: %v", err)
	} else {
		log.Printf("startup reconcile checked %d students", len(fixed))
	}

	log.Println("worker started, waiting for messages...")
	proc := worker.NewProcessor(svc, arch, m)
	if err := proc.Run(ctx, queue.NewRedisQueue(rc.Client, cfg.QueueKey)); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("worker metrics on :%s/metrics", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics server: %v", err)
	}
}
