// cmd/master/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	http_api "translation-dispatch/internal/api/http"
	"translation-dispatch/internal/config"
	"translation-dispatch/internal/infra/etcd"
	"translation-dispatch/internal/infra/redis"
	"translation-dispatch/internal/master"
	"translation-dispatch/internal/scheduler"
	"translation-dispatch/internal/tracing"
	"translation-dispatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// corsMiddleware wraps an http.Handler with CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	// 1. Logger and configuration
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = uuid.New().String()
	}
	logger = logger.With("node_id", nodeID)
	log.Printf("Starting translation master node %s...", nodeID)

	tracerShutdown, err := tracing.InitTracer("translation-dispatch-master", nodeID, log.Writer())
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tracerShutdown(context.Background()); err != nil {
			log.Printf("failed to shutdown tracer: %v", err)
		}
	}()

	// 2. Root context for lifecycle management
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupGracefulShutdown(cancel)

	// 3. Infrastructure
	etcdClient, err := etcd.NewClient(cfg.EtcdEndpoints, cfg.EtcdTimeout)
	if err != nil {
		log.Fatalf("Failed to create etcd client: %v", err)
	}
	defer etcdClient.Close()
	log.Println("Connected to etcd.")

	queue, err := redis.NewTaskQueue(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		log.Fatalf("Failed to connect task queue: %v", err)
	}
	defer queue.Close()
	log.Printf("Connected to Redis queue %s.", cfg.QueueName)

	modelRepo := etcd.NewEtcdModelRepository(etcdClient, logger)
	recordRepo := etcd.NewEtcdRecordRepository(etcdClient, logger)
	locker := etcd.NewEtcdLocker(etcdClient)

	// 4. Worker node discovery and dispatch
	discovery := master.NewNodeDiscovery(etcdClient, logger)
	go discovery.WatchNodes(rootCtx)
	dispatcher := master.NewDispatcher(discovery, logger)
	defer dispatcher.Close()

	// 5. Use cases
	translationService := usecase.NewTranslationService(dispatcher, queue, recordRepo, cfg.RPCTimeout, logger)
	modelService := usecase.NewModelService(modelRepo, locker, logger)

	leaderManager := etcd.NewEtcdLeaderElectionManager(etcdClient, nodeID, cfg.LeaderElectionTTL, logger)
	cronScheduler := scheduler.NewCronScheduler(logger)
	maintenance := usecase.NewMaintenanceService(leaderManager, cronScheduler, recordRepo,
		cfg.PruneSchedule, cfg.RecordRetention, nodeID, logger)

	go func() {
		if err := maintenance.Start(rootCtx); err != nil && rootCtx.Err() == nil {
			log.Fatalf("Maintenance service stopped with error: %v", err)
		}
	}()

	// 6. HTTP API
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	http_api.NewTranslateHandler(translationService, logger).RegisterRoutes(mux)
	http_api.NewModelHandler(modelService, logger).RegisterRoutes(mux)

	log.Printf("Starting HTTP API server on %s", cfg.HttpListenAddr)
	server := &http.Server{
		Addr:              cfg.HttpListenAddr,
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 7. Block until shutdown
	<-rootCtx.Done()
	log.Println("Shutting down master node gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}

	log.Println("Master node shut down.")
}

func setupGracefulShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v. Initiating graceful shutdown...", sig)
		cancel()
	}()
}
