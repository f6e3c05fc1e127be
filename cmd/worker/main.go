// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"translation-dispatch/internal/config"
	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/engine"
	"translation-dispatch/internal/infra/etcd"
	"translation-dispatch/internal/infra/redis"
	"translation-dispatch/internal/rpc"
	"translation-dispatch/internal/tracing"
	"translation-dispatch/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelgrpc "go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

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
	log.Printf("Starting worker node %s, listening on %s", nodeID, cfg.GrpcListenAddr)

	tracerShutdown, err := tracing.InitTracer("translation-dispatch-worker", nodeID, log.Writer())
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

	modelRepo := etcd.NewEtcdModelRepository(etcdClient, logger)
	recordRepo := etcd.NewEtcdRecordRepository(etcdClient, logger)

	// 4. Worker pool: one engine per worker goroutine, built on first use
	factory := engine.NewFactory(modelRepo, cfg.ModelLoadTimeout, logger)
	pool := worker.NewPool(factory, worker.PoolConfig{
		Size:         cfg.WorkerCount,
		LockOSThread: cfg.LockOSThread,
	}, logger)
	pool.Start()

	// 5. gRPC server
	lis, err := net.Listen("tcp", cfg.GrpcListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen for gRPC: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	rpc.RegisterTranslatorServer(grpcServer, worker.NewServer(pool, nodeID, logger))

	log.Printf("gRPC server listening on %s", cfg.GrpcListenAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	// 6. Metrics endpoint
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Metrics server listening on %s", cfg.MetricsListenAddr)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Metrics server failed: %v", err)
		}
	}()

	// 7. Queue consumer
	consumer := worker.NewConsumer(queue, pool, recordRepo, nodeID, logger)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Run(rootCtx)
	}()

	// 8. Register only once the node can serve
	registry := worker.NewRegistry(etcdClient, logger)
	regCtx, regCancel := context.WithTimeout(rootCtx, 5*time.Second)
	err = registry.Register(regCtx, nodeID, domain.NodeInfo{
		Addr:      advertiseAddr(cfg),
		PoolSize:  pool.Size(),
		StartedAt: time.Now(),
	}, int64(cfg.LeaderElectionTTL.Seconds()))
	regCancel()
	if err != nil {
		log.Fatalf("Failed to register worker node: %v", err)
	}

	// 9. Block until shutdown signal
	<-rootCtx.Done()
	log.Println("Shutting down worker node gracefully...")

	deregCtx, deregCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := registry.Deregister(deregCtx); err != nil {
		logger.Error("failed to deregister worker node", "error", err)
	}
	deregCancel()

	grpcServer.GracefulStop()
	<-consumerDone

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := pool.Stop(stopCtx); err != nil {
		logger.Error("worker pool did not stop in time", "error", err)
	}

	// Last, so the final task counters can still be scraped during drain.
	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Printf("Metrics server shutdown failed: %v", err)
	}

	log.Println("Worker node shut down.")
}

// advertiseAddr is the address the master dials. Without an explicit
// advertise_addr it is this host's name plus the gRPC listen port.
func advertiseAddr(cfg *config.Config) string {
	if cfg.AdvertiseAddr != "" {
		return cfg.AdvertiseAddr
	}
	host, port, err := net.SplitHostPort(cfg.GrpcListenAddr)
	if err != nil {
		return cfg.GrpcListenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		if hostname, err := os.Hostname(); err == nil {
			host = hostname
		} else {
			host = "localhost"
		}
	}
	return net.JoinHostPort(host, port)
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
