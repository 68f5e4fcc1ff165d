package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"agentdesk/internal/retention"
	"agentdesk/pkg/api"
	"agentdesk/pkg/banner"
	"agentdesk/pkg/config"
	"agentdesk/pkg/delivery"
	"agentdesk/pkg/logger"
	"agentdesk/pkg/mail"
	"agentdesk/pkg/reasoning"
	"agentdesk/pkg/shutdown"
	"agentdesk/pkg/store"
	"agentdesk/pkg/triage"
)

func main() {
	// build metadata - set via ldflags during build/release
	var (
		version = "dev"
		commit  = "none"
	)
	_ = godotenv.Load(".env")
	flags := config.ParseCommandFlags()

	cfgPath := config.ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// explicit flags win over config/env
	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := cfg.Storage.DBPath
	if flags.Set["db"] {
		dbPath = flags.DB
	}

	logger.InitWithLevel(cfg.Logging.Level)

	cacheBytes, err := cfg.CacheBytes()
	if err != nil {
		log.Fatalf("invalid storage config: %v", err)
	}
	if err := store.Open(dbPath, cacheBytes); err != nil {
		shutdown.Fatal("failed to open pebble", err, dbPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	var queue delivery.Queue
	switch cfg.Delivery.Queue.Backend {
	case "pebble":
		queue, err = delivery.NewPebbleQueue(cfg.Delivery.Queue.Capacity)
		if err != nil {
			shutdown.Fatal("failed to open delivery queue", err, dbPath)
		}
	case "kafka":
		k := cfg.Delivery.Queue.Kafka
		queue = delivery.NewKafkaQueue(k.Brokers, k.Topic, k.GroupID)
	default:
		queue = delivery.NewMemoryQueue(cfg.Delivery.Queue.Capacity)
	}

	reasoner := reasoning.NewClient(reasoning.Options{
		Endpoint: cfg.Reasoning.Endpoint,
		Model:    cfg.Reasoning.Model,
		APIKey:   cfg.Reasoning.APIKey,
		Timeout:  cfg.ReasoningTimeout(),
	})

	engine := &triage.Engine{Store: store.Pebble{}, Reasoner: reasoner, Queue: queue}

	var transport mail.Transport
	if cfg.Delivery.SMTP.Host != "" {
		transport = &mail.SMTPTransport{
			Host:     cfg.Delivery.SMTP.Host,
			Port:     cfg.Delivery.SMTP.Port,
			From:     cfg.Delivery.SMTP.From,
			Username: cfg.Delivery.SMTP.Username,
			Password: cfg.Delivery.SMTP.Password,
		}
	} else {
		transport = mail.LogTransport{}
	}

	var limiter *rate.Limiter
	if cfg.Delivery.Worker.SendRPS > 0 {
		burst := cfg.Delivery.Worker.SendBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Delivery.Worker.SendRPS), burst)
	}
	worker := &delivery.Worker{
		Queue:       queue,
		Replies:     store.Pebble{},
		Transport:   transport,
		Concurrency: cfg.Delivery.Worker.Concurrency,
		Limiter:     limiter,
	}
	workerDone := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(workerDone)
	}()

	stopRetention, err := retention.Start(ctx, cfg)
	if err != nil {
		shutdown.Fatal("failed to start retention", err, dbPath)
	}

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	banner.Print(cfg, addr, verStr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Handler(engine))

	srv := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http_listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			shutdown.Fatal("http server failed", err, dbPath)
		}
	case <-ctx.Done():
	}

	// graceful shutdown: stop intake, drain the worker, then close storage
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("http_shutdown_error", "error", err)
	}
	stopRetention()
	cancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		logger.Warn("worker_drain_timeout")
	}
	_ = queue.Close()
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}
