package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"order_video/internal/config"
	"order_video/internal/logger"
	"order_video/internal/middleware"
	"order_video/internal/qrlink"
	"order_video/internal/queue"
	"order_video/internal/router"
	"order_video/internal/shopify"
	"order_video/internal/store"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config is not known yet
		logger.New("info", "json").Fatal("load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. SQLite; every store must be ready before serving
	db, err := store.Open(cfg.DBPath, log)
	if err != nil {
		log.Fatal("open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	videos := store.NewOrderVideoStore(db, log)
	scans := store.NewScanEventStore(db, log)
	sessions := store.NewSessionStore(db, log)
	for _, ready := range []func() error{videos.Ready, scans.Ready, sessions.Ready} {
		if err := ready(); err != nil {
			log.Fatal("prepare database", zap.Error(err))
		}
	}
	if cfg.ShopifyShop != "" && cfg.ShopifyAccessToken != "" {
		if err := sessions.Save(ctx, cfg.ShopifyShop, cfg.ShopifyAccessToken, cfg.ShopifyScopes); err != nil {
			log.Fatal("seed shop session", zap.Error(err))
		}
	}
	if cfg.ShopifyAPISecret == "" {
		log.Warn("SHOPIFY_API_SECRET is empty; webhook signatures are not verified")
	}

	// 2. optional Redis and Kafka, plus the scan event pipeline
	var rdb *rd.Client
	if cfg.RedisEnabled() {
		rdb = rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
	}

	var workers sync.WaitGroup
	sink := scanPipeline(ctx, cfg, rdb, scans, &workers, log)

	// 3. HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	router.Setup(r, router.Deps{
		Videos:   videos,
		Scans:    scans,
		Sessions: sessions,
		Shopify:  shopify.NewClient(cfg.ShopifyAPIVersion, log),
		QR:       qrlink.NewEncoder(cfg.QRSize),
		ScanSink: sink,
		Redis:    rdb,
		Config:   cfg,
		Log:      log,
	})

	if cfg.Serverless {
		adapter := ginadapter.New(r)
		lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
			return adapter.ProxyWithContext(ctx, req)
		})
		return
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("db", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	workers.Wait()
}

// scanPipeline picks where scan events go and starts the background workers:
//   - Redis: stream outbox, relayed to Kafka when configured, else into SQLite
//   - Kafka only: straight to the producer
//   - neither: straight into SQLite
//
// With Kafka on, a consumer moves messages from the topic into scan_events.
// Lambda gets no background workers, so it skips the outbox.
func scanPipeline(ctx context.Context, cfg config.AppConfig, rdb *rd.Client, scans *store.ScanEventStore, wg *sync.WaitGroup, log *zap.Logger) queue.Publisher {
	direct := queue.NewDirectSink(scans)

	var downstream queue.Publisher = direct
	if cfg.KafkaEnabled() {
		producer := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		downstream = producer
		if !cfg.Serverless {
			consumer := queue.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, scans, log)
			run(wg, func() {
				consumer.Run(ctx)
				_ = consumer.Close()
				_ = producer.Close()
			})
		}
	}

	if rdb == nil || cfg.Serverless {
		return downstream
	}
	relay := queue.NewRelay(rdb, downstream, cfg.ScanEventStream, cfg.ScanEventGroup, cfg.ScanEventConsumer, log)
	run(wg, func() { relay.Run(ctx) })
	return queue.NewStreamOutbox(rdb, cfg.ScanEventStream)
}

func run(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}
