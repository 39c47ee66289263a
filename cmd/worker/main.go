package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/service/ocr"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/worker"
)

func main() {
	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// init filing service
	ocrService, err := ocr.GetService(log)
	if err != nil {
		log.Error("Failed to create OCR service", logger.Error(err))
		os.Exit(1)
	}

	redisCfg := config.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:     redisCfg.Addr,
		RedisPassword: redisCfg.Password,
		RedisDB:       redisCfg.DB,
		Concurrency:   10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	ocrWorker, err := worker.NewOCRWorker(workerCfg, ocrService, log)
	if err != nil {
		log.Error("Failed to create OCR worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ocrWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down worker...")
	ocrWorker.Stop()
	log.Info("Worker stopped")
}
