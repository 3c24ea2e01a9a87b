package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/mahaj/chat-relay/pkg/config"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/notify"
)

func main() {
	configName := flag.String("config", "relay", "config file name, without extension")
	flag.Parse()

	cfg, err := config.Load(*configName)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log := logger.NewLogger(cfg)
	slog.SetDefault(log)

	if len(cfg.Kafka.Brokers) == 0 || len(cfg.Notify.WebhookURLs) == 0 {
		log.Error("bridge needs kafka_brokers and webhook_urls")
		os.Exit(1)
	}

	sink := notify.NewWebhookSink(cfg.Notify.WebhookURLs, &http.Client{Timeout: cfg.Notify.Timeout})
	consumer := NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, sink, cfg.Notify.Timeout, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("bridge consuming notifications",
			"brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic, "webhooks", len(cfg.Notify.WebhookURLs))
		consumer.Consume(ctx)
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"consumer": func(shutdownCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-shutdownCtx.Done():
				}
				return errors.Join(consumer.Close(), sink.Close())
			},
		},
	)

	exitCode := <-wait
	log.Info("bridge exited", "code", exitCode)
	os.Exit(exitCode)
}
