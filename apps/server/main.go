package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/mahaj/chat-relay/pkg/auth"
	"github.com/mahaj/chat-relay/pkg/commands"
	"github.com/mahaj/chat-relay/pkg/config"
	"github.com/mahaj/chat-relay/pkg/db"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/notify"
	"github.com/mahaj/chat-relay/pkg/relay"
	"github.com/mahaj/chat-relay/pkg/router"
	"github.com/mahaj/chat-relay/pkg/snowflake"
	"github.com/mahaj/chat-relay/pkg/store"
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

	port, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to open message store", "err", err)
		os.Exit(1)
	}

	node, err := snowflake.NewNode(cfg.Snowflake)
	if err != nil {
		log.Error("failed to initialize snowflake node", "node", cfg.Snowflake, "err", err)
		os.Exit(1)
	}

	rt := router.New(port, node, router.Options{
		DefaultChannel: cfg.Chat.DefaultChannel,
		Channels:       cfg.Chat.Channels,
		HistoryLimit:   cfg.Chat.HistoryLimit,
		IOTimeout:      cfg.Scylla.IOTimeout,
		Logger:         log,
	})

	dispatcher := notify.NewDispatcher(openSink(cfg, log), notify.DispatcherOptions{
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
		Logger:    log,
	})

	opts := relay.Options{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		IOTimeout:        cfg.Scylla.IOTimeout,
		Notifier:         dispatcher,
		Logger:           log,
	}
	var tokens *auth.Issuer
	if cfg.JWT.Secret != "" {
		tokens = auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
		opts.Tokens = tokens
	}

	interpreter := commands.New(commands.PersonaByName(cfg.Chat.Persona), nil)
	core := relay.New(port, rt, interpreter, opts)

	srv := newServer(core, tokens, dispatcher, cfg.Server.AllowedOrigins, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(srv.closeClients)

	go func() {
		log.Info("chat relay listening",
			"addr", cfg.Server.Port, "durable", port.Durable(), "persona", cfg.Chat.Persona)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"relay": func(ctx context.Context) error {
				log.Info("graceful shutdown initiated")
				return errors.Join(
					httpServer.Shutdown(ctx),
					dispatcher.Close(ctx),
					port.Close(),
				)
			},
		},
	)

	exitCode := <-wait
	log.Info("chat relay exited", "code", exitCode)
	os.Exit(exitCode)
}

// openStore picks the persistence port once: Scylla when hosts are
// configured, the bounded in-memory store otherwise. A Redis address adds
// the online-status mirror on top of either.
func openStore(cfg *config.Config, log *slog.Logger) (store.Port, error) {
	var port store.Port
	if cfg.Durable() {
		if err := db.EnsureSchema(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, cfg.Scylla.IOTimeout); err != nil {
			return nil, err
		}
		session, err := db.NewSession(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, cfg.Scylla.IOTimeout)
		if err != nil {
			return nil, err
		}
		port = store.NewScylla(session)
	} else {
		log.Warn("no scylla hosts configured, history is kept in memory",
			"high_water", store.HistoryHighWater, "retain", store.HistoryRetain)
		port = store.NewMemory()
	}

	if cfg.Redis.Addr != "" {
		mirror := store.NewRedisStatus(cfg.Redis.Addr)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Scylla.IOTimeout)
		defer cancel()
		if err := mirror.Reset(ctx); err != nil {
			log.Warn("failed to reset online status mirror", "addr", cfg.Redis.Addr, "err", err)
		}
		port = store.WithStatusMirror(port, mirror)
	}
	return port, nil
}

func openSink(cfg *config.Config, log *slog.Logger) notify.Sink {
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		log.Info("notifications go to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		return notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	case len(cfg.Notify.WebhookURLs) > 0:
		log.Info("notifications go to webhooks", "count", len(cfg.Notify.WebhookURLs))
		return notify.NewWebhookSink(cfg.Notify.WebhookURLs, &http.Client{Timeout: cfg.Notify.Timeout})
	default:
		return notify.Discard{}
	}
}
