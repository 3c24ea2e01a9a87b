package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/mahaj/chat-relay/pkg/config"
	"github.com/mahaj/chat-relay/pkg/db"
)

func main() {
	configName := flag.String("config", "relay", "config file name, without extension")
	drop := flag.Bool("drop", false, "drop the relay tables before creating them")
	flag.Parse()

	cfg, err := config.Load(*configName)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if !cfg.Durable() {
		slog.Error("scylla_hosts is not set, nothing to migrate")
		os.Exit(1)
	}
	hosts, keyspace, timeout := cfg.Scylla.Hosts, cfg.Scylla.Keyspace, cfg.Scylla.IOTimeout

	if *drop {
		session, err := db.NewSession(hosts, keyspace, timeout)
		if err != nil {
			slog.Error("failed to connect to scylla", "err", err)
			os.Exit(1)
		}
		slog.Info("dropping relay tables", "keyspace", keyspace)
		err = db.DropTables(session)
		session.Close()
		if err != nil {
			slog.Error("failed to drop tables", "err", err)
			os.Exit(1)
		}
	}

	if err := db.EnsureSchema(hosts, keyspace, timeout); err != nil {
		slog.Error("failed to create schema", "err", err)
		os.Exit(1)
	}
	slog.Info("schema is up to date", "keyspace", keyspace)
}
