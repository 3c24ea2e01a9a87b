package db

import (
	"fmt"
	"time"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		channel_id text,
		id bigint,
		sender text,
		display_name text,
		avatar text,
		content text,
		kind text,
		created_at timestamp,
		PRIMARY KEY (channel_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		username text PRIMARY KEY,
		display_name text,
		avatar text,
		is_online boolean,
		last_seen timestamp
	)`,
}

// EnsureSchema creates the keyspace and the relay tables if they are
// missing. It connects through the system keyspace first.
func EnsureSchema(hosts []string, keyspace string, timeout time.Duration) error {
	sys, err := NewSession(hosts, "system", timeout)
	if err != nil {
		return fmt.Errorf("connect system keyspace: %w", err)
	}
	err = sys.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`,
		keyspace,
	)).Exec()
	sys.Close()
	if err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}

	session, err := NewSession(hosts, keyspace, timeout)
	if err != nil {
		return fmt.Errorf("connect %s keyspace: %w", keyspace, err)
	}
	defer session.Close()

	for _, stmt := range tables {
		if err := session.Query(stmt).Exec(); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// DropTables removes the relay tables, keeping the keyspace.
func DropTables(session *Session) error {
	for _, name := range []string{"messages", "users"} {
		if err := session.Query("DROP TABLE IF EXISTS " + name).Exec(); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}
