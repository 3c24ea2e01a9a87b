// Package config loads relay settings from defaults, an optional relay.yaml
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Scylla    Scylla
	Redis     Redis
	Kafka     Kafka
	JWT       JWT
	Chat      Chat
	Notify    Notify
	Logger    Logger
	Snowflake int64
}

type Server struct {
	Port            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type Scylla struct {
	Hosts     []string
	Keyspace  string
	IOTimeout time.Duration
}

type Redis struct {
	Addr string
}

type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

type JWT struct {
	Secret   string
	TokenTTL time.Duration
}

type Chat struct {
	DefaultChannel   string
	Channels         []model.Channel
	HistoryLimit     int
	MaxMessageLength int
	Persona          string
}

type Notify struct {
	WebhookURLs []string
	Timeout     time.Duration
	QueueSize   int
}

type Logger struct {
	Level  string
	Format string
}

// Durable reports whether a durable message store is configured.
func (c *Config) Durable() bool {
	return len(c.Scylla.Hosts) > 0
}

var defaultChannels = []map[string]any{
	{"id": "general", "name": "General", "description": "Main room for everyone", "icon": "💬"},
	{"id": "ooc", "name": "OOC", "description": "Out of character talk", "icon": "🗨️"},
	{"id": "faction", "name": "Factions", "description": "Talk between factions", "icon": "⚔️"},
	{"id": "trade", "name": "Trade", "description": "Buying, selling and swaps", "icon": "💰"},
	{"id": "events", "name": "Events", "description": "Events and gatherings", "icon": "🎉"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", ":3000")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("scylla_hosts", []string{})
	v.SetDefault("scylla_keyspace", "chat")
	v.SetDefault("io_timeout", 5*time.Second)
	v.SetDefault("redis_addr", "")
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("kafka_topic", "chat-notifications")
	v.SetDefault("kafka_group_id", "chat-bridge")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("default_channel", "general")
	v.SetDefault("channels", defaultChannels)
	v.SetDefault("history_limit", 100)
	v.SetDefault("max_message_length", 2000)
	v.SetDefault("persona", "chat")
	v.SetDefault("webhook_urls", []string{})
	v.SetDefault("notify_timeout", 3*time.Second)
	v.SetDefault("notify_queue", 256)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("snowflake_node", 1)
}

// LoadConfig builds a viper instance with defaults, the optional config file
// and automatic environment binding (PORT, SCYLLA_HOSTS, ...).
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		slog.Debug("no config file, using defaults and environment", "name", filename)
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	c := Config{
		Server: Server{
			Port:            v.GetString("port"),
			AllowedOrigins:  list(v, "allowed_origins"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Scylla: Scylla{
			Hosts:     list(v, "scylla_hosts"),
			Keyspace:  v.GetString("scylla_keyspace"),
			IOTimeout: v.GetDuration("io_timeout"),
		},
		Redis: Redis{Addr: v.GetString("redis_addr")},
		Kafka: Kafka{
			Brokers: list(v, "kafka_brokers"),
			Topic:   v.GetString("kafka_topic"),
			GroupID: v.GetString("kafka_group_id"),
		},
		JWT: JWT{
			Secret:   v.GetString("jwt_secret"),
			TokenTTL: v.GetDuration("token_ttl"),
		},
		Chat: Chat{
			DefaultChannel:   strings.TrimSpace(v.GetString("default_channel")),
			HistoryLimit:     v.GetInt("history_limit"),
			MaxMessageLength: v.GetInt("max_message_length"),
			Persona:          strings.ToLower(v.GetString("persona")),
		},
		Notify: Notify{
			WebhookURLs: list(v, "webhook_urls"),
			Timeout:     v.GetDuration("notify_timeout"),
			QueueSize:   v.GetInt("notify_queue"),
		},
		Logger: Logger{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Snowflake: v.GetInt64("snowflake_node"),
	}

	channels, err := parseChannels(v)
	if err != nil {
		slog.Error("unable to parse channels", "err", err)
		return nil, err
	}
	c.Chat.Channels = channels

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is LoadConfig followed by ParseConfig.
func Load(filename string) (*Config, error) {
	v, err := LoadConfig(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(v)
}

func (c *Config) validate() error {
	if c.Chat.DefaultChannel == "" {
		return errors.New("default_channel cannot be empty")
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 100
	}
	if c.Chat.MaxMessageLength <= 0 {
		c.Chat.MaxMessageLength = 2000
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 256
	}
	switch c.Chat.Persona {
	case "chat", "military":
	default:
		return fmt.Errorf("unknown persona %q", c.Chat.Persona)
	}
	if len(c.Chat.Channels) > 0 {
		for _, ch := range c.Chat.Channels {
			if ch.ID == c.Chat.DefaultChannel {
				return nil
			}
		}
		return fmt.Errorf("default channel %q is not in the channel list", c.Chat.DefaultChannel)
	}
	return nil
}

// parseChannels accepts either a list of channel objects (config file) or
// a comma separated list of ids (environment).
func parseChannels(v *viper.Viper) ([]model.Channel, error) {
	if raw, ok := v.Get("channels").(string); ok {
		var out []model.Channel
		for _, id := range splitList(raw) {
			out = append(out, model.Channel{ID: id, Name: id})
		}
		return out, nil
	}

	var out []model.Channel
	if err := v.UnmarshalKey("channels", &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].ID = strings.TrimSpace(out[i].ID)
		if out[i].ID == "" {
			return nil, errors.New("channel id cannot be empty")
		}
		if out[i].Name == "" {
			out[i].Name = out[i].ID
		}
	}
	return out, nil
}

// list reads a string slice that may arrive as a comma separated string
// from the environment.
func list(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	var out []string
	for _, s := range v.GetStringSlice(key) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
