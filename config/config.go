// Package config loads the wall configuration.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// config file (yaml/json/toml), a .env file in the working directory, WALL_*
// environment variables and finally command line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "WALL"

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Wall       WallConfig       `mapstructure:"wall"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Bus        BusConfig        `mapstructure:"bus"`
	Export     ExportConfig     `mapstructure:"export"`
	Log        LogConfig        `mapstructure:"log"`
	Otel       OtelConfig       `mapstructure:"otel"`

	v         *viper.Viper
	watchOnce sync.Once
	mu        sync.Mutex
	listeners []func(*Config)
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// AdminConfig guards the moderation routes. An empty key is refused at
// startup unless Insecure is set.
type AdminConfig struct {
	Key      string `mapstructure:"key"`
	Insecure bool   `mapstructure:"insecure"`
}

type SectionConfig struct {
	Key   string `mapstructure:"key" validate:"required"`
	Title string `mapstructure:"title"`
}

type WallConfig struct {
	Sections       []SectionConfig `mapstructure:"sections" validate:"required,min=1,dive"`
	Retention      int             `mapstructure:"retention" validate:"min=1"`
	TextMaxRunes   int             `mapstructure:"text_max_runes" validate:"min=1"`
	AuthorMaxRunes int             `mapstructure:"author_max_runes" validate:"min=1"`
	DefaultAuthor  string          `mapstructure:"default_author" validate:"required"`
	LogCapacity    int             `mapstructure:"log_capacity" validate:"min=1"`
}

type RealtimeConfig struct {
	MailboxSize         int           `mapstructure:"mailbox_size" validate:"min=1"`
	ConnectionBuffer    int           `mapstructure:"connection_buffer" validate:"min=1"`
	EvictionInterval    time.Duration `mapstructure:"eviction_interval"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	PongTimeout         time.Duration `mapstructure:"pong_timeout"`
	PingInterval        time.Duration `mapstructure:"ping_interval"`
	MaxMessageBytes     int64         `mapstructure:"max_message_bytes" validate:"min=1"`
	MaxConnections      int64         `mapstructure:"max_connections" validate:"min=1"`
	MaxConnectionsPerIP int           `mapstructure:"max_connections_per_ip" validate:"min=1"`
	ConnectRate         float64       `mapstructure:"connect_rate" validate:"gt=0"`
	ConnectBurst        int           `mapstructure:"connect_burst" validate:"min=1"`
}

type ModerationConfig struct {
	BannedWords       []string `mapstructure:"banned_words"`
	Replacement       string   `mapstructure:"replacement"`
	SubmitRate        float64  `mapstructure:"submit_rate"`
	SubmitBurst       int      `mapstructure:"submit_burst"`
	ThrottleCacheSize int      `mapstructure:"throttle_cache_size"`
}

type BusConfig struct {
	Topic        string `mapstructure:"topic" validate:"required"`
	OutputBuffer int64  `mapstructure:"output_buffer"`
}

// ExportConfig enables mirroring of wall events to RabbitMQ when URL is set.
type ExportConfig struct {
	URL              string        `mapstructure:"url"`
	QueueSize        int           `mapstructure:"queue_size"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
	BreakerThreshold uint32        `mapstructure:"breaker_threshold"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// OtelConfig enables tracing when Endpoint is set.
type OtelConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":3001")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("admin.key", "")
	v.SetDefault("admin.insecure", false)

	v.SetDefault("wall.sections", []map[string]any{
		{"key": "section1", "title": "Kutlamalar"},
		{"key": "section2", "title": "Dilekler"},
		{"key": "section3", "title": "Fikirler"},
		{"key": "section4", "title": "Teşekkürler"},
		{"key": "section5", "title": "Duyurular"},
	})
	v.SetDefault("wall.retention", 50)
	v.SetDefault("wall.text_max_runes", 280)
	v.SetDefault("wall.author_max_runes", 50)
	v.SetDefault("wall.default_author", "Anonim")
	v.SetDefault("wall.log_capacity", 50)

	v.SetDefault("realtime.mailbox_size", 2048)
	v.SetDefault("realtime.connection_buffer", 256)
	v.SetDefault("realtime.eviction_interval", 15*time.Minute)
	v.SetDefault("realtime.idle_timeout", 30*time.Minute)
	v.SetDefault("realtime.write_timeout", 5*time.Second)
	v.SetDefault("realtime.pong_timeout", 60*time.Second)
	v.SetDefault("realtime.ping_interval", 30*time.Second)
	v.SetDefault("realtime.max_message_bytes", 4096)
	v.SetDefault("realtime.max_connections", 10000)
	v.SetDefault("realtime.max_connections_per_ip", 50)
	v.SetDefault("realtime.connect_rate", 10.0)
	v.SetDefault("realtime.connect_burst", 20)

	v.SetDefault("moderation.banned_words", []string{})
	v.SetDefault("moderation.replacement", "*")
	v.SetDefault("moderation.submit_rate", 0.5)
	v.SetDefault("moderation.submit_burst", 5)
	v.SetDefault("moderation.throttle_cache_size", 4096)

	v.SetDefault("bus.topic", "message_wall.events")
	v.SetDefault("bus.output_buffer", 1024)

	v.SetDefault("export.url", "")
	v.SetDefault("export.queue_size", 1024)
	v.SetDefault("export.breaker_timeout", 30*time.Second)
	v.SetDefault("export.breaker_threshold", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "message-wall")
	v.SetDefault("otel.sample_ratio", 1.0)
}

// flagBindings maps command line overrides onto config keys.
var flagBindings = map[string]string{
	"addr":      "http.addr",
	"admin-key": "admin.key",
	"insecure":  "admin.insecure",
	"retention": "wall.retention",
	"log-level": "log.level",
	"amqp-url":  "export.url",
	"otel":      "otel.endpoint",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("wall", pflag.ContinueOnError)
	fs.String("addr", "", "HTTP listen address")
	fs.String("admin-key", "", "shared secret required on admin routes")
	fs.Bool("insecure", false, "serve admin routes without a key")
	fs.Int("retention", 0, "messages kept per section")
	fs.String("log-level", "", "log level (debug|info|warn|error)")
	fs.String("amqp-url", "", "RabbitMQ URL for event export")
	fs.String("otel", "", "OTLP/HTTP traces endpoint")
	return fs
}

// LoadConfig builds the configuration from all sources.
// file may be empty; args are optional flag overrides such as --addr=:8080.
func LoadConfig(file string, args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// [DOTENV] a missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", file, err)
		}
	}

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	for name, key := range flagBindings {
		// only flags given explicitly override lower layers
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.v = v
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Wall.Sections))
	for _, s := range c.Wall.Sections {
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("invalid config: duplicate section %q", s.Key)
		}
		seen[s.Key] = struct{}{}
	}
	return nil
}

// OnChange re-reads the config file whenever it changes on disk and hands the
// new values to fn. Invalid revisions are logged and skipped. It is a no-op
// when no config file was loaded.
func (c *Config) OnChange(fn func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}

	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()

	c.watchOnce.Do(func() {
		c.v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			next, err := decode(c.v)
			if err != nil {
				slog.Warn("CONFIG_RELOAD_REJECTED", "file", e.Name, "err", err)
				return
			}
			slog.Info("CONFIG_RELOADED", "file", e.Name)

			c.mu.Lock()
			listeners := slices.Clone(c.listeners)
			c.mu.Unlock()
			for _, l := range listeners {
				l(next)
			}
		})
		c.v.WatchConfig()
	})
}

// ParseLevel maps the configured level name onto slog.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
