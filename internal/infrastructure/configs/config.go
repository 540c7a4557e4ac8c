package configs

import (
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/encore/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTP          HTTPConfig          `koanf:"http"`
	RateLimiter   RateLimiterConfig   `koanf:"rateLimiter"`
	Broker        BrokerConfig        `koanf:"broker"`
	Mongo         MongoConfig         `koanf:"mongo"`
	Postgres      PostgresConfig      `koanf:"postgres"`
	Redis         RedisConfig         `koanf:"redis"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Logger        LoggerConfig        `koanf:"logger"`
	Tracing       TracingConfig       `koanf:"tracing"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`
}

type BrokerConfig struct {
	Protocol           string         `koanf:"protocol"`
	Host               string         `koanf:"host"`
	Port               int            `koanf:"port"`
	Username           string         `koanf:"username"`
	Password           string         `koanf:"password"`
	Vhost              string         `koanf:"vhost"`
	Heartbeat          time.Duration  `koanf:"heartbeat"`
	DialTimeout        time.Duration  `koanf:"dial_timeout"`
	Prefetch           int            `koanf:"prefetch"`
	PublishTimeout     time.Duration  `koanf:"publish_timeout"`
	RetryAttempts      uint           `koanf:"retry_attempts"`
	RetryDelay         time.Duration  `koanf:"retry_delay"`
	DeadLetterExchange string         `koanf:"dead_letter_exchange"`
	Queues             QueuesConfig   `koanf:"queues"`
	Consumer           ConsumerConfig `koanf:"consumer"`
}

type QueuesConfig struct {
	SongVisits     string `koanf:"song_visits"`
	CommentReplies string `koanf:"comment_replies"`
}

type ConsumerConfig struct {
	Concurrency int `koanf:"concurrency"`
}

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
}

type PostgresConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	DbName          string        `koanf:"dbname"`
	SSLMode         string        `koanf:"sslmode"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	UserTTL  time.Duration `koanf:"user_ttl"`
}

type NotificationsConfig struct {
	LookupTimeout time.Duration `koanf:"lookup_timeout"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Environment string `koanf:"environment"`
	Endpoint    string `koanf:"endpoint"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.Broker.Host == "" {
		errs = append(errs, errors.New("broker.host is required"))
	}
	if c.Broker.Username == "" || c.Broker.Password == "" {
		errs = append(errs, errors.New("broker credentials are required"))
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		errs = append(errs, fmt.Errorf("broker.port %d is out of range", c.Broker.Port))
	}
	if c.Broker.Protocol != "amqp" && c.Broker.Protocol != "amqps" {
		errs = append(errs, fmt.Errorf("broker.protocol %q is not supported", c.Broker.Protocol))
	}
	if c.Broker.Queues.SongVisits == "" || c.Broker.Queues.CommentReplies == "" {
		errs = append(errs, errors.New("broker.queues names are required"))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization"})

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")

	// Broker defaults
	setDefault(k, "broker.protocol", "amqp")
	setDefault(k, "broker.host", "localhost")
	setDefault(k, "broker.port", 5672)
	setDefault(k, "broker.vhost", "/")
	setDefault(k, "broker.heartbeat", 10*time.Second)
	setDefault(k, "broker.dial_timeout", 10*time.Second)
	setDefault(k, "broker.prefetch", 16)
	setDefault(k, "broker.publish_timeout", 5*time.Second)
	setDefault(k, "broker.retry_attempts", 10)
	setDefault(k, "broker.retry_delay", 5*time.Second)
	setDefault(k, "broker.queues.song_visits", "song-visits")
	setDefault(k, "broker.queues.comment_replies", "comment-replies")
	setDefault(k, "broker.consumer.concurrency", 16)

	// Storage defaults
	setDefault(k, "mongo.uri", "mongodb://localhost:27017")
	setDefault(k, "mongo.database", "encore")
	setDefault(k, "mongo.timeout", 20*time.Second)
	setDefault(k, "postgres.host", "localhost")
	setDefault(k, "postgres.port", 5432)
	setDefault(k, "postgres.dbname", "encore")
	setDefault(k, "postgres.sslmode", "disable")
	setDefault(k, "postgres.max_idle_conns", 5)
	setDefault(k, "postgres.max_open_conns", 20)
	setDefault(k, "postgres.conn_max_lifetime", 30*time.Minute)
	setDefault(k, "redis.addr", "localhost:6379")
	setDefault(k, "redis.user_ttl", 10*time.Minute)

	setDefault(k, "notifications.lookup_timeout", 3*time.Second)

	setDefault(k, "logger.file_path", "./logs/")
	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.endpoint", "http://jaeger:4318/v1/traces")
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}

	// Broker config from env; credentials are never expected in the file
	if host := env.GetString("RABBITMQ_HOST", ""); host != "" {
		k.Set("broker.host", host)
	}
	if port := env.GetInt("RABBITMQ_PORT", 0); port > 0 {
		k.Set("broker.port", port)
	}
	if user := env.GetString("RABBITMQ_USER", ""); user != "" {
		k.Set("broker.username", user)
	}
	if pass := env.GetString("RABBITMQ_PASSWORD", ""); pass != "" {
		k.Set("broker.password", pass)
	}
	if vhost := env.GetString("RABBITMQ_VHOST", ""); vhost != "" {
		k.Set("broker.vhost", vhost)
	}
	if queue := env.GetString("SONG_VISITS_QUEUE", ""); queue != "" {
		k.Set("broker.queues.song_visits", queue)
	}
	if queue := env.GetString("COMMENT_REPLIES_QUEUE", ""); queue != "" {
		k.Set("broker.queues.comment_replies", queue)
	}

	// Storage config from env
	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if db := env.GetString("MONGODB_DATABASE", ""); db != "" {
		k.Set("mongo.database", db)
	}
	if host := env.GetString("POSTGRES_HOST", ""); host != "" {
		k.Set("postgres.host", host)
	}
	if user := env.GetString("POSTGRES_USER", ""); user != "" {
		k.Set("postgres.user", user)
	}
	if pass := env.GetString("POSTGRES_PASSWORD", ""); pass != "" {
		k.Set("postgres.password", pass)
	}
	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
	}

	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if endpoint := env.GetString("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", true)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
