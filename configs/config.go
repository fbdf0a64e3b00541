package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		Migrate         bool          `koanf:"migrate"`
		MigrationsDir   string        `koanf:"migrations_dir"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Cache struct {
		StatusTTL  time.Duration `koanf:"status_ttl"`
		ProductTTL time.Duration `koanf:"product_ttl"`
	} `koanf:"cache"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Rabbit struct {
		Enabled    bool   `koanf:"enabled"`
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		Queue      string `koanf:"queue"`
		RoutingKey string `koanf:"routing_key"`
		Prefetch   int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled           bool     `koanf:"enabled"`
		Brokers           []string `koanf:"brokers"`
		GroupID           string   `koanf:"group_id"`
		TopicStatusChange string   `koanf:"topic_status_changed"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
	} `koanf:"security"`

	GRPC struct {
		HealthAddr string `koanf:"health_addr"`
	} `koanf:"grpc"`

	Tracing struct {
		Enabled     bool    `koanf:"enabled"`
		Endpoint    string  `koanf:"endpoint"`
		SampleRatio float64 `koanf:"sample_ratio"`
	} `koanf:"tracing"`

	Outbox struct {
		Interval   time.Duration `koanf:"interval"`
		BatchSize  int           `koanf:"batch_size"`
		MaxBackoff time.Duration `koanf:"max_backoff"`
	} `koanf:"outbox"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix STOREFRONT_, nested with __)
	// e.g. STOREFRONT_MYSQL__DSN, STOREFRONT_SECURITY__JWT_SECRET
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = envName
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 3 * time.Second
	}
	if c.Security.TTL <= 0 {
		c.Security.TTL = 7 * 24 * time.Hour
	}
	if c.Idempotency.TTL <= 0 {
		c.Idempotency.TTL = 24 * time.Hour
	}
	if c.Outbox.Interval <= 0 {
		c.Outbox.Interval = 2 * time.Second
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 50
	}
	if c.Outbox.MaxBackoff <= 0 {
		c.Outbox.MaxBackoff = 5 * time.Minute
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
	if c.MySQL.MigrationsDir == "" {
		c.MySQL.MigrationsDir = "migrations"
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.MySQL.DSN == "" {
		errs = append(errs, errors.New("mysql.dsn required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr required"))
	}
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret required"))
	}
	if c.Rabbit.Enabled && (c.Rabbit.URL == "" || c.Rabbit.Exchange == "") {
		errs = append(errs, errors.New("rabbitmq.url and rabbitmq.exchange required when enabled"))
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.TopicStatusChange == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic_status_changed required when enabled"))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint required when enabled"))
	}
	return errors.Join(errs...)
}
