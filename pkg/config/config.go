package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application configuration, read via Viper from env
// vars and optionally a .env file.
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Kafka   KafkaConfig
	Gateway GatewayConfig
}

// AppConfig is the general application configuration.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// DBConfig is the PostgreSQL configuration. When DatabaseURL is set it is
// used as the full connection string; otherwise the DSN is built from the
// individual fields.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString returns DATABASE_URL when set, the assembled DSN
// otherwise.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds the PostgreSQL connection string, URL-encoding credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configures token signing for the admin surface.
type JWTConfig struct {
	Secret     string
	Expiration int // minutes
	Issuer     string
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig configures the event relay. An empty broker list disables
// publishing; outbox rows then simply accumulate.
type KafkaConfig struct {
	Brokers       string // comma separated host:port list
	Topic         string
	RelayInterval time.Duration
	RelayBatch    int
}

// BrokerList splits the broker string.
func (c KafkaConfig) BrokerList() []string {
	if strings.TrimSpace(c.Brokers) == "" {
		return nil
	}
	parts := strings.Split(c.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GatewayConfig carries payment gateway settings.
type GatewayConfig struct {
	WebhookSecret string
}

// Load reads configuration from env vars and optionally a .env file in the
// working directory. Env vars win.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "fulfillment-api"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "fulfillment"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "fulfillment-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Kafka: KafkaConfig{
			Brokers:       getString(v, "KAFKA_BROKERS", ""),
			Topic:         getString(v, "KAFKA_TOPIC", "fulfillment.events"),
			RelayInterval: time.Duration(getInt(v, "OUTBOX_RELAY_INTERVAL_MS", 500)) * time.Millisecond,
			RelayBatch:    getInt(v, "OUTBOX_RELAY_BATCH", 100),
		},
		Gateway: GatewayConfig{
			WebhookSecret: getString(v, "GATEWAY_WEBHOOK_SECRET", ""),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
