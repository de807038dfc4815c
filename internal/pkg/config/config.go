package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// MinJWTSecretBytes is the shortest accepted JWT_SECRET.
const MinJWTSecretBytes = 32

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Audit sinks of the relay worker.
const (
	SinkKafka    = "kafka"
	SinkPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" yaml:"logLevel"`
	LogFile  string `env:"LOG_FILE" yaml:"logFile"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080" yaml:"httpAddr"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091" yaml:"adminAddr"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*" yaml:"corsAllowedOrigins"`
	// TrustedProxies lists the CIDRs whose X-Forwarded-For/X-Real-IP headers
	// are honoured. Empty means the socket address is the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," yaml:"trustedProxies"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo" yaml:"storeDriver"`
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017" yaml:"mongoUri"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"tabletop" yaml:"mongoDatabase"`
	PostgresURL   string `env:"POSTGRES_URL" yaml:"postgresUrl"`

	RedisURL        string   `env:"REDIS_URL" envDefault:"redis://localhost:6379/0" yaml:"redisUrl"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092" yaml:"kafkaBrokers"`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"tabletop.audit" yaml:"kafkaAuditTopic"`
	AuditGroup      string   `env:"AUDIT_GROUP" envDefault:"audit-relays" yaml:"auditGroup"`
	AuditSink       string   `env:"AUDIT_SINK" envDefault:"kafka" yaml:"auditSink"`

	DefaultAPIKey       string        `env:"DEFAULT_API_KEY" yaml:"defaultApiKey"`
	JWTSecret           string        `env:"JWT_SECRET" yaml:"jwtSecret"`
	JWTTTL              time.Duration `env:"JWT_TTL" envDefault:"12h" yaml:"jwtTtl"`
	RequireSessionToken bool          `env:"REQUIRE_SESSION_TOKEN" envDefault:"false" yaml:"requireSessionToken"`
	TenantCacheTTL      time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m" yaml:"tenantCacheTtl"`
	LoginRatePerMin     int           `env:"LOGIN_RATE_PER_MIN" envDefault:"30" yaml:"loginRatePerMin"`
	LoginBurst          int           `env:"LOGIN_BURST" envDefault:"10" yaml:"loginBurst"`

	WALPath            string `env:"WAL_PATH" envDefault:"./data/wal" yaml:"walPath"`
	WALSegmentSize     int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600" yaml:"walSegmentSize"` // 100MB
	WALMaxDiskSize     int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824" yaml:"walMaxDiskSize"` // 1GB
	PIIRedactionFields string `env:"PII_REDACTION_FIELDS" envDefault:"userPhone,userEmail,password" yaml:"piiRedactionFields"`
}

// Load reads configuration from environment variables. When path is set the
// YAML file at path is applied on top of the environment.
func Load(path string) (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	cfg.DefaultAPIKey = strings.ToLower(strings.TrimSpace(cfg.DefaultAPIKey))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < MinJWTSecretBytes {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretBytes)
	}
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", cidr, err)
		}
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the %s driver", DriverMongo)
		}
	case DriverPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AuditSink {
	case SinkKafka:
	case SinkPostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required for the %s audit sink", SinkPostgres)
		}
	default:
		return fmt.Errorf("unknown AUDIT_SINK %q", c.AuditSink)
	}
	return nil
}

// RedactionFields returns the configured PII field list.
func (c *Config) RedactionFields() []string {
	var fields []string
	for _, f := range strings.Split(c.PIIRedactionFields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
