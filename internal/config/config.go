package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	MinIO   MinIOConfig   `yaml:"minio"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	NATS    NATSConfig    `yaml:"nats"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logger  LoggerConfig  `yaml:"logger"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	BodyLimitMB     int           `yaml:"body_limit_mb" env:"HTTP_BODY_LIMIT_MB" env-default:"10"`
}

// StorageConfig selects the repository backend. "memory" keeps everything in process
// and skips Mongo and Redis entirely.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
}

type MongoConfig struct {
	URI          string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User         string `yaml:"user" env:"MONGO_USER"`
	Password     string `yaml:"password" env:"MONGO_PASSWORD"`
	Database     string `yaml:"database" env:"MONGO_DATABASE" env-default:"shopfront"`
	Transactions bool   `yaml:"transactions" env:"MONGO_TRANSACTIONS" env-default:"false"`
}

type RedisConfig struct {
	Addr            string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password        string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB              int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	ProductCacheTTL time.Duration `yaml:"product_cache_ttl" env:"PRODUCT_CACHE_TTL" env-default:"5m"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"secretkey"`
	TokenTTL         time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"168h"`
	BcryptCost       int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	ResetTokenTTL    time.Duration `yaml:"reset_token_ttl" env:"RESET_TOKEN_TTL" env-default:"30m"`
	ResetURL         string        `yaml:"reset_url" env:"RESET_URL" env-default:"http://localhost:3000/reset-password"`
	ExposeResetToken bool          `yaml:"expose_reset_token" env:"EXPOSE_RESET_TOKEN" env-default:"false"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"shopfront-images"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	PublicURL string `yaml:"public_url" env:"MINIO_PUBLIC_URL"`
}

type SMTPConfig struct {
	Host        string `yaml:"host" env:"SMTP_HOST"`
	Port        int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username    string `yaml:"username" env:"SMTP_USERNAME"`
	Password    string `yaml:"password" env:"SMTP_PASSWORD"`
	SenderEmail string `yaml:"sender_email" env:"SMTP_SENDER_EMAIL"`
	Encryption  string `yaml:"encryption" env:"SMTP_ENCRYPTION" env-default:"tls"`
}

type NATSConfig struct {
	URL string `yaml:"url" env:"NATS_URL"`
}

type NotifyConfig struct {
	Workers     int           `yaml:"workers" env:"NOTIFY_WORKERS" env-default:"4"`
	QueueSize   int           `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE" env-default:"256"`
	SendTimeout time.Duration `yaml:"send_timeout" env:"NOTIFY_SEND_TIMEOUT" env-default:"15s"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

// Load reads the YAML file at path, falling back to environment variables when it does not exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, err
		}
		log.Printf("config file %s not found, using environment variables", path)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func MustLoad() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
