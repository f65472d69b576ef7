package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Env           string   `env:"ENV" envconfig:"ENV" env-default:"local"`
	ServerPort    int      `env:"SERVER_PORT" envconfig:"SERVER_PORT" env-default:"8080"`
	LogLevel      string   `env:"LOG_LEVEL" envconfig:"LOG_LEVEL" env-default:"info"`
	StorageDriver string   `env:"STORAGE_DRIVER" envconfig:"STORAGE_DRIVER" env-default:"postgres"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envconfig:"CORS_ORIGINS" env-default:"http://localhost,http://localhost:8080" env-separator:","`
	DataBase      DatabaseConfig

	ConnectionPool ConnectionPoolConfig
	Engine         EngineConfig
	Redis          RedisConfig
	Pricing        PricingConfig
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envconfig:"DATABASE_URL" required:"true"`
}

type ConnectionPoolConfig struct {
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envconfig:"MAX_OPEN_CONNS" env-default:"25" default:"25"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envconfig:"MAX_IDLE_CONNS" env-default:"25" default:"25"`
	MaxLifetime  time.Duration `env:"MAX_LIFETIME" envconfig:"MAX_LIFETIME" env-default:"300s" default:"300s"`
}

type EngineConfig struct {
	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT" envconfig:"OPERATION_TIMEOUT" env-default:"5s"`
	MaxRetries       int           `env:"MAX_RETRIES" envconfig:"MAX_RETRIES" env-default:"5"`
}

// RedisConfig enables the wallet cache when Addr is set.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR" envconfig:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD" envconfig:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envconfig:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"CACHE_TTL" envconfig:"CACHE_TTL" env-default:"10m"`
}

type PricingConfig struct {
	DefaultDiscount string `env:"DEFAULT_DISCOUNT" envconfig:"DEFAULT_DISCOUNT" env-default:"0" default:"0"`
	SeedDir         string `env:"SEED_DIR" envconfig:"SEED_DIR" env-default:"etc" default:"etc"`
}

func (p PricingConfig) Discount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(p.DefaultDiscount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("DEFAULT_DISCOUNT: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("DEFAULT_DISCOUNT must not be negative, got %s", d)
	}
	return d, nil
}

var (
	ErrInvalidString        = errors.New("invalid string")
	ErrFileFormat           = errors.New("incorrect file format")
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required for the postgres storage driver")
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
)

// Load reads the config file named by --config or CONFIG_PATH, if any, and then
// the process environment. A .env file is exported into the environment first.
func Load() (*Config, error) {
	var cfg Config
	configPath := fetchConfigPath()

	switch {
	case configPath == "":
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	case filepath.Ext(configPath) == ".env":
		if err := loadEnvFile(configPath); err != nil {
			return nil, err
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	default:
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", configPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DataBase.URL == "" {
			return ErrMissingDatabaseURL
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, c.StorageDriver)
	}
	if _, err := c.Pricing.Discount(); err != nil {
		return err
	}
	return nil
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}

// LoadEnv exports the variables of the .env file named by --config or CONFIG_PATH.
func LoadEnv() error {
	return loadEnvFile(fetchConfigPath())
}

func loadEnvFile(filePath string) error {
	if filepath.Ext(filePath) != ".env" {
		return ErrFileFormat
	}
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	values, err := godotenv.Parse(file)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidString, err)
	}
	for key, value := range values {
		if key == "" {
			return ErrInvalidString
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
