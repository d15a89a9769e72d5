package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Optimizer OptimizerConfig
	Export    ExportConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ResultTTLSeconds int
}

// OptimizerConfig carries the business knobs of the optimization engine.
// The keep strategy and group size thresholds are heuristics that the domain
// owners tune, so none of them are hard-coded in the engine itself.
type OptimizerConfig struct {
	MinGroupMembers   int
	KeepCount         int
	KeepStrategy      string // unit_cost, cost_revenue_ratio or volume
	ForecastHorizon   int
	HistoryMonths     int
	MaxSeriesMonths   int
	StableCVThreshold float64
	TotalDampingRatio float64
}

type ExportConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "refopt")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_RESULT_TTL_SECONDS", 1800)
		viper.SetDefault("OPTIMIZER_MIN_GROUP_MEMBERS", 3)
		viper.SetDefault("OPTIMIZER_KEEP_COUNT", 1)
		viper.SetDefault("OPTIMIZER_KEEP_STRATEGY", "unit_cost")
		viper.SetDefault("OPTIMIZER_FORECAST_HORIZON", 6)
		viper.SetDefault("OPTIMIZER_HISTORY_MONTHS", 12)
		viper.SetDefault("OPTIMIZER_MAX_SERIES_MONTHS", 24)
		viper.SetDefault("OPTIMIZER_STABLE_CV_THRESHOLD", 2.0)
		viper.SetDefault("OPTIMIZER_TOTAL_DAMPING_RATIO", 0.75)
		viper.SetDefault("EXPORT_ENABLED", false)
		viper.SetDefault("EXPORT_ENDPOINT", "")
		viper.SetDefault("EXPORT_ACCESS_KEY", "")
		viper.SetDefault("EXPORT_SECRET_KEY", "")
		viper.SetDefault("EXPORT_BUCKET", "refopt-exports")
		viper.SetDefault("EXPORT_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ResultTTLSeconds: viper.GetInt("CACHE_RESULT_TTL_SECONDS"),
			},
			Optimizer: OptimizerConfig{
				MinGroupMembers:   viper.GetInt("OPTIMIZER_MIN_GROUP_MEMBERS"),
				KeepCount:         viper.GetInt("OPTIMIZER_KEEP_COUNT"),
				KeepStrategy:      viper.GetString("OPTIMIZER_KEEP_STRATEGY"),
				ForecastHorizon:   viper.GetInt("OPTIMIZER_FORECAST_HORIZON"),
				HistoryMonths:     viper.GetInt("OPTIMIZER_HISTORY_MONTHS"),
				MaxSeriesMonths:   viper.GetInt("OPTIMIZER_MAX_SERIES_MONTHS"),
				StableCVThreshold: viper.GetFloat64("OPTIMIZER_STABLE_CV_THRESHOLD"),
				TotalDampingRatio: viper.GetFloat64("OPTIMIZER_TOTAL_DAMPING_RATIO"),
			},
			Export: ExportConfig{
				Enabled:   viper.GetBool("EXPORT_ENABLED"),
				Endpoint:  viper.GetString("EXPORT_ENDPOINT"),
				AccessKey: viper.GetString("EXPORT_ACCESS_KEY"),
				SecretKey: viper.GetString("EXPORT_SECRET_KEY"),
				Bucket:    viper.GetString("EXPORT_BUCKET"),
				UseSSL:    viper.GetBool("EXPORT_USE_SSL"),
			},
		}
	})

	return instance
}
