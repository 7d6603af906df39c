// backend-go/internal/config/config.go
package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Inventory InventoryConfig
	Storage   StorageConfig
	Drive     DriveConfig
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
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

// InventoryConfig drives the continuity engine and its scheduled jobs.
type InventoryConfig struct {
	Timezone               string
	DefaultLowStockLevel   int
	GapLookbackDays        int
	GapAlertThresholdDays  int
	ReflowAfterRecovery    bool
	SchedulerEnabled       bool
	PopulationTime         string
	LowStockTime           string
	RecoveryTime           string
	DistributorConcurrency int
}

type StorageConfig struct {
	Enabled      bool
	Provider     string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	BackupPrefix string
}

type DriveConfig struct {
	CredentialsJSON string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "gaslink")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 300)
		viper.SetDefault("INVENTORY_TIMEZONE", "Asia/Kolkata")
		viper.SetDefault("INVENTORY_DEFAULT_LOW_STOCK_LEVEL", 10)
		viper.SetDefault("INVENTORY_GAP_LOOKBACK_DAYS", 30)
		viper.SetDefault("INVENTORY_GAP_ALERT_THRESHOLD_DAYS", 7)
		viper.SetDefault("INVENTORY_REFLOW_AFTER_RECOVERY", true)
		viper.SetDefault("SCHEDULER_ENABLED", true)
		viper.SetDefault("SCHEDULER_POPULATION_TIME", "00:01")
		viper.SetDefault("SCHEDULER_LOW_STOCK_TIME", "00:10")
		viper.SetDefault("SCHEDULER_RECOVERY_TIME", "03:00")
		viper.SetDefault("SCHEDULER_DISTRIBUTOR_CONCURRENCY", 4)
		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_PROVIDER", "minio")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_BACKUP_PREFIX", "inventory-backups")

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
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Inventory: InventoryConfig{
				Timezone:               viper.GetString("INVENTORY_TIMEZONE"),
				DefaultLowStockLevel:   viper.GetInt("INVENTORY_DEFAULT_LOW_STOCK_LEVEL"),
				GapLookbackDays:        viper.GetInt("INVENTORY_GAP_LOOKBACK_DAYS"),
				GapAlertThresholdDays:  viper.GetInt("INVENTORY_GAP_ALERT_THRESHOLD_DAYS"),
				ReflowAfterRecovery:    viper.GetBool("INVENTORY_REFLOW_AFTER_RECOVERY"),
				SchedulerEnabled:       viper.GetBool("SCHEDULER_ENABLED"),
				PopulationTime:         viper.GetString("SCHEDULER_POPULATION_TIME"),
				LowStockTime:           viper.GetString("SCHEDULER_LOW_STOCK_TIME"),
				RecoveryTime:           viper.GetString("SCHEDULER_RECOVERY_TIME"),
				DistributorConcurrency: viper.GetInt("SCHEDULER_DISTRIBUTOR_CONCURRENCY"),
			},
			Storage: StorageConfig{
				Enabled:      viper.GetBool("STORAGE_ENABLED"),
				Provider:     viper.GetString("STORAGE_PROVIDER"),
				Endpoint:     viper.GetString("STORAGE_ENDPOINT"),
				AccessKey:    viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:       viper.GetString("STORAGE_BUCKET"),
				Region:       viper.GetString("STORAGE_REGION"),
				UseSSL:       viper.GetBool("STORAGE_USE_SSL"),
				BackupPrefix: viper.GetString("STORAGE_BACKUP_PREFIX"),
			},
			Drive: DriveConfig{
				CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			},
		}
	})

	return instance
}

// Location resolves the tenant timezone, falling back to UTC when the name
// is unknown to the local tz database.
func (c InventoryConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
