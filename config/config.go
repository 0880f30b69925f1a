package config

import (
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Record store.
	StoreBackend string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string        `mapstructure:"DATABASE_URL"`
	DatabaseName string        `mapstructure:"DATABASE_NAME"`
	StoreTimeout time.Duration `mapstructure:"STORE_TIMEOUT"`

	// Firebase (Firestore backend and push notifications).
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	NotifyStatusChanges     bool   `mapstructure:"NOTIFY_STATUS_CHANGES"`

	// Redis configuration.
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB   int           `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int           `mapstructure:"REDIS_QUEUE_DB"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`

	// Retry and batch tuning.
	RetryAttempts    int           `mapstructure:"RETRY_ATTEMPTS"`
	RetryBaseDelay   time.Duration `mapstructure:"RETRY_BASE_DELAY"`
	BatchConcurrency int           `mapstructure:"BATCH_CONCURRENCY"`
	BatchRatePerSec  float64       `mapstructure:"BATCH_RATE_PER_SEC"`

	// Cron specs for periodic maintenance. Empty disables the job.
	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`
	AggregateSchedule string `mapstructure:"AGGREGATE_SCHEDULE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Admin API request limits per client IP.
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RateLimitIdleTTL   time.Duration `mapstructure:"RATE_LIMIT_IDLE_TTL"`
}

var AppConfig Config

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORE_BACKEND", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "servicehub")
	viper.SetDefault("STORE_TIMEOUT", 5*time.Second)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "serviceAccountKey.json")
	viper.SetDefault("FIREBASE_PROJECT_ID", "")
	viper.SetDefault("NOTIFY_STATUS_CHANGES", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_LOCK_DB", 3)
	viper.SetDefault("REDIS_QUEUE_DB", 4)
	viper.SetDefault("LOCK_TTL", 30*time.Second)
	viper.SetDefault("RETRY_ATTEMPTS", 4)
	viper.SetDefault("RETRY_BASE_DELAY", 200*time.Millisecond)
	viper.SetDefault("BATCH_CONCURRENCY", 4)
	viper.SetDefault("BATCH_RATE_PER_SEC", 20.0)
	viper.SetDefault("RECONCILE_SCHEDULE", "")
	viper.SetDefault("AGGREGATE_SCHEDULE", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_IDLE_TTL", 10*time.Minute)
}

// LoadConfig reads config.yaml (if any), the environment and the given
// command-line flags, in increasing order of precedence. Flags are bound by
// their config key, so a flag named "STORE_BACKEND" overrides that key.
func LoadConfig(flags *pflag.FlagSet) {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				_ = viper.BindPFlag(key, f)
			}
		})
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// flagKeys maps operator flag names onto config keys.
var flagKeys = map[string]string{
	"backend":     "STORE_BACKEND",
	"db-url":      "DATABASE_URL",
	"db-name":     "DATABASE_NAME",
	"credentials": "FIREBASE_CREDENTIALS_FILE",
	"project":     "FIREBASE_PROJECT_ID",
	"concurrency": "BATCH_CONCURRENCY",
	"log-level":   "LOG_LEVEL",
}

// RegisterStoreFlags adds the flags every operator command accepts.
func RegisterStoreFlags(fs *pflag.FlagSet) {
	fs.String("backend", "", "record store backend: mongo or firestore")
	fs.String("db-url", "", "MongoDB connection URL")
	fs.String("db-name", "", "MongoDB database name")
	fs.String("credentials", "", "path to the Firebase service account JSON")
	fs.String("project", "", "Firebase project ID")
	fs.Int("concurrency", 0, "records processed in parallel during batch runs")
	fs.String("log-level", "", "debug, info, warn or error")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
