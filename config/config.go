package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisEventsDB int    `mapstructure:"REDIS_EVENTS_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Stripe (payment gateway) key.
	StripeKey string `mapstructure:"STRIPE_KEY"`

	// Notification channels. Empty values mean the channel is not configured.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMSAPIKey    string `mapstructure:"SMS_API_KEY"`
	SMSSender    string `mapstructure:"SMS_SENDER"`

	// Operator contact for high-severity escalations.
	OperatorEmail string `mapstructure:"OPERATOR_EMAIL"`
	OperatorPhone string `mapstructure:"OPERATOR_PHONE"`

	// Reconciliation tuning.
	ReconcileBatchSize       int `mapstructure:"RECONCILE_BATCH_SIZE"`
	ReconcileBatchPauseSec   int `mapstructure:"RECONCILE_BATCH_PAUSE_SEC"`
	ReconcileSettleDelaySec  int `mapstructure:"RECONCILE_SETTLE_DELAY_SEC"`
	StalePaymentThresholdMin int `mapstructure:"STALE_PAYMENT_THRESHOLD_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_EVENTS_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("RECONCILE_BATCH_SIZE", 10)
	viper.SetDefault("RECONCILE_BATCH_PAUSE_SEC", 2)
	viper.SetDefault("RECONCILE_SETTLE_DELAY_SEC", 5)
	viper.SetDefault("STALE_PAYMENT_THRESHOLD_MIN", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
