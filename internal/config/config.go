/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the donation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	DonationEventQueue       string `mapstructure:"DONATION_EVENT_QUEUE"`
	AuthJWKSURL              string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience             string `mapstructure:"AUTH_AUDIENCE"`
	AuthIssuer               string `mapstructure:"AUTH_ISSUER"`
	RoutingAPIBaseURL        string `mapstructure:"ROUTING_API_BASE_URL"`
	GeocodeAPIBaseURL        string `mapstructure:"GEOCODE_API_BASE_URL"`
	GeocodeUserAgent         string `mapstructure:"GEOCODE_USER_AGENT"`
	AdminSubjects            string `mapstructure:"ADMIN_SUBJECTS"`
	AcceptRateLimitPerMinute int    `mapstructure:"ACCEPT_RATE_LIMIT_PER_MINUTE"`
	ReconcileSchedule        string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileGraceSeconds    int    `mapstructure:"RECONCILE_GRACE_SECONDS"`
	ReconcileBatchLimit      int    `mapstructure:"RECONCILE_BATCH_LIMIT"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DONATION_EVENT_QUEUE", "donation_service.feed_updates")
	viper.SetDefault("ROUTING_API_BASE_URL", "https://router.project-osrm.org/route/v1")
	viper.SetDefault("GEOCODE_API_BASE_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("GEOCODE_USER_AGENT", "foodbridge-donation-service/1.0")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "foodbridge:rate_limit")
	viper.SetDefault("ACCEPT_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("RECONCILE_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("RECONCILE_GRACE_SECONDS", 120)
	viper.SetDefault("RECONCILE_BATCH_LIMIT", 100)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "DONATION_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("DONATION_EVENT_QUEUE")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("AUTH_AUDIENCE")
	_ = viper.BindEnv("AUTH_ISSUER")
	_ = viper.BindEnv("ROUTING_API_BASE_URL")
	_ = viper.BindEnv("GEOCODE_API_BASE_URL")
	_ = viper.BindEnv("GEOCODE_USER_AGENT")
	_ = viper.BindEnv("ADMIN_SUBJECTS")
	_ = viper.BindEnv("ACCEPT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECONCILE_SCHEDULE")
	_ = viper.BindEnv("RECONCILE_GRACE_SECONDS")
	_ = viper.BindEnv("RECONCILE_BATCH_LIMIT")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// PaaS platforms inject PORT; let it win over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "foodbridge:rate_limit"
	}
	config.RoutingAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.RoutingAPIBaseURL), "/")
	config.GeocodeAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.GeocodeAPIBaseURL), "/")

	if config.AcceptRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative accept rate limit configured; disabling limiter\" value=%d", config.AcceptRateLimitPerMinute)
		config.AcceptRateLimitPerMinute = 0
	}
	if strings.TrimSpace(config.ReconcileSchedule) == "" {
		config.ReconcileSchedule = "*/5 * * * *"
	}
	if config.ReconcileGraceSeconds <= 0 {
		config.ReconcileGraceSeconds = 120
	}
	if config.ReconcileBatchLimit <= 0 {
		config.ReconcileBatchLimit = 100
	}

	return
}

// AdminSubjectList splits the comma-separated ADMIN_SUBJECTS value into the
// individual token subjects granted admin access.
func (c Config) AdminSubjectList() []string {
	if strings.TrimSpace(c.AdminSubjects) == "" {
		return nil
	}
	parts := strings.Split(c.AdminSubjects, ",")
	subjects := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			subjects = append(subjects, p)
		}
	}
	return subjects
}
