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
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the contribution-service.
// These values are loaded from environment variables.
type Config struct {
	AppEnv                         string  `mapstructure:"APP_ENV"`
	ServerPort                     string  `mapstructure:"SERVER_PORT"`
	DatabaseURL                    string  `mapstructure:"DATABASE_URL"`
	RabbitMQURL                    string  `mapstructure:"RABBITMQ_URL"`
	RedisURL                       string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix           string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	SessionJWTSecret               string  `mapstructure:"SESSION_JWT_SECRET"`
	AnalyticsExchange              string  `mapstructure:"ANALYTICS_EXCHANGE"`
	NotificationExchange           string  `mapstructure:"NOTIFICATION_EXCHANGE"`
	GlobalMinimumValue             float64 `mapstructure:"GLOBAL_MINIMUM_VALUE"`
	HomeCountryName                string  `mapstructure:"HOME_COUNTRY_NAME"`
	RefundNotificationCooldownDays int     `mapstructure:"REFUND_NOTIFICATION_COOLDOWN_DAYS"`
	RefundNotificationLimit        int     `mapstructure:"REFUND_NOTIFICATION_LIMIT"`
	CheckoutRateLimitPerMinute     int     `mapstructure:"CHECKOUT_RATE_LIMIT_PER_MINUTE"`
	EmailContact                   string  `mapstructure:"EMAIL_CONTACT"`
	EmailPayments                  string  `mapstructure:"EMAIL_PAYMENTS"`
	SupportChatURL                 string  `mapstructure:"SUPPORT_CHAT_URL"`
	SupportChatProjectIDs          string  `mapstructure:"SUPPORT_CHAT_PROJECT_IDS"`
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
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "catalisa:rate_limit")
	viper.SetDefault("ANALYTICS_EXCHANGE", "analytics.events")
	viper.SetDefault("NOTIFICATION_EXCHANGE", "contribution.notifications")
	viper.SetDefault("GLOBAL_MINIMUM_VALUE", 10.00)
	viper.SetDefault("HOME_COUNTRY_NAME", "Brasil")
	viper.SetDefault("REFUND_NOTIFICATION_COOLDOWN_DAYS", 7)
	viper.SetDefault("REFUND_NOTIFICATION_LIMIT", 2)
	viper.SetDefault("CHECKOUT_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("SESSION_JWT_SECRET")
	_ = viper.BindEnv("ANALYTICS_EXCHANGE")
	_ = viper.BindEnv("NOTIFICATION_EXCHANGE")
	_ = viper.BindEnv("GLOBAL_MINIMUM_VALUE")
	_ = viper.BindEnv("HOME_COUNTRY_NAME")
	_ = viper.BindEnv("REFUND_NOTIFICATION_COOLDOWN_DAYS")
	_ = viper.BindEnv("REFUND_NOTIFICATION_LIMIT")
	_ = viper.BindEnv("CHECKOUT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("EMAIL_CONTACT")
	_ = viper.BindEnv("EMAIL_PAYMENTS")
	_ = viper.BindEnv("SUPPORT_CHAT_URL")
	_ = viper.BindEnv("SUPPORT_CHAT_PROJECT_IDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "catalisa:rate_limit"
	}

	if strings.TrimSpace(config.HomeCountryName) == "" {
		config.HomeCountryName = "Brasil"
	}

	// The persistence layer rejects pledges below 10.00, so a lower
	// configured floor would only produce save failures later.
	if config.GlobalMinimumValue < 10.00 {
		log.Printf("level=warn component=config msg=\"global minimum value below platform floor; coercing to 10.00\" value=%f", config.GlobalMinimumValue)
		config.GlobalMinimumValue = 10.00
	}

	if config.RefundNotificationCooldownDays <= 0 {
		config.RefundNotificationCooldownDays = 7
	}
	if config.RefundNotificationLimit <= 0 {
		config.RefundNotificationLimit = 2
	}
	if config.CheckoutRateLimitPerMinute < 0 {
		config.CheckoutRateLimitPerMinute = 0
	}

	return
}

// SupportChatProjects parses the comma-separated SUPPORT_CHAT_PROJECT_IDS
// value into the set of project ids the chat widget is enabled for.
func (c Config) SupportChatProjects() map[string]bool {
	ids := make(map[string]bool)
	for _, raw := range strings.Split(c.SupportChatProjectIDs, ",") {
		id := strings.TrimSpace(raw)
		if id != "" {
			ids[id] = true
		}
	}
	return ids
}
