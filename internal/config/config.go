/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables, with an
 * optional .env file for local development.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the assistant service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	PaymentEventExchange     string `mapstructure:"PAYMENT_EVENT_EXCHANGE"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	DefaultCurrency          string `mapstructure:"DEFAULT_CURRENCY"`
	PaymentPerTxnLimit       string `mapstructure:"PAYMENT_PER_TXN_LIMIT"`
	PaymentDailyLimit        string `mapstructure:"PAYMENT_DAILY_LIMIT"`
	ToolTimeoutSeconds       int    `mapstructure:"TOOL_TIMEOUT_SECONDS"`
	InvokeRateLimitPerMinute int    `mapstructure:"INVOKE_RATE_LIMIT_PER_MINUTE"`
	ReceiptDir               string `mapstructure:"RECEIPT_DIR"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It uses Viper to automatically bind environment variables to the
// Config struct.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "interchat:rate_limit")
	viper.SetDefault("PAYMENT_EVENT_EXCHANGE", "assistant.payments")
	viper.SetDefault("DEFAULT_CURRENCY", "TRY")
	viper.SetDefault("PAYMENT_PER_TXN_LIMIT", "20000")
	viper.SetDefault("PAYMENT_DAILY_LIMIT", "50000")
	viper.SetDefault("TOOL_TIMEOUT_SECONDS", 4)
	viper.SetDefault("INVOKE_RATE_LIMIT_PER_MINUTE", 60)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYMENT_EVENT_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("DEFAULT_CURRENCY")
	_ = viper.BindEnv("PAYMENT_PER_TXN_LIMIT")
	_ = viper.BindEnv("PAYMENT_DAILY_LIMIT")
	_ = viper.BindEnv("TOOL_TIMEOUT_SECONDS")
	_ = viper.BindEnv("INVOKE_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECEIPT_DIR")

	// The .env file is optional; real deployments set environment variables.
	if readErr := viper.ReadInConfig(); readErr != nil {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
			return config, readErr
		}
	}

	err = viper.Unmarshal(&config)
	return config, err
}
