// Package config loads the routing service configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/gateway"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// JWTConfig holds the admin token secret.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds broker addresses and the consumer group prefix.
type KafkaConfig struct {
	Brokers     []string `validate:"min=1,dive,required"`
	GroupPrefix string
}

// RoutingConfig configures the road-routing provider and batch resolution.
type RoutingConfig struct {
	// APIKey is the provider credential. It may be empty; every fetch then
	// fails with a ConfigError.
	APIKey           string
	Provider         string `validate:"oneof=directions routes"`
	Language         string `validate:"required"`
	Region           string `validate:"required"`
	TrafficAware     bool
	Timeout          time.Duration `validate:"gt=0"`
	MaxRetries       int           `validate:"gte=0,lte=10"`
	BatchConcurrency int           `validate:"gte=1,lte=64"`
	BatchTimeout     time.Duration `validate:"gte=0"`
}

// Options returns the per-request provider options.
func (r RoutingConfig) Options() gateway.Options {
	return gateway.Options{
		TravelMode:   gateway.TravelModeDriving,
		Language:     r.Language,
		Region:       r.Region,
		TrafficAware: r.TrafficAware,
	}
}

// ServiceConfig holds all configuration for the routing service.
type ServiceConfig struct {
	Port          string `validate:"required"`
	AppEnv        string `validate:"oneof=development staging production test"`
	LogLevel      string `validate:"omitempty,oneof=debug info warn error"`
	DBConfig      DatabaseConfig
	JWTConfig     JWTConfig
	KafkaConfig   KafkaConfig
	RoutingConfig RoutingConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", ":8086")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "routing_db")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "")

	v.SetDefault("GOOGLE_MAPS_API_KEY", "")
	v.SetDefault("ROUTING_PROVIDER", gateway.ProviderDirections)
	v.SetDefault("ROUTING_LANGUAGE", "es")
	v.SetDefault("ROUTING_REGION", "CL")
	v.SetDefault("ROUTING_TRAFFIC_AWARE", false)
	v.SetDefault("ROUTING_TIMEOUT", gateway.DefaultTimeout)
	v.SetDefault("ROUTING_MAX_RETRIES", 0)
	v.SetDefault("BATCH_CONCURRENCY", 4)
	v.SetDefault("BATCH_TIMEOUT", 30*time.Second)
}

// Load reads configuration from defaults, an optional config.yaml in the
// working directory, and environment variables, in increasing precedence.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, domain.NewConfigError("config.yaml", err.Error())
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds and validates a ServiceConfig from an already populated viper instance.
func FromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:     normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:   strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		JWTConfig: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		RoutingConfig: RoutingConfig{
			APIKey:           strings.TrimSpace(v.GetString("GOOGLE_MAPS_API_KEY")),
			Provider:         strings.ToLower(v.GetString("ROUTING_PROVIDER")),
			Language:         v.GetString("ROUTING_LANGUAGE"),
			Region:           v.GetString("ROUTING_REGION"),
			TrafficAware:     v.GetBool("ROUTING_TRAFFIC_AWARE"),
			Timeout:          v.GetDuration("ROUTING_TIMEOUT"),
			MaxRetries:       v.GetInt("ROUTING_MAX_RETRIES"),
			BatchConcurrency: v.GetInt("BATCH_CONCURRENCY"),
			BatchTimeout:     v.GetDuration("BATCH_TIMEOUT"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, toConfigError(err)
	}
	return cfg, nil
}

func toConfigError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewConfigError(fe.Namespace(), fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()))
	}
	return domain.NewConfigError("config", err.Error())
}

func normalizePort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
