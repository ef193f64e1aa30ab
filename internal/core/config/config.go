package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported values for StoreDriver.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`
	// StoreDriver selects the repository backend: memory, sqlite or postgres.
	StoreDriver string `mapstructure:"STORE_DRIVER" default:"memory" required:"true"`
	// Timezone is the calendar used to evaluate promotion dates.
	Timezone string `mapstructure:"STORE_TIMEZONE" default:"Africa/Douala"`
	// RedisURL enables the Redis cache when set (redis://[:password@]host[:port][/db]).
	RedisURL string `mapstructure:"REDIS_URL"`
	// VendorDirectoryURL points at a remote vendor directory. Empty means the local store.
	VendorDirectoryURL string `mapstructure:"VENDOR_DIRECTORY_URL"`

	// Database holds the database configuration.
	Database DatabaseConfig `mapstructure:",squash"`

	// Kafka holds the event broker configuration.
	Kafka KafkaConfig `mapstructure:",squash"`

	// Delivery holds the delivery fee schedule.
	Delivery DeliveryConfig `mapstructure:",squash"`

	// Orders holds order lifecycle settings.
	Orders OrdersConfig `mapstructure:",squash"`
}

// DatabaseConfig holds database connection details.
type DatabaseConfig struct {
	// SQLitePath is the DSN handed to the sqlite driver.
	SQLitePath string `mapstructure:"SQLITE_PATH" default:"file:kmerzone.db?_pragma=busy_timeout(5000)"`
	// Host is the database server hostname.
	Host string `mapstructure:"DB_HOST" default:"localhost"`
	// Port is the database connection port.
	Port int `mapstructure:"DB_PORT" default:"5432"`
	// User is the database role.
	User string `mapstructure:"DB_USER" default:"kmerzone"`
	// Password is the database password.
	Password string `mapstructure:"DB_PASSWORD"`
	// Name is the database name.
	Name string `mapstructure:"DB_NAME" default:"kmerzone"`
	// SSLMode is passed through to lib/pq.
	SSLMode string `mapstructure:"DB_SSLMODE" default:"disable"`
}

// KafkaConfig holds broker details for order events.
type KafkaConfig struct {
	// Brokers is a comma-separated broker list. Empty disables Kafka.
	Brokers string `mapstructure:"KAFKA_BROKERS"`
	// OrderTopic receives order lifecycle events.
	OrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC" default:"kmerzone.orders"`
}

// BrokerList splits Brokers into individual addresses.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// DeliveryConfig holds the zone fees used by the delivery fee calculator.
type DeliveryConfig struct {
	// IntraUrbanFee applies when vendor and customer share a city.
	IntraUrbanFee float64 `mapstructure:"DELIVERY_INTRA_URBAN_FEE" default:"1000"`
	// InterUrbanFee applies when vendor and customer are in different cities.
	InterUrbanFee float64 `mapstructure:"DELIVERY_INTER_URBAN_FEE" default:"2500"`
	// UnknownVendorFee is charged for a vendor missing from the directory.
	UnknownVendorFee float64 `mapstructure:"DELIVERY_UNKNOWN_VENDOR_FEE" default:"2500"`
	// PremiumDiscountPercent is taken off the delivery fee for premium customers.
	PremiumDiscountPercent float64 `mapstructure:"PREMIUM_DELIVERY_DISCOUNT_PERCENT" default:"10"`
}

// OrdersConfig holds order lifecycle settings.
type OrdersConfig struct {
	// StrictTransitions rejects status changes outside the transition table.
	StrictTransitions bool `mapstructure:"ORDER_STRICT_TRANSITIONS" default:"true"`
	// IdempotencyTTLSeconds is how long a checkout idempotency key is remembered.
	IdempotencyTTLSeconds int `mapstructure:"IDEMPOTENCY_TTL_SECONDS" default:"86400"`
}

// IdempotencyTTL returns the idempotency window as a duration.
func (o OrdersConfig) IdempotencyTTL() time.Duration {
	return time.Duration(o.IdempotencyTTLSeconds) * time.Second
}

// Location resolves Timezone, falling back to UTC when the zone database lacks it.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := validateDriver(config.StoreDriver); err != nil {
		return nil, err
	}

	if err := validateDelivery(config.Delivery); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateDriver(driver string) error {
	switch driver {
	case StoreMemory, StoreSQLite, StorePostgres:
		return nil
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", driver)
	}
}

func validateDelivery(d DeliveryConfig) error {
	fees := []struct {
		key   string
		value float64
	}{
		{"DELIVERY_INTRA_URBAN_FEE", d.IntraUrbanFee},
		{"DELIVERY_INTER_URBAN_FEE", d.InterUrbanFee},
		{"DELIVERY_UNKNOWN_VENDOR_FEE", d.UnknownVendorFee},
	}
	for _, fee := range fees {
		if fee.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", fee.key, fee.value)
		}
	}
	if d.PremiumDiscountPercent < 0 || d.PremiumDiscountPercent > 100 {
		return fmt.Errorf("PREMIUM_DELIVERY_DISCOUNT_PERCENT must be between 0 and 100, got %v", d.PremiumDiscountPercent)
	}
	return nil
}

// processTags iterates over the struct fields, binds env keys and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && isZero(val.Field(i)) {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
