package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies that default values are used when env vars are missing.
func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "LOG_LEVEL", "SERVER_PORT", "STORE_DRIVER", "DELIVERY_INTRA_URBAN_FEE", "ORDER_STRICT_TRANSITIONS"} {
		os.Unsetenv(key)
	}

	cfg, err := Load(".")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 1000.0, cfg.Delivery.IntraUrbanFee)
	assert.Equal(t, 2500.0, cfg.Delivery.InterUrbanFee)
	assert.Equal(t, 2500.0, cfg.Delivery.UnknownVendorFee)
	assert.Equal(t, 10.0, cfg.Delivery.PremiumDiscountPercent)
	assert.True(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, 24*time.Hour, cfg.Orders.IdempotencyTTL())
	assert.Equal(t, "kmerzone.orders", cfg.Kafka.OrderTopic)
	assert.Empty(t, cfg.Kafka.BrokerList())
}

// TestLoad_EnvVars verifies that environment variables override defaults.
func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DELIVERY_INTRA_URBAN_FEE", "1500")
	t.Setenv("ORDER_STRICT_TRANSITIONS", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 1500.0, cfg.Delivery.IntraUrbanFee)
	assert.False(t, cfg.Orders.StrictTransitions)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
}

// TestLoad_File verifies that values are loaded from a .env file.
func TestLoad_File(t *testing.T) {
	content := []byte(`
APP_ENV=staging
LOG_LEVEL=warn
SERVER_PORT=7070
DELIVERY_INTER_URBAN_FEE=3000
`)
	err := os.WriteFile(".env", content, 0644)
	require.NoError(t, err)
	defer os.Remove(".env")

	cfg, err := Load(".")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7070, cfg.ServerPort)
	assert.Equal(t, 3000.0, cfg.Delivery.InterUrbanFee)
}

// TestLoad_UnsupportedDriver verifies that an unknown store driver is rejected.
func TestLoad_UnsupportedDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongodb")

	cfg, err := Load(".")
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unsupported STORE_DRIVER")
}

// TestLoad_InvalidDelivery verifies that fees and the premium discount are range checked.
func TestLoad_InvalidDelivery(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"NegativeIntraUrbanFee", "DELIVERY_INTRA_URBAN_FEE", "-1", "DELIVERY_INTRA_URBAN_FEE must not be negative"},
		{"NegativeInterUrbanFee", "DELIVERY_INTER_URBAN_FEE", "-2500", "DELIVERY_INTER_URBAN_FEE must not be negative"},
		{"NegativeUnknownVendorFee", "DELIVERY_UNKNOWN_VENDOR_FEE", "-0.5", "DELIVERY_UNKNOWN_VENDOR_FEE must not be negative"},
		{"DiscountAboveHundred", "PREMIUM_DELIVERY_DISCOUNT_PERCENT", "150", "PREMIUM_DELIVERY_DISCOUNT_PERCENT must be between 0 and 100"},
		{"NegativeDiscount", "PREMIUM_DELIVERY_DISCOUNT_PERCENT", "-10", "PREMIUM_DELIVERY_DISCOUNT_PERCENT must be between 0 and 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			cfg, err := Load(".")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestLoad_DeliveryBounds verifies that free delivery and a full premium discount are accepted.
func TestLoad_DeliveryBounds(t *testing.T) {
	t.Setenv("DELIVERY_INTRA_URBAN_FEE", "0")
	t.Setenv("PREMIUM_DELIVERY_DISCOUNT_PERCENT", "100")

	cfg, err := Load(".")
	require.NoError(t, err)
	assert.Zero(t, cfg.Delivery.IntraUrbanFee)
	assert.Equal(t, 100.0, cfg.Delivery.PremiumDiscountPercent)
}

func TestAppConfig_Location(t *testing.T) {
	cfg := &AppConfig{Timezone: "Not/AZone"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "UTC"
	assert.Equal(t, "UTC", cfg.Location().String())
}
