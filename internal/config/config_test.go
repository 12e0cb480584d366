package config

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func noFile(string) ([]byte, error) { return nil, errors.New("unexpected read") }

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envMap(nil), noFile)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, StoreMemory, cfg.Store.Driver)
	require.Equal(t, 10*time.Second, cfg.Store.TxTimeout)
	require.False(t, cfg.AutoApplyStatus)

	amount, err := cfg.MinimumOrderAmount()
	require.NoError(t, err)
	require.True(t, amount.IsZero())
}

func TestLoadFileThenEnv(t *testing.T) {
	file := []byte(`
serviceName: fulfillment
store:
  driver: postgres
  postgresDsn: postgres://file
  txTimeout: 5s
thresholds:
  minimumOrderAmount: "400"
  minimumItemCount: 2
kafka:
  brokers: [k1:9092]
`)
	cfg, err := load(envMap(map[string]string{
		"CONFIG_FILE":       "/etc/dropship.yaml",
		"POSTGRES_DSN":      "postgres://env",
		"KAFKA_BROKERS":     "a:9092, b:9092",
		"AUTO_APPLY_STATUS": "true",
		"TX_TIMEOUT":        "3s",
		"STORE_SEED_FILE":   "/etc/orders.yaml",
	}), func(path string) ([]byte, error) {
		require.Equal(t, "/etc/dropship.yaml", path)
		return file, nil
	})
	require.NoError(t, err)

	require.Equal(t, "fulfillment", cfg.ServiceName)
	require.Equal(t, StorePostgres, cfg.Store.Driver)
	require.Equal(t, "postgres://env", cfg.Store.PostgresDSN)
	require.Equal(t, 3*time.Second, cfg.Store.TxTimeout)
	require.Equal(t, "/etc/orders.yaml", cfg.Store.SeedFile)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.True(t, cfg.AutoApplyStatus)
	require.Equal(t, 2, cfg.Thresholds.MinimumItemCount)

	amount, err := cfg.MinimumOrderAmount()
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(400).Equal(amount))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":       {"STORE_DRIVER": "mongo"},
		"postgres without dsn": {"STORE_DRIVER": "postgres"},
		"firestore without id": {"STORE_DRIVER": "firestore"},
		"negative amount":      {"MINIMUM_ORDER_AMOUNT": "-1"},
		"bad item count":       {"MINIMUM_ITEM_COUNT": "two"},
		"bad bool":             {"AUTO_APPLY_STATUS": "sometimes"},
		"bad timeout":          {"TX_TIMEOUT": "soon"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(envMap(env), noFile)
			require.Error(t, err)
		})
	}
}
