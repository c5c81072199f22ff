package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "STORE_DRIVER", "MIN_BET", "STARTING_BANKROLL", "DEFAULT_MAX_PLAYERS", "RECORD_TTL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.DefaultMaxPlayers)
	assert.Equal(t, int64(50), cfg.DefaultStartingChips)
	assert.True(t, cfg.MinBet.Equal(decimal.NewFromInt(25)))
	assert.True(t, cfg.StartingBankroll.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 7*24*time.Hour, cfg.RecordTTL)
}

func TestLoadFromEnvFile(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	os.Unsetenv("STORE_DRIVER")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=redis\nMIN_BET=10\n"), 0o600))
	t.Setenv("MIN_BET", "")
	os.Unsetenv("MIN_BET")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, cfg.StoreDriver)
	assert.True(t, cfg.MinBet.Equal(decimal.NewFromInt(10)))
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name, key, value string
	}{
		{name: "bad driver", key: "STORE_DRIVER", value: "mongo"},
		{name: "bad int", key: "DEFAULT_MAX_PLAYERS", value: "many"},
		{name: "too many players", key: "DEFAULT_MAX_PLAYERS", value: "9"},
		{name: "bad decimal", key: "MIN_BET", value: "lots"},
		{name: "postgres without url", key: "STORE_DRIVER", value: "postgres"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tc.key, tc.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
