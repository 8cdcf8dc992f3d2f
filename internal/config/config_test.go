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

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.True(t, decimal.RequireFromString("0.01").Equal(cfg.Raffle.EntranceFee))
	assert.Equal(t, 30*time.Second, cfg.Raffle.Interval.Duration)

	req := cfg.Oracle.RequestConfig()
	assert.Equal(t, uint16(3), req.RequestConfirmations)
	assert.Equal(t, uint32(500000), req.CallbackGasLimit)
	assert.Equal(t, uint32(1), req.NumWords)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.toml")
	doc := `
[raffle]
entrance_fee = "0.1"
interval = "1m30s"

[oracle]
key_hash = "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"
subscription_id = 588
auto_fulfill = false

[store]
engine = "pebble"
path = "/var/lib/raffle"

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.1").Equal(cfg.Raffle.EntranceFee))
	assert.Equal(t, 90*time.Second, cfg.Raffle.Interval.Duration)
	assert.Equal(t, uint64(588), cfg.Oracle.SubscriptionID)
	assert.False(t, cfg.Oracle.AutoFulfill)
	assert.Equal(t, byte(0x47), cfg.Oracle.RequestConfig().KeyHash[0])
	assert.Equal(t, byte(0x6c), cfg.Oracle.RequestConfig().KeyHash[31])
	assert.Equal(t, EnginePebble, cfg.Store.Engine)
	assert.Equal(t, "json", cfg.Log.Format)

	// Untouched keys keep their defaults
	assert.Equal(t, uint32(1), cfg.Oracle.NumWords)
	assert.Equal(t, time.Second, cfg.Keeper.PollInterval.Duration)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raffle.toml")
	require.NoError(t, os.WriteFile(path, []byte("[raffle]\nentrance_fees = \"1\"\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "raffle.entrance_fees")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "negative fee", doc: "[raffle]\nentrance_fee = \"-1\""},
		{name: "zero interval", doc: "[raffle]\ninterval = \"0s\""},
		{name: "bad key hash", doc: "[oracle]\nkey_hash = \"abcd\""},
		{name: "no words", doc: "[oracle]\nnum_words = 0"},
		{name: "unknown engine", doc: "[store]\nengine = \"redis\""},
		{name: "bolt without path", doc: "[store]\nengine = \"bolt\""},
		{name: "zero poll interval", doc: "[keeper]\npoll_interval = \"0s\""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.doc)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse("[raffle]\ninterval = \"soon\"")
	assert.Error(t, err)
}
