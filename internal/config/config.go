// Package config loads the raffle node configuration from a TOML file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/randomness"
)

// Storage engines.
const (
	EnginePebble = "pebble"
	EngineBolt   = "bolt"
	EngineMemory = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

// Duration decodes from strings such as "30s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	Raffle  Raffle  `toml:"raffle"`
	Oracle  Oracle  `toml:"oracle"`
	Keeper  Keeper  `toml:"keeper"`
	Store   Store   `toml:"store"`
	Network Network `toml:"network"`
	Log     Log     `toml:"log"`
	Metrics Metrics `toml:"metrics"`
}

type Raffle struct {
	EntranceFee decimal.Decimal `toml:"entrance_fee"`
	Interval    Duration        `toml:"interval"`
	MinBalance  decimal.Decimal `toml:"min_balance"`
}

type Oracle struct {
	KeyHash              string   `toml:"key_hash"` // hex, 32 bytes
	SubscriptionID       uint64   `toml:"subscription_id"`
	RequestConfirmations uint16   `toml:"request_confirmations"`
	CallbackGasLimit     uint32   `toml:"callback_gas_limit"`
	NumWords             uint32   `toml:"num_words"`
	AutoFulfill          bool     `toml:"auto_fulfill"`
	FulfillDelay         Duration `toml:"fulfill_delay"`
}

type Keeper struct {
	Enabled      bool     `toml:"enabled"`
	PollInterval Duration `toml:"poll_interval"`
}

type Store struct {
	Engine string `toml:"engine"`
	Path   string `toml:"path"`
}

type Network struct {
	// ListenAddr is empty when the node serves no remote clients.
	ListenAddr   string   `toml:"listen_addr"`
	KeyFile      string   `toml:"key_file"`
	OracleKey    string   `toml:"oracle_key"` // hex Ed25519 public key allowed to fulfil
	CertValidity Duration `toml:"cert_validity"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Metrics struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns a local development setup: a fee of 0.01, 30 second
// rounds and an in-process oracle answering after one second.
func Default() Config {
	return Config{
		Raffle: Raffle{
			EntranceFee: decimal.RequireFromString("0.01"),
			Interval:    Duration{30 * time.Second},
			MinBalance:  decimal.Zero,
		},
		Oracle: Oracle{
			SubscriptionID:       1,
			RequestConfirmations: randomness.DefaultRequestConfirmations,
			CallbackGasLimit:     randomness.DefaultCallbackGasLimit,
			NumWords:             randomness.DefaultNumWords,
			AutoFulfill:          true,
			FulfillDelay:         Duration{time.Second},
		},
		Keeper: Keeper{
			Enabled:      true,
			PollInterval: Duration{time.Second},
		},
		Store: Store{
			Engine: EngineMemory,
		},
		Network: Network{
			CertValidity: Duration{24 * time.Hour},
		},
		Log: Log{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidConfig, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults.
func Parse(doc string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(doc, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Raffle.EntranceFee.IsNegative() {
		errs = append(errs, fmt.Errorf("raffle.entrance_fee is negative: %s", c.Raffle.EntranceFee))
	}
	if c.Raffle.Interval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("raffle.interval must be positive: %s", c.Raffle.Interval))
	}
	if c.Raffle.MinBalance.IsNegative() {
		errs = append(errs, fmt.Errorf("raffle.min_balance is negative: %s", c.Raffle.MinBalance))
	}
	if _, err := c.Oracle.keyHash(); err != nil {
		errs = append(errs, err)
	}
	if c.Oracle.NumWords == 0 {
		errs = append(errs, errors.New("oracle.num_words must be at least 1"))
	}
	if c.Oracle.FulfillDelay.Duration < 0 {
		errs = append(errs, fmt.Errorf("oracle.fulfill_delay is negative: %s", c.Oracle.FulfillDelay))
	}
	if c.Keeper.Enabled && c.Keeper.PollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("keeper.poll_interval must be positive: %s", c.Keeper.PollInterval))
	}
	switch c.Store.Engine {
	case EngineMemory:
	case EnginePebble, EngineBolt:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for engine %q", c.Store.Engine))
		}
	default:
		errs = append(errs, fmt.Errorf("store.engine %q is not one of pebble, bolt, memory", c.Store.Engine))
	}
	if c.Network.ListenAddr != "" && c.Network.CertValidity.Duration <= 0 {
		errs = append(errs, fmt.Errorf("network.cert_validity must be positive: %s", c.Network.CertValidity))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (o Oracle) keyHash() ([32]byte, error) {
	var h [32]byte
	if o.KeyHash == "" {
		return h, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(o.KeyHash, "0x"))
	if err != nil || len(b) != len(h) {
		return h, fmt.Errorf("oracle.key_hash must be 32 hex encoded bytes: %q", o.KeyHash)
	}
	copy(h[:], b)
	return h, nil
}

// RequestConfig returns the oracle request parameters. It assumes Validate
// passed.
func (o Oracle) RequestConfig() randomness.RequestConfig {
	keyHash, _ := o.keyHash()
	return randomness.RequestConfig{
		KeyHash:              keyHash,
		SubscriptionID:       o.SubscriptionID,
		RequestConfirmations: o.RequestConfirmations,
		CallbackGasLimit:     o.CallbackGasLimit,
		NumWords:             o.NumWords,
	}
}
