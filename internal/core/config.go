package core

import (
	"fmt"
	"os"
	"time"

	"creaturecore/pkg/domain"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML string parsing using the standard
// time.ParseDuration syntax ("10m", "168h").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config carries the engine's tunable parameters. Zero values are replaced by
// defaults in Normalize.
type Config struct {
	// Cooldowns is the breeding rest table indexed by cooldown index. It
	// must hold exactly domain.CooldownSlots non-decreasing entries.
	Cooldowns []Duration `yaml:"cooldowns"`
	// SecondsPerTick converts cooldown durations to ticks. Used for
	// scheduling math only, never wall-clock enforcement.
	SecondsPerTick uint64 `yaml:"seconds_per_tick"`
	// AutoBirthFee is charged on breeding and paid out to whoever triggers
	// the resulting birth.
	AutoBirthFee uint64 `yaml:"auto_birth_fee"`
	// PromoCreationLimit caps promotional creature mints.
	PromoCreationLimit uint64 `yaml:"promo_creation_limit"`
	// Gen0CreationLimit caps generation-0 auction mints.
	Gen0CreationLimit uint64 `yaml:"gen0_creation_limit"`
	// Gen0StartingPrice floors the opening price of gen-0 auctions.
	Gen0StartingPrice uint64 `yaml:"gen0_starting_price"`
	// Gen0AuctionDuration is the price-decay window for gen-0 auctions.
	Gen0AuctionDuration Duration `yaml:"gen0_auction_duration"`
}

// DefaultConfig returns the stock parameter set: fourteen roughly doubling
// cooldowns from one minute to a seven-day cap.
func DefaultConfig() Config {
	return Config{
		Cooldowns: []Duration{
			Duration(1 * time.Minute),
			Duration(2 * time.Minute),
			Duration(5 * time.Minute),
			Duration(10 * time.Minute),
			Duration(30 * time.Minute),
			Duration(1 * time.Hour),
			Duration(2 * time.Hour),
			Duration(4 * time.Hour),
			Duration(8 * time.Hour),
			Duration(16 * time.Hour),
			Duration(24 * time.Hour),
			Duration(48 * time.Hour),
			Duration(96 * time.Hour),
			Duration(168 * time.Hour),
		},
		SecondsPerTick:      15,
		AutoBirthFee:        2_000,
		PromoCreationLimit:  5_000,
		Gen0CreationLimit:   45_000,
		Gen0StartingPrice:   10_000,
		Gen0AuctionDuration: Duration(24 * time.Hour),
	}
}

// Normalize fills unset fields from defaults and validates the result.
func (c Config) Normalize() (Config, error) {
	def := DefaultConfig()
	if len(c.Cooldowns) == 0 {
		c.Cooldowns = def.Cooldowns
	}
	if c.SecondsPerTick == 0 {
		c.SecondsPerTick = def.SecondsPerTick
	}
	if c.AutoBirthFee == 0 {
		c.AutoBirthFee = def.AutoBirthFee
	}
	if c.PromoCreationLimit == 0 {
		c.PromoCreationLimit = def.PromoCreationLimit
	}
	if c.Gen0CreationLimit == 0 {
		c.Gen0CreationLimit = def.Gen0CreationLimit
	}
	if c.Gen0StartingPrice == 0 {
		c.Gen0StartingPrice = def.Gen0StartingPrice
	}
	if c.Gen0AuctionDuration == 0 {
		c.Gen0AuctionDuration = def.Gen0AuctionDuration
	}
	if len(c.Cooldowns) != domain.CooldownSlots {
		return Config{}, fmt.Errorf("cooldown table needs %d entries, got %d", domain.CooldownSlots, len(c.Cooldowns))
	}
	for i := 1; i < len(c.Cooldowns); i++ {
		if c.Cooldowns[i] < c.Cooldowns[i-1] {
			return Config{}, fmt.Errorf("cooldown table must be non-decreasing at entry %d", i)
		}
	}
	return c, nil
}

// CooldownTicks converts the table entry at idx to ticks, saturating the
// index at the last slot and never returning zero.
func (c Config) CooldownTicks(idx uint8) uint64 {
	if int(idx) >= len(c.Cooldowns) {
		idx = uint8(len(c.Cooldowns) - 1)
	}
	secs := uint64(time.Duration(c.Cooldowns[idx]) / time.Second)
	ticks := secs / c.SecondsPerTick
	if ticks == 0 {
		ticks = 1
	}
	return ticks
}

// LoadConfig reads a YAML config file, merging it over defaults. An empty
// path consults CREATURECORE_CONFIG and falls back to pure defaults when
// unset.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("CREATURECORE_CONFIG")
	}
	if path == "" {
		return DefaultConfig().Normalize()
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Normalize()
}
