package allocator

import (
	"io"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/QuangTung97/bestfit/arena"
)

// DefaultMinSplitPayload is the smallest payload a split-off block may have.
const DefaultMinSplitPayload uint32 = 4

// Config ...
type Config struct {
	// Capacity is the total arena size in bytes, headers included.
	Capacity uint32 `toml:"capacity" yaml:"capacity"`

	// MinSplitPayload is added to HeaderSize to get the split threshold.
	MinSplitPayload uint32 `toml:"min_split_payload" yaml:"min_split_payload"`

	// Arena selects the backing used by New.
	Arena arena.Kind `toml:"arena" yaml:"arena"`

	// CheckPointers makes Deallocate panic on pointers that are not live.
	CheckPointers bool `toml:"check_pointers" yaml:"check_pointers"`
}

// DefaultConfig returns a 64 KiB Go-backed config.
func DefaultConfig() Config {
	return Config{
		Capacity:        1 << 16,
		MinSplitPayload: DefaultMinSplitPayload,
		Arena:           arena.KindGo,
	}
}

func (c Config) validate() error {
	if c.Capacity <= HeaderSize {
		return errors.Wrapf(ErrCapacityTooSmall, "capacity %d, header %d", c.Capacity, HeaderSize)
	}
	if c.Capacity%Alignment != 0 {
		return errors.Wrapf(ErrCapacityUnaligned, "capacity %d, alignment %d", c.Capacity, Alignment)
	}
	// keeps HeaderSize + MinSplitPayload within Capacity
	if c.MinSplitPayload > c.Capacity-HeaderSize {
		return errors.Wrapf(ErrInvalidConfig, "min split payload %d exceeds capacity %d minus header",
			c.MinSplitPayload, c.Capacity)
	}
	return nil
}

func (c Config) splitThreshold() uint32 {
	return HeaderSize + c.MinSplitPayload
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return Config{}, errors.Wrapf(err, "allocator: load config %s", path)
	}
	if err := conf.validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// WriteTOML ...
func (c Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
