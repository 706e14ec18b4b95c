package config

import (
	"fmt"
	"path/filepath"

	"github.com/holiman/uint256"
	"github.com/spacemeshos/smutil"
)

const (
	AlgorithmFixed   = "fixed"
	AlgorithmRuntime = "runtime"

	ModeNormal = "normal"
	ModeTest   = "test"
)

const (
	DefaultCacheDirName     = "ethash"
	DefaultFixedDifficulty  = "1000000"
	DefaultCachesInMem      = 3
	DefaultCachesOnDisk     = 3
	DefaultLightValueCheck  = true
	DefaultPregenerate      = false
	DefaultSpaceAvailChecks = true

	MaxCachesInMem  = 64
	MaxCachesOnDisk = 1024
)

// DefaultCacheDir is where persistent cache dumps go when a directory is asked
// for without naming one.
var DefaultCacheDir = filepath.Join(smutil.GetUserHomeDirectory(), "powseal", DefaultCacheDirName)

type Config struct {
	// Algorithm selects the PoW variant: `fixed` (ethash light verification
	// with a constant difficulty) or `runtime` (quick seals with the
	// difficulty read from chain state).
	Algorithm string `mapstructure:"pow-algorithm"`

	// FixedDifficulty is the decimal difficulty of the fixed variant.
	FixedDifficulty string `mapstructure:"pow-fixed-difficulty"`

	// CacheDir holds ethash cache dumps across restarts. When empty a scratch
	// directory is used and removed on close.
	CacheDir     string `mapstructure:"pow-cache-dir"`
	CachesInMem  int    `mapstructure:"pow-caches-in-mem"`
	CachesOnDisk int    `mapstructure:"pow-caches-on-disk"`

	// Mode `test` shrinks ethash caches to a few KiB.
	Mode string `mapstructure:"pow-mode"`

	// LightValueCheck requires the ethash result value of a light seal to meet
	// the difficulty, on top of the mix digest matching.
	LightValueCheck bool `mapstructure:"pow-light-value-check"`

	// Pregenerate builds the next epoch's cache in the background.
	Pregenerate bool `mapstructure:"pow-pregenerate"`

	SpaceAvailChecks bool `mapstructure:"pow-space-avail-checks"`
}

func DefaultConfig() Config {
	return Config{
		Algorithm:        AlgorithmFixed,
		FixedDifficulty:  DefaultFixedDifficulty,
		CachesInMem:      DefaultCachesInMem,
		CachesOnDisk:     DefaultCachesOnDisk,
		Mode:             ModeNormal,
		LightValueCheck:  DefaultLightValueCheck,
		Pregenerate:      DefaultPregenerate,
		SpaceAvailChecks: DefaultSpaceAvailChecks,
	}
}

// TestConfig is DefaultConfig with tiny ethash caches. It must not be used in production.
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeTest
	cfg.CachesInMem = 2
	cfg.SpaceAvailChecks = false
	return cfg
}

// Difficulty parses FixedDifficulty.
func (cfg Config) Difficulty() (*uint256.Int, error) {
	d, err := uint256.FromDecimal(cfg.FixedDifficulty)
	if err != nil {
		return nil, fmt.Errorf("invalid `FixedDifficulty`; expected: a decimal 256-bit integer, given: %q: %w", cfg.FixedDifficulty, err)
	}
	return d, nil
}

func Validate(cfg Config) error {
	switch cfg.Algorithm {
	case AlgorithmFixed, AlgorithmRuntime:
	default:
		return fmt.Errorf("invalid `Algorithm`; expected: %s or %s, given: %q", AlgorithmFixed, AlgorithmRuntime, cfg.Algorithm)
	}

	if cfg.Algorithm == AlgorithmFixed {
		d, err := cfg.Difficulty()
		if err != nil {
			return err
		}
		if d.IsZero() {
			return fmt.Errorf("invalid `FixedDifficulty`; expected: > 0, given: %v", cfg.FixedDifficulty)
		}
	}

	switch cfg.Mode {
	case ModeNormal, ModeTest:
	default:
		return fmt.Errorf("invalid `Mode`; expected: %s or %s, given: %q", ModeNormal, ModeTest, cfg.Mode)
	}

	if cfg.CachesInMem < 1 || cfg.CachesInMem > MaxCachesInMem {
		return fmt.Errorf("invalid `CachesInMem`; expected: 1-%d, given: %d", MaxCachesInMem, cfg.CachesInMem)
	}

	if cfg.CachesOnDisk < 1 || cfg.CachesOnDisk > MaxCachesOnDisk {
		return fmt.Errorf("invalid `CachesOnDisk`; expected: 1-%d, given: %d", MaxCachesOnDisk, cfg.CachesOnDisk)
	}

	return nil
}
