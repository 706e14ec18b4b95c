package pow

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/metrics"
	"github.com/spacemeshos/powseal/shared"
	"github.com/spacemeshos/powseal/verifying"
)

// Fixed verifies ethash light seals against a constant difficulty.
type Fixed struct {
	difficulty *uint256.Int
	caches     *cache.Manager
	verifier   *verifying.LightVerifier
	logger     *zap.Logger
}

// NewFixed creates the fixed-difficulty algorithm. It owns an epoch cache
// manager and must be closed after use with Close().
func NewFixed(cfg config.Config, opts ...OptionFunc) (*Fixed, error) {
	options, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	difficulty, err := cfg.Difficulty()
	if err != nil {
		return nil, err
	}

	caches, err := cache.New(CacheOptions(cfg, options.logger)...)
	if err != nil {
		return nil, err
	}

	verifierOpts := []verifying.OptionFunc{verifying.WithLogger(options.logger)}
	if !cfg.LightValueCheck {
		verifierOpts = append(verifierOpts, verifying.WithoutValueCheck())
	}
	verifier, err := verifying.NewLightVerifier(caches, verifierOpts...)
	if err != nil {
		caches.Close()
		return nil, err
	}

	return &Fixed{
		difficulty: difficulty,
		caches:     caches,
		verifier:   verifier,
		logger:     options.logger,
	}, nil
}

// CacheOptions translates cfg into cache manager options.
func CacheOptions(cfg config.Config, logger *zap.Logger) []cache.OptionFunc {
	opts := []cache.OptionFunc{
		cache.WithDir(cfg.CacheDir),
		cache.WithCachesInMem(cfg.CachesInMem),
		cache.WithCachesOnDisk(cfg.CachesOnDisk),
		cache.WithLogger(logger),
	}
	if cfg.Mode == config.ModeTest {
		opts = append(opts, cache.WithTestMode())
	}
	if cfg.Pregenerate {
		opts = append(opts, cache.WithPregeneration())
	}
	if !cfg.SpaceAvailChecks {
		opts = append(opts, cache.WithoutSpaceCheck())
	}
	return opts
}

// Difficulty returns the configured difficulty regardless of parent.
func (f *Fixed) Difficulty(shared.Hash) (*uint256.Int, error) {
	metrics.DifficultyQueries.WithLabelValues(config.AlgorithmFixed, metrics.ResultValid).Inc()
	return new(uint256.Int).Set(f.difficulty), nil
}

// Verify checks an encoded light seal for preHash. parent and preDigest are unused.
func (f *Fixed) Verify(_, preHash shared.Hash, _, seal []byte, difficulty *uint256.Int) (bool, error) {
	return verdict(config.AlgorithmFixed, f.logger, f.verifier.Verify(preHash, seal, difficulty))
}

// Close releases the epoch caches and removes their scratch directory.
func (f *Fixed) Close() error {
	return f.caches.Close()
}
