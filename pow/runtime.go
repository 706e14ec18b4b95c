package pow

import (
	"errors"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/metrics"
	"github.com/spacemeshos/powseal/shared"
	"github.com/spacemeshos/powseal/verifying"
)

// Runtime verifies quick seals against the difficulty kept in chain state.
type Runtime struct {
	state  StateAccessor
	logger *zap.Logger
}

func NewRuntime(state StateAccessor, opts ...OptionFunc) (*Runtime, error) {
	if state == nil {
		return nil, errors.New("`state` is required")
	}
	options, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &Runtime{state: state, logger: options.logger}, nil
}

// Clone returns a new handle sharing the state accessor of r.
func (r *Runtime) Clone() *Runtime {
	return &Runtime{state: r.state, logger: r.logger}
}

// Difficulty queries the chain state. Failures are returned as *shared.EnvironmentError.
func (r *Runtime) Difficulty(parent shared.Hash) (*uint256.Int, error) {
	d, err := r.state.Difficulty(parent)
	if err != nil {
		metrics.DifficultyQueries.WithLabelValues(config.AlgorithmRuntime, metrics.ResultEnvironmentError).Inc()
		r.logger.Error("fetching difficulty from chain state failed", zap.Stringer("parent", parent), zap.Error(err))
		return nil, &shared.EnvironmentError{Msg: "fetching difficulty from chain state failed", Err: err}
	}
	metrics.DifficultyQueries.WithLabelValues(config.AlgorithmRuntime, metrics.ResultValid).Inc()
	return d, nil
}

// Verify checks an encoded quick seal for preHash. parent and preDigest are unused.
func (r *Runtime) Verify(_, preHash shared.Hash, _, seal []byte, difficulty *uint256.Int) (bool, error) {
	return verdict(config.AlgorithmRuntime, r.logger, verifying.VerifyQuick(preHash, seal, difficulty))
}

// Close is a no-op, the state accessor is owned by the caller.
func (r *Runtime) Close() error { return nil }
