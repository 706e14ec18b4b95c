package pow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/chainstate"
	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/metrics"
	"github.com/spacemeshos/powseal/proving"
	"github.com/spacemeshos/powseal/seal"
	"github.com/spacemeshos/powseal/shared"
)

func newTestFixed(t *testing.T, difficulty string) *Fixed {
	cfg := config.TestConfig()
	cfg.FixedDifficulty = difficulty
	f, err := NewFixed(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.Close()) })
	return f
}

func sealLight(t *testing.T, height uint64, powHash shared.Hash, difficulty *uint256.Int) seal.Light {
	caches, err := cache.New(cache.WithTestMode(), cache.WithoutSpaceCheck())
	require.NoError(t, err)
	defer caches.Close()

	s, err := proving.SealLight(context.Background(), caches, height, powHash, difficulty)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	cfg := config.TestConfig()
	algo, err := New(cfg, nil)
	r.NoError(err)
	r.IsType(&Fixed{}, algo)
	r.NoError(algo.Close())

	cfg.Algorithm = config.AlgorithmRuntime
	algo, err = New(cfg, chainstate.NewMemory(uint256.NewInt(1)))
	r.NoError(err)
	r.IsType(&Runtime{}, algo)
	r.NoError(algo.Close())

	_, err = New(cfg, nil)
	r.ErrorContains(err, "`state` is required")

	cfg.Algorithm = "cuckoo"
	_, err = New(cfg, nil)
	r.ErrorContains(err, "invalid `Algorithm`")
}

func TestFixed_Difficulty(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	f := newTestFixed(t, "1000000")

	for _, parent := range []shared.Hash{{}, shared.BytesToHash([]byte("parent"))} {
		d, err := f.Difficulty(parent)
		r.NoError(err)
		r.Equal(uint256.NewInt(1_000_000), d)
	}

	// The returned value is a copy.
	d, err := f.Difficulty(shared.Hash{})
	r.NoError(err)
	d.SetUint64(1)
	d, err = f.Difficulty(shared.Hash{})
	r.NoError(err)
	r.Equal(uint256.NewInt(1_000_000), d)
}

func TestFixed_Verify(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	f := newTestFixed(t, "8")

	difficulty, err := f.Difficulty(shared.Hash{})
	r.NoError(err)
	preHash := shared.BytesToHash([]byte("header"))
	s := sealLight(t, 42, preHash, difficulty)
	raw := s.Encode()

	ok, err := f.Verify(shared.Hash{}, preHash, nil, raw, difficulty)
	r.NoError(err)
	r.True(ok)

	// preDigest and parent are ignored.
	ok, err = f.Verify(shared.Hash{1}, preHash, []byte("digest"), raw, difficulty)
	r.NoError(err)
	r.True(ok)

	ok, err = f.Verify(shared.Hash{}, shared.Hash{9}, nil, raw, difficulty)
	r.NoError(err)
	r.False(ok)

	ok, err = f.Verify(shared.Hash{}, preHash, nil, raw[:len(raw)-1], difficulty)
	r.NoError(err)
	r.False(ok)

	tampered := s
	tampered.MixDigest[0] ^= 1
	ok, err = f.Verify(shared.Hash{}, preHash, nil, tampered.Encode(), difficulty)
	r.NoError(err)
	r.False(ok)

	ok, err = f.Verify(shared.Hash{}, preHash, nil, raw, new(uint256.Int))
	r.NoError(err)
	r.False(ok)
}

func TestFixed_HeightBeyondMaxEpoch(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	f := newTestFixed(t, "1")
	difficulty := uint256.NewInt(1)

	for _, height := range []uint64{hashimoto.MaxEpoch * hashimoto.EpochLength, 1 << 62} {
		s := seal.Light{BlockHeight: height, PowHash: shared.Hash{1}}
		done := make(chan struct{})
		var (
			ok  bool
			err error
		)
		go func() {
			defer close(done)
			ok, err = f.Verify(shared.Hash{}, shared.Hash{1}, nil, s.Encode(), difficulty)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			r.FailNow("verify did not return", "height %d", height)
		}
		r.NoError(err)
		r.False(ok)
	}
	r.Empty(f.caches.Epochs())

	// The last epoch is still served.
	height := uint64(hashimoto.MaxEpoch*hashimoto.EpochLength - 1)
	s := sealLight(t, height, shared.Hash{1}, difficulty)
	ok, err := f.Verify(shared.Hash{}, shared.Hash{1}, nil, s.Encode(), difficulty)
	r.NoError(err)
	r.True(ok)
}

func TestFixed_WithoutValueCheck(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	cfg := config.TestConfig()
	cfg.LightValueCheck = false
	f, err := NewFixed(cfg)
	r.NoError(err)
	defer f.Close()

	preHash := shared.BytesToHash([]byte("any value"))
	s := sealLight(t, 0, preHash, uint256.NewInt(1))

	ok, err := f.Verify(shared.Hash{}, preHash, nil, s.Encode(), shared.MaxDifficulty)
	r.NoError(err)
	r.True(ok)
}

func TestFixed_InvalidDifficulty(t *testing.T) {
	cfg := config.TestConfig()
	cfg.FixedDifficulty = "one million"
	_, err := NewFixed(cfg)
	require.ErrorContains(t, err, "invalid `FixedDifficulty`")
}

func TestFixed_ConcurrentVerify(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	f := newTestFixed(t, "4")
	difficulty := uint256.NewInt(4)

	raws := make([][]byte, 3)
	preHashes := make([]shared.Hash, len(raws))
	for i := range raws {
		preHashes[i] = shared.BytesToHash([]byte{byte(i)})
		s := sealLight(t, uint64(i)*hashimoto.EpochLength, preHashes[i], difficulty)
		raws[i] = s.Encode()
	}

	var eg errgroup.Group
	for i := 0; i < 30; i++ {
		i := i
		eg.Go(func() error {
			n := i % len(raws)
			ok, err := f.Verify(shared.Hash{}, preHashes[n], nil, raws[n], difficulty)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("valid seal rejected")
			}
			return nil
		})
	}
	r.NoError(eg.Wait())
}

func TestRuntime_Difficulty(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	state := chainstate.NewMemory(nil)
	parent := shared.BytesToHash([]byte("parent"))
	state.SetDifficulty(parent, uint256.NewInt(77))

	rt, err := NewRuntime(state, WithLogger(zaptest.NewLogger(t)))
	r.NoError(err)

	d, err := rt.Difficulty(parent)
	r.NoError(err)
	r.Equal(uint256.NewInt(77), d)

	_, err = rt.Difficulty(shared.Hash{})
	var envErr *shared.EnvironmentError
	r.ErrorAs(err, &envErr)
	r.ErrorIs(err, chainstate.ErrUnknownBlock)
	r.Equal("fetching difficulty from chain state failed", envErr.Msg)

	clone := rt.Clone()
	state.SetDifficulty(shared.Hash{}, uint256.NewInt(5))
	d, err = clone.Difficulty(shared.Hash{})
	r.NoError(err)
	r.Equal(uint256.NewInt(5), d)
}

func TestRuntime_Verify(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	difficulty := uint256.NewInt(1000)
	state := chainstate.NewMemory(difficulty)
	rt, err := NewRuntime(state)
	r.NoError(err)

	preHash := shared.BytesToHash([]byte("block"))
	s, err := proving.SearchQuick(context.Background(), difficulty, preHash)
	r.NoError(err)
	raw := s.Encode()

	ok, err := rt.Verify(shared.Hash{}, preHash, nil, raw, difficulty)
	r.NoError(err)
	r.True(ok)

	ok, err = rt.Verify(shared.Hash{}, shared.Hash{1}, nil, raw, difficulty)
	r.NoError(err)
	r.False(ok)

	ok, err = rt.Verify(shared.Hash{}, preHash, nil, raw, new(uint256.Int))
	r.NoError(err)
	r.False(ok)

	ok, err = rt.Verify(shared.Hash{}, preHash, nil, append(raw, 0), difficulty)
	r.NoError(err)
	r.False(ok)

	ok, err = rt.Verify(shared.Hash{}, preHash, nil, raw, uint256.NewInt(999))
	r.NoError(err)
	r.False(ok)
}

func TestRuntime_ConcurrentClones(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	difficulty := uint256.NewInt(16)
	rt, err := NewRuntime(chainstate.NewMemory(difficulty))
	r.NoError(err)

	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		i := i
		algo := rt.Clone()
		eg.Go(func() error {
			preHash := shared.BytesToHash([]byte{byte(i)})
			d, err := algo.Difficulty(preHash)
			if err != nil {
				return err
			}
			s, err := proving.SearchQuick(context.Background(), d, preHash)
			if err != nil {
				return err
			}
			ok, err := algo.Verify(shared.Hash{}, preHash, nil, s.Encode(), d)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("valid seal rejected")
			}
			return nil
		})
	}
	r.NoError(eg.Wait())
}

func TestVerdict_Metrics(t *testing.T) {
	r := require.New(t)

	valid := metrics.Verifications.WithLabelValues("test", metrics.ResultValid)
	invalid := metrics.Verifications.WithLabelValues("test", metrics.ResultInvalid)
	cacheErrs := metrics.Verifications.WithLabelValues("test", metrics.ResultCacheError)
	envErrs := metrics.Verifications.WithLabelValues("test", metrics.ResultEnvironmentError)
	logger := zaptest.NewLogger(t)

	ok, err := verdict("test", logger, nil)
	r.NoError(err)
	r.True(ok)
	r.Equal(1.0, testutil.ToFloat64(valid))

	ok, err = verdict("test", logger, shared.ErrDifficultyNotMet)
	r.NoError(err)
	r.False(ok)
	r.Equal(1.0, testutil.ToFloat64(invalid))

	cacheErr := &shared.CacheError{Epoch: 1, Op: "generate", Err: errors.New("disk full")}
	ok, err = verdict("test", logger, cacheErr)
	r.ErrorIs(err, cacheErr)
	r.False(ok)
	r.Equal(1.0, testutil.ToFloat64(cacheErrs))

	ok, err = verdict("test", logger, errors.New("boom"))
	r.Error(err)
	r.False(ok)
	r.Equal(1.0, testutil.ToFloat64(envErrs))
}
