package shared

import (
	"errors"
	"fmt"
)

// Verdict errors. A seal failing with any of these is invalid, the error is not
// a fault of the verifier.
var (
	ErrDecode                = errors.New("seal decode failure")
	ErrZeroDifficulty        = errors.New("zero difficulty")
	ErrDifficultyNotMet      = errors.New("work does not meet difficulty")
	ErrMismatchedSealElement = errors.New("mismatched seal element")
	ErrInvalidProofOfWork    = errors.New("invalid proof of work")
	ErrEpochOutOfRange       = errors.New("block height beyond the last supported epoch")
)

var verdictErrors = []error{
	ErrDecode,
	ErrZeroDifficulty,
	ErrDifficultyNotMet,
	ErrMismatchedSealElement,
	ErrInvalidProofOfWork,
	ErrEpochOutOfRange,
}

// IsVerdict reports whether err means the seal is invalid, as opposed to the
// verification not being able to complete.
func IsVerdict(err error) bool {
	for _, v := range verdictErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// EnvironmentError is returned when the difficulty can't be obtained from the
// chain state.
type EnvironmentError struct {
	Msg string
	Err error
}

func (err EnvironmentError) Error() string {
	if err.Err == nil {
		return err.Msg
	}
	return fmt.Sprintf("%v: %v", err.Msg, err.Err)
}

func (err EnvironmentError) Unwrap() error { return err.Err }

// CacheError is returned when the ethash cache for an epoch can't be built,
// loaded or persisted.
type CacheError struct {
	Epoch uint64
	Op    string
	Err   error
}

func (err CacheError) Error() string {
	return fmt.Sprintf("epoch %d cache %v failure: %v", err.Epoch, err.Op, err.Err)
}

func (err CacheError) Unwrap() error { return err.Err }

type ConfigMismatchError struct {
	Param    string
	Expected string
	Found    string
	DataDir  string
}

func (err ConfigMismatchError) Error() string {
	return fmt.Sprintf("`%v` config mismatch; expected: %v, found: %v, datadir: %v",
		err.Param, err.Expected, err.Found, err.DataDir)
}
