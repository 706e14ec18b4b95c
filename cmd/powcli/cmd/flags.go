package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/spf13/pflag"

	"github.com/spacemeshos/powseal/shared"
)

var (
	_ pflag.Value = (*uint256Value)(nil)
	_ pflag.Value = (*hashValue)(nil)
	_ pflag.Value = (*bytesValue)(nil)
)

// uint256Value is a decimal, or 0x-prefixed hex, 256-bit integer flag.
type uint256Value uint256.Int

func (v *uint256Value) Int() *uint256.Int { return (*uint256.Int)(v) }

func (v *uint256Value) String() string { return v.Int().Dec() }

func (v *uint256Value) Set(s string) error {
	var (
		i   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") {
		i, err = uint256.FromHex(s)
	} else {
		i, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return err
	}
	*v = uint256Value(*i)
	return nil
}

func (v *uint256Value) Type() string { return "uint256" }

type hashValue shared.Hash

func (v *hashValue) Hash() shared.Hash { return shared.Hash(*v) }

func (v *hashValue) String() string { return v.Hash().String() }

func (v *hashValue) Set(s string) error {
	h, err := shared.HexToHash(s)
	if err != nil {
		return err
	}
	*v = hashValue(h)
	return nil
}

func (v *hashValue) Type() string { return "hash" }

type bytesValue []byte

func (v *bytesValue) String() string { return hex.EncodeToString(*v) }

func (v *bytesValue) Set(s string) error {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	*v = b
	return nil
}

func (v *bytesValue) Type() string { return "hex" }
