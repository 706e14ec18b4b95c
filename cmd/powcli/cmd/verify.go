package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacemeshos/powseal/chainstate"
	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/pow"
)

var errInvalidSeal = errors.New("invalid seal")

var (
	verifyParent     hashValue
	verifyPreHash    hashValue
	verifyPreDigest  bytesValue
	verifySeal       bytesValue
	verifyDifficulty uint256Value
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an encoded seal with the configured algorithm",
	Long: `verify checks a hex encoded seal the way block import would.

With --difficulty unset the fixed variant uses its configured difficulty.
The runtime variant has no chain state here and requires --difficulty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var state pow.StateAccessor
		if cfg.Algorithm == config.AlgorithmRuntime {
			if !cmd.Flags().Changed("difficulty") {
				return errors.New("`--difficulty` is required by the runtime algorithm")
			}
			state = chainstate.NewMemory(verifyDifficulty.Int())
		}

		algo, err := pow.New(cfg, state, pow.WithLogger(logger))
		if err != nil {
			return err
		}
		defer algo.Close()

		difficulty, err := algo.Difficulty(verifyParent.Hash())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("difficulty") {
			difficulty = verifyDifficulty.Int()
		}

		ok, err := algo.Verify(verifyParent.Hash(), verifyPreHash.Hash(), verifyPreDigest, verifySeal, difficulty)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !ok {
			fmt.Println("invalid")
			return errInvalidSeal
		}
		fmt.Println("valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	flags := verifyCmd.Flags()
	flags.Var(&verifyParent, "parent", "parent block hash, in hex")
	flags.Var(&verifyPreHash, "pre-hash", "block pre-hash, in hex (required)")
	flags.Var(&verifyPreDigest, "pre-digest", "pre-runtime digest, in hex")
	flags.Var(&verifySeal, "seal", "encoded seal, in hex (required)")
	flags.Var(&verifyDifficulty, "difficulty", "difficulty to verify against, decimal or 0x-prefixed hex")
	verifyCmd.MarkFlagRequired("pre-hash")
	verifyCmd.MarkFlagRequired("seal")
}
