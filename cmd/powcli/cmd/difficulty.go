package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacemeshos/powseal/shared"
)

var (
	diffBoundary hashValue
	diffValue    uint256Value
)

var difficultyCmd = &cobra.Command{
	Use:   "difficulty",
	Short: "Convert between difficulties and ethash boundaries",
	Long: `difficulty prints the difficulty met by a 32 byte ethash result
(--boundary), or the largest result meeting a difficulty (--value).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case cmd.Flags().Changed("boundary"):
			fmt.Println(shared.BoundaryToDifficulty(diffBoundary.Hash()).Dec())
		case cmd.Flags().Changed("value"):
			fmt.Println(shared.DifficultyToBoundary(diffValue.Int()))
		default:
			return errors.New("one of `--boundary` or `--value` is required")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(difficultyCmd)
	difficultyCmd.Flags().Var(&diffBoundary, "boundary", "ethash result value, in hex")
	difficultyCmd.Flags().Var(&diffValue, "value", "difficulty, decimal or 0x-prefixed hex")
	difficultyCmd.MarkFlagsMutuallyExclusive("boundary", "value")
}
