package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/proving"
	"github.com/spacemeshos/powseal/shared"
)

var (
	quickDifficulty uint256Value
	quickPreHash    hashValue
	quickNonce      uint256Value

	mineStartNonce uint64
	mineTimeout    time.Duration
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the quick seal of a pre-hash for a given nonce",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := proving.ComputeQuick(quickDifficulty.Int(), quickPreHash.Hash(), quickNonce.Int())
		fmt.Println(hex.EncodeToString(s.Encode()))
		fmt.Fprintf(os.Stderr, "work: %v, meets difficulty: %v\n", s.Work, shared.MeetsDifficulty(s.Work, quickDifficulty.Int()))
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Search for a nonce whose quick seal meets the difficulty",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if mineTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, mineTimeout)
			defer cancel()
		}

		start := time.Now()
		s, err := proving.SearchQuick(ctx, quickDifficulty.Int(), quickPreHash.Hash(),
			proving.WithStartNonce(mineStartNonce),
			proving.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("search for nonce failed: %w", err)
		}
		logger.Info("cli: quick seal found",
			zap.String("nonce", s.Nonce.Dec()),
			zap.Stringer("work", s.Work),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Println(hex.EncodeToString(s.Encode()))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{computeCmd, mineCmd} {
		c.Flags().Var(&quickDifficulty, "difficulty", "difficulty, decimal or 0x-prefixed hex (required)")
		c.Flags().Var(&quickPreHash, "pre-hash", "block pre-hash, in hex (required)")
		c.MarkFlagRequired("difficulty")
		c.MarkFlagRequired("pre-hash")
		rootCmd.AddCommand(c)
	}
	computeCmd.Flags().Var(&quickNonce, "nonce", "nonce, decimal or 0x-prefixed hex")

	mineCmd.Flags().Uint64Var(&mineStartNonce, "start-nonce", 0, "first nonce to try")
	mineCmd.Flags().DurationVar(&mineTimeout, "timeout", 0, "give up after this long (0 for no limit)")
}
