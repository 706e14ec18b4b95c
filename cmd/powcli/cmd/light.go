package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/pow"
	"github.com/spacemeshos/powseal/proving"
)

var (
	lightHeight     uint64
	lightPowHash    hashValue
	lightDifficulty uint256Value
	lightWorkers    uint
)

var sealLightCmd = &cobra.Command{
	Use:   "seal-light",
	Short: "Search for an ethash light seal of a pow-hash at a block height",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		caches, err := cache.New(pow.CacheOptions(cfg, logger)...)
		if err != nil {
			return err
		}
		defer caches.Close()

		start := time.Now()
		s, err := proving.SealLight(ctx, caches, lightHeight, lightPowHash.Hash(), lightDifficulty.Int(),
			proving.WithWorkers(lightWorkers),
			proving.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("sealing failed: %w", err)
		}
		logger.Info("cli: light seal found",
			zap.Uint64("nonce", s.Nonce),
			zap.Stringer("mix_digest", s.MixDigest),
			zap.Duration("elapsed", time.Since(start)),
		)
		fmt.Println(hex.EncodeToString(s.Encode()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sealLightCmd)

	flags := sealLightCmd.Flags()
	flags.Uint64Var(&lightHeight, "height", 0, "block height")
	flags.Var(&lightPowHash, "pow-hash", "header hash without the seal, in hex (required)")
	flags.Var(&lightDifficulty, "difficulty", "difficulty, decimal or 0x-prefixed hex (required)")
	flags.UintVar(&lightWorkers, "workers", uint(runtime.NumCPU()), "number of search workers")
	sealLightCmd.MarkFlagRequired("pow-hash")
	sealLightCmd.MarkFlagRequired("difficulty")
}
