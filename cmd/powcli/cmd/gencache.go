package cmd

import (
	"fmt"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/config"
	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/pow"
)

var (
	gencacheHeight uint64
	gencacheEpochs uint64
)

var gencacheCmd = &cobra.Command{
	Use:   "gencache",
	Short: "Generate and persist the ethash caches of upcoming epochs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		if c.CacheDir == "" {
			c.CacheDir = config.DefaultCacheDir
		}
		if uint64(c.CachesOnDisk) < gencacheEpochs {
			c.CachesOnDisk = int(gencacheEpochs)
		}

		caches, err := cache.New(pow.CacheOptions(c, logger)...)
		if err != nil {
			return err
		}
		defer caches.Close()

		for i := uint64(0); i < gencacheEpochs; i++ {
			height := gencacheHeight + i*hashimoto.EpochLength
			start := time.Now()
			ec, err := caches.Get(height)
			if err != nil {
				return err
			}
			logger.Info("cli: ethash cache ready",
				zap.Uint64("epoch", ec.Epoch()),
				zap.String("size", bytefmt.ByteSize(ec.Size())),
				zap.String("dataset_size", bytefmt.ByteSize(ec.DatasetSize())),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
		usage, err := caches.DiskUsage()
		if err != nil {
			return err
		}
		logger.Info("cli: ethash caches on disk", zap.String("dir", caches.Dir()), zap.String("usage", bytefmt.ByteSize(usage)))
		fmt.Println(caches.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gencacheCmd)
	gencacheCmd.Flags().Uint64Var(&gencacheHeight, "height", 0, "block height of the first epoch to generate")
	gencacheCmd.Flags().Uint64Var(&gencacheEpochs, "epochs", 1, "number of consecutive epochs to generate")
}
