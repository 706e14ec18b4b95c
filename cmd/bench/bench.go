package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/holiman/uint256"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/spacemeshos/powseal/cache"
	"github.com/spacemeshos/powseal/internal/hashimoto"
	"github.com/spacemeshos/powseal/proving"
	"github.com/spacemeshos/powseal/shared"
	"github.com/spacemeshos/powseal/verifying"
)

var preHash = shared.CalcHash([]byte("this is a block"))

func main() {
	testMode := flag.Bool("test", true, "use tiny test sized ethash caches")
	epochs := flag.Uint64("epochs", 2, "number of epochs to generate caches for")
	rounds := flag.Int("rounds", 1000, "verifications per case")
	quickDifficulty := flag.Uint64("quick-difficulty", 10_000, "difficulty of the quick seal cases")
	flag.Parse()

	if vm, err := mem.VirtualMemory(); err == nil {
		log.Printf("bench: cpus: %d, memory: %v total, %v available",
			runtime.NumCPU(), bytefmt.ByteSize(vm.Total), bytefmt.ByteSize(vm.Available))
	}

	opts := []cache.OptionFunc{cache.WithoutSpaceCheck()}
	if *testMode {
		opts = append(opts, cache.WithTestMode())
	}
	caches, err := cache.New(opts...)
	if err != nil {
		log.Fatalln("bench: failed to create caches:", err)
	}
	defer caches.Close()

	data := make([][]string, 0)
	data = append(data, benchCaches(caches, *epochs)...)
	data = append(data, benchLight(caches, *rounds))
	data = append(data, benchQuick(uint256.NewInt(*quickDifficulty), *rounds))

	header := []string{"case", "size", "rounds", "total", "per-op"}
	report(caches.Dir(), header, data)
}

func benchCaches(caches *cache.Manager, epochs uint64) [][]string {
	data := make([][]string, 0, epochs)
	for epoch := uint64(0); epoch < epochs; epoch++ {
		t := time.Now()
		c, err := caches.Get(epoch * hashimoto.EpochLength)
		if err != nil {
			panic(err)
		}
		e := time.Since(t)
		data = append(data, row(fmt.Sprintf("cache epoch %d", epoch), bytefmt.ByteSize(c.Size()), 1, e))
	}
	return data
}

func benchLight(caches *cache.Manager, rounds int) []string {
	difficulty := uint256.NewInt(16)
	s, err := proving.SealLight(context.Background(), caches, 0, preHash, difficulty)
	if err != nil {
		panic(err)
	}
	v, err := verifying.NewLightVerifier(caches)
	if err != nil {
		panic(err)
	}

	t := time.Now()
	for i := 0; i < rounds; i++ {
		if err := v.VerifyLight(s.BlockHeight, s.PowHash, s.Nonce, s.MixDigest, difficulty); err != nil {
			panic(err)
		}
	}
	c, _ := caches.Get(0)
	return row("light verify", bytefmt.ByteSize(c.DatasetSize()), rounds, time.Since(t))
}

func benchQuick(difficulty *uint256.Int, rounds int) []string {
	s, err := proving.SearchQuick(context.Background(), difficulty, preHash)
	if err != nil {
		panic(err)
	}
	raw := s.Encode()

	t := time.Now()
	for i := 0; i < rounds; i++ {
		if err := verifying.VerifyQuick(preHash, raw, difficulty); err != nil {
			panic(err)
		}
	}
	return row("quick verify", bytefmt.ByteSize(uint64(len(raw))), rounds, time.Since(t))
}

func row(name, size string, rounds int, e time.Duration) []string {
	return []string{
		name,
		size,
		strconv.Itoa(rounds),
		e.Round(time.Microsecond).String(),
		(e / time.Duration(max(rounds, 1))).String(),
	}
}

func report(dir string, header []string, data [][]string) {
	fmt.Printf("\n\nBENCHMARKS: cachedir=%v\n", dir)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetBorder(true)
	table.AppendBulk(data)
	table.Render()
}
