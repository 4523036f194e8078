package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/sirgallo/limn"
)


//============================================= limnbench CLI


// defaultBenchDir is where bench writes its on-disk index and any scratch
//	data, under the current working directory.
const defaultBenchDir = "./limnbench-data"

func main() {
	app := &cli.App{
		Name:        "limnbench",
		Usage:       "build and query limn hybrid learned-index stores from the command line",
		Description: "benchmark harness for the limn hybrid learned-index key-value store",
		Commands: []*cli.Command{
			newCleanCmd(),
			newBenchCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "limnbench:", err)
		os.Exit(1)
	}
}

func newCleanCmd() *cli.Command {
	return &cli.Command{
		Name:      "clean",
		Usage:     "remove bench artifacts",
		ArgsUsage: "{build|data|logs|all}",
		Action: func(c *cli.Context) error {
			target := c.Args().First()
			if target == "" { target = "all" }

			switch target {
				case "build", "data", "all":
					return os.RemoveAll(defaultBenchDir)
				case "logs":
					return os.RemoveAll(filepath.Join(defaultBenchDir, "logs"))
				default:
					return fmt.Errorf("unknown clean target %q", target)
			}
		},
	}
}

func newBenchCmd() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "build an index over synthetic data and report lookup throughput",
		Flags: []cli.Flag{
			&cli.StringFlag{ Name: "key-type", Value: "u64", Usage: "key type: u32, i32, u64, i64" },
			&cli.IntFlag{ Name: "value-size", Value: 8, Usage: "value size in bytes: 8, 16, 32, or 64" },
			&cli.IntFlag{ Name: "size", Value: 1_000_000, Usage: "number of entries to generate" },
			&cli.StringFlag{ Name: "layout", Value: "btree_top, btree(32), pgm(8)", Usage: "layout expression, top layer first" },
			&cli.BoolFlag{ Name: "on-disk", Usage: "build a memory-mapped, file-backed index instead of an in-memory one" },
			&cli.IntFlag{ Name: "threshold", Value: 1, Usage: "persistence threshold: layers below it are file-backed (on-disk builds only)" },
			&cli.IntFlag{ Name: "queries", Value: 100_000, Usage: "number of random lookups to time" },
		},
		Action: runBench,
	}
}

func runBench(c *cli.Context) error {
	switch strings.ToLower(c.String("key-type")) {
		case "u32":
			return benchWithKey[uint32](c)
		case "i32":
			return benchWithKey[int32](c)
		case "u64":
			return benchWithKey[uint64](c)
		case "i64":
			return benchWithKey[int64](c)
		case "u128", "i128":
			return fmt.Errorf("key type %q is unsupported: Go has no native 128-bit integer", c.String("key-type"))
		default:
			return fmt.Errorf("unknown key type %q", c.String("key-type"))
	}
}

func benchWithKey[K limn.Key](c *cli.Context) error {
	switch c.Int("value-size") {
		case 8:
			return benchRun[K, [8]byte](c)
		case 16:
			return benchRun[K, [16]byte](c)
		case 32:
			return benchRun[K, [32]byte](c)
		case 64:
			return benchRun[K, [64]byte](c)
		default:
			return fmt.Errorf("unsupported value size %d: choose 8, 16, 32, or 64", c.Int("value-size"))
	}
}

func benchRun[K limn.Key, V any](c *cli.Context) error {
	size := c.Int("size")
	layout := c.String("layout")
	onDisk := c.Bool("on-disk")
	threshold := c.Int("threshold")
	queries := c.Int("queries")

	fmt.Printf("generating %s sorted keys...\n", humanize.Comma(int64(size)))

	keys := make([]K, size)
	values := make([]V, size)

	bar := progressbar.Default(int64(size), "generating")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var next K
	for i := 0; i < size; i++ {
		next += K(rng.Intn(4) + 1)
		keys[i] = next

		bar.Add(1)
	}

	entries := limn.NewSliceEntryIter[K, V](keys, values)

	var idx *limn.Index[K, V]
	var buildErr error

	start := time.Now()

	if onDisk {
		idx, buildErr = limn.BuildOnDisk[K, V](entries, layout, defaultBenchDir, threshold)
	} else {
		idx, buildErr = limn.BuildInMemory[K, V](entries, layout)
	}

	if buildErr != nil { return buildErr }
	defer idx.Close()

	buildElapsed := time.Since(start)
	fmt.Printf("built index over %s entries in %s\n", humanize.Comma(int64(idx.Len())), buildElapsed)

	hits := 0
	start = time.Now()

	for i := 0; i < queries; i++ {
		key := keys[rng.Intn(len(keys))]
		if _, ok := idx.Lookup(key); ok { hits++ }
	}

	queryElapsed := time.Since(start)
	perQuery := queryElapsed / time.Duration(queries)

	fmt.Printf(
		"%s lookups in %s (%s/op), %d hits\n",
		humanize.Comma(int64(queries)), queryElapsed, perQuery, hits,
	)

	return nil
}
