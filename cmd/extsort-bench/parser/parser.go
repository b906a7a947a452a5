// Package parser implements the extsort-bench command line, structured the
// way the original CLI wires up urfave/cli: a small "withSorter" helper
// that opens a scratch Sorter, runs the command body, and always closes it.
package parser

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/flowsort/extsort"
	"github.com/urfave/cli"
)

// uint32Codec is the fixed-width record codec used by the benchmark: four
// bytes, big-endian, no framing needed since every record is the same size.
type uint32Codec struct{}

func (uint32Codec) Size() int { return 4 }
func (uint32Codec) Encode(v uint32, dst []byte) {
	binary.BigEndian.PutUint32(dst, v)
}
func (uint32Codec) Decode(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

// uint32Comparator orders records numerically. Min() and Max() are the two
// ends of the uint32 range, and the random records handleRun pushes can
// take either value; the merge tracks each run's end by its element count,
// not by finding the Max() padding, so such records still come out sorted.
type uint32Comparator struct{}

func (uint32Comparator) Less(a, b uint32) bool { return a < b }
func (uint32Comparator) Min() uint32           { return 0 }
func (uint32Comparator) Max() uint32           { return ^uint32(0) }

func optionsFromCtx(ctx *cli.Context) extsort.Options {
	opts := extsort.DefaultOptions()
	opts.Dir = ctx.GlobalString("dir")
	opts.Disks = ctx.GlobalInt("disks")
	opts.BlockElems = ctx.GlobalInt("block-elems")
	opts.MemoryBlocks = ctx.GlobalInt("memory-blocks")
	opts.MaxMergeFanIn = ctx.GlobalInt("max-fan-in")
	return opts
}

func withSorter(fn func(ctx *cli.Context, s *extsort.Sorter[uint32]) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		dir := ctx.GlobalString("dir")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}

		s, err := extsort.Open[uint32](uint32Comparator{}, uint32Codec{}, optionsFromCtx(ctx))
		if err != nil {
			return err
		}

		if err := fn(ctx, s); err != nil {
			s.Close()
			return err
		}

		return s.Close()
	}
}

// Run runs the extsort-bench command line on args (args[0] should be
// os.Args[0]).
func Run(args []string) error {
	app := cli.NewApp()
	app.Name = "extsort-bench"
	app.Usage = "Benchmark the external-memory sorter on random uint32 records"
	app.Version = "0.0.1"

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "dir",
			Usage:  "Scratch directory for backing disk files",
			EnvVar: "EXTSORT_BENCH_DIR",
			Value:  cwd,
		},
		cli.IntFlag{
			Name:  "disks",
			Usage: "Number of backing disk files to stripe across",
			Value: 1,
		},
		cli.IntFlag{
			Name:  "block-elems",
			Usage: "Records per block",
			Value: 1024,
		},
		cli.IntFlag{
			Name:  "memory-blocks",
			Usage: "Run-formation memory budget in blocks (half of it is filled before spilling a run)",
			Value: 256,
		},
		cli.IntFlag{
			Name:  "max-fan-in",
			Usage: "Maximum runs merged together in one pass",
			Value: 64,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Generate N random records, sort them, and report throughput",
			Action: withSorter(handleRun),
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "n,count",
					Usage: "Number of records to generate",
					Value: 1_000_000,
				},
				cli.Int64Flag{
					Name:  "seed",
					Usage: "Random seed",
					Value: 1,
				},
				cli.BoolFlag{
					Name:  "verify",
					Usage: "Verify the output is sorted",
				},
			},
		},
	}

	return app.Run(args)
}

func handleRun(ctx *cli.Context, s *extsort.Sorter[uint32]) error {
	n := ctx.Int("count")
	rng := rand.New(rand.NewSource(ctx.Int64("seed")))

	pushStart := time.Now()
	for i := 0; i < n; i++ {
		if err := s.Push(rng.Uint32()); err != nil {
			return err
		}
	}
	pushElapsed := time.Since(pushStart)

	sortStart := time.Now()
	if err := s.Sort(); err != nil {
		return err
	}

	var count int64
	var prev uint32
	verify := ctx.Bool("verify")

	for !s.Empty() {
		v := s.Current()
		if verify && count > 0 && v < prev {
			return fmt.Errorf("output not sorted at position %d: %d < %d", count, v, prev)
		}
		prev = v
		count++

		if err := s.Advance(); err != nil {
			return err
		}
	}
	sortElapsed := time.Since(sortStart)

	fmt.Printf("pushed %d records in %s (%.0f records/sec)\n", n, pushElapsed, float64(n)/pushElapsed.Seconds())
	fmt.Printf("sorted+drained %d records in %s (%.0f records/sec)\n", count, sortElapsed, float64(count)/sortElapsed.Seconds())
	fmt.Printf("block size: %d records\n", s.OutputBlockSize())

	return nil
}
