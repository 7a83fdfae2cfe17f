// Command qeval-run is a thin demo driver: it builds a tiny in-memory
// catalog, runs one hard-coded plan against it, and prints the resulting
// checksums. Loading relations from disk and parsing SQL into a plan are
// both left to callers of pkg/exec.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/matrixorigin/qeval/pkg/config"
	"github.com/matrixorigin/qeval/pkg/exec"
	"github.com/matrixorigin/qeval/pkg/logutil"
	"github.com/matrixorigin/qeval/pkg/plan"
	"github.com/matrixorigin/qeval/pkg/relation"
	"github.com/matrixorigin/qeval/pkg/xpool"
)

var (
	configFile = flag.String("cfg", "", "toml configuration file (optional; defaults are used otherwise)")
	version    = flag.Bool("version", false, "print version information")
)

const engineVersion = "qeval 0.1.0"

func main() {
	flag.Parse()
	if *version {
		fmt.Println(engineVersion)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.LogFile != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logutil.ConfigureFileSink(cfg.LogFile, level, 64, 3, 7)
	}

	sums, err := runDemo(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i, s := range sums {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(s)
	}
	fmt.Println()
}

// runDemo runs a two-table equi-join checksum: L = {(k=1,x=100),
// (k=2,x=200),(k=2,x=300)}, R = {(k=2,y=7),(k=3,y=9)},
// Checksum(Join(L,R, L.k=R.k), [L.x, R.y]).
func runDemo(cfg config.Config) ([]uint64, error) {
	left := relation.New(0, [][]uint64{
		{1, 2, 2}, // k
		{100, 200, 300}, // x
	})
	right := relation.New(1, [][]uint64{
		{2, 3}, // k
		{7, 9}, // y
	})
	catalog := relation.NewCatalog(left, right)

	const bindingL, bindingR = 0, 1
	kL := plan.SelectInfo{RelationID: 0, Binding: bindingL, ColumnIndex: 0}
	xL := plan.SelectInfo{RelationID: 0, Binding: bindingL, ColumnIndex: 1}
	kR := plan.SelectInfo{RelationID: 1, Binding: bindingR, ColumnIndex: 0}
	yR := plan.SelectInfo{RelationID: 1, Binding: bindingR, ColumnIndex: 1}

	root := plan.Checksum(
		plan.Join(
			plan.Scan(0, bindingL),
			plan.Scan(1, bindingR),
			plan.PredicateInfo{Left: kL, Right: kR},
		),
		[]plan.SelectInfo{xL, yR},
	)

	executor := exec.New(catalog, xpool.Config{
		WorkerCount:          cfg.WorkerCount,
		SmallInputThresholdK: cfg.SmallInputThresholdK,
		HashReserveFactor:    cfg.HashReserveFactor,
	})
	return executor.Run(root)
}
