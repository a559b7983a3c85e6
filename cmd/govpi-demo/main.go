// Command govpi-demo drives the engine against an in-memory simulator
// double (no cgo, no real simulator required), for smoke-testing the
// lifecycle and edge-callback chain end to end. Grounded on the
// teacher's cmd/ublk-mem/main.go (flag parsing, logging setup, signal
// handling around a CreateAndServe-style entry point).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/verilua-run/govpi"
	"github.com/verilua-run/govpi/internal/config"
	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/logging"
)

func main() {
	var (
		clockPeriod = flag.Int("period", 10, "native clock period in simulated steps")
		clockHigh   = flag.Int("high", 5, "native clock high time in simulated steps")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	sim := govpi.NewMockSimulator()
	sim.DeclareSignal("top.clk", 1)
	script := &govpi.MockScript{}

	engine, err := govpi.Initialize(govpi.Options{
		Simulator: sim,
		Script:    script,
		Config: config.EngineConfig{
			SuppressAtExitFinalize: true,
			IDPoolSize:             config.DefaultIDPoolSize,
		},
		EdgeOpts: edgecb.Options{Deferred: true, Merge: true, Chunk: true},
	})
	if err != nil {
		logging.Error("failed to initialize engine", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := engine.Finalize(); err != nil {
			logging.Error("finalize failed", "err", err)
		}
	}()

	tok, err := engine.LookupHandleStrict("top.clk")
	if err != nil {
		logging.Error("lookup failed", "err", err)
		os.Exit(1)
	}

	clock, err := engine.NewNativeClock(tok)
	if err != nil {
		logging.Error("native clock allocation failed", "err", err)
		os.Exit(1)
	}
	if err := engine.StartNativeClock(clock, *clockPeriod, *clockHigh, false); err != nil {
		logging.Error("native clock start failed", "err", err)
		os.Exit(1)
	}

	if err := engine.RegisterEdgeCallback(tok, edgecb.Posedge, 1, edgecb.OneShot); err != nil {
		logging.Error("registering posedge callback failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("govpi-demo: clock period=%d high=%d running against an in-memory simulator\n", *clockPeriod, *clockHigh)
	fmt.Println("Press Ctrl+C to finalize and exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
