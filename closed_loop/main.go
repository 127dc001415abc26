package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"mpc-drive-core/utils"
)

func main() {
	var (
		scenPath = flag.String("scenario", "closed_loop/scenarios/oval_72mph.json", "Scenario JSON file")
		csvPath  = flag.String("csv", "closed_loop_run.csv", "Per-cycle CSV log output (empty to disable)")
		plotPath = flag.String("plot", "closed_loop_run.png", "Track/path plot output (empty to disable)")
		iface    = flag.String("iface", "", "Override SocketCAN interface from the scenario")
		logPath  = flag.String("logfile", "closed_loop.log", "Log file path")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := utils.NewFileLogger(*logPath, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open log file: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		ScenarioPath: *scenPath,
		CSVPath:      *csvPath,
		PlotPath:     *plotPath,
		Interface:    *iface,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
