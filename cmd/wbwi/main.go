package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"wbwi/internal/shell"
	"wbwi/pkg/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	configPath := flag.String("config", os.Getenv("WBWI_CONFIG"), "path to the YAML config")
	showStats := flag.Bool("stats", false, "print collected metrics on exit")
	flag.Parse()

	cfg, err := initConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(&cfg)

	// скрипт берём из файла, если он передан, иначе читаем stdin
	var in io.Reader = os.Stdin
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	sh, err := shell.New(cfg, os.Stdout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init shell: %v\n", err)
		os.Exit(1)
	}

	runErr := sh.Run(ctx, in)
	if *showStats {
		printStats(sh.Stats())
	}
	if runErr != nil {
		slog.Error("script finished with errors", "err", runErr)
		os.Exit(1)
	}
}

func printStats(m *metrics.Memory) {
	snap := m.Snapshot()
	for _, name := range m.Series() {
		fmt.Fprintf(os.Stderr, "%s %g\n", name, snap[name])
	}
}
