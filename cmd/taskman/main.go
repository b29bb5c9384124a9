// Command taskman serves a task tracker over the Model Context Protocol.
// It speaks newline-delimited JSON-RPC 2.0 on stdin/stdout, so all
// diagnostics go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vinayprograms/taskman/config"
	"github.com/vinayprograms/taskman/logging"
	"github.com/vinayprograms/taskman/mcp"
	"github.com/vinayprograms/taskman/search"
	"github.com/vinayprograms/taskman/store"
	"github.com/vinayprograms/taskman/tools"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	dataFile := flag.String("data", "", "path to the tasks JSON file (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("taskman %s\n", version)
		return
	}

	if err := run(*configPath, *dataFile, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "taskman: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, dataFile, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log := logging.New()
	log.SetLevel(logging.ParseLevel(cfg.LogLevel))

	st := store.Open(cfg.DataFile, log.WithComponent("store"))

	var ix *search.Index
	if cfg.SearchEnabled {
		if cfg.IndexDir != "" {
			ix, err = search.Open(cfg.IndexDir)
		} else {
			ix, err = search.OpenMemOnly()
		}
		if err != nil {
			// The tracker works without search; degrade instead of failing.
			log.Warn("search_disabled", map[string]interface{}{
				"error": err.Error(),
			})
			ix = nil
		}
	}
	if ix != nil {
		defer ix.Close()
		if err := ix.Rebuild(st.Snapshot()); err != nil {
			log.Warn("index_rebuild_failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	registry, err := tools.NewRegistry(st, ix, log.WithComponent("tools"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(mcp.ServerInfo{Name: "taskman", Version: version},
		registry, log.WithComponent("mcp"))
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
