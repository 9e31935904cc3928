// Package main applies the embedded database migrations.
//
// Usage:
//
//	migrate [-config path] up | down | steps N | version | force V
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"pharmaerp/internal/infrastructure/config"
	"pharmaerp/internal/infrastructure/migration"
	"pharmaerp/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: ./config.toml or /etc/pharmaerp)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	m, err := migration.New(cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("failed to open migrator", "error", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warnw("close migrator", "error", err)
		}
	}()

	if err := run(m, args); err != nil {
		log.Errorw("migration failed", "command", args[0], "error", err)
		_ = m.Close()
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Warnw("read version", "error", err)
		return
	}
	log.Infow("migration done", "command", args[0], "version", version, "dirty", dirty)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", args[0], args[1])
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-config path] <command>

Commands:
  up          apply all pending migrations
  down        roll back all migrations
  steps N     apply (N > 0) or roll back (N < 0) N migrations
  version     print the current version
  force V     set the version without running migrations (clears dirty state)`)
}
