// Command storecmd publishes e-commerce plugin releases to the plugin store:
// it uploads versioned binaries, attaches release notes, declares platform
// compatibility and drives the binary review process.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/shopkit/storecmd/client"
	"github.com/shopkit/storecmd/internal/config"
	"github.com/shopkit/storecmd/internal/status"
	"github.com/shopkit/storecmd/store"
)

const usage = `Usage: storecmd <command> [options]

Commands:
  upload         Upload a plugin zip file and submit it for review
  list           List all registered plugins
  description    Update the plugin description of a locale
  compatibility  Change the minimum platform version of all plugin binaries

Run 'storecmd <command> -h' for command options.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "upload":
		err = runUpload(ctx, os.Args[2:])
	case "list":
		err = runList(ctx, os.Args[2:])
	case "description":
		err = runDescription(ctx, os.Args[2:])
	case "compatibility":
		err = runCompatibility(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newCommander wires config, logger, client and commander for one command
// invocation.
func newCommander(configPath string, verbose bool) (*store.Commander, *config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	username, password, err := cfg.Credentials()
	if err != nil {
		return nil, nil, nil, err
	}

	logCfg := zap.NewDevelopmentConfig()
	if !verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := logCfg.Build()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building logger: %w", err)
	}

	observer := status.Observer(log)
	cl := client.New(cfg.BaseURL, username, password,
		client.WithObserver(observer),
		client.WithCircuitBreaker(),
	)
	commander := store.New(cl, store.WithObserver(observer))

	return commander, cfg, log, nil
}
