// Command boardctl manages and inspects the taskboard table.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"taskboard-core/pkg/config"
	"taskboard-core/pkg/dynamo"
	"taskboard-core/pkg/logging"
	"taskboard-core/pkg/store"
	"taskboard-core/pkg/store/dynamostore"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// env is set up by the Before hook for every command.
var env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// openStore connects to the configured table. Tests replace it.
var openStore = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	client, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dynamostore.Client, error) {
	awsCfg, err := dynamo.LoadConfig(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
	if err != nil {
		return nil, err
	}
	client := dynamostore.New(&awsCfg, cfg.TableName, append(cfg.StoreOptions(), dynamostore.WithLogger(logger))...)
	if err := client.Connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                 "boardctl",
		Usage:                "operate the taskboard table",
		Version:              commitHash(),
		EnableBashCompletion: true,
		Flags:                globalFlags,
		Before:               setup,
		After:                teardown,
		Commands: []*cli.Command{
			createTableCommand,
			verifyTableCommand,
			bootstrapCommand,
			getCommand,
			childrenCommand,
		},
	}
}

// setup validates only what reaching the table needs. boardctl never
// verifies tokens, so production runs need no JWT key.
func setup(c *cli.Context) error {
	cfg := configFromFlags()
	if err := cfg.ValidateStore(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	env.cfg = cfg
	env.logger = logger.With(zap.String("table", cfg.TableName))
	return nil
}

func teardown(c *cli.Context) error {
	if env.logger != nil {
		_ = env.logger.Sync()
	}
	return nil
}

func commitHash() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
		return info.Main.Version
	}
	return "unknown"
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
