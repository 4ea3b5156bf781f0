package main

import (
	"taskboard-core/pkg/config"
	"taskboard-core/pkg/store/dynamostore"

	"github.com/urfave/cli/v2"
)

var opts struct {
	Environment       string
	LogLevel          string
	Region            string
	Endpoint          string
	Table             string
	BelongsToIndex    string
	DirectAccessIndex string
	BatchGetRetries   int
	Metrics           bool
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "env",
		Usage:       "environment (development, staging, production)",
		Value:       "development",
		EnvVars:     []string{"ENVIRONMENT"},
		Destination: &opts.Environment,
	},
	&cli.StringFlag{
		Name:        "log-level",
		Usage:       "minimum log level",
		Value:       "info",
		EnvVars:     []string{"LOG_LEVEL"},
		Destination: &opts.LogLevel,
	},
	&cli.StringFlag{
		Name:        "region",
		Usage:       "AWS region of the table",
		Value:       config.DefaultRegion,
		EnvVars:     []string{"AWS_REGION"},
		Destination: &opts.Region,
	},
	&cli.StringFlag{
		Name:        "endpoint",
		Usage:       "DynamoDB endpoint override, e.g. http://localhost:8000 for DynamoDB Local",
		EnvVars:     []string{"DYNAMODB_ENDPOINT"},
		Destination: &opts.Endpoint,
	},
	&cli.StringFlag{
		Name:        "table",
		Usage:       "name of the table",
		Value:       config.DefaultTableName,
		EnvVars:     []string{"TABLE_NAME"},
		Destination: &opts.Table,
	},
	&cli.StringFlag{
		Name:        "belongs-to-index",
		Usage:       "name of the index listing the children of a parent",
		Value:       dynamostore.DefaultBelongsToIndex,
		EnvVars:     []string{"BELONGS_TO_INDEX"},
		Destination: &opts.BelongsToIndex,
	},
	&cli.StringFlag{
		Name:        "direct-access-index",
		Usage:       "name of the index resolving tickets by direct-access key",
		Value:       dynamostore.DefaultDirectAccessIndex,
		EnvVars:     []string{"DIRECT_ACCESS_INDEX"},
		Destination: &opts.DirectAccessIndex,
	},
	&cli.IntFlag{
		Name:        "batch-get-retries",
		Usage:       "retries for unprocessed batch get keys",
		Value:       3,
		EnvVars:     []string{"BATCH_GET_RETRIES"},
		Destination: &opts.BatchGetRetries,
	},
	&cli.BoolFlag{
		Name:        "metrics",
		Usage:       "register write retry metrics with the default Prometheus registry",
		EnvVars:     []string{"ENABLE_METRICS"},
		Destination: &opts.Metrics,
	},
}

func configFromFlags() *config.Config {
	return &config.Config{
		Environment:       opts.Environment,
		LogLevel:          opts.LogLevel,
		AWSRegion:         opts.Region,
		DynamoDBEndpoint:  opts.Endpoint,
		TableName:         opts.Table,
		BelongsToIndex:    opts.BelongsToIndex,
		DirectAccessIndex: opts.DirectAccessIndex,
		BatchGetRetries:   opts.BatchGetRetries,
		MetricsEnabled:    opts.Metrics,
	}
}
