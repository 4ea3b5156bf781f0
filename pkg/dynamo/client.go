// Package dynamo holds the table tooling shared by the operator CLI and the
// integration tests: AWS configuration, table creation from the CloudFormation
// template and a DynamoDB Local harness.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// LocalEndpoint is where DynamoDB Local listens by default.
const LocalEndpoint = "http://localhost:8000"

// TableAPI is the part of the DynamoDB client needed to manage tables.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// LoadConfig loads the default AWS configuration for region. A non-empty
// endpoint points every client at it and, since DynamoDB Local ignores them,
// uses static dummy credentials.
func LoadConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if endpoint != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "local")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}

// CreateTable creates the table and waits until it is active.
func CreateTable(ctx context.Context, api TableAPI, input *dynamodb.CreateTableInput, maxWait time.Duration) error {
	if _, err := api.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", aws.ToString(input.TableName), err)
	}

	waiter := dynamodb.NewTableExistsWaiter(api)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: input.TableName}, maxWait)
	if err != nil {
		return fmt.Errorf("table %s did not become active: %w", aws.ToString(input.TableName), err)
	}
	return nil
}

// DeleteTable drops the table.
func DeleteTable(ctx context.Context, api TableAPI, tableName string) error {
	_, err := api.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(tableName)})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}
	return nil
}
