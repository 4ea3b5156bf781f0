package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func localDynamoDB(t *testing.T) *dynamodb.Client {
	cfg, err := LoadConfig(context.TODO(), "local", LocalEndpoint)
	if err != nil {
		t.Fatal("could not setup db connection", err)
	}

	db := dynamodb.NewFromConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err = db.ListTables(ctx, nil)
	if err != nil {
		t.Fatal("make sure DynamoDB local runs on port :8000", err)
	}
	return db
}

// SetupTable creates table defined in the CloudFormation template file under `path`.
// It returns connection to the DynamoDB and cleanup function, that needs to be run after tests.
func SetupTable(t *testing.T, ctx context.Context, tableName, path string) (*dynamodb.Client, func()) {
	db := localDynamoDB(t)

	input, err := TableFromTemplate(path, tableName)
	if err != nil {
		t.Fatal(err)
	}
	if err := CreateTable(ctx, db, &input, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	return db, func() {
		_ = DeleteTable(ctx, db, tableName)
	}
}
