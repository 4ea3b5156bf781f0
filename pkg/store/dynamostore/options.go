package dynamostore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

const (
	// DefaultBelongsToIndex is the parent→child index: hash belongsTo, range itemId.
	DefaultBelongsToIndex = "belongsToIndex"

	// DefaultDirectAccessIndex is the ticket lookup index: hash directAccessTicketId.
	DefaultDirectAccessIndex = "directAccessIndex"

	// maxBatchGetKeys is the DynamoDB limit for one BatchGetItem request.
	maxBatchGetKeys = 100

	// maxBatchGetConcurrency bounds the number of chunks fetched at once.
	maxBatchGetConcurrency = 4
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Option configures a Client.
type Option func(*Options)

// Options holds the Client configuration. Use the With* functions to change
// the defaults.
type Options struct {
	api               API
	logger            *zap.Logger
	belongsToIndex    string
	directAccessIndex string
	batchGetRetries   int
}

func newOptions() *Options {
	return &Options{
		logger:            zap.NewNop(),
		belongsToIndex:    DefaultBelongsToIndex,
		directAccessIndex: DefaultDirectAccessIndex,
		batchGetRetries:   3,
	}
}

func (o *Options) validate() error {
	if o.logger == nil {
		return errors.New("logger cannot be nil")
	}
	if o.belongsToIndex == "" {
		return errors.New("belongsTo index name cannot be empty")
	}
	if o.directAccessIndex == "" {
		return errors.New("direct access index name cannot be empty")
	}
	if o.batchGetRetries < 0 {
		return errors.New("batch get retries cannot be negative")
	}
	return nil
}

// WithAPI sets the DynamoDB API implementation, for custom endpoints or mocks.
func WithAPI(api API) Option {
	return func(o *Options) {
		o.api = api
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithIndexNames overrides the names of the two secondary indexes.
func WithIndexNames(belongsTo, directAccess string) Option {
	return func(o *Options) {
		o.belongsToIndex = belongsTo
		o.directAccessIndex = directAccess
	}
}

// WithBatchGetRetries sets how many times unprocessed keys of a BatchGet are
// requested again. The default is 3.
func WithBatchGetRetries(n int) Option {
	return func(o *Options) {
		o.batchGetRetries = n
	}
}
