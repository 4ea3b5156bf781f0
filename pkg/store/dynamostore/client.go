// Package dynamostore implements store.Store on a single DynamoDB table keyed
// by (itemId, belongsTo) with a belongsTo→itemId index and a direct-access
// index for tickets.
//
// Use New to create a Client, Connect to build the DynamoDB client and Init to
// verify the table before serving traffic.
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"math"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client is a DynamoDB backed store.Store.
type Client struct {
	client    API
	tableName string
	awsCfg    *aws.Config
	opts      *Options
}

var _ store.Store = (*Client)(nil)

// New creates a Client for tableName. Call Connect before use.
func New(awsCfg *aws.Config, tableName string, opts ...Option) *Client {
	options := newOptions()
	for _, o := range opts {
		o(options)
	}

	return &Client{
		awsCfg:    awsCfg,
		tableName: tableName,
		opts:      options,
	}
}

// Connect builds the DynamoDB client, unless one was injected with WithAPI.
// It must complete before the Client is used concurrently.
func (c *Client) Connect() error {
	if c.tableName == "" {
		return errors.New("table name cannot be empty")
	}
	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid dynamostore options: %w", err)
	}

	if c.opts.api != nil {
		c.client = c.opts.api
		return nil
	}
	if c.awsCfg == nil {
		return errors.New("aws config cannot be nil")
	}
	c.client = dynamodb.NewFromConfig(*c.awsCfg)
	return nil
}

// Init checks that the table exists with the (itemId, belongsTo) primary key
// and both secondary indexes.
func (c *Client) Init(ctx context.Context) error {
	out, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return fmt.Errorf("table %s does not exist", c.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", c.tableName, err)
	}

	table := out.Table
	if table == nil {
		return fmt.Errorf("table %s has no description", c.tableName)
	}
	if err := verifyKeySchema("table "+c.tableName, table.KeySchema, store.ItemIDAttr, store.BelongsToAttr); err != nil {
		return err
	}
	if table.TableStatus != types.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", c.tableName, table.TableStatus)
	}

	if err := verifyIndex(table, c.opts.belongsToIndex, store.BelongsToAttr, store.ItemIDAttr); err != nil {
		return err
	}
	if err := verifyIndex(table, c.opts.directAccessIndex, store.DirectAccessAttr, ""); err != nil {
		return err
	}

	c.opts.logger.Info("Table verified",
		zap.String("table", c.tableName),
		zap.String("belongsToIndex", c.opts.belongsToIndex),
		zap.String("directAccessIndex", c.opts.directAccessIndex))
	return nil
}

func (c *Client) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := store.ValidateKey("Get", key); err != nil {
		return nil, err
	}

	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            store.KeyItem(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("Get", err)
	}
	if len(out.Item) == 0 {
		return nil, apperrors.NotFound("Get", key.ItemID+" / "+key.BelongsTo)
	}
	return out.Item, nil
}

func (c *Client) PutIfAbsent(ctx context.Context, item store.Item) error {
	if err := store.ValidateItem("PutIfAbsent", item); err != nil {
		return err
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(store.ItemIDAttr))).
		Build()
	if err != nil {
		return apperrors.Invalid("PutIfAbsent", err.Error())
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(c.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		c.opts.logger.Debug("Conditional put rejected",
			zap.String("itemId", store.Attr(item, store.ItemIDAttr)),
			zap.Error(err))
		return classify("PutIfAbsent", err)
	}
	return nil
}

func (c *Client) PutOverwrite(ctx context.Context, item store.Item) error {
	if err := store.ValidateItem("PutOverwrite", item); err != nil {
		return err
	}

	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return classify("PutOverwrite", err)
	}
	return nil
}

// UpdateAttributes issues one SET per attribute, conditioned on the item
// existing. The failed condition is reported as NotFound.
func (c *Client) UpdateAttributes(ctx context.Context, key store.Key, attrs map[string]any) (store.Item, error) {
	return c.update(ctx, "UpdateAttributes", key, attrs, nil)
}

// UpdateAttributesIf adds an equality check per expected attribute to the
// existence condition. DynamoDB returns the current item on a failed check,
// which tells a missing item apart from a stale expectation.
func (c *Client) UpdateAttributesIf(ctx context.Context, key store.Key, attrs, expect map[string]any) (store.Item, error) {
	return c.update(ctx, "UpdateAttributesIf", key, attrs, expect)
}

func (c *Client) update(ctx context.Context, op string, key store.Key, attrs, expect map[string]any) (store.Item, error) {
	if err := store.ValidateUpdate(op, key, attrs); err != nil {
		return nil, err
	}
	if err := store.ValidateExpect(op, expect); err != nil {
		return nil, err
	}

	var update expression.UpdateBuilder
	for _, name := range store.SortedNames(attrs) {
		update = update.Set(expression.Name(name), expression.Value(attrs[name]))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(existsCondition(expect)).
		Build()
	if err != nil {
		return nil, apperrors.Invalid(op, err.Error())
	}

	out, err := c.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(c.tableName),
		Key:                                 store.KeyItem(key),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var conditional *types.ConditionalCheckFailedException
		if errors.As(err, &conditional) && len(conditional.Item) > 0 {
			return nil, apperrors.ConditionFailed(op, "stored item does not match expectation", err)
		}
		classified := classify(op, err)
		if apperrors.IsConditionFailed(classified) {
			return nil, apperrors.NotFound(op, key.ItemID+" / "+key.BelongsTo)
		}
		return nil, classified
	}
	return out.Attributes, nil
}

// existsCondition requires the item to exist and to carry every value in
// expect.
func existsCondition(expect map[string]any) expression.ConditionBuilder {
	cond := expression.AttributeExists(expression.Name(store.ItemIDAttr))
	for _, name := range store.SortedNames(expect) {
		cond = cond.And(expression.Name(name).Equal(expression.Value(expect[name])))
	}
	return cond
}

func (c *Client) Delete(ctx context.Context, key store.Key) error {
	if err := store.ValidateKey("Delete", key); err != nil {
		return err
	}

	_, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       store.KeyItem(key),
	})
	if err != nil {
		return classify("Delete", err)
	}
	return nil
}

// BatchGet splits keys into chunks of 100 and fetches them concurrently.
// Unprocessed keys are requested again up to the configured retry count;
// keys still unprocessed after that fail the whole call.
func (c *Client) BatchGet(ctx context.Context, keys []store.Key) ([]store.Item, error) {
	unique := make([]store.Key, 0, len(keys))
	seen := make(map[store.Key]struct{}, len(keys))
	for _, k := range keys {
		if err := store.ValidateKey("BatchGet", k); err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var chunks [][]store.Key
	for start := 0; start < len(unique); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(unique))
		chunks = append(chunks, unique[start:end])
	}

	results := make([][]store.Item, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchGetConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			items, err := c.batchGetChunk(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []store.Item
	for _, r := range results {
		items = append(items, r...)
	}
	return items, nil
}

func (c *Client) batchGetChunk(ctx context.Context, keys []store.Key) ([]store.Item, error) {
	request := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		request = append(request, store.KeyItem(k))
	}

	pending := map[string]types.KeysAndAttributes{
		c.tableName: {Keys: request, ConsistentRead: aws.Bool(true)},
	}

	var items []store.Item
	for attempt := 0; ; attempt++ {
		out, err := c.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
		if err != nil {
			return nil, classify("BatchGet", err)
		}
		items = append(items, out.Responses[c.tableName]...)

		unprocessed, ok := out.UnprocessedKeys[c.tableName]
		if !ok || len(unprocessed.Keys) == 0 {
			return items, nil
		}
		if attempt >= c.opts.batchGetRetries {
			return nil, apperrors.BackendUnavailable("BatchGet",
				fmt.Errorf("%d keys still unprocessed after %d retries", len(unprocessed.Keys), attempt))
		}

		c.opts.logger.Debug("Retrying unprocessed batch keys",
			zap.Int("keys", len(unprocessed.Keys)),
			zap.Int("attempt", attempt+1))
		pending = map[string]types.KeysAndAttributes{c.tableName: unprocessed}
	}
}

// QueryChildren queries the belongsTo index. With Limit > 0 it returns at most
// Limit items and a cursor when DynamoDB reports more; otherwise it follows
// LastEvaluatedKey until the partition is exhausted.
func (c *Client) QueryChildren(ctx context.Context, q store.Query) (store.Page, error) {
	if q.Parent == "" {
		return store.Page{}, apperrors.Invalid("QueryChildren", "parent cannot be empty")
	}
	after, err := store.DecodeCursor(q.Cursor)
	if err != nil {
		return store.Page{}, err
	}

	keyCond := expression.Key(store.BelongsToAttr).Equal(expression.Value(q.Parent))
	if q.Prefix != "" {
		keyCond = keyCond.And(expression.Key(store.ItemIDAttr).BeginsWith(q.Prefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return store.Page{}, apperrors.Invalid("QueryChildren", err.Error())
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(c.opts.belongsToIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if after.ItemID != "" {
		input.ExclusiveStartKey = store.KeyItem(after)
	}

	var items []store.Item
	for {
		if q.Limit > 0 {
			input.Limit = aws.Int32(int32(min(q.Limit-len(items), math.MaxInt32)))
		}

		out, err := c.client.Query(ctx, input)
		if err != nil {
			return store.Page{}, classify("QueryChildren", err)
		}
		items = append(items, out.Items...)

		if len(out.LastEvaluatedKey) == 0 {
			return store.Page{Items: items}, nil
		}
		if q.Limit > 0 && len(items) >= q.Limit {
			return store.Page{
				Items:      items,
				NextCursor: store.EncodeCursor(store.KeyOf(items[len(items)-1])),
			}, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Client) GetByDirectAccessKey(ctx context.Context, directAccessKey string) (store.Item, error) {
	if directAccessKey == "" {
		return nil, apperrors.Invalid("GetByDirectAccessKey", "direct access key cannot be empty")
	}

	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(store.DirectAccessAttr).Equal(expression.Value(directAccessKey))).
		Build()
	if err != nil {
		return nil, apperrors.Invalid("GetByDirectAccessKey", err.Error())
	}

	out, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(c.opts.directAccessIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, classify("GetByDirectAccessKey", err)
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NotFound("GetByDirectAccessKey", directAccessKey)
	}
	if len(out.Items) > 1 {
		c.opts.logger.Warn("Direct access key matches more than one item",
			zap.String("directAccessTicketId", directAccessKey),
			zap.Int("count", len(out.Items)))
	}
	return out.Items[0], nil
}

func (c *Client) TransactWrite(ctx context.Context, ops []store.Op) error {
	if err := store.ValidateOps("TransactWrite", ops); err != nil {
		return err
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		item, err := c.transactItem(op)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := c.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		c.opts.logger.Debug("Transaction rejected", zap.Int("ops", len(ops)), zap.Error(err))
		return classify("TransactWrite", err)
	}
	return nil
}

func (c *Client) transactItem(op store.Op) (types.TransactWriteItem, error) {
	if op.Put != nil {
		put := &types.Put{
			TableName: aws.String(c.tableName),
			Item:      op.Put.Item,
		}
		if op.Put.RequireAbsent {
			expr, err := expression.NewBuilder().
				WithCondition(expression.AttributeNotExists(expression.Name(store.ItemIDAttr))).
				Build()
			if err != nil {
				return types.TransactWriteItem{}, apperrors.Invalid("TransactWrite", err.Error())
			}
			put.ConditionExpression = expr.Condition()
			put.ExpressionAttributeNames = expr.Names()
		}
		return types.TransactWriteItem{Put: put}, nil
	}

	del := &types.Delete{
		TableName: aws.String(c.tableName),
		Key:       store.KeyItem(op.Delete.Key),
	}
	if op.Delete.RequireExists || len(op.Delete.Expect) > 0 {
		expr, err := expression.NewBuilder().
			WithCondition(existsCondition(op.Delete.Expect)).
			Build()
		if err != nil {
			return types.TransactWriteItem{}, apperrors.Invalid("TransactWrite", err.Error())
		}
		del.ConditionExpression = expr.Condition()
		del.ExpressionAttributeNames = expr.Names()
		del.ExpressionAttributeValues = expr.Values()
	}
	return types.TransactWriteItem{Delete: del}, nil
}

func verifyKeySchema(what string, schema []types.KeySchemaElement, hashKey, rangeKey string) error {
	var hash, rng string
	for _, el := range schema {
		switch el.KeyType {
		case types.KeyTypeHash:
			hash = aws.ToString(el.AttributeName)
		case types.KeyTypeRange:
			rng = aws.ToString(el.AttributeName)
		}
	}

	if hash != hashKey {
		return fmt.Errorf("%s has partition key %q, expected %q", what, hash, hashKey)
	}
	if rng != rangeKey {
		return fmt.Errorf("%s has sort key %q, expected %q", what, rng, rangeKey)
	}
	return nil
}

func verifyIndex(table *types.TableDescription, indexName, hashKey, rangeKey string) error {
	for _, index := range table.GlobalSecondaryIndexes {
		if aws.ToString(index.IndexName) != indexName {
			continue
		}
		if err := verifyKeySchema("global secondary index "+indexName, index.KeySchema, hashKey, rangeKey); err != nil {
			return err
		}
		if index.IndexStatus != "" && index.IndexStatus != types.IndexStatusActive {
			return fmt.Errorf("global secondary index %s is not active (status: %s)", indexName, index.IndexStatus)
		}
		if index.Projection == nil || index.Projection.ProjectionType != types.ProjectionTypeAll {
			return fmt.Errorf("global secondary index %s must project all attributes", indexName)
		}
		return nil
	}
	return fmt.Errorf("global secondary index %s not found", indexName)
}
