package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"
	"testing"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	getItemFunc            func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc            func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	updateItemFunc         func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	deleteItemFunc         func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	batchGetItemFunc       func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	queryFunc              func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	transactWriteItemsFunc func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	describeTableFunc      func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

func (m *mockAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockAPI) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockAPI) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if m.batchGetItemFunc != nil {
		return m.batchGetItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.BatchGetItemOutput{}, nil
}

func (m *mockAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, params, optFns...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if m.transactWriteItemsFunc != nil {
		return m.transactWriteItemsFunc(ctx, params, optFns...)
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (m *mockAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFunc != nil {
		return m.describeTableFunc(ctx, params, optFns...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func newTestClient(t *testing.T, api API, opts ...Option) *Client {
	t.Helper()
	c := New(nil, "TaskboardTable", append([]Option{WithAPI(api)}, opts...)...)
	require.NoError(t, c.Connect())
	return c
}

func item(itemID, belongsTo string) store.Item {
	return store.KeyItem(store.Key{ItemID: itemID, BelongsTo: belongsTo})
}

func TestConnect(t *testing.T) {
	t.Run("requires table name", func(t *testing.T) {
		assert.Error(t, New(nil, "", WithAPI(&mockAPI{})).Connect())
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		assert.Error(t, New(nil, "T", WithAPI(&mockAPI{}), WithIndexNames("", "x")).Connect())
		assert.Error(t, New(nil, "T", WithAPI(&mockAPI{}), WithBatchGetRetries(-1)).Connect())
	})

	t.Run("requires aws config without injected api", func(t *testing.T) {
		assert.Error(t, New(nil, "T").Connect())
	})
}

func validTable() *types.TableDescription {
	return &types.TableDescription{
		TableStatus: types.TableStatusActive,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("itemId"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("belongsTo"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
			{
				IndexName: aws.String(DefaultBelongsToIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("belongsTo"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("itemId"), KeyType: types.KeyTypeRange},
				},
				IndexStatus: types.IndexStatusActive,
				Projection:  &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName: aws.String(DefaultDirectAccessIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("directAccessTicketId"), KeyType: types.KeyTypeHash},
				},
				IndexStatus: types.IndexStatusActive,
				Projection:  &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

func TestInit(t *testing.T) {
	describe := func(table *types.TableDescription) *mockAPI {
		return &mockAPI{
			describeTableFunc: func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				return &dynamodb.DescribeTableOutput{Table: table}, nil
			},
		}
	}

	t.Run("valid table", func(t *testing.T) {
		c := newTestClient(t, describe(validTable()))
		assert.NoError(t, c.Init(context.Background()))
	})

	t.Run("missing table", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			describeTableFunc: func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				return nil, &types.ResourceNotFoundException{Message: aws.String("no table")}
			},
		})
		err := c.Init(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("wrong sort key", func(t *testing.T) {
		table := validTable()
		table.KeySchema[1].AttributeName = aws.String("sk")
		assert.Error(t, newTestClient(t, describe(table)).Init(context.Background()))
	})

	t.Run("missing direct access index", func(t *testing.T) {
		table := validTable()
		table.GlobalSecondaryIndexes = table.GlobalSecondaryIndexes[:1]
		err := newTestClient(t, describe(table)).Init(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), DefaultDirectAccessIndex)
	})

	t.Run("keys only projection", func(t *testing.T) {
		table := validTable()
		table.GlobalSecondaryIndexes[0].Projection.ProjectionType = types.ProjectionTypeKeysOnly
		assert.Error(t, newTestClient(t, describe(table)).Init(context.Background()))
	})

	t.Run("custom index names", func(t *testing.T) {
		table := validTable()
		table.GlobalSecondaryIndexes[0].IndexName = aws.String("parents")
		table.GlobalSecondaryIndexes[1].IndexName = aws.String("tickets")
		c := newTestClient(t, describe(table), WithIndexNames("parents", "tickets"))
		assert.NoError(t, c.Init(context.Background()))
	})
}

func TestGet(t *testing.T) {
	t.Run("missing item", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{})
		_, err := c.Get(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("found item", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				assert.Equal(t, "TaskboardTable", aws.ToString(params.TableName))
				assert.Equal(t, "a", store.Attr(params.Key, store.ItemIDAttr))
				return &dynamodb.GetItemOutput{Item: item("a", "p")}, nil
			},
		})
		got, err := c.Get(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"})
		require.NoError(t, err)
		assert.Equal(t, "p", store.Attr(got, store.BelongsToAttr))
	})

	t.Run("backend failure", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			getItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				return nil, errors.New("connection reset")
			},
		})
		_, err := c.Get(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"})
		assert.True(t, apperrors.IsBackendUnavailable(err))
	})
}

func TestPutIfAbsent(t *testing.T) {
	var input *dynamodb.PutItemInput
	c := newTestClient(t, &mockAPI{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			input = params
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		},
	})

	err := c.PutIfAbsent(context.Background(), item("a", "p"))
	assert.True(t, apperrors.IsConditionFailed(err))

	require.NotNil(t, input)
	assert.Equal(t, "attribute_not_exists (#0)", aws.ToString(input.ConditionExpression))
	assert.Equal(t, map[string]string{"#0": "itemId"}, input.ExpressionAttributeNames)
}

func TestUpdateAttributes(t *testing.T) {
	t.Run("returns new image", func(t *testing.T) {
		var input *dynamodb.UpdateItemInput
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				input = params
				out := item("a", "p")
				out["name"] = &types.AttributeValueMemberS{Value: "new"}
				return &dynamodb.UpdateItemOutput{Attributes: out}, nil
			},
		})

		got, err := c.UpdateAttributes(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"}, map[string]any{"name": "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", store.Attr(got, "name"))
		assert.Equal(t, types.ReturnValueAllNew, input.ReturnValues)
		assert.Contains(t, aws.ToString(input.ConditionExpression), "attribute_exists")
		assert.Contains(t, aws.ToString(input.UpdateExpression), "SET")
	})

	t.Run("missing item is not found", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
			},
		})
		_, err := c.UpdateAttributes(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"}, map[string]any{"name": "new"})
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("key attributes are rejected before the call", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				t.Fatal("UpdateItem must not be called")
				return nil, nil
			},
		})
		_, err := c.UpdateAttributes(context.Background(), store.Key{ItemID: "a", BelongsTo: "p"}, map[string]any{"belongsTo": "q"})
		assert.True(t, apperrors.IsInvalid(err))
	})
}

func TestUpdateAttributesIf(t *testing.T) {
	key := store.Key{ItemID: "OPENTICKET.t1", BelongsTo: "B"}

	t.Run("conditions on expected values", func(t *testing.T) {
		var input *dynamodb.UpdateItemInput
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				input = params
				return &dynamodb.UpdateItemOutput{Attributes: item("OPENTICKET.t1", "B")}, nil
			},
		})

		_, err := c.UpdateAttributesIf(context.Background(), key, map[string]any{"title": "new", "version": 4}, map[string]any{"version": 3})
		require.NoError(t, err)
		cond := aws.ToString(input.ConditionExpression)
		assert.Contains(t, cond, "attribute_exists")
		assert.Contains(t, cond, "AND")
		assert.Contains(t, slices.Collect(maps.Values(input.ExpressionAttributeNames)), "version")
		assert.Contains(t, slices.Collect(maps.Values(input.ExpressionAttributeValues)), types.AttributeValue(&types.AttributeValueMemberN{Value: "3"}))
		assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, input.ReturnValuesOnConditionCheckFailure)
	})

	t.Run("stale expectation is a failed condition", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{
					Message: aws.String("stale"),
					Item:    item("OPENTICKET.t1", "B"),
				}
			},
		})
		_, err := c.UpdateAttributesIf(context.Background(), key, map[string]any{"title": "new"}, map[string]any{"version": 3})
		assert.True(t, apperrors.IsConditionFailed(err))
	})

	t.Run("missing item is not found", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			updateItemFunc: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
			},
		})
		_, err := c.UpdateAttributesIf(context.Background(), key, map[string]any{"title": "new"}, map[string]any{"version": 3})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestBatchGet(t *testing.T) {
	t.Run("chunks at one hundred keys", func(t *testing.T) {
		var mu sync.Mutex
		var sizes []int
		c := newTestClient(t, &mockAPI{
			batchGetItemFunc: func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
				keys := params.RequestItems["TaskboardTable"].Keys
				mu.Lock()
				sizes = append(sizes, len(keys))
				mu.Unlock()
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{"TaskboardTable": keys},
				}, nil
			},
		})

		var keys []store.Key
		for i := 0; i < 250; i++ {
			keys = append(keys, store.Key{ItemID: fmt.Sprintf("USER.%d", i), BelongsTo: "COMPANY.c1"})
		}
		keys = append(keys, keys[0])

		items, err := c.BatchGet(context.Background(), keys)
		require.NoError(t, err)
		assert.Len(t, items, 250)
		assert.ElementsMatch(t, []int{100, 100, 50}, sizes)
	})

	t.Run("retries unprocessed keys", func(t *testing.T) {
		calls := 0
		c := newTestClient(t, &mockAPI{
			batchGetItemFunc: func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
				calls++
				keys := params.RequestItems["TaskboardTable"].Keys
				if calls == 1 {
					return &dynamodb.BatchGetItemOutput{
						Responses: map[string][]map[string]types.AttributeValue{"TaskboardTable": keys[:1]},
						UnprocessedKeys: map[string]types.KeysAndAttributes{
							"TaskboardTable": {Keys: keys[1:]},
						},
					}, nil
				}
				return &dynamodb.BatchGetItemOutput{
					Responses: map[string][]map[string]types.AttributeValue{"TaskboardTable": keys},
				}, nil
			},
		})

		items, err := c.BatchGet(context.Background(), []store.Key{
			{ItemID: "a", BelongsTo: "p"},
			{ItemID: "b", BelongsTo: "p"},
		})
		require.NoError(t, err)
		assert.Len(t, items, 2)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up on persistent unprocessed keys", func(t *testing.T) {
		calls := 0
		c := newTestClient(t, &mockAPI{
			batchGetItemFunc: func(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
				calls++
				return &dynamodb.BatchGetItemOutput{
					UnprocessedKeys: map[string]types.KeysAndAttributes{
						"TaskboardTable": params.RequestItems["TaskboardTable"],
					},
				}, nil
			},
		}, WithBatchGetRetries(2))

		_, err := c.BatchGet(context.Background(), []store.Key{{ItemID: "a", BelongsTo: "p"}})
		assert.True(t, apperrors.IsBackendUnavailable(err))
		assert.Equal(t, 3, calls)
	})
}

func TestQueryChildren(t *testing.T) {
	t.Run("follows last evaluated key without limit", func(t *testing.T) {
		calls := 0
		c := newTestClient(t, &mockAPI{
			queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				calls++
				assert.Equal(t, DefaultBelongsToIndex, aws.ToString(params.IndexName))
				assert.Nil(t, params.Limit)
				if calls == 1 {
					assert.Nil(t, params.ExclusiveStartKey)
					return &dynamodb.QueryOutput{
						Items:            []map[string]types.AttributeValue{item("X_TAG.A", "X_TAGS")},
						LastEvaluatedKey: item("X_TAG.A", "X_TAGS"),
					}, nil
				}
				assert.Equal(t, "X_TAG.A", store.Attr(params.ExclusiveStartKey, store.ItemIDAttr))
				return &dynamodb.QueryOutput{
					Items: []map[string]types.AttributeValue{item("X_TAG.B", "X_TAGS")},
				}, nil
			},
		})

		page, err := c.QueryChildren(context.Background(), store.Query{Parent: "X_TAGS", Prefix: "X_TAG."})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Empty(t, page.NextCursor)
		assert.Equal(t, 2, calls)
	})

	t.Run("limit yields cursor", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				assert.Equal(t, int32(1), aws.ToInt32(params.Limit))
				return &dynamodb.QueryOutput{
					Items:            []map[string]types.AttributeValue{item("X_TAG.A", "X_TAGS")},
					LastEvaluatedKey: item("X_TAG.A", "X_TAGS"),
				}, nil
			},
		})

		page, err := c.QueryChildren(context.Background(), store.Query{Parent: "X_TAGS", Prefix: "X_TAG.", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)

		k, err := store.DecodeCursor(page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, store.Key{ItemID: "X_TAG.A", BelongsTo: "X_TAGS"}, k)
	})

	t.Run("oversized limit is clamped", func(t *testing.T) {
		var limit int32
		c := newTestClient(t, &mockAPI{
			queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				limit = aws.ToInt32(params.Limit)
				return &dynamodb.QueryOutput{}, nil
			},
		})

		_, err := c.QueryChildren(context.Background(), store.Query{Parent: "P", Limit: math.MaxInt})
		require.NoError(t, err)
		assert.Equal(t, int32(math.MaxInt32), limit)
	})

	t.Run("cursor becomes exclusive start key", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				assert.Equal(t, "X_TAG.A", store.Attr(params.ExclusiveStartKey, store.ItemIDAttr))
				assert.Equal(t, "X_TAGS", store.Attr(params.ExclusiveStartKey, store.BelongsToAttr))
				return &dynamodb.QueryOutput{}, nil
			},
		})

		cursor := store.EncodeCursor(store.Key{ItemID: "X_TAG.A", BelongsTo: "X_TAGS"})
		_, err := c.QueryChildren(context.Background(), store.Query{Parent: "X_TAGS", Cursor: cursor, Limit: 5})
		require.NoError(t, err)
	})
}

func TestGetByDirectAccessKey(t *testing.T) {
	c := newTestClient(t, &mockAPI{
		queryFunc: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, DefaultDirectAccessIndex, aws.ToString(params.IndexName))
			return &dynamodb.QueryOutput{}, nil
		},
	})

	_, err := c.GetByDirectAccessKey(context.Background(), "B_TICKET.t1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransactWrite(t *testing.T) {
	t.Run("builds conditions", func(t *testing.T) {
		var input *dynamodb.TransactWriteItemsInput
		c := newTestClient(t, &mockAPI{
			transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
				input = params
				return &dynamodb.TransactWriteItemsOutput{}, nil
			},
		})

		err := c.TransactWrite(context.Background(), []store.Op{
			store.DeleteExistingOp(store.Key{ItemID: "a", BelongsTo: "p"}),
			store.PutNewOp(item("b", "q")),
			store.PutOp(item("c", "q")),
		})
		require.NoError(t, err)
		require.Len(t, input.TransactItems, 3)
		assert.Equal(t, "attribute_exists (#0)", aws.ToString(input.TransactItems[0].Delete.ConditionExpression))
		assert.Equal(t, "attribute_not_exists (#0)", aws.ToString(input.TransactItems[1].Put.ConditionExpression))
		assert.Nil(t, input.TransactItems[2].Put.ConditionExpression)
	})

	t.Run("delete carries expected values", func(t *testing.T) {
		var input *dynamodb.TransactWriteItemsInput
		c := newTestClient(t, &mockAPI{
			transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
				input = params
				return &dynamodb.TransactWriteItemsOutput{}, nil
			},
		})

		err := c.TransactWrite(context.Background(), []store.Op{
			store.DeleteIfMatchOp(store.Key{ItemID: "a", BelongsTo: "p"}, map[string]any{"version": 2}),
			store.PutNewOp(item("b", "p")),
		})
		require.NoError(t, err)
		del := input.TransactItems[0].Delete
		assert.Equal(t, "(attribute_exists (#0)) AND (#1 = :0)", aws.ToString(del.ConditionExpression))
		assert.Equal(t, map[string]string{"#0": "itemId", "#1": "version"}, del.ExpressionAttributeNames)
		assert.Equal(t, map[string]types.AttributeValue{":0": &types.AttributeValueMemberN{Value: "2"}}, del.ExpressionAttributeValues)
	})

	t.Run("cancelled on condition is aborted", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, &types.TransactionCanceledException{
					Message: aws.String("cancelled"),
					CancellationReasons: []types.CancellationReason{
						{Code: aws.String("None")},
						{Code: aws.String("ConditionalCheckFailed")},
					},
				}
			},
		})

		err := c.TransactWrite(context.Background(), []store.Op{
			store.PutOp(item("a", "p")),
			store.PutNewOp(item("b", "p")),
		})
		assert.True(t, apperrors.IsAborted(err))
		assert.Contains(t, err.Error(), "op 1 ConditionalCheckFailed")
	})

	t.Run("cancelled by throttling is not a conflict", func(t *testing.T) {
		c := newTestClient(t, &mockAPI{
			transactWriteItemsFunc: func(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
				return nil, &types.TransactionCanceledException{
					CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
				}
			},
		})

		err := c.TransactWrite(context.Background(), []store.Op{store.PutOp(item("a", "p"))})
		assert.True(t, apperrors.IsBackendUnavailable(err))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   func(error) bool
	}{
		{"conditional check", &types.ConditionalCheckFailedException{}, apperrors.IsConditionFailed},
		{"transaction conflict", &types.TransactionConflictException{}, apperrors.IsConditionFailed},
		{"missing table", &types.ResourceNotFoundException{}, apperrors.IsBackendUnavailable},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException", Message: "bad"}, apperrors.IsInvalid},
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, apperrors.IsBackendUnavailable},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), apperrors.IsBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.is(classify("Op", tt.err)))
		})
	}
	assert.NoError(t, classify("Op", nil))
}
