// Package store defines the key-value abstraction the core reads and writes
// through. Items live in one table keyed by (itemId, belongsTo) with a
// parent→child index on (belongsTo, itemId).
package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// ItemIDAttr is the partition key attribute.
	ItemIDAttr = "itemId"

	// BelongsToAttr is the sort key attribute, and the hash key of the
	// parent→child index.
	BelongsToAttr = "belongsTo"

	// DirectAccessAttr holds the lifecycle-independent key of a ticket. It is
	// the hash key of the direct-access index.
	DirectAccessAttr = "directAccessTicketId"

	// MaxTransactionOps is the largest number of operations one TransactWrite
	// may carry.
	MaxTransactionOps = 100
)

// Item is a stored attribute bag.
type Item = map[string]types.AttributeValue

// Key identifies exactly one Item.
type Key struct {
	ItemID    string `dynamodbav:"itemId" json:"itemId"`
	BelongsTo string `dynamodbav:"belongsTo" json:"belongsTo"`
}

// Query selects the children of Parent whose itemId begins with Prefix.
// Limit <= 0 returns every remaining match.
type Query struct {
	Parent string
	Prefix string
	Limit  int
	Cursor string
}

// Page is one page of a Query. NextCursor is empty on the last page.
type Page struct {
	Items      []Item
	NextCursor string
}

// Store is the set of operations the core needs from the backend. All
// implementations must be safe for concurrent use.
type Store interface {
	// Get returns the item stored under key, or a NotFound error.
	Get(ctx context.Context, key Key) (Item, error)

	// PutIfAbsent creates item. It fails with ConditionFailed when an item
	// with the same key already exists; it never overwrites.
	PutIfAbsent(ctx context.Context, item Item) error

	// PutOverwrite replaces whatever is stored under the item's key.
	PutOverwrite(ctx context.Context, item Item) error

	// UpdateAttributes sets the named attributes on an existing item and
	// returns the item as stored afterwards. Attributes not named are left
	// untouched. A missing item yields NotFound.
	UpdateAttributes(ctx context.Context, key Key, attrs map[string]any) (Item, error)

	// UpdateAttributesIf is UpdateAttributes guarded by expect: the write only
	// happens when every named attribute currently equals the given value.
	// A missing item yields NotFound, a mismatch ConditionFailed.
	UpdateAttributesIf(ctx context.Context, key Key, attrs, expect map[string]any) (Item, error)

	// Delete removes the item stored under key. Deleting a missing item is
	// not an error.
	Delete(ctx context.Context, key Key) error

	// BatchGet fetches the given keys. Keys with no stored item are absent
	// from the result.
	BatchGet(ctx context.Context, keys []Key) ([]Item, error)

	// QueryChildren runs a begins_with range query on the parent→child index.
	QueryChildren(ctx context.Context, q Query) (Page, error)

	// GetByDirectAccessKey looks a ticket up by its direct-access key.
	GetByDirectAccessKey(ctx context.Context, directAccessKey string) (Item, error)

	// TransactWrite commits every op or none. A failed condition on any op
	// aborts the whole transaction with an Aborted error.
	TransactWrite(ctx context.Context, ops []Op) error
}
