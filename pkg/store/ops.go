package store

import (
	"fmt"
	"reflect"
	"sort"

	apperrors "taskboard-core/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Op is one write inside a TransactWrite. Exactly one of Put or Delete is set.
type Op struct {
	Put    *PutRequest
	Delete *DeleteRequest
}

type PutRequest struct {
	Item          Item
	RequireAbsent bool
}

// DeleteRequest removes Key. A non-empty Expect implies RequireExists and
// additionally requires each named attribute to equal the given value.
type DeleteRequest struct {
	Key           Key
	RequireExists bool
	Expect        map[string]any
}

// PutOp overwrites item inside a transaction.
func PutOp(item Item) Op {
	return Op{Put: &PutRequest{Item: item}}
}

// PutNewOp creates item inside a transaction, aborting it if the key exists.
func PutNewOp(item Item) Op {
	return Op{Put: &PutRequest{Item: item, RequireAbsent: true}}
}

// DeleteOp removes key inside a transaction.
func DeleteOp(key Key) Op {
	return Op{Delete: &DeleteRequest{Key: key}}
}

// DeleteExistingOp removes key inside a transaction, aborting it if the key
// is not present.
func DeleteExistingOp(key Key) Op {
	return Op{Delete: &DeleteRequest{Key: key, RequireExists: true}}
}

// DeleteIfMatchOp removes key inside a transaction, aborting it unless the
// stored item exists and carries every attribute value in expect.
func DeleteIfMatchOp(key Key, expect map[string]any) Op {
	return Op{Delete: &DeleteRequest{Key: key, RequireExists: true, Expect: expect}}
}

// Key returns the key the op writes to.
func (o Op) Key() Key {
	if o.Put != nil {
		return KeyOf(o.Put.Item)
	}
	if o.Delete != nil {
		return o.Delete.Key
	}
	return Key{}
}

// Attr returns the string attribute name of item, or "" when it is missing or
// not a string.
func Attr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// KeyOf extracts the primary key of item.
func KeyOf(item Item) Key {
	return Key{ItemID: Attr(item, ItemIDAttr), BelongsTo: Attr(item, BelongsToAttr)}
}

// KeyItem renders key as an attribute map.
func KeyItem(key Key) Item {
	return Item{
		ItemIDAttr:    &types.AttributeValueMemberS{Value: key.ItemID},
		BelongsToAttr: &types.AttributeValueMemberS{Value: key.BelongsTo},
	}
}

// ValidateKey rejects keys with an empty component.
func ValidateKey(op string, key Key) error {
	if key.ItemID == "" {
		return apperrors.Invalid(op, "itemId cannot be empty")
	}
	if key.BelongsTo == "" {
		return apperrors.Invalid(op, "belongsTo cannot be empty")
	}
	return nil
}

// ValidateItem rejects items without a complete primary key.
func ValidateItem(op string, item Item) error {
	if item == nil {
		return apperrors.Invalid(op, "item cannot be nil")
	}
	return ValidateKey(op, KeyOf(item))
}

// ValidateUpdate rejects empty attribute sets and attempts to rewrite the key.
func ValidateUpdate(op string, key Key, attrs map[string]any) error {
	if err := ValidateKey(op, key); err != nil {
		return err
	}
	if len(attrs) == 0 {
		return apperrors.Invalid(op, "no attributes to update")
	}
	for name := range attrs {
		if name == "" {
			return apperrors.Invalid(op, "attribute name cannot be empty")
		}
		if name == ItemIDAttr || name == BelongsToAttr {
			return apperrors.Invalid(op, fmt.Sprintf("key attribute %s cannot be updated", name))
		}
	}
	return nil
}

// ValidateExpect rejects expectations on the key attributes, which are
// implied by the key itself.
func ValidateExpect(op string, expect map[string]any) error {
	for name := range expect {
		if name == "" {
			return apperrors.Invalid(op, "expected attribute name cannot be empty")
		}
		if name == ItemIDAttr || name == BelongsToAttr {
			return apperrors.Invalid(op, fmt.Sprintf("key attribute %s cannot be expected", name))
		}
	}
	return nil
}

// SortedNames returns the keys of attrs in ascending order so generated
// expressions are deterministic.
func SortedNames(attrs map[string]any) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Matches reports whether item carries every attribute value in expect.
// Values are compared in their marshalled form, so an int in expect matches
// the stored number it was written as.
func Matches(item Item, expect map[string]any) (bool, error) {
	for name, want := range expect {
		av, err := attributevalue.Marshal(want)
		if err != nil {
			return false, fmt.Errorf("marshal expected %s: %w", name, err)
		}
		got, ok := item[name]
		if !ok || !reflect.DeepEqual(got, av) {
			return false, nil
		}
	}
	return true, nil
}

// ValidateOps checks a transaction before it is sent: 1..MaxTransactionOps
// well-formed ops, each key written at most once.
func ValidateOps(op string, ops []Op) error {
	if len(ops) == 0 {
		return apperrors.Invalid(op, "transaction has no operations")
	}
	if len(ops) > MaxTransactionOps {
		return apperrors.Invalid(op, fmt.Sprintf("transaction has %d operations, limit is %d", len(ops), MaxTransactionOps))
	}

	seen := make(map[Key]struct{}, len(ops))
	for i, o := range ops {
		if (o.Put == nil) == (o.Delete == nil) {
			return apperrors.Invalid(op, fmt.Sprintf("operation %d must be exactly one of put or delete", i))
		}
		var err error
		if o.Put != nil {
			err = ValidateItem(op, o.Put.Item)
		} else {
			err = ValidateKey(op, o.Delete.Key)
		}
		if err != nil {
			return err
		}
		k := o.Key()
		if _, dup := seen[k]; dup {
			return apperrors.Invalid(op, fmt.Sprintf("key %s/%s is written more than once", k.ItemID, k.BelongsTo))
		}
		seen[k] = struct{}{}
	}
	return nil
}
