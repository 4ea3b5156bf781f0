// Package memstore is an in-process store.Store. It applies the same
// conditions, transaction atomicity, index ordering and cursor format as the
// DynamoDB backend, which makes it the backend of choice for tests and local
// tooling.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store keeps items in a map guarded by a mutex.
type Store struct {
	mu    sync.RWMutex
	items map[store.Key]store.Item
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[store.Key]store.Item)}
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.BackendUnavailable("Get", err)
	}
	if err := store.ValidateKey("Get", key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return nil, apperrors.NotFound("Get", key.ItemID+" / "+key.BelongsTo)
	}
	return clone(item), nil
}

func (s *Store) PutIfAbsent(ctx context.Context, item store.Item) error {
	if err := ctx.Err(); err != nil {
		return apperrors.BackendUnavailable("PutIfAbsent", err)
	}
	if err := store.ValidateItem("PutIfAbsent", item); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.KeyOf(item)
	if _, exists := s.items[key]; exists {
		return apperrors.ConditionFailed("PutIfAbsent", "item already exists", nil)
	}
	s.items[key] = clone(item)
	return nil
}

func (s *Store) PutOverwrite(ctx context.Context, item store.Item) error {
	if err := ctx.Err(); err != nil {
		return apperrors.BackendUnavailable("PutOverwrite", err)
	}
	if err := store.ValidateItem("PutOverwrite", item); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[store.KeyOf(item)] = clone(item)
	return nil
}

func (s *Store) UpdateAttributes(ctx context.Context, key store.Key, attrs map[string]any) (store.Item, error) {
	return s.update(ctx, "UpdateAttributes", key, attrs, nil)
}

func (s *Store) UpdateAttributesIf(ctx context.Context, key store.Key, attrs, expect map[string]any) (store.Item, error) {
	return s.update(ctx, "UpdateAttributesIf", key, attrs, expect)
}

func (s *Store) update(ctx context.Context, op string, key store.Key, attrs, expect map[string]any) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.BackendUnavailable(op, err)
	}
	if err := store.ValidateUpdate(op, key, attrs); err != nil {
		return nil, err
	}
	if err := store.ValidateExpect(op, expect); err != nil {
		return nil, err
	}

	values := make(map[string]types.AttributeValue, len(attrs))
	for name, v := range attrs {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, apperrors.Invalid(op, "cannot marshal attribute "+name+": "+err.Error())
		}
		values[name] = av
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[key]
	if !ok {
		return nil, apperrors.NotFound(op, key.ItemID+" / "+key.BelongsTo)
	}
	matches, err := store.Matches(existing, expect)
	if err != nil {
		return nil, apperrors.Invalid(op, err.Error())
	}
	if !matches {
		return nil, apperrors.ConditionFailed(op, "stored item does not match expectation", nil)
	}

	updated := clone(existing)
	for name, av := range values {
		updated[name] = av
	}
	s.items[key] = updated
	return clone(updated), nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return apperrors.BackendUnavailable("Delete", err)
	}
	if err := store.ValidateKey("Delete", key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *Store) BatchGet(ctx context.Context, keys []store.Key) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.BackendUnavailable("BatchGet", err)
	}
	for _, k := range keys {
		if err := store.ValidateKey("BatchGet", k); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[store.Key]struct{}, len(keys))
	items := make([]store.Item, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if item, ok := s.items[k]; ok {
			items = append(items, clone(item))
		}
	}
	return items, nil
}

// QueryChildren returns matches in ascending itemId order, the order of the
// index range key.
func (s *Store) QueryChildren(ctx context.Context, q store.Query) (store.Page, error) {
	if err := ctx.Err(); err != nil {
		return store.Page{}, apperrors.BackendUnavailable("QueryChildren", err)
	}
	if q.Parent == "" {
		return store.Page{}, apperrors.Invalid("QueryChildren", "parent cannot be empty")
	}
	after, err := store.DecodeCursor(q.Cursor)
	if err != nil {
		return store.Page{}, err
	}

	s.mu.RLock()
	var matches []store.Item
	for k, item := range s.items {
		if k.BelongsTo != q.Parent || !strings.HasPrefix(k.ItemID, q.Prefix) {
			continue
		}
		if after.ItemID != "" && k.ItemID <= after.ItemID {
			continue
		}
		matches = append(matches, clone(item))
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return store.Attr(matches[i], store.ItemIDAttr) < store.Attr(matches[j], store.ItemIDAttr)
	})

	if q.Limit <= 0 || len(matches) <= q.Limit {
		return store.Page{Items: matches}, nil
	}

	page := matches[:q.Limit]
	return store.Page{
		Items:      page,
		NextCursor: store.EncodeCursor(store.KeyOf(page[len(page)-1])),
	}, nil
}

func (s *Store) GetByDirectAccessKey(ctx context.Context, directAccessKey string) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.BackendUnavailable("GetByDirectAccessKey", err)
	}
	if directAccessKey == "" {
		return nil, apperrors.Invalid("GetByDirectAccessKey", "direct access key cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if store.Attr(item, store.DirectAccessAttr) == directAccessKey {
			return clone(item), nil
		}
	}
	return nil, apperrors.NotFound("GetByDirectAccessKey", directAccessKey)
}

// TransactWrite checks every condition under the write lock before applying
// anything, so a failed condition leaves the map untouched.
func (s *Store) TransactWrite(ctx context.Context, ops []store.Op) error {
	if err := ctx.Err(); err != nil {
		return apperrors.BackendUnavailable("TransactWrite", err)
	}
	if err := store.ValidateOps("TransactWrite", ops); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range ops {
		existing, exists := s.items[op.Key()]
		switch {
		case op.Put != nil && op.Put.RequireAbsent && exists:
			return apperrors.Aborted("TransactWrite", conditionMessage(i, "item already exists"), nil)
		case op.Delete != nil && (op.Delete.RequireExists || len(op.Delete.Expect) > 0) && !exists:
			return apperrors.Aborted("TransactWrite", conditionMessage(i, "item does not exist"), nil)
		case op.Delete != nil && len(op.Delete.Expect) > 0:
			matches, err := store.Matches(existing, op.Delete.Expect)
			if err != nil {
				return apperrors.Invalid("TransactWrite", err.Error())
			}
			if !matches {
				return apperrors.Aborted("TransactWrite", conditionMessage(i, "item does not match expectation"), nil)
			}
		}
	}

	for _, op := range ops {
		if op.Put != nil {
			s.items[op.Key()] = clone(op.Put.Item)
		} else {
			delete(s.items, op.Key())
		}
	}
	return nil
}

func conditionMessage(i int, reason string) string {
	return fmt.Sprintf("condition failed on operation %d: %s", i, reason)
}

// clone deep-copies item so callers never share attribute values with the
// map.
func clone(item store.Item) store.Item {
	out := make(store.Item, len(item))
	for k, v := range item {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: v.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: v.Value}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: v.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: v.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: slices.Clone(v.Value)}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: slices.Clone(v.Value)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: slices.Clone(v.Value)}
	case *types.AttributeValueMemberBS:
		out := make([][]byte, len(v.Value))
		for i, b := range v.Value {
			out[i] = slices.Clone(b)
		}
		return &types.AttributeValueMemberBS{Value: out}
	case *types.AttributeValueMemberL:
		out := make([]types.AttributeValue, len(v.Value))
		for i, el := range v.Value {
			out[i] = cloneValue(el)
		}
		return &types.AttributeValueMemberL{Value: out}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: clone(v.Value)}
	default:
		return av
	}
}
