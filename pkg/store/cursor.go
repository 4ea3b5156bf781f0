package store

import (
	"encoding/base64"
	"encoding/json"

	apperrors "taskboard-core/pkg/errors"
)

// EncodeCursor turns the last key of a page into an opaque cursor.
func EncodeCursor(last Key) string {
	if last.ItemID == "" && last.BelongsTo == "" {
		return ""
	}
	data, err := json.Marshal(last)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor reverses EncodeCursor. The empty cursor decodes to the zero Key.
func DecodeCursor(cursor string) (Key, error) {
	if cursor == "" {
		return Key{}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return Key{}, apperrors.Invalid("DecodeCursor", "cursor is not valid base64")
	}

	var k Key
	if err := json.Unmarshal(data, &k); err != nil {
		return Key{}, apperrors.Invalid("DecodeCursor", "cursor is not a key")
	}
	if k.ItemID == "" || k.BelongsTo == "" {
		return Key{}, apperrors.Invalid("DecodeCursor", "cursor key is incomplete")
	}
	return k, nil
}
