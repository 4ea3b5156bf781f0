package entity

import (
	"strings"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// Tag is a board-scoped label. Name is stored normalized; the tag's identity
// is its normalized name.
type Tag struct {
	CompanyID string
	BoardID   string
	Name      string
	Color     string
}

type tagItem struct {
	store.Key
	TagName string `dynamodbav:"tagName" validate:"required"`
	Color   string `dynamodbav:"color"`
}

func (t Tag) asItem() tagItem {
	return tagItem{
		Key:     keyspace.Tag(t.CompanyID, t.BoardID, t.Name),
		TagName: keyspace.NormalizeTagName(t.Name),
		Color:   t.Color,
	}
}

func (ti tagItem) asTag(companyID, boardID, name string) Tag {
	return Tag{CompanyID: companyID, BoardID: boardID, Name: name, Color: ti.Color}
}

func EncodeTag(t Tag) (store.Item, error) {
	const op = "EncodeTag"
	if err := required(op, "company id", t.CompanyID, "board id", t.BoardID, "tag name", t.Name); err != nil {
		return nil, err
	}
	if strings.ContainsAny(t.Name, "_.") {
		return nil, apperrors.Invalid(op, "tag name cannot contain '_' or '.'")
	}
	return marshal(op, t.asItem())
}

func DecodeTag(item store.Item) (Tag, error) {
	const op = "DecodeTag"
	var ti tagItem
	if err := unmarshal(op, item, &ti); err != nil {
		return Tag{}, err
	}
	companyID, boardID, name, err := keyspace.ParseTagKey(ti.ItemID)
	if err != nil {
		return Tag{}, err
	}
	return ti.asTag(companyID, boardID, name), nil
}
