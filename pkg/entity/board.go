package entity

import (
	"time"

	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

type Board struct {
	CompanyID   string
	ID          string
	Name        string
	Description string

	// HasBeenDeleted marks a soft-deleted board. Deleted boards stay readable
	// so existing references can still be resolved.
	HasBeenDeleted bool

	CreatedAt time.Time
	CreatedBy string
}

type boardItem struct {
	store.Key
	Name           string    `dynamodbav:"name" validate:"required"`
	Description    string    `dynamodbav:"description"`
	HasBeenDeleted bool      `dynamodbav:"hasBeenDeleted"`
	CreatedAt      time.Time `dynamodbav:"createdAt"`
	CreatedBy      string    `dynamodbav:"createdBy"`
}

func (b Board) asItem() boardItem {
	return boardItem{
		Key:            keyspace.Board(b.CompanyID, b.ID),
		Name:           b.Name,
		Description:    b.Description,
		HasBeenDeleted: b.HasBeenDeleted,
		CreatedAt:      b.CreatedAt,
		CreatedBy:      b.CreatedBy,
	}
}

func (bi boardItem) asBoard(companyID, id string) Board {
	return Board{
		CompanyID:      companyID,
		ID:             id,
		Name:           bi.Name,
		Description:    bi.Description,
		HasBeenDeleted: bi.HasBeenDeleted,
		CreatedAt:      bi.CreatedAt,
		CreatedBy:      bi.CreatedBy,
	}
}

func EncodeBoard(b Board) (store.Item, error) {
	const op = "EncodeBoard"
	if err := required(op, "company id", b.CompanyID, "board id", b.ID, "board name", b.Name); err != nil {
		return nil, err
	}
	if err := checkID(op, "board id", b.ID); err != nil {
		return nil, err
	}
	return marshal(op, b.asItem())
}

func DecodeBoard(item store.Item) (Board, error) {
	const op = "DecodeBoard"
	var bi boardItem
	if err := unmarshal(op, item, &bi); err != nil {
		return Board{}, err
	}
	companyID, boardID, err := keyspace.ParseBoardKey(bi.ItemID)
	if err != nil {
		return Board{}, err
	}
	return bi.asBoard(companyID, boardID), nil
}
