package entity

import (
	"fmt"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// UncategorizedColumnID is the id of the column every board starts with. It
// must stay first.
const UncategorizedColumnID = "UNCATEGORIZED"

// BoardColumnInformation is the ordered column layout of a board.
type BoardColumnInformation struct {
	CompanyID string
	BoardID   string
	Columns   []Column
}

type Column struct {
	ID   string `dynamodbav:"id" validate:"required"`
	Name string `dynamodbav:"name" validate:"required"`
}

// DefaultColumns is the layout of a new board.
func DefaultColumns(companyID, boardID string) BoardColumnInformation {
	return BoardColumnInformation{
		CompanyID: companyID,
		BoardID:   boardID,
		Columns: []Column{
			{ID: UncategorizedColumnID, Name: "Uncategorized"},
			{ID: "TODO", Name: "To do"},
		},
	}
}

type columnsItem struct {
	store.Key
	Columns []Column `dynamodbav:"columns" validate:"required,dive"`
}

func (c BoardColumnInformation) asItem() columnsItem {
	return columnsItem{Key: keyspace.Columns(c.CompanyID, c.BoardID), Columns: c.Columns}
}

func (ci columnsItem) asColumns(companyID, boardID string) BoardColumnInformation {
	return BoardColumnInformation{CompanyID: companyID, BoardID: boardID, Columns: ci.Columns}
}

// ValidateColumns checks the layout: at least two columns, the uncategorized
// column first, and unique non-empty ids with non-empty names.
func ValidateColumns(columns []Column) error {
	const op = "ValidateColumns"
	if len(columns) < 2 {
		return apperrors.Invalid(op, "a board needs at least 2 columns")
	}
	if columns[0].ID != UncategorizedColumnID {
		return apperrors.Invalid(op, fmt.Sprintf("first column must be %s", UncategorizedColumnID))
	}

	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c.ID == "" {
			return apperrors.Invalid(op, fmt.Sprintf("column %d has no id", i))
		}
		if c.Name == "" {
			return apperrors.Invalid(op, fmt.Sprintf("column %s has no name", c.ID))
		}
		if _, dup := seen[c.ID]; dup {
			return apperrors.Invalid(op, fmt.Sprintf("column id %s is used twice", c.ID))
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func EncodeBoardColumnInformation(c BoardColumnInformation) (store.Item, error) {
	const op = "EncodeBoardColumnInformation"
	if err := required(op, "company id", c.CompanyID, "board id", c.BoardID); err != nil {
		return nil, err
	}
	if err := ValidateColumns(c.Columns); err != nil {
		return nil, err
	}
	return marshal(op, c.asItem())
}

func DecodeBoardColumnInformation(item store.Item) (BoardColumnInformation, error) {
	const op = "DecodeBoardColumnInformation"
	var ci columnsItem
	if err := unmarshal(op, item, &ci); err != nil {
		return BoardColumnInformation{}, err
	}
	companyID, boardID, err := keyspace.ParseColumnsKey(ci.ItemID)
	if err != nil {
		return BoardColumnInformation{}, err
	}
	return ci.asColumns(companyID, boardID), nil
}
