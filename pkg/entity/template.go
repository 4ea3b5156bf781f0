package entity

import (
	"time"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// TicketTemplate prefills new tickets and declares the custom fields they carry.
type TicketTemplate struct {
	CompanyID   string
	BoardID     string
	ID          string
	Name        string
	Title       string
	Description string
	Fields      []TemplateField

	// HasBeenDeleted marks a soft-deleted template; tickets created from it
	// keep resolving its fields.
	HasBeenDeleted bool

	CreatedAt time.Time
}

type TemplateField struct {
	Name     string `dynamodbav:"name" validate:"required"`
	Type     string `dynamodbav:"type"`
	Required bool   `dynamodbav:"required"`
}

type templateItem struct {
	store.Key
	Name           string          `dynamodbav:"name" validate:"required"`
	Title          string          `dynamodbav:"title"`
	Description    string          `dynamodbav:"description"`
	Fields         []TemplateField `dynamodbav:"fields" validate:"dive"`
	HasBeenDeleted bool            `dynamodbav:"hasBeenDeleted"`
	CreatedAt      time.Time       `dynamodbav:"createdAt"`
}

func (t TicketTemplate) asItem() templateItem {
	fields := t.Fields
	if fields == nil {
		fields = []TemplateField{}
	}
	return templateItem{
		Key:            keyspace.Template(t.CompanyID, t.BoardID, t.ID),
		Name:           t.Name,
		Title:          t.Title,
		Description:    t.Description,
		Fields:         fields,
		HasBeenDeleted: t.HasBeenDeleted,
		CreatedAt:      t.CreatedAt,
	}
}

func (ti templateItem) asTemplate(companyID, boardID, id string) TicketTemplate {
	fields := ti.Fields
	if fields == nil {
		fields = []TemplateField{}
	}
	return TicketTemplate{
		CompanyID:      companyID,
		BoardID:        boardID,
		ID:             id,
		Name:           ti.Name,
		Title:          ti.Title,
		Description:    ti.Description,
		Fields:         fields,
		HasBeenDeleted: ti.HasBeenDeleted,
		CreatedAt:      ti.CreatedAt,
	}
}

func EncodeTicketTemplate(t TicketTemplate) (store.Item, error) {
	const op = "EncodeTicketTemplate"
	if err := required(op, "company id", t.CompanyID, "board id", t.BoardID, "template id", t.ID, "template name", t.Name); err != nil {
		return nil, err
	}
	if err := checkID(op, "template id", t.ID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(t.Fields))
	for _, f := range t.Fields {
		if err := required(op, "field name", f.Name); err != nil {
			return nil, err
		}
		if _, dup := seen[f.Name]; dup {
			return nil, apperrors.Invalid(op, "duplicate field "+f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return marshal(op, t.asItem())
}

func DecodeTicketTemplate(item store.Item) (TicketTemplate, error) {
	const op = "DecodeTicketTemplate"
	var ti templateItem
	if err := unmarshal(op, item, &ti); err != nil {
		return TicketTemplate{}, err
	}
	companyID, boardID, id, err := keyspace.ParseTemplateKey(ti.ItemID)
	if err != nil {
		return TicketTemplate{}, err
	}
	return ti.asTemplate(companyID, boardID, id), nil
}
