package entity

import (
	"time"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// Ticket is a work item on a board. Its lifecycle state is part of its key,
// so State and DoneAt are recovered from the key on decode.
type Ticket struct {
	CompanyID string
	BoardID   string
	ID        string
	State     keyspace.TicketState
	DoneAt    time.Time

	Title       string
	Description string
	TemplateID  string
	Fields      map[string]string
	Tags        []string
	Assignees   []string

	// Files are object keys in the blob store.
	Files []string

	CreatedAt time.Time
	CreatedBy string

	// Version increases with every write to the ticket. Writers that read
	// before writing condition on it.
	Version int
}

// Ref returns the ids encoded in the ticket key.
func (t Ticket) Ref() keyspace.TicketRef {
	return keyspace.TicketRef{
		CompanyID: t.CompanyID,
		BoardID:   t.BoardID,
		TicketID:  t.ID,
		State:     t.State,
		DoneAt:    t.DoneAt,
	}
}

// Key is the stored key of the ticket in its current state.
func (t Ticket) Key() store.Key {
	return t.Ref().Key()
}

type ticketItem struct {
	store.Key
	DirectAccessTicketID string            `dynamodbav:"directAccessTicketId" validate:"required"`
	Title                string            `dynamodbav:"title" validate:"required"`
	Description          string            `dynamodbav:"description"`
	TemplateID           string            `dynamodbav:"templateId,omitempty"`
	Fields               map[string]string `dynamodbav:"fields,omitempty"`
	Tags                 []string          `dynamodbav:"tags"`
	Assignees            []string          `dynamodbav:"assignees"`
	Files                []string          `dynamodbav:"files"`
	CreatedAt            time.Time         `dynamodbav:"createdAt"`
	CreatedBy            string            `dynamodbav:"createdBy"`
	Version              int               `dynamodbav:"version"`
}

func (t Ticket) asItem() ticketItem {
	return ticketItem{
		Key:                  t.Key(),
		DirectAccessTicketID: keyspace.DirectAccessTicket(t.CompanyID, t.BoardID, t.ID),
		Title:                t.Title,
		Description:          t.Description,
		TemplateID:           t.TemplateID,
		Fields:               t.Fields,
		Tags:                 nonNil(t.Tags),
		Assignees:            nonNil(t.Assignees),
		Files:                nonNil(t.Files),
		CreatedAt:            t.CreatedAt,
		CreatedBy:            t.CreatedBy,
		Version:              t.Version,
	}
}

func (ti ticketItem) asTicket(ref keyspace.TicketRef) Ticket {
	return Ticket{
		CompanyID:   ref.CompanyID,
		BoardID:     ref.BoardID,
		ID:          ref.TicketID,
		State:       ref.State,
		DoneAt:      ref.DoneAt,
		Title:       ti.Title,
		Description: ti.Description,
		TemplateID:  ti.TemplateID,
		Fields:      ti.Fields,
		Tags:        nonNil(ti.Tags),
		Assignees:   nonNil(ti.Assignees),
		Files:       nonNil(ti.Files),
		CreatedAt:   ti.CreatedAt,
		CreatedBy:   ti.CreatedBy,
		Version:     ti.Version,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func EncodeTicket(t Ticket) (store.Item, error) {
	const op = "EncodeTicket"
	if err := required(op, "company id", t.CompanyID, "board id", t.BoardID, "ticket id", t.ID, "ticket title", t.Title); err != nil {
		return nil, err
	}
	if err := checkID(op, "ticket id", t.ID); err != nil {
		return nil, err
	}
	switch t.State {
	case keyspace.Backlog, keyspace.InProgress:
	case keyspace.Done:
		if t.DoneAt.IsZero() {
			return nil, apperrors.Invalid(op, "done ticket needs a completion time")
		}
	default:
		return nil, apperrors.Invalid(op, "unknown ticket state "+t.State.String())
	}
	return marshal(op, t.asItem())
}

// DecodeTicket recovers ids, state and completion time from the key. A
// direct-access key that does not match the key is a Decode error.
func DecodeTicket(item store.Item) (Ticket, error) {
	const op = "DecodeTicket"
	var ti ticketItem
	if err := unmarshal(op, item, &ti); err != nil {
		return Ticket{}, err
	}
	ref, err := keyspace.ParseTicketKey(ti.ItemID)
	if err != nil {
		return Ticket{}, err
	}
	if ti.DirectAccessTicketID != ref.DirectAccessKey() {
		return Ticket{}, apperrors.Decode(op, "direct access key does not match item key", nil)
	}
	return ti.asTicket(ref), nil
}
