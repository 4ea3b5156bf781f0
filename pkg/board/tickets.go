package board

import (
	"context"
	"time"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// NewTicket holds the caller supplied content of a ticket to create.
type NewTicket struct {
	CompanyID   string
	BoardID     string
	State       keyspace.TicketState
	Title       string
	Description string
	TemplateID  string
	Fields      map[string]string
	Tags        []string
	Assignees   []string
	Files       []string
	CreatedBy   string
}

// CreateTicket creates a ticket under a generated id. New tickets start in
// the backlog or in progress, never done.
func (s *Service) CreateTicket(ctx context.Context, nt NewTicket) (entity.Ticket, error) {
	if nt.State == keyspace.Done {
		return entity.Ticket{}, apperrors.Invalid("CreateTicket", "a ticket cannot be created done")
	}

	var t entity.Ticket
	_, err := s.writer.Create(ctx, func() (store.Item, error) {
		t = entity.Ticket{
			CompanyID:   nt.CompanyID,
			BoardID:     nt.BoardID,
			ID:          s.newID(),
			State:       nt.State,
			Title:       nt.Title,
			Description: nt.Description,
			TemplateID:  nt.TemplateID,
			Fields:      nt.Fields,
			Tags:        normalizeTags(nt.Tags),
			Assignees:   nt.Assignees,
			Files:       nt.Files,
			CreatedAt:   s.timestamp(),
			CreatedBy:   nt.CreatedBy,
			Version:     1,
		}
		return entity.EncodeTicket(t)
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	s.logger.Info("Ticket created",
		zap.String("boardId", t.BoardID),
		zap.String("ticketId", t.ID),
		zap.Stringer("state", t.State))
	return s.canonical(t)
}

// canonical returns t as it reads back from the store.
func (s *Service) canonical(t entity.Ticket) (entity.Ticket, error) {
	item, err := entity.EncodeTicket(t)
	if err != nil {
		return entity.Ticket{}, err
	}
	return entity.DecodeTicket(item)
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, keyspace.NormalizeTagName(t))
	}
	return out
}

// GetTicket finds a ticket in whatever state it is in.
func (s *Service) GetTicket(ctx context.Context, companyID, boardID, ticketID string) (entity.Ticket, error) {
	item, err := s.store.GetByDirectAccessKey(ctx, keyspace.DirectAccessTicket(companyID, boardID, ticketID))
	if err != nil {
		return entity.Ticket{}, err
	}
	return entity.DecodeTicket(item)
}

// ListTickets returns one page of the tickets of a board in state. Done
// tickets come back in completion order.
func (s *Service) ListTickets(ctx context.Context, companyID, boardID string, state keyspace.TicketState, p Page) ([]entity.Ticket, string, error) {
	parent, prefix := keyspace.TicketsInState(companyID, boardID, state)
	page, err := s.store.QueryChildren(ctx, store.Query{Parent: parent, Prefix: prefix, Limit: p.Limit, Cursor: p.Cursor})
	if err != nil {
		return nil, "", err
	}

	tickets, err := decodeAll(page.Items, entity.DecodeTicket)
	if err != nil {
		return nil, "", err
	}
	return tickets, page.NextCursor, nil
}

// TicketUpdate holds the ticket attributes to change. Nil fields are left as
// they are.
type TicketUpdate struct {
	Title       *string
	Description *string
	Fields      *map[string]string
	Tags        *[]string
	Assignees   *[]string
	Files       *[]string
}

func (u TicketUpdate) attrs() (map[string]any, error) {
	attrs := map[string]any{}
	if u.Title != nil {
		if *u.Title == "" {
			return nil, apperrors.Invalid("UpdateTicket", "ticket title cannot be empty")
		}
		attrs["title"] = *u.Title
	}
	if u.Description != nil {
		attrs["description"] = *u.Description
	}
	if u.Fields != nil {
		fields := *u.Fields
		if fields == nil {
			fields = map[string]string{}
		}
		attrs["fields"] = fields
	}
	if u.Tags != nil {
		attrs["tags"] = nonNil(normalizeTags(*u.Tags))
	}
	if u.Assignees != nil {
		attrs["assignees"] = nonNil(*u.Assignees)
	}
	if u.Files != nil {
		attrs["files"] = nonNil(*u.Files)
	}
	return attrs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpdateTicket changes ticket content in place. The state is changed with
// MoveTicket. The write is conditioned on the version that was read, so a
// concurrent update or move makes it fail with ConditionFailed, or NotFound
// when the ticket has since moved.
func (s *Service) UpdateTicket(ctx context.Context, companyID, boardID, ticketID string, u TicketUpdate) (entity.Ticket, error) {
	attrs, err := u.attrs()
	if err != nil {
		return entity.Ticket{}, err
	}

	current, err := s.GetTicket(ctx, companyID, boardID, ticketID)
	if err != nil {
		return entity.Ticket{}, err
	}
	if len(attrs) == 0 {
		return current, nil
	}

	attrs["version"] = current.Version + 1
	item, err := s.store.UpdateAttributesIf(ctx, current.Key(), attrs, map[string]any{"version": current.Version})
	if err != nil {
		return entity.Ticket{}, err
	}
	return entity.DecodeTicket(item)
}

// MoveTicket moves a ticket to another lifecycle state. The old item is
// deleted, on the version that was read, and the new one created in one
// transaction. A concurrent move or update of the same ticket makes the move
// fail with Aborted instead of being overwritten. Moving to Done stamps the
// completion time.
func (s *Service) MoveTicket(ctx context.Context, companyID, boardID, ticketID string, to keyspace.TicketState) (entity.Ticket, error) {
	current, err := s.GetTicket(ctx, companyID, boardID, ticketID)
	if err != nil {
		return entity.Ticket{}, err
	}
	if current.State == to {
		return current, nil
	}

	moved := current
	moved.State = to
	moved.Version = current.Version + 1
	moved.DoneAt = time.Time{}
	if to == keyspace.Done {
		moved.DoneAt = s.timestamp()
	}

	item, err := entity.EncodeTicket(moved)
	if err != nil {
		return entity.Ticket{}, err
	}
	err = s.store.TransactWrite(ctx, []store.Op{
		store.DeleteIfMatchOp(current.Key(), map[string]any{"version": current.Version}),
		store.PutNewOp(item),
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	s.logger.Info("Ticket moved",
		zap.String("ticketId", ticketID),
		zap.Stringer("from", current.State),
		zap.Stringer("to", to))
	return entity.DecodeTicket(item)
}

// DeleteTicket removes a ticket for good.
func (s *Service) DeleteTicket(ctx context.Context, companyID, boardID, ticketID string) error {
	current, err := s.GetTicket(ctx, companyID, boardID, ticketID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, current.Key()); err != nil {
		return err
	}
	s.logger.Info("Ticket deleted", zap.String("boardId", boardID), zap.String("ticketId", ticketID))
	return nil
}
