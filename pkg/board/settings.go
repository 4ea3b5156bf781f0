package board

import (
	"context"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// CreateTag creates a tag under its normalized name. A tag with the same
// normalized name fails with ConditionFailed.
func (s *Service) CreateTag(ctx context.Context, t entity.Tag) (entity.Tag, error) {
	item, err := entity.EncodeTag(t)
	if err != nil {
		return entity.Tag{}, err
	}
	if err := s.store.PutIfAbsent(ctx, item); err != nil {
		return entity.Tag{}, err
	}
	return entity.DecodeTag(item)
}

func (s *Service) ListTags(ctx context.Context, companyID, boardID string) ([]entity.Tag, error) {
	parent, prefix := keyspace.BoardTags(companyID, boardID)
	items, err := s.listAll(ctx, parent, prefix)
	if err != nil {
		return nil, err
	}
	return decodeAll(items, entity.DecodeTag)
}

func (s *Service) DeleteTag(ctx context.Context, companyID, boardID, name string) error {
	return s.store.Delete(ctx, keyspace.Tag(companyID, boardID, name))
}

// CreateTemplate creates a ticket template under a generated id.
func (s *Service) CreateTemplate(ctx context.Context, tp entity.TicketTemplate) (entity.TicketTemplate, error) {
	var created entity.TicketTemplate
	_, err := s.writer.Create(ctx, func() (store.Item, error) {
		created = tp
		created.ID = s.newID()
		created.HasBeenDeleted = false
		created.CreatedAt = s.timestamp()
		return entity.EncodeTicketTemplate(created)
	})
	if err != nil {
		return entity.TicketTemplate{}, err
	}

	s.logger.Info("Template created", zap.String("boardId", tp.BoardID), zap.String("templateId", created.ID))
	if created.Fields == nil {
		created.Fields = []entity.TemplateField{}
	}
	return created, nil
}

func (s *Service) GetTemplate(ctx context.Context, companyID, boardID, templateID string) (entity.TicketTemplate, error) {
	item, err := s.store.Get(ctx, keyspace.Template(companyID, boardID, templateID))
	if err != nil {
		return entity.TicketTemplate{}, err
	}
	return entity.DecodeTicketTemplate(item)
}

// ListTemplates returns the templates of a board that have not been deleted.
func (s *Service) ListTemplates(ctx context.Context, companyID, boardID string) ([]entity.TicketTemplate, error) {
	parent, prefix := keyspace.BoardTemplates(companyID, boardID)
	items, err := s.listAll(ctx, parent, prefix)
	if err != nil {
		return nil, err
	}

	templates, err := decodeAll(items, entity.DecodeTicketTemplate)
	if err != nil {
		return nil, err
	}
	live := templates[:0]
	for _, tp := range templates {
		if !tp.HasBeenDeleted {
			live = append(live, tp)
		}
	}
	return live, nil
}

// DeleteTemplate marks a template deleted. Tickets created from it keep
// their template id.
func (s *Service) DeleteTemplate(ctx context.Context, companyID, boardID, templateID string) error {
	_, err := s.store.UpdateAttributes(ctx, keyspace.Template(companyID, boardID, templateID), map[string]any{"hasBeenDeleted": true})
	return err
}

// SetColumns replaces the column layout of a board after validating it.
func (s *Service) SetColumns(ctx context.Context, info entity.BoardColumnInformation) error {
	item, err := entity.EncodeBoardColumnInformation(info)
	if err != nil {
		return err
	}
	return s.store.PutOverwrite(ctx, item)
}

// GetColumns returns the column layout of a board, or the default layout
// when none has been stored.
func (s *Service) GetColumns(ctx context.Context, companyID, boardID string) (entity.BoardColumnInformation, error) {
	item, err := s.store.Get(ctx, keyspace.Columns(companyID, boardID))
	if apperrors.IsNotFound(err) {
		return entity.DefaultColumns(companyID, boardID), nil
	}
	if err != nil {
		return entity.BoardColumnInformation{}, err
	}
	return entity.DecodeBoardColumnInformation(item)
}

func (s *Service) SetPriorityList(ctx context.Context, p entity.PriorityList) error {
	item, err := entity.EncodePriorityList(p)
	if err != nil {
		return err
	}
	return s.store.PutOverwrite(ctx, item)
}

// GetPriorityList returns the ticket ordering of one state. A board without
// a stored ordering has an empty one.
func (s *Service) GetPriorityList(ctx context.Context, companyID, boardID string, state keyspace.TicketState) (entity.PriorityList, error) {
	item, err := s.store.Get(ctx, keyspace.PriorityList(companyID, boardID, state))
	if apperrors.IsNotFound(err) {
		return entity.PriorityList{CompanyID: companyID, BoardID: boardID, State: state, TicketIDs: []string{}}, nil
	}
	if err != nil {
		return entity.PriorityList{}, err
	}
	return entity.DecodePriorityList(item)
}
