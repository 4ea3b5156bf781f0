package board

import (
	"context"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// CreateBoard creates a board under a generated id, together with the
// default column layout.
func (s *Service) CreateBoard(ctx context.Context, companyID, name, description, createdBy string) (entity.Board, error) {
	var b entity.Board
	_, err := s.writer.CreateAll(ctx, func() ([]store.Op, error) {
		b = entity.Board{
			CompanyID:   companyID,
			ID:          s.newID(),
			Name:        name,
			Description: description,
			CreatedAt:   s.timestamp(),
			CreatedBy:   createdBy,
		}
		boardItem, err := entity.EncodeBoard(b)
		if err != nil {
			return nil, err
		}
		columnsItem, err := entity.EncodeBoardColumnInformation(entity.DefaultColumns(companyID, b.ID))
		if err != nil {
			return nil, err
		}
		return []store.Op{store.PutNewOp(boardItem), store.PutNewOp(columnsItem)}, nil
	})
	if err != nil {
		return entity.Board{}, err
	}

	s.logger.Info("Board created", zap.String("companyId", companyID), zap.String("boardId", b.ID))
	return b, nil
}

func (s *Service) GetBoard(ctx context.Context, companyID, boardID string) (entity.Board, error) {
	item, err := s.store.Get(ctx, keyspace.Board(companyID, boardID))
	if err != nil {
		return entity.Board{}, err
	}
	return entity.DecodeBoard(item)
}

// ListBoards returns the boards of a company in id order. Soft-deleted boards
// are skipped unless includeDeleted is set.
func (s *Service) ListBoards(ctx context.Context, companyID string, includeDeleted bool) ([]entity.Board, error) {
	parent, prefix := keyspace.CompanyBoards(companyID)
	items, err := s.listAll(ctx, parent, prefix)
	if err != nil {
		return nil, err
	}

	boards, err := decodeAll(items, entity.DecodeBoard)
	if err != nil {
		return nil, err
	}
	if includeDeleted {
		return boards, nil
	}

	live := boards[:0]
	for _, b := range boards {
		if !b.HasBeenDeleted {
			live = append(live, b)
		}
	}
	return live, nil
}

// BoardUpdate holds the board attributes to change. Nil fields are left as
// they are.
type BoardUpdate struct {
	Name        *string
	Description *string
}

func (s *Service) UpdateBoard(ctx context.Context, companyID, boardID string, u BoardUpdate) (entity.Board, error) {
	attrs := map[string]any{}
	if u.Name != nil {
		if *u.Name == "" {
			return entity.Board{}, apperrors.Invalid("UpdateBoard", "board name cannot be empty")
		}
		attrs["name"] = *u.Name
	}
	if u.Description != nil {
		attrs["description"] = *u.Description
	}
	if len(attrs) == 0 {
		return s.GetBoard(ctx, companyID, boardID)
	}

	item, err := s.store.UpdateAttributes(ctx, keyspace.Board(companyID, boardID), attrs)
	if err != nil {
		return entity.Board{}, err
	}
	return entity.DecodeBoard(item)
}

// DeleteBoard marks the board deleted. Its tickets and settings are kept.
func (s *Service) DeleteBoard(ctx context.Context, companyID, boardID string) error {
	_, err := s.store.UpdateAttributes(ctx, keyspace.Board(companyID, boardID), map[string]any{"hasBeenDeleted": true})
	if err != nil {
		return err
	}
	s.logger.Info("Board deleted", zap.String("companyId", companyID), zap.String("boardId", boardID))
	return nil
}
