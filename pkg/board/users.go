package board

import (
	"context"
	"sort"

	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"

	"go.uber.org/zap"
)

// AddUser adds u to its company. Adding a subject that is already a member
// fails with ConditionFailed.
func (s *Service) AddUser(ctx context.Context, u entity.User) (entity.User, error) {
	u.CreatedAt = s.timestamp()
	if u.BoardRights == nil {
		u.BoardRights = map[string]entity.BoardRight{}
	}

	item, err := entity.EncodeUser(u)
	if err != nil {
		return entity.User{}, err
	}
	if err := s.store.PutIfAbsent(ctx, item); err != nil {
		return entity.User{}, err
	}

	s.logger.Info("User added", zap.String("companyId", u.CompanyID), zap.String("subject", u.Subject))
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, companyID, subject string) (entity.User, error) {
	item, err := s.store.Get(ctx, keyspace.User(subject, companyID))
	if err != nil {
		return entity.User{}, err
	}
	return entity.DecodeUser(item)
}

// ListUsers returns the members of a company ordered by name.
func (s *Service) ListUsers(ctx context.Context, companyID string) ([]entity.User, error) {
	parent, prefix := keyspace.CompanyUsers(companyID)
	items, err := s.listAll(ctx, parent, prefix)
	if err != nil {
		return nil, err
	}

	users, err := decodeAll(items, entity.DecodeUser)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].SortName() < users[j].SortName()
	})
	return users, nil
}

// SetBoardRights replaces the board memberships of a user.
func (s *Service) SetBoardRights(ctx context.Context, companyID, subject string, rights map[string]entity.BoardRight) (entity.User, error) {
	if rights == nil {
		rights = map[string]entity.BoardRight{}
	}
	return s.updateUser(ctx, companyID, subject, map[string]any{"boardRights": rights})
}

func (s *Service) SetCompanyAdmin(ctx context.Context, companyID, subject string, admin bool) (entity.User, error) {
	return s.updateUser(ctx, companyID, subject, map[string]any{"isCompanyAdmin": admin})
}

func (s *Service) SetCanManageCompanyUsers(ctx context.Context, companyID, subject string, allowed bool) (entity.User, error) {
	return s.updateUser(ctx, companyID, subject, map[string]any{"canManageCompanyUsers": allowed})
}

func (s *Service) updateUser(ctx context.Context, companyID, subject string, attrs map[string]any) (entity.User, error) {
	item, err := s.store.UpdateAttributes(ctx, keyspace.User(subject, companyID), attrs)
	if err != nil {
		return entity.User{}, err
	}
	return entity.DecodeUser(item)
}

// RemoveUser deletes the user record. Removing a missing user is not an error.
func (s *Service) RemoveUser(ctx context.Context, companyID, subject string) error {
	if err := s.store.Delete(ctx, keyspace.User(subject, companyID)); err != nil {
		return err
	}
	s.logger.Info("User removed", zap.String("companyId", companyID), zap.String("subject", subject))
	return nil
}
