package board

import (
	"context"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// UserProfile describes the identity a user record is created for.
type UserProfile struct {
	Subject string
	Name    string
	Email   string
}

// CreateCompany creates a company under a generated id together with its
// root user, who is company admin. Both items are written in one
// transaction; a colliding id is retried with a fresh one.
func (s *Service) CreateCompany(ctx context.Context, name string, root UserProfile) (entity.Company, entity.User, error) {
	const op = "CreateCompany"
	if name == "" {
		return entity.Company{}, entity.User{}, apperrors.Invalid(op, "company name cannot be empty")
	}

	var (
		company entity.Company
		user    entity.User
	)
	_, err := s.writer.CreateAll(ctx, func() ([]store.Op, error) {
		now := s.timestamp()
		company = entity.Company{ID: s.newID(), Name: name, CreatedAt: now}
		user = entity.User{
			Subject:               root.Subject,
			CompanyID:             company.ID,
			Name:                  root.Name,
			Email:                 root.Email,
			IsCompanyAdmin:        true,
			CanManageCompanyUsers: true,
			BoardRights:           map[string]entity.BoardRight{},
			CreatedAt:             now,
		}

		companyItem, err := entity.EncodeCompany(company)
		if err != nil {
			return nil, err
		}
		userItem, err := entity.EncodeUser(user)
		if err != nil {
			return nil, err
		}
		return []store.Op{store.PutNewOp(companyItem), store.PutNewOp(userItem)}, nil
	})
	if err != nil {
		return entity.Company{}, entity.User{}, err
	}

	s.logger.Info("Company created",
		zap.String("companyId", company.ID),
		zap.String("rootSubject", user.Subject))
	return company, user, nil
}

func (s *Service) GetCompany(ctx context.Context, companyID string) (entity.Company, error) {
	item, err := s.store.Get(ctx, keyspace.Company(companyID))
	if err != nil {
		return entity.Company{}, err
	}
	return entity.DecodeCompany(item)
}

func (s *Service) ListCompanies(ctx context.Context) ([]entity.Company, error) {
	parent, prefix := keyspace.AllCompanies()
	items, err := s.listAll(ctx, parent, prefix)
	if err != nil {
		return nil, err
	}
	return decodeAll(items, entity.DecodeCompany)
}
