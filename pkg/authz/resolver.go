// Package authz derives what an identity may do inside a company from the
// user record stored under (USER.<sub>, COMPANY.<c>).
//
// Resolution fails closed: whatever goes wrong, the caller gets Rights whose
// predicates are all false.
package authz

import (
	"context"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/entity"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"

	"go.uber.org/zap"
)

// Rights is the resolved authority of one subject in one company.
type Rights struct {
	subject string
	user    *entity.User
}

func (r Rights) Subject() string {
	return r.subject
}

// User returns the loaded user record, if there was one.
func (r Rights) User() (entity.User, bool) {
	if r.user == nil {
		return entity.User{}, false
	}
	return *r.user, true
}

func (r Rights) IsCompanyMember() bool {
	return r.user != nil
}

func (r Rights) IsCompanyAdmin() bool {
	return r.user != nil && r.user.IsCompanyAdmin
}

func (r Rights) IsBoardMember(boardID string) bool {
	if r.user == nil || boardID == "" {
		return false
	}
	_, ok := r.user.BoardRights[boardID]
	return ok
}

func (r Rights) IsBoardAdmin(boardID string) bool {
	if r.user == nil || boardID == "" {
		return false
	}
	right, ok := r.user.BoardRights[boardID]
	return ok && right.IsAdmin
}

func (r Rights) IsCompanyAdminOrBoardMember(boardID string) bool {
	return r.IsCompanyAdmin() || r.IsBoardMember(boardID)
}

func (r Rights) IsCompanyAdminOrBoardAdmin(boardID string) bool {
	return r.IsCompanyAdmin() || r.IsBoardAdmin(boardID)
}

// CanManageCompanyUsers is true for company admins and for users explicitly
// allowed to manage the member list.
func (r Rights) CanManageCompanyUsers() bool {
	return r.IsCompanyAdmin() || (r.user != nil && r.user.CanManageCompanyUsers)
}

// Require turns a false predicate into a PermissionDenied error naming action.
func (r Rights) Require(allowed bool, action string) error {
	if allowed {
		return nil
	}
	return apperrors.PermissionDenied(action, "subject is not allowed to "+action)
}

// Resolver loads Rights.
type Resolver struct {
	store    store.Store
	identity IdentityProvider
	logger   *zap.Logger
}

type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(s store.Store, identity IdentityProvider, opts ...Option) *Resolver {
	r := &Resolver{store: s, identity: identity, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve identifies the caller behind credential and loads their rights in
// companyID.
func (r *Resolver) Resolve(ctx context.Context, credential, companyID string) Rights {
	if r.identity == nil {
		r.logger.Warn("No identity provider configured")
		return Rights{}
	}

	sub, err := r.identity.Subject(ctx, credential)
	if err != nil {
		r.logger.Info("Identity resolution failed", zap.String("companyId", companyID), zap.Error(err))
		return Rights{}
	}
	return r.ResolveSubject(ctx, sub, companyID)
}

// ResolveSubject loads the rights of an already identified subject.
func (r *Resolver) ResolveSubject(ctx context.Context, sub, companyID string) Rights {
	if sub == "" || companyID == "" {
		return Rights{}
	}

	item, err := r.store.Get(ctx, keyspace.User(sub, companyID))
	if err != nil {
		if apperrors.IsNotFound(err) {
			r.logger.Debug("Subject is not a company member",
				zap.String("subject", sub), zap.String("companyId", companyID))
		} else {
			r.logger.Error("Failed to load user rights",
				zap.String("subject", sub), zap.String("companyId", companyID), zap.Error(err))
		}
		return Rights{}
	}

	user, err := entity.DecodeUser(item)
	if err != nil {
		r.logger.Error("Stored user record is malformed",
			zap.String("subject", sub), zap.String("companyId", companyID), zap.Error(err))
		return Rights{}
	}
	return Rights{subject: sub, user: &user}
}
