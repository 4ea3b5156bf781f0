package entity

import (
	"time"

	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// User is the rights record of one identity inside one company.
type User struct {
	Subject   string
	CompanyID string
	Name      string
	Email     string

	IsCompanyAdmin        bool
	CanManageCompanyUsers bool

	// BoardRights holds the boards the user is a member of, keyed by board id.
	BoardRights map[string]BoardRight

	CreatedAt time.Time
}

type BoardRight struct {
	IsAdmin bool `dynamodbav:"isAdmin"`
}

type userItem struct {
	store.Key
	Name                  string                `dynamodbav:"name" validate:"required"`
	Email                 string                `dynamodbav:"email"`
	SortName              string                `dynamodbav:"sortName"`
	IsCompanyAdmin        bool                  `dynamodbav:"isCompanyAdmin"`
	CanManageCompanyUsers bool                  `dynamodbav:"canManageCompanyUsers"`
	BoardRights           map[string]BoardRight `dynamodbav:"boardRights"`
	CreatedAt             time.Time             `dynamodbav:"createdAt"`
}

func (u User) asItem() userItem {
	rights := u.BoardRights
	if rights == nil {
		rights = map[string]BoardRight{}
	}
	return userItem{
		Key:                   keyspace.User(u.Subject, u.CompanyID),
		Name:                  u.Name,
		Email:                 u.Email,
		SortName:              keyspace.SortName(u.Name),
		IsCompanyAdmin:        u.IsCompanyAdmin,
		CanManageCompanyUsers: u.CanManageCompanyUsers,
		BoardRights:           rights,
		CreatedAt:             u.CreatedAt,
	}
}

func (ui userItem) asUser(subject, companyID string) User {
	rights := ui.BoardRights
	if rights == nil {
		rights = map[string]BoardRight{}
	}
	return User{
		Subject:               subject,
		CompanyID:             companyID,
		Name:                  ui.Name,
		Email:                 ui.Email,
		IsCompanyAdmin:        ui.IsCompanyAdmin,
		CanManageCompanyUsers: ui.CanManageCompanyUsers,
		BoardRights:           rights,
		CreatedAt:             ui.CreatedAt,
	}
}

// SortName is the alphabetical sort key stored with the user.
func (u User) SortName() string {
	return keyspace.SortName(u.Name)
}

func EncodeUser(u User) (store.Item, error) {
	const op = "EncodeUser"
	if err := required(op, "subject", u.Subject, "company id", u.CompanyID, "user name", u.Name); err != nil {
		return nil, err
	}
	if err := checkID(op, "subject", u.Subject); err != nil {
		return nil, err
	}
	for boardID := range u.BoardRights {
		if err := required(op, "board id", boardID); err != nil {
			return nil, err
		}
	}
	return marshal(op, u.asItem())
}

func DecodeUser(item store.Item) (User, error) {
	const op = "DecodeUser"
	var ui userItem
	if err := unmarshal(op, item, &ui); err != nil {
		return User{}, err
	}
	subject, companyID, err := keyspace.ParseUserKey(ui.Key)
	if err != nil {
		return User{}, err
	}
	return ui.asUser(subject, companyID), nil
}
