package entity

import (
	"time"

	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type companyItem struct {
	store.Key
	Name      string    `dynamodbav:"name" validate:"required"`
	CreatedAt time.Time `dynamodbav:"createdAt"`
}

func (c Company) asItem() companyItem {
	return companyItem{
		Key:       keyspace.Company(c.ID),
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}

func (ci companyItem) asCompany(id string) Company {
	return Company{ID: id, Name: ci.Name, CreatedAt: ci.CreatedAt}
}

func EncodeCompany(c Company) (store.Item, error) {
	const op = "EncodeCompany"
	if err := required(op, "company id", c.ID, "company name", c.Name); err != nil {
		return nil, err
	}
	if err := checkID(op, "company id", c.ID); err != nil {
		return nil, err
	}
	return marshal(op, c.asItem())
}

func DecodeCompany(item store.Item) (Company, error) {
	const op = "DecodeCompany"
	var ci companyItem
	if err := unmarshal(op, item, &ci); err != nil {
		return Company{}, err
	}
	id, err := keyspace.ParseCompanyKey(ci.ItemID)
	if err != nil {
		return Company{}, err
	}
	return ci.asCompany(id), nil
}
