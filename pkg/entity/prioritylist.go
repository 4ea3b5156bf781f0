package entity

import (
	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/keyspace"
	"taskboard-core/pkg/store"
)

// PriorityList orders the tickets of one lifecycle state on a board.
type PriorityList struct {
	CompanyID string
	BoardID   string
	State     keyspace.TicketState
	TicketIDs []string
}

type priorityListItem struct {
	store.Key
	TicketIDs []string `dynamodbav:"ticketIds"`
}

func (p PriorityList) asItem() priorityListItem {
	return priorityListItem{
		Key:       keyspace.PriorityList(p.CompanyID, p.BoardID, p.State),
		TicketIDs: nonNil(p.TicketIDs),
	}
}

func (pi priorityListItem) asPriorityList(companyID, boardID string, state keyspace.TicketState) PriorityList {
	return PriorityList{
		CompanyID: companyID,
		BoardID:   boardID,
		State:     state,
		TicketIDs: nonNil(pi.TicketIDs),
	}
}

func EncodePriorityList(p PriorityList) (store.Item, error) {
	const op = "EncodePriorityList"
	if err := required(op, "company id", p.CompanyID, "board id", p.BoardID); err != nil {
		return nil, err
	}
	if _, err := keyspace.ParseTicketState(p.State.String()); err != nil {
		return nil, apperrors.Invalid(op, "unknown ticket state "+p.State.String())
	}

	seen := make(map[string]struct{}, len(p.TicketIDs))
	for _, id := range p.TicketIDs {
		if _, dup := seen[id]; dup {
			return nil, apperrors.Invalid(op, "ticket "+id+" is listed twice")
		}
		seen[id] = struct{}{}
	}
	return marshal(op, p.asItem())
}

func DecodePriorityList(item store.Item) (PriorityList, error) {
	const op = "DecodePriorityList"
	var pi priorityListItem
	if err := unmarshal(op, item, &pi); err != nil {
		return PriorityList{}, err
	}
	companyID, boardID, state, err := keyspace.ParsePriorityListKey(pi.ItemID)
	if err != nil {
		return PriorityList{}, err
	}
	return pi.asPriorityList(companyID, boardID, state), nil
}
