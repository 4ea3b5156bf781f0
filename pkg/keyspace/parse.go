package keyspace

import (
	"strconv"
	"strings"
	"time"

	"taskboard-core/pkg/store"
)

// TicketRef is everything a ticket key encodes.
type TicketRef struct {
	CompanyID string
	BoardID   string
	TicketID  string
	State     TicketState
	DoneAt    time.Time
}

// Key rebuilds the stored key of the ticket.
func (r TicketRef) Key() store.Key {
	return Ticket(r.CompanyID, r.BoardID, r.State, r.TicketID, r.DoneAt)
}

// DirectAccessKey rebuilds the state independent key of the ticket.
func (r TicketRef) DirectAccessKey() string {
	return DirectAccessTicket(r.CompanyID, r.BoardID, r.TicketID)
}

// chain splits key into segments and checks their types against want. It
// returns the value of every segment.
func chain(op, key string, want ...string) ([]string, error) {
	segments := strings.Split(key, segmentSep)
	if len(segments) != len(want) {
		return nil, decodeErr(op, key, "unexpected number of segments")
	}

	values := make([]string, len(segments))
	for i, seg := range segments {
		typ, value, found := strings.Cut(seg, valueSep)
		if typ != want[i] {
			return nil, decodeErr(op, key, "expected "+want[i]+" segment")
		}
		if !found || value == "" {
			return nil, decodeErr(op, key, "empty "+want[i]+" value")
		}
		values[i] = value
	}
	return values, nil
}

// ParseCompanyKey returns the company id of a company itemId.
func ParseCompanyKey(itemID string) (string, error) {
	v, err := chain("ParseCompanyKey", itemID, companyInfo)
	if err != nil {
		return "", err
	}
	return v[0], nil
}

// ParseUserKey returns the subject and company of a user key.
func ParseUserKey(key store.Key) (subject, companyID string, err error) {
	u, err := chain("ParseUserKey", key.ItemID, user)
	if err != nil {
		return "", "", err
	}
	c, err := chain("ParseUserKey", key.BelongsTo, company)
	if err != nil {
		return "", "", err
	}
	return u[0], c[0], nil
}

func ParseBoardKey(itemID string) (companyID, boardID string, err error) {
	v, err := chain("ParseBoardKey", itemID, company, board)
	if err != nil {
		return "", "", err
	}
	return v[0], v[1], nil
}

// ParseTicketKey recovers company, board, ticket id and lifecycle state from
// a ticket itemId. DoneAt is set for done tickets only.
func ParseTicketKey(itemID string) (TicketRef, error) {
	const op = "ParseTicketKey"

	segments := strings.Split(itemID, segmentSep)
	switch len(segments) {
	case 3:
		typ, _, _ := strings.Cut(segments[2], valueSep)
		var state TicketState
		switch typ {
		case TicketPrefix(Backlog):
			state = Backlog
		case TicketPrefix(InProgress):
			state = InProgress
		default:
			return TicketRef{}, decodeErr(op, itemID, "not a ticket key")
		}
		v, err := chain(op, itemID, company, board, typ)
		if err != nil {
			return TicketRef{}, err
		}
		return TicketRef{CompanyID: v[0], BoardID: v[1], TicketID: v[2], State: state}, nil

	case 4:
		v, err := chain(op, itemID, company, board, doneTimestamp, doneTicketID)
		if err != nil {
			return TicketRef{}, err
		}
		ms, err := strconv.ParseInt(v[2], 10, 64)
		if err != nil || len(v[2]) != doneTimestampDigits {
			return TicketRef{}, decodeErr(op, itemID, "bad done timestamp")
		}
		return TicketRef{
			CompanyID: v[0],
			BoardID:   v[1],
			TicketID:  v[3],
			State:     Done,
			DoneAt:    time.UnixMilli(ms).UTC(),
		}, nil

	default:
		return TicketRef{}, decodeErr(op, itemID, "not a ticket key")
	}
}

// ParseDirectAccessTicket returns the ids of a direct-access ticket key.
func ParseDirectAccessTicket(key string) (companyID, boardID, ticketID string, err error) {
	v, err := chain("ParseDirectAccessTicket", key, company, board, ticket)
	if err != nil {
		return "", "", "", err
	}
	return v[0], v[1], v[2], nil
}

// ParseTagKey returns the ids and the normalized name of a tag itemId.
func ParseTagKey(itemID string) (companyID, boardID, name string, err error) {
	v, err := chain("ParseTagKey", itemID, company, board, tag)
	if err != nil {
		return "", "", "", err
	}
	return v[0], v[1], v[2], nil
}

func ParseTemplateKey(itemID string) (companyID, boardID, templateID string, err error) {
	v, err := chain("ParseTemplateKey", itemID, company, board, template)
	if err != nil {
		return "", "", "", err
	}
	return v[0], v[1], v[2], nil
}

// ParseColumnsKey returns the board a column layout itemId belongs to.
func ParseColumnsKey(itemID string) (companyID, boardID string, err error) {
	boardKey, ok := strings.CutSuffix(itemID, segmentSep+columns)
	if !ok {
		return "", "", decodeErr("ParseColumnsKey", itemID, "not a columns key")
	}
	return ParseBoardKey(boardKey)
}

// ParsePriorityListKey returns the board and lifecycle state of a priority
// list itemId.
func ParsePriorityListKey(itemID string) (companyID, boardID string, state TicketState, err error) {
	v, err := chain("ParsePriorityListKey", itemID, company, board, priorityList)
	if err != nil {
		return "", "", 0, err
	}
	state, err = ParseTicketState(v[2])
	if err != nil {
		return "", "", 0, decodeErr("ParsePriorityListKey", itemID, "unknown state")
	}
	return v[0], v[1], state, nil
}
