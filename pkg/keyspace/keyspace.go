// Package keyspace builds and parses the hierarchical keys every item is
// stored under. A key is a chain of TYPE.value segments joined by "_"; the
// belongsTo of a child is the parent chain followed by the plural grouping
// segment, so all children of a parent share one index partition.
//
// Builders do not validate ids. Ids containing "_" cannot be parsed back.
package keyspace

import (
	"fmt"
	"strings"
	"time"

	apperrors "taskboard-core/pkg/errors"
	"taskboard-core/pkg/store"
)

const (
	segmentSep = "_"
	valueSep   = "."

	companyInfo   = "COMPANY-INFO"
	allCompanies  = "ALL-COMPANIES"
	company       = "COMPANY"
	user          = "USER"
	board         = "BOARD"
	boards        = "BOARDS"
	ticket        = "TICKET"
	tag           = "TAG"
	tags          = "TAGS"
	template      = "TEMPLATE"
	templates     = "TEMPLATES"
	columns       = "COLUMNS"
	boardInfo     = "BOARDINFO"
	priorityList  = "PRIORITYLIST"
	priorityLists = "PRIORITYLISTS"
	doneTimestamp = "DONETICKETTIMESTAMP"
	doneTicketID  = "DONETICKETID"
	unknownTicket = "UNKNOWNSTATETICKET"

	// doneTimestampDigits keeps lexical and chronological order equal for
	// every millisecond timestamp up to the year 2286.
	doneTimestampDigits = 13
)

func segment(typ, value string) string {
	return typ + valueSep + value
}

func join(segments ...string) string {
	return strings.Join(segments, segmentSep)
}

func companyChain(companyID string) string {
	return segment(company, companyID)
}

func boardChain(companyID, boardID string) string {
	return join(companyChain(companyID), segment(board, boardID))
}

// Company is the key of the company record.
func Company(companyID string) store.Key {
	return store.Key{ItemID: segment(companyInfo, companyID), BelongsTo: allCompanies}
}

// AllCompanies returns the parent and prefix listing every company.
func AllCompanies() (parent, prefix string) {
	return allCompanies, companyInfo + valueSep
}

// User is the key of the rights record of subject inside a company.
func User(subject, companyID string) store.Key {
	return store.Key{ItemID: segment(user, subject), BelongsTo: companyChain(companyID)}
}

// CompanyUsers returns the parent and prefix listing every user of a company.
func CompanyUsers(companyID string) (parent, prefix string) {
	return companyChain(companyID), user + valueSep
}

func Board(companyID, boardID string) store.Key {
	return store.Key{
		ItemID:    boardChain(companyID, boardID),
		BelongsTo: join(companyChain(companyID), boards),
	}
}

// CompanyBoards returns the parent and prefix listing every board of a company.
func CompanyBoards(companyID string) (parent, prefix string) {
	return join(companyChain(companyID), boards), join(companyChain(companyID), board) + valueSep
}

// Ticket is the key of a ticket in the given lifecycle state. doneAt is only
// used for Done tickets.
func Ticket(companyID, boardID string, state TicketState, ticketID string, doneAt time.Time) store.Key {
	chain := boardChain(companyID, boardID)
	parent, _ := TicketsInState(companyID, boardID, state)

	var leaf string
	if state == Done {
		leaf = join(segment(doneTimestamp, FormatDoneTimestamp(doneAt)), segment(doneTicketID, ticketID))
	} else {
		leaf = segment(TicketPrefix(state), ticketID)
	}
	return store.Key{ItemID: join(chain, leaf), BelongsTo: parent}
}

// TicketsInState returns the parent and prefix listing every ticket of a board
// in one lifecycle state. Done tickets come back oldest first.
func TicketsInState(companyID, boardID string, state TicketState) (parent, prefix string) {
	chain := boardChain(companyID, boardID)
	if state == Done {
		return join(chain, "DONETICKETS"), join(chain, doneTimestamp) + valueSep
	}
	return join(chain, TicketPrefix(state)+"S"), join(chain, TicketPrefix(state)) + valueSep
}

// TicketPrefix is the segment type of a ticket key in state. States outside
// the lifecycle get a prefix of their own that no stored ticket carries.
func TicketPrefix(state TicketState) string {
	switch state {
	case Backlog:
		return "BACKLOGTICKET"
	case InProgress:
		return "INPROGRESSTICKET"
	case Done:
		return doneTimestamp
	default:
		return unknownTicket
	}
}

// DirectAccessTicket is the state independent key stored on every ticket.
func DirectAccessTicket(companyID, boardID, ticketID string) string {
	return join(boardChain(companyID, boardID), segment(ticket, ticketID))
}

// FormatDoneTimestamp renders t as zero-padded Unix milliseconds.
func FormatDoneTimestamp(t time.Time) string {
	return fmt.Sprintf("%0*d", doneTimestampDigits, t.UnixMilli())
}

// Tag is the key of a tag. The name is normalized with NormalizeTagName.
func Tag(companyID, boardID, name string) store.Key {
	chain := boardChain(companyID, boardID)
	return store.Key{
		ItemID:    join(chain, segment(tag, NormalizeTagName(name))),
		BelongsTo: join(chain, tags),
	}
}

func BoardTags(companyID, boardID string) (parent, prefix string) {
	chain := boardChain(companyID, boardID)
	return join(chain, tags), join(chain, tag) + valueSep
}

func Template(companyID, boardID, templateID string) store.Key {
	chain := boardChain(companyID, boardID)
	return store.Key{
		ItemID:    join(chain, segment(template, templateID)),
		BelongsTo: join(chain, templates),
	}
}

func BoardTemplates(companyID, boardID string) (parent, prefix string) {
	chain := boardChain(companyID, boardID)
	return join(chain, templates), join(chain, template) + valueSep
}

// Columns is the key of the column layout of a board.
func Columns(companyID, boardID string) store.Key {
	chain := boardChain(companyID, boardID)
	return store.Key{ItemID: join(chain, columns), BelongsTo: join(chain, boardInfo)}
}

// PriorityList is the key of the ticket ordering of one lifecycle state.
func PriorityList(companyID, boardID string, state TicketState) store.Key {
	chain := boardChain(companyID, boardID)
	return store.Key{
		ItemID:    join(chain, segment(priorityList, state.String())),
		BelongsTo: join(chain, priorityLists),
	}
}

func BoardPriorityLists(companyID, boardID string) (parent, prefix string) {
	chain := boardChain(companyID, boardID)
	return join(chain, priorityLists), join(chain, priorityList) + valueSep
}

// NormalizeTagName upper-cases name and replaces spaces with hyphens.
func NormalizeTagName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), " ", "-")
}

// SortName upper-cases a person's name and strips spaces, giving an
// alphabetical sort key.
func SortName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), " ", "")
}

func decodeErr(op, key, reason string) error {
	return apperrors.Decode(op, fmt.Sprintf("malformed key %q: %s", key, reason), nil)
}
