package keyspace

import (
	"fmt"
	"strings"

	apperrors "taskboard-core/pkg/errors"
)

// TicketState is the lifecycle partition a ticket lives in.
type TicketState int

const (
	Backlog TicketState = iota
	InProgress
	Done
)

var ticketStates = []TicketState{Backlog, InProgress, Done}

// TicketStates lists every lifecycle state in board order.
func TicketStates() []TicketState {
	return append([]TicketState(nil), ticketStates...)
}

func (s TicketState) String() string {
	switch s {
	case Backlog:
		return "BACKLOG"
	case InProgress:
		return "INPROGRESS"
	case Done:
		return "DONE"
	default:
		return fmt.Sprintf("TicketState(%d)", int(s))
	}
}

// ParseTicketState accepts the String form in any case.
func ParseTicketState(s string) (TicketState, error) {
	for _, st := range ticketStates {
		if strings.EqualFold(s, st.String()) {
			return st, nil
		}
	}
	return 0, apperrors.Invalid("ParseTicketState", fmt.Sprintf("unknown ticket state %q", s))
}
