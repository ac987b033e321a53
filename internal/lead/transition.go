package lead

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTerminalStatus      = errors.New("lead is closed or discarded")
	ErrUnknownStatus       = errors.New("unknown lead status")
	ErrSameStatus          = errors.New("lead already has that status")
	ErrDiscardFlowRequired = errors.New("discarding a lead requires a reason and a comment")
	ErrClientLinkRequired  = errors.New("closing a lead requires a linked client")
	ErrMissingReason       = errors.New("discard reason is required")
	ErrUnknownReason       = errors.New("unknown discard reason")
	ErrMissingComment      = errors.New("discard comment is required")
)

// Requirement names the side data a transition needs before it may be applied.
type Requirement int

const (
	RequiresNothing Requirement = iota
	RequiresDiscard
	RequiresClient
)

// Transitions maps every source status to the targets it may reach and what
// each target needs. Sinks have no entry.
var Transitions = buildTransitions()

func buildTransitions() map[Status]map[Status]Requirement {
	open := []Status{StatusNuevo, StatusPendiente, StatusEnGestion, StatusSeguimiento, StatusCotizado}
	table := make(map[Status]map[Status]Requirement, len(open))
	for _, from := range open {
		targets := make(map[Status]Requirement, len(Statuses)-1)
		for _, to := range open {
			if to != from {
				targets[to] = RequiresNothing
			}
		}
		targets[StatusDescartado] = RequiresDiscard
		targets[StatusCierre] = RequiresClient
		table[from] = targets
	}
	return table
}

// CheckTransition returns the requirement for moving from one status to
// another, or the reason the move is not allowed at all.
func CheckTransition(from, to Status) (Requirement, error) {
	if !from.Valid() || !to.Valid() {
		return RequiresNothing, ErrUnknownStatus
	}
	if from.Terminal() {
		return RequiresNothing, ErrTerminalStatus
	}
	if from == to {
		return RequiresNothing, ErrSameStatus
	}
	req, ok := Transitions[from][to]
	if !ok {
		return RequiresNothing, fmt.Errorf("%s -> %s: %w", from, to, ErrUnknownStatus)
	}
	return req, nil
}

// CheckDirectChange validates a plain dropdown change. Targets that need side
// data are reported with the sub-flow the caller has to open instead.
func CheckDirectChange(from, to Status) error {
	req, err := CheckTransition(from, to)
	if err != nil {
		return err
	}
	switch req {
	case RequiresDiscard:
		return ErrDiscardFlowRequired
	case RequiresClient:
		return ErrClientLinkRequired
	}
	return nil
}

type Discard struct {
	Reason  DiscardReason
	Comment string
}

func (d Discard) Validate() error {
	var errs []error
	reason := DiscardReason(strings.TrimSpace(string(d.Reason)))
	switch {
	case reason == "":
		errs = append(errs, ErrMissingReason)
	case !reason.Valid():
		errs = append(errs, ErrUnknownReason)
	}
	if strings.TrimSpace(d.Comment) == "" {
		errs = append(errs, ErrMissingComment)
	}
	return errors.Join(errs...)
}
