package review

import (
	"errors"
	"fmt"

	"demodesk/model"
)

// Role is a staff role acting on a demo.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleOwner     Role = "owner"
)

// Action is a workflow action requested over a demo.
type Action string

const (
	ActionLike       Action = "like"
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionUndoReject Action = "undo_reject"
)

// ErrInvalidTransition is returned for any (role, action, status)
// combination outside the transition table.
var ErrInvalidTransition = errors.New("review: invalid transition")

// Transition is one permitted workflow step. Moving a demo's files from
// the From folder to the To folder IS the status change.
type Transition struct {
	From   string
	To     string
	Notify bool // send a decision email to the submitter
}

// rule is one row of the transition table. Rows for the same (role,
// action) are ordered by probe preference: when a demo's current status
// is unknown, source folders are checked in table order.
type rule struct {
	role   Role
	action Action
	from   string
	to     string
	notify bool
}

// transitionTable is the single source of truth for the demo workflow.
var transitionTable = []rule{
	{RoleAssistant, ActionLike, model.StatusSubmitted, model.StatusAssistantLiked, true},
	{RoleAssistant, ActionReject, model.StatusSubmitted, model.StatusRejected, true},
	{RoleAssistant, ActionReject, model.StatusAssistantLiked, model.StatusRejected, true},
	{RoleAssistant, ActionUndoReject, model.StatusRejected, model.StatusSubmitted, false},

	{RoleOwner, ActionLike, model.StatusSubmitted, model.StatusAssistantLiked, true},
	{RoleOwner, ActionApprove, model.StatusAssistantLiked, model.StatusOwnerLiked, false},
	{RoleOwner, ActionReject, model.StatusSubmitted, model.StatusRejected, true},
	{RoleOwner, ActionReject, model.StatusAssistantLiked, model.StatusRejected, true},
	{RoleOwner, ActionReject, model.StatusOwnerLiked, model.StatusRejected, true},
	{RoleOwner, ActionUndoReject, model.StatusRejected, model.StatusSubmitted, false},
}

// Resolve maps (role, action, current status) to a transition. Unknown
// combinations fail with ErrInvalidTransition rather than no-opping.
func Resolve(role Role, action Action, current string) (Transition, error) {
	for _, r := range transitionTable {
		if r.role == role && r.action == action && r.from == current {
			return Transition{From: r.from, To: r.to, Notify: r.notify}, nil
		}
	}
	return Transition{}, fmt.Errorf("%w: role=%s action=%s status=%s", ErrInvalidTransition, role, action, current)
}

// CandidateSources returns the statuses a demo may currently be in for
// the given (role, action), in probe order. Used when the cache cannot
// say where the demo is.
func CandidateSources(role Role, action Action) []string {
	var sources []string
	for _, r := range transitionTable {
		if r.role == role && r.action == action {
			sources = append(sources, r.from)
		}
	}
	return sources
}

// ParseAction validates an action string for a role.
func ParseAction(role Role, raw string) (Action, error) {
	action := Action(raw)
	if len(CandidateSources(role, action)) == 0 {
		return "", fmt.Errorf("%w: role=%s action=%q", ErrInvalidTransition, role, raw)
	}
	return action, nil
}
