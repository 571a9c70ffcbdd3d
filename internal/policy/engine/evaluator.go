package engine

import (
	"context"

	policydomain "github.com/LAZYDOINDIA/LazyUI/internal/policy/domain"
	sessiondomain "github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

// Evaluator decides which task actions a role may perform.
type Evaluator interface {
	// Allowed reports whether role may perform action.
	Allowed(ctx context.Context, role sessiondomain.Role, action policydomain.Action) (bool, error)
	// AllowedActions returns every action role may perform, in policydomain.AllActions order.
	AllowedActions(ctx context.Context, role sessiondomain.Role) ([]policydomain.Action, error)
}

// builtinAllowed is the fallback used when the Rego policy cannot be compiled or evaluated.
// It matches defaultRegoPolicy.
func builtinAllowed(role sessiondomain.Role, action policydomain.Action) bool {
	if action == policydomain.ActionViewProfile {
		return role.Valid()
	}
	switch role {
	case sessiondomain.RoleTaker:
		switch action {
		case policydomain.ActionBrowseTasks, policydomain.ActionAcceptTask,
			policydomain.ActionViewAcceptedTasks, policydomain.ActionUpdateTaskStatus:
			return true
		}
	case sessiondomain.RoleGiver:
		switch action {
		case policydomain.ActionPostTask, policydomain.ActionViewPostedTasks,
			policydomain.ActionUpdateTask, policydomain.ActionDeleteTask:
			return true
		}
	}
	return false
}
