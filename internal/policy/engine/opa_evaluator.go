package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	policydomain "github.com/LAZYDOINDIA/LazyUI/internal/policy/domain"
	sessiondomain "github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

const allowQuery = "data.lazydo.roles.allow"

// defaultRegoPolicy lets a TAKER browse and accept tasks, a GIVER post and manage them,
// and either view their profile.
const defaultRegoPolicy = `package lazydo.roles

default allow := false

known_roles := {"GIVER", "TAKER"}

taker_actions := {"browse_tasks", "accept_task", "view_accepted_tasks", "update_task_status"}

giver_actions := {"post_task", "view_posted_tasks", "update_task", "delete_task"}

allow if {
	input.role == "TAKER"
	taker_actions[input.action]
}

allow if {
	input.role == "GIVER"
	giver_actions[input.action]
}

allow if {
	known_roles[input.role]
	input.action == "view_profile"
}
`

// OPAEvaluator evaluates role capabilities with an OPA Rego policy. The query is prepared once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the built-in policy together with any extra modules. Extra
// modules in package lazydo.roles may add allow rules but must not redeclare the default.
// When the extra modules fail to compile, the error is logged and the built-in policy is
// used alone.
func NewOPAEvaluator(ctx context.Context, extra ...string) (*OPAEvaluator, error) {
	if len(extra) > 0 {
		e, err := prepare(ctx, append([]string{defaultRegoPolicy}, extra...))
		if err == nil {
			return e, nil
		}
		log.Printf("policy: %v, using defaults", err)
	}
	return prepare(ctx, []string{defaultRegoPolicy})
}

func prepare(ctx context.Context, modules []string) (*OPAEvaluator, error) {
	files := make(map[string]string, len(modules))
	for i, m := range modules {
		files[fmt.Sprintf("policy_%d.rego", i)] = m
	}
	compiler, err := ast.CompileModules(files)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	pq, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// HealthCheck compiles and evaluates the built-in policy. Returns nil on success.
func HealthCheck(ctx context.Context) error {
	e, err := NewOPAEvaluator(ctx)
	if err != nil {
		return err
	}
	if _, err := e.eval(ctx, sessiondomain.RoleTaker, policydomain.ActionBrowseTasks); err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	return nil
}

// HealthCheck evaluates the loaded policy once and reports any evaluation error.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	if _, err := e.eval(ctx, sessiondomain.RoleTaker, policydomain.ActionBrowseTasks); err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	return nil
}

// Allowed reports whether role may perform action. An evaluation failure is logged and
// answered from the built-in table.
func (e *OPAEvaluator) Allowed(ctx context.Context, role sessiondomain.Role, action policydomain.Action) (bool, error) {
	ok, err := e.eval(ctx, role, action)
	if err != nil {
		log.Printf("policy: evaluation failed: %v, using defaults", err)
		return builtinAllowed(role, action), nil
	}
	return ok, nil
}

// AllowedActions returns every action role may perform.
func (e *OPAEvaluator) AllowedActions(ctx context.Context, role sessiondomain.Role) ([]policydomain.Action, error) {
	var out []policydomain.Action
	for _, a := range policydomain.AllActions {
		ok, err := e.Allowed(ctx, role, a)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, role sessiondomain.Role, action policydomain.Action) (bool, error) {
	input := map[string]interface{}{
		"role":   string(role),
		"action": string(action),
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy query returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return v, nil
}
