// Package health reports whether the pieces a session depends on are usable.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Pinger checks a database connection (e.g. *sql.DB or the Postgres session store).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the role policy compiles and evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// PolicyCheckFunc adapts a function to PolicyChecker.
type PolicyCheckFunc func(ctx context.Context) error

func (f PolicyCheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Status is the overall outcome of a check run.
type Status int

const (
	StatusServing Status = iota
	StatusNotServing
)

func (s Status) String() string {
	if s == StatusServing {
		return "SERVING"
	}
	return "NOT_SERVING"
}

// Report is the result of Check. Failures maps a component name to its error text.
type Report struct {
	Status   Status
	Checked  []string
	Failures map[string]string
}

// Checker runs the configured checks. Nil checks are skipped.
type Checker struct {
	pinger  Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// NewChecker returns a Checker. pinger and policy may be nil.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy, timeout: 5 * time.Second}
}

// Check runs every configured check and never returns an error; failures are in the report.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r := Report{Status: StatusServing, Failures: map[string]string{}}
	run := func(name string, fn func(context.Context) error) {
		r.Checked = append(r.Checked, name)
		if err := fn(ctx); err != nil {
			r.Status = StatusNotServing
			r.Failures[name] = err.Error()
		}
	}
	if c.pinger != nil {
		run("storage", c.pinger.PingContext)
	}
	if c.policy != nil {
		run("policy", c.policy.HealthCheck)
	}
	return r
}

// String renders the report one component per line.
func (r Report) String() string {
	out := r.Status.String() + "\n"
	names := append([]string(nil), r.Checked...)
	sort.Strings(names)
	for _, n := range names {
		if msg, ok := r.Failures[n]; ok {
			out += fmt.Sprintf("  %s: FAIL %s\n", n, msg)
		} else {
			out += fmt.Sprintf("  %s: ok\n", n)
		}
	}
	return out
}
