package health

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck_NilChecks(t *testing.T) {
	r := NewChecker(nil, nil).Check(context.Background())
	if r.Status != StatusServing {
		t.Errorf("status = %v, want SERVING", r.Status)
	}
	if len(r.Checked) != 0 {
		t.Errorf("checked = %v, want none", r.Checked)
	}
}

func TestCheck_PingerSuccess(t *testing.T) {
	r := NewChecker(&mockPinger{}, nil).Check(context.Background())
	if r.Status != StatusServing {
		t.Errorf("status = %v, want SERVING", r.Status)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	r := NewChecker(&mockPinger{pingErr: errors.New("connection refused")}, nil).Check(context.Background())
	if r.Status != StatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", r.Status)
	}
	if r.Failures["storage"] != "connection refused" {
		t.Errorf("failures = %v", r.Failures)
	}
}

func TestCheck_PolicyCheckerFailure(t *testing.T) {
	r := NewChecker(nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}).Check(context.Background())
	if r.Status != StatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", r.Status)
	}
}

func TestCheck_BothChecksPolicyFails(t *testing.T) {
	r := NewChecker(&mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}).Check(context.Background())
	if r.Status != StatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", r.Status)
	}
	if _, ok := r.Failures["storage"]; ok {
		t.Error("storage should not be reported as failing")
	}
	out := r.String()
	if !strings.Contains(out, "storage: ok") || !strings.Contains(out, "policy: FAIL policy error") {
		t.Errorf("String() = %q", out)
	}
}

func TestPolicyCheckFunc(t *testing.T) {
	called := false
	var pc PolicyChecker = PolicyCheckFunc(func(context.Context) error { called = true; return nil })
	r := NewChecker(nil, pc).Check(context.Background())
	if !called || r.Status != StatusServing {
		t.Errorf("called=%v status=%v", called, r.Status)
	}
}
