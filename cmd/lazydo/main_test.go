package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T, apiURL string) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "JWT_PRIVATE_KEY", "JWT_PUBLIC_KEY", "POLICY_PATH",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "APP_ENV", "API_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_PATH", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("API_BASE_URL", apiURL)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("lazydo %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestCLI_LoginSwitchRouteLogout(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")

	if out := mustRun(t, "status"); !strings.Contains(out, "state: unauthenticated") {
		t.Errorf("status before login = %q", out)
	}
	if out := mustRun(t, "route"); !strings.HasPrefix(out, "Auth") {
		t.Errorf("route before login = %q", out)
	}

	mustRun(t, "login", "--email", "a@x.com", "--password", "pw")
	out := mustRun(t, "status")
	for _, want := range []string{"state: authenticated", "roles: TAKER, GIVER", "active role: TAKER"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
	if out := mustRun(t, "route"); !strings.HasPrefix(out, "TakerTabs") || !strings.Contains(out, "Browse Tasks") {
		t.Errorf("taker route = %q", out)
	}

	mustRun(t, "switch-role", "giver")
	if out := mustRun(t, "route"); !strings.HasPrefix(out, "GiverTabs") || !strings.Contains(out, "Post Task") {
		t.Errorf("giver route = %q", out)
	}

	mustRun(t, "logout")
	if out := mustRun(t, "status"); !strings.Contains(out, "state: unauthenticated") {
		t.Errorf("status after logout = %q", out)
	}
}

func TestCLI_RegisterAddRole(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")

	mustRun(t, "register", "--name", "A", "--email", "a@x.com", "--role", "TAKER")
	if _, err := runCLI(t, "switch-role", "GIVER"); err == nil {
		t.Error("switch to a role that is not permitted should fail")
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "active role: TAKER") {
		t.Errorf("status = %q", out)
	}

	if out := mustRun(t, "add-role", "GIVER"); !strings.Contains(out, "roles: TAKER, GIVER") {
		t.Errorf("add-role output = %q", out)
	}
	mustRun(t, "switch-role", "GIVER")
	if out := mustRun(t, "status"); !strings.Contains(out, "active role: GIVER") {
		t.Errorf("status = %q", out)
	}
}

func TestCLI_RegisterInvalidRole(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	if _, err := runCLI(t, "register", "--email", "a@x.com", "--role", "ADMIN"); err == nil {
		t.Error("register with unknown role should fail")
	}
}

func TestCLI_Can(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	mustRun(t, "login", "--email", "a@x.com")

	if out := mustRun(t, "can", "browse_tasks"); !strings.Contains(out, "TAKER browse_tasks: true") {
		t.Errorf("can browse_tasks = %q", out)
	}
	if out := mustRun(t, "can", "post_task"); !strings.Contains(out, "TAKER post_task: false") {
		t.Errorf("can post_task = %q", out)
	}
	if out := mustRun(t, "can", "--role", "GIVER"); !strings.Contains(out, "post_task") || strings.Contains(out, "accept_task") {
		t.Errorf("giver actions = %q", out)
	}
}

func TestCLI_Tasks(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`[{"id":1,"title":"Fix faucet","reward":40,"createdAt":"2024-01-15T08:00:00Z"}]`))
	}))
	defer server.Close()
	setupEnv(t, server.URL+"/api")

	if _, err := runCLI(t, "tasks", "list"); err == nil {
		t.Error("tasks list should require a session")
	}

	mustRun(t, "login", "--email", "a@x.com")
	out := mustRun(t, "tasks", "list", "--category", "Home Repair")
	if !strings.Contains(out, "Fix faucet") {
		t.Errorf("tasks list = %q", out)
	}
	if gotAuth != "Bearer mock-jwt-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/tasks" {
		t.Errorf("path = %q", gotPath)
	}

	if _, err := runCLI(t, "tasks", "create", "--title", "Groceries"); err == nil {
		t.Error("TAKER should not be allowed to post a task")
	}
}

func TestCLI_Tasks_UnauthorizedDropsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	setupEnv(t, server.URL)

	mustRun(t, "login", "--email", "a@x.com")
	if _, err := runCLI(t, "tasks", "accepted"); err == nil {
		t.Fatal("expected error on 401")
	}
	if out := mustRun(t, "status"); !strings.Contains(out, "state: unauthenticated") {
		t.Errorf("status after 401 = %q", out)
	}
}

func TestCLI_SessionVerify_MockToken(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	if _, err := runCLI(t, "session", "verify"); err == nil {
		t.Error("verify without a session should fail")
	}
	mustRun(t, "login", "--email", "a@x.com")
	if out := mustRun(t, "session", "verify"); !strings.Contains(out, "mock token") {
		t.Errorf("verify = %q", out)
	}
}

func TestCLI_Health(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	out := mustRun(t, "health")
	if !strings.Contains(out, "SERVING") || !strings.Contains(out, "policy: ok") {
		t.Errorf("health = %q", out)
	}
}

func TestCLI_HistoryNeedsPostgres(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	if _, err := runCLI(t, "history"); err == nil {
		t.Error("history should fail without the postgres backend")
	}
}

func TestCLI_MalformedPolicyFallsBack(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	path := filepath.Join(t.TempDir(), "roles.rego")
	if err := os.WriteFile(path, []byte("package lazydo.roles\nallow if {"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLICY_PATH", path)

	mustRun(t, "login", "--email", "a@x.com")
	if out := mustRun(t, "can", "browse_tasks"); !strings.Contains(out, "TAKER browse_tasks: true") {
		t.Errorf("can browse_tasks = %q", out)
	}
	if out := mustRun(t, "logout"); !strings.Contains(out, "signed out") {
		t.Errorf("logout = %q", out)
	}
}

func TestCLI_PolicyFileAddsRules(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	path := filepath.Join(t.TempDir(), "roles.rego")
	extra := "package lazydo.roles\n\nallow if {\n\tinput.role == \"TAKER\"\n\tinput.action == \"post_task\"\n}\n"
	if err := os.WriteFile(path, []byte(extra), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLICY_PATH", path)

	mustRun(t, "login", "--email", "a@x.com")
	if out := mustRun(t, "can", "post_task"); !strings.Contains(out, "TAKER post_task: true") {
		t.Errorf("can post_task = %q", out)
	}
	if out := mustRun(t, "can", "browse_tasks"); !strings.Contains(out, "TAKER browse_tasks: true") {
		t.Errorf("can browse_tasks = %q", out)
	}
}

func TestCLI_MissingPolicyFileFallsBack(t *testing.T) {
	setupEnv(t, "http://localhost:8080/api")
	t.Setenv("POLICY_PATH", filepath.Join(t.TempDir(), "absent.rego"))
	mustRun(t, "status")
}
