// Package session holds the signed-in identity, its permitted roles and the active role,
// and keeps them in a key-value store so the session survives a restart.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/LAZYDOINDIA/LazyUI/internal/security"
	"github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
	"github.com/LAZYDOINDIA/LazyUI/internal/storage"
	"github.com/LAZYDOINDIA/LazyUI/internal/telemetry"
)

// Storage keys of the persisted session record. The three entries form one record.
const (
	TokenKey       = "lazydo_token"
	UserKey        = "lazydo_user"
	CurrentRoleKey = "lazydo_current_role"
)

const instrumentationName = "github.com/LAZYDOINDIA/LazyUI/internal/session"

var (
	// ErrStorage wraps failures of the underlying key-value store.
	ErrStorage = errors.New("session: storage failure")
	// ErrValidation marks a role that is unknown or not permitted.
	ErrValidation = errors.New("session: validation failure")
	// ErrClosed is returned by mutating operations after Close.
	ErrClosed = errors.New("session: store closed")
)

// CredentialIssuer produces the token stored for a new session.
type CredentialIssuer interface {
	Issue(identity *domain.Identity) (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithIssuer sets the credential issuer. Default: security.StaticIssuer (the mock token).
func WithIssuer(issuer CredentialIssuer) Option {
	return func(s *Store) { s.issuer = issuer }
}

// WithEmitter sets where session events go. Default: none.
func WithEmitter(emitter telemetry.EventEmitter) Option {
	return func(s *Store) { s.emitter = emitter }
}

// WithEventSource sets the source attribute on emitted events.
func WithEventSource(source string) Option {
	return func(s *Store) { s.source = source }
}

// Store is the single authority for who is signed in, which roles they may act as and
// which role is active. Callers are expected to invoke mutating operations one at a time;
// the multi-key storage writes of one operation are not atomic with respect to another.
type Store struct {
	storage storage.Storage
	issuer  CredentialIssuer
	emitter telemetry.EventEmitter
	source  string
	tracer  trace.Tracer
	ops     metric.Int64Counter
	now     func() time.Time

	mu         sync.RWMutex
	state      domain.State
	loading    bool
	token      string
	identity   *domain.Identity
	activeRole domain.Role
	closed     bool
	subs       map[int]func(domain.Snapshot)
	nextSub    int
}

// NewStore returns a Store over kv in the Unknown state with loading set. Call Restore once
// at start.
func NewStore(kv storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage: kv,
		issuer:  security.StaticIssuer{},
		source:  "lazydo",
		tracer:  otel.Tracer(instrumentationName),
		now:     func() time.Time { return time.Now().UTC() },
		state:   domain.StateUnknown,
		loading: true,
		subs:    make(map[int]func(domain.Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	ops, err := otel.Meter(instrumentationName).Int64Counter(
		"lazydo.session.operations",
		metric.WithDescription("Session store operations by name and outcome"),
	)
	if err != nil {
		log.Printf("session: create counter: %v", err)
	}
	s.ops = ops
	return s
}

// Restore reads the persisted record and rebuilds the session. Token and identity must both
// be present; otherwise the store becomes Unauthenticated. Storage and decode failures are
// logged, never returned. Loading is cleared on every path.
func (s *Store) Restore(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.Restore")
	defer span.End()

	identity, token, active := s.readRecord(ctx)

	s.mu.Lock()
	s.loading = false
	if identity != nil {
		s.token = token
		s.identity = identity
		s.activeRole = active
		s.state = domain.StateAuthenticated
	} else {
		s.resetLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	outcome := "no_session"
	if identity != nil {
		outcome = "restored"
		s.emit(telemetry.EventSessionRestored, identity.ID, active, nil)
	}
	span.SetAttributes(attribute.String("session.outcome", outcome))
	s.count(ctx, "restore", outcome)
	s.notify(snap)
}

func (s *Store) readRecord(ctx context.Context) (*domain.Identity, string, domain.Role) {
	token, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		log.Printf("session: restore: read token: %v", err)
		return nil, "", ""
	}
	if !ok || token == "" {
		return nil, "", ""
	}
	raw, ok, err := s.storage.Get(ctx, UserKey)
	if err != nil {
		log.Printf("session: restore: read user: %v", err)
		return nil, "", ""
	}
	if !ok || raw == "" {
		return nil, "", ""
	}
	identity, err := domain.UnmarshalIdentity([]byte(raw))
	if err != nil {
		log.Printf("session: restore: %v", err)
		return nil, "", ""
	}
	stored, _, err := s.storage.Get(ctx, CurrentRoleKey)
	if err != nil {
		log.Printf("session: restore: read current role: %v", err)
		stored = ""
	}
	return identity, token, pickActiveRole(identity, stored)
}

// Login starts a session for email with roles TAKER and GIVER and TAKER active. The credential
// is not checked: identities are built locally. On storage failure the in-memory session is
// unchanged and the result carries a generic message.
func (s *Store) Login(ctx context.Context, email, credential string) domain.Result {
	ctx, span := s.tracer.Start(ctx, "session.Login")
	defer span.End()
	return s.start(ctx, span, "login", loginIdentity(email), "Login failed")
}

// Register starts a session whose only permitted role is profile.Role, which also becomes
// the primary and active role.
func (s *Store) Register(ctx context.Context, profile domain.Profile) domain.Result {
	ctx, span := s.tracer.Start(ctx, "session.Register")
	defer span.End()
	if !profile.Role.Valid() {
		err := fmt.Errorf("%w: role %q", ErrValidation, profile.Role)
		span.SetStatus(codes.Error, err.Error())
		s.count(ctx, "register", "invalid")
		return domain.Result{Error: "Registration failed: invalid role"}
	}
	return s.start(ctx, span, "register", registerIdentity(profile), "Registration failed")
}

func (s *Store) start(ctx context.Context, span trace.Span, op string, identity *domain.Identity, failMsg string) domain.Result {
	fail := func(err error) domain.Result {
		log.Printf("session: %s: %v", op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.count(ctx, op, "failed")
		return domain.Result{Error: failMsg}
	}

	s.mu.RLock()
	closed := s.closed
	prev := s.snapshotLocked()
	s.mu.RUnlock()
	if closed {
		return fail(ErrClosed)
	}

	token, err := s.issuer.Issue(identity)
	if err != nil {
		return fail(fmt.Errorf("issue credential: %w", err))
	}
	if err := s.writeRecord(ctx, token, identity, identity.PrimaryRole); err != nil {
		s.rollback(ctx, prev)
		return fail(err)
	}

	s.mu.Lock()
	s.token = token
	s.identity = identity
	s.activeRole = identity.PrimaryRole
	s.state = domain.StateAuthenticated
	snap := s.snapshotLocked()
	s.mu.Unlock()

	event := telemetry.EventLogin
	if op == "register" {
		event = telemetry.EventRegister
	}
	s.emit(event, identity.ID, identity.PrimaryRole, nil)
	s.count(ctx, op, "ok")
	s.notify(snap)
	return domain.Result{Success: true, Identity: identity.Clone()}
}

func (s *Store) writeRecord(ctx context.Context, token string, identity *domain.Identity, active domain.Role) error {
	raw, err := domain.MarshalIdentity(identity)
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("%w: write token: %v", ErrStorage, err)
	}
	if err := s.storage.Set(ctx, UserKey, string(raw)); err != nil {
		return fmt.Errorf("%w: write user: %v", ErrStorage, err)
	}
	if err := s.storage.Set(ctx, CurrentRoleKey, string(active)); err != nil {
		return fmt.Errorf("%w: write current role: %v", ErrStorage, err)
	}
	return nil
}

// rollback puts the persisted record back in line with prev after a failed write.
// Best-effort: errors are logged.
func (s *Store) rollback(ctx context.Context, prev domain.Snapshot) {
	if prev.IsAuthenticated() && prev.Identity != nil {
		if err := s.writeRecord(ctx, prev.Token, prev.Identity, prev.ActiveRole); err != nil {
			log.Printf("session: rollback: %v", err)
		}
		return
	}
	s.clearRecord(ctx)
}

func (s *Store) clearRecord(ctx context.Context) {
	for _, key := range []string{TokenKey, UserKey, CurrentRoleKey} {
		if err := s.storage.Remove(ctx, key); err != nil {
			log.Printf("session: remove %s: %v", key, err)
		}
	}
}

// Logout removes the persisted record and resets the session. Removal failures are logged;
// the in-memory reset always happens.
func (s *Store) Logout(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "session.Logout")
	defer span.End()

	s.clearRecord(ctx)

	s.mu.Lock()
	userID := ""
	if s.identity != nil {
		userID = s.identity.ID
	}
	s.loading = false
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(telemetry.EventLogout, userID, "", nil)
	s.count(ctx, "logout", "ok")
	s.notify(snap)
}

// SwitchRole makes role active. It does nothing when no session exists or role is not
// permitted. The returned error reports only a failed write of lazydo_current_role; the
// in-memory switch has already happened by then.
func (s *Store) SwitchRole(ctx context.Context, role domain.Role) error {
	ctx, span := s.tracer.Start(ctx, "session.SwitchRole", trace.WithAttributes(attribute.String("session.role", string(role))))
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.token == "" || !s.identity.HasRole(role) {
		s.mu.Unlock()
		s.count(ctx, "switch_role", "ignored")
		return nil
	}
	from := s.activeRole
	s.activeRole = role
	userID := s.identity.ID
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.emit(telemetry.EventRoleSwitched, userID, role, map[string]string{"from": string(from)})

	if err := s.storage.Set(ctx, CurrentRoleKey, string(role)); err != nil {
		err = fmt.Errorf("%w: write current role: %v", ErrStorage, err)
		log.Printf("session: switch role: %v", err)
		span.RecordError(err)
		s.count(ctx, "switch_role", "failed")
		return err
	}
	s.count(ctx, "switch_role", "ok")
	return nil
}

// AddRole permits role for the signed-in identity. It does nothing when no session exists,
// role is not GIVER or TAKER, or role is already permitted. The active role is not
// changed. The returned error reports only a failed write of the identity record.
func (s *Store) AddRole(ctx context.Context, role domain.Role) error {
	ctx, span := s.tracer.Start(ctx, "session.AddRole", trace.WithAttributes(attribute.String("session.role", string(role))))
	defer span.End()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.token == "" || !role.Valid() || s.identity.HasRole(role) {
		s.mu.Unlock()
		s.count(ctx, "add_role", "ignored")
		return nil
	}
	updated := s.identity.Clone()
	updated.Roles = append(updated.Roles, role)
	s.identity = updated
	active := s.activeRole
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.emit(telemetry.EventRoleAdded, updated.ID, active, map[string]string{"added": string(role)})

	raw, err := domain.MarshalIdentity(updated)
	if err == nil {
		if err = s.storage.Set(ctx, UserKey, string(raw)); err != nil {
			err = fmt.Errorf("%w: write user: %v", ErrStorage, err)
		}
	}
	if err != nil {
		log.Printf("session: add role: %v", err)
		span.RecordError(err)
		s.count(ctx, "add_role", "failed")
		return err
	}
	s.count(ctx, "add_role", "ok")
	return nil
}

// Subscribe registers fn to receive a snapshot after every state change. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(domain.Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close detaches all subscribers. Further Login, Register, SwitchRole and AddRole calls fail
// with ErrClosed. The underlying storage is not closed; it belongs to the caller.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.subs)
	return nil
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// CanActAsGiver reports whether GIVER is a permitted role.
func (s *Store) CanActAsGiver() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.HasRole(domain.RoleGiver)
}

// CanActAsTaker reports whether TAKER is a permitted role.
func (s *Store) CanActAsTaker() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.HasRole(domain.RoleTaker)
}

// Loading reports whether Restore has not yet completed.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ActiveRole returns the active role, or "" without a session.
func (s *Store) ActiveRole() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRole
}

// Roles returns a copy of the permitted roles; empty without a session.
func (s *Store) Roles() []domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return []domain.Role{}
	}
	return slices.Clone(s.identity.Roles)
}

// Identity returns a copy of the signed-in identity, or nil.
func (s *Store) Identity() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// Token returns the session credential, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State returns the lifecycle state.
func (s *Store) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the whole session state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Snapshot {
	roles := []domain.Role{}
	if s.identity != nil {
		roles = slices.Clone(s.identity.Roles)
	}
	return domain.Snapshot{
		State:      s.state,
		Loading:    s.loading,
		Token:      s.token,
		Identity:   s.identity.Clone(),
		ActiveRole: s.activeRole,
		Roles:      roles,
	}
}

func (s *Store) resetLocked() {
	s.token = ""
	s.identity = nil
	s.activeRole = ""
	s.state = domain.StateUnauthenticated
}

func (s *Store) notify(snap domain.Snapshot) {
	s.mu.RLock()
	fns := make([]func(domain.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) emit(eventType, userID string, role domain.Role, meta map[string]string) {
	if s.emitter == nil {
		return
	}
	event := &telemetry.SessionEvent{
		Type:      eventType,
		UserID:    userID,
		Role:      string(role),
		Source:    s.source,
		CreatedAt: s.now(),
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			event.Metadata = b
		}
	}
	telemetry.EmitAsync(s.emitter, event)
}

func (s *Store) count(ctx context.Context, op, outcome string) {
	if s.ops == nil {
		return
	}
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
