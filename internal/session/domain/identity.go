package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Role is a capability label an identity may act under.
type Role string

const (
	// RoleGiver posts tasks.
	RoleGiver Role = "GIVER"
	// RoleTaker accepts tasks.
	RoleTaker Role = "TAKER"
)

// ErrUnknownRole is returned when a role label is neither GIVER nor TAKER.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole returns the Role for label, or ErrUnknownRole.
func ParseRole(label string) (Role, error) {
	switch Role(label) {
	case RoleGiver, RoleTaker:
		return Role(label), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, label)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGiver || r == RoleTaker
}

// Identity is the signed-in person and the roles they may act as.
type Identity struct {
	ID          string
	Name        string
	Email       string
	Roles       []Role // insertion order kept; no duplicates
	PrimaryRole Role
}

// HasRole reports whether r is in the permitted set.
func (i *Identity) HasRole(r Role) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, r)
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = slices.Clone(i.Roles)
	return &c
}

// Profile is the registration input.
type Profile struct {
	Name  string
	Email string
	Role  Role
}

// storedIdentity is the JSON form of an Identity under the lazydo_user key.
// Records written before multi-role support carry "role" and no "roles".
type storedIdentity struct {
	ID          json.RawMessage `json:"id,omitempty"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Roles       []string        `json:"roles,omitempty"`
	Role        string          `json:"role,omitempty"`
	PrimaryRole string          `json:"primaryRole,omitempty"`
}

// MarshalIdentity encodes i in the current (multi-role) record format.
func MarshalIdentity(i *Identity) ([]byte, error) {
	if i == nil {
		return nil, errors.New("identity is nil")
	}
	id, err := json.Marshal(i.ID)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(i.Roles))
	for _, r := range i.Roles {
		roles = append(roles, string(r))
	}
	return json.Marshal(storedIdentity{
		ID:          id,
		Name:        i.Name,
		Email:       i.Email,
		Roles:       roles,
		PrimaryRole: string(i.PrimaryRole),
	})
}

// UnmarshalIdentity decodes a stored identity record, current or legacy, into the
// canonical form. The id may be a JSON string or number. Duplicate roles are dropped.
// A record that yields no roles at all is rejected.
func UnmarshalIdentity(data []byte) (*Identity, error) {
	var s storedIdentity
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}

	var labels []string
	switch {
	case len(s.Roles) > 0:
		labels = s.Roles
	case s.Role != "":
		labels = []string{s.Role}
	default:
		return nil, errors.New("decode identity: no roles")
	}

	out := &Identity{
		ID:          decodeID(s.ID),
		Name:        s.Name,
		Email:       s.Email,
		PrimaryRole: Role(s.PrimaryRole),
	}
	for _, l := range labels {
		r := Role(l)
		if l == "" || slices.Contains(out.Roles, r) {
			continue
		}
		out.Roles = append(out.Roles, r)
	}
	if len(out.Roles) == 0 {
		return nil, errors.New("decode identity: no roles")
	}
	if out.PrimaryRole == "" && s.Role != "" {
		out.PrimaryRole = Role(s.Role)
	}
	return out, nil
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
