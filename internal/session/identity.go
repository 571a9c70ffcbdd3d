package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

// identityNamespace scopes the name-based UUIDs handed out as identity ids.
var identityNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("lazydo.app"))

// IdentityID returns the stable id for email. The same address, in any case, always maps
// to the same id, so a restored session and a fresh login agree.
func IdentityID(email string) string {
	return uuid.NewSHA1(identityNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// displayName derives a name for a login that supplies none: the local part of the email.
func displayName(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func loginIdentity(email string) *domain.Identity {
	return &domain.Identity{
		ID:          IdentityID(email),
		Name:        displayName(email),
		Email:       email,
		Roles:       []domain.Role{domain.RoleTaker, domain.RoleGiver},
		PrimaryRole: domain.RoleTaker,
	}
}

func registerIdentity(p domain.Profile) *domain.Identity {
	name := p.Name
	if name == "" {
		name = displayName(p.Email)
	}
	return &domain.Identity{
		ID:          IdentityID(p.Email),
		Name:        name,
		Email:       p.Email,
		Roles:       []domain.Role{p.Role},
		PrimaryRole: p.Role,
	}
}

// pickActiveRole returns stored when it is permitted, else the primary role when permitted,
// else the first permitted role.
func pickActiveRole(identity *domain.Identity, stored string) domain.Role {
	if stored != "" && identity.HasRole(domain.Role(stored)) {
		return domain.Role(stored)
	}
	if identity.PrimaryRole != "" && identity.HasRole(identity.PrimaryRole) {
		return identity.PrimaryRole
	}
	return identity.Roles[0]
}
