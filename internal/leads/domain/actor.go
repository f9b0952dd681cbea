package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RoleAdmin is the elevated role allowed to reopen closed leads.
const RoleAdmin = "admin"

// SystemActorName is stamped on changes made without a user.
const SystemActorName = "System"

// Actor is the caller-supplied identity attached to every mutation.
// It is trusted as given.
type Actor struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

// SystemActor returns the sentinel used by unattended jobs.
func SystemActor() Actor {
	return Actor{Name: SystemActorName, Role: "system"}
}

func (a Actor) IsAdmin() bool {
	return strings.EqualFold(a.Role, RoleAdmin)
}

// IsSystem reports whether the actor carries no user identity.
func (a Actor) IsSystem() bool {
	return a.ID == uuid.Nil
}

// DisplayName prefers the name, then the email, then the system sentinel.
func (a Actor) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if email := strings.TrimSpace(a.Email); email != "" {
		return email
	}
	return SystemActorName
}
