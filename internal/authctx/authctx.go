// Package authctx carries the authenticated caller through a request. It is
// filled once by the auth middleware and passed explicitly to services.
package authctx

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdvisor    Role = "ADVISOR"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
	RoleBot        Role = "BOT"
)

type Context struct {
	UserID string
	Email  string
	Roles  []Role
}

func (c Context) Valid() bool {
	return strings.TrimSpace(c.UserID) != "" && len(c.Roles) > 0
}

func (c Context) HasRole(roles ...Role) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// CanSupervise reports whether the caller may act on conversations held by other agents.
func (c Context) CanSupervise() bool {
	return c.HasRole(RoleSupervisor, RoleAdmin)
}

func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		switch role := Role(strings.ToUpper(strings.TrimSpace(r))); role {
		case RoleAdvisor, RoleSupervisor, RoleAdmin, RoleBot:
			roles = append(roles, role)
		}
	}
	return roles
}

func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

type ctxKey struct{}

func With(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

func From(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}
