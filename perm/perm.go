// Package perm implements role assignment and wildcard permission rules.
package perm

import (
	"slices"
	"strings"
)

// Role is the name of a set of permission rules.
type Role string

// Built-in roles. Any other role name is a custom role whose rules and
// members come entirely from configuration.
const (
	Owner      Role = "owner"
	BotAdmin   Role = "bot_admin"
	GroupAdmin Role = "group_admin"
	Member     Role = "member"
)

// Principal identifies who sent a message and where.
type Principal struct {
	// User is the sender's user ID.
	User string
	// Group is the group the message was sent in, or empty for private
	// conversations.
	Group string
	// Elevated is whether the transport reports the sender as an owner or
	// administrator of Group.
	Elevated bool
}

// Match reports whether a single permission rule grants permission.
// The rule "*" matches everything. A rule "a.*" matches "a" and anything
// beginning with "a.". Any other rule matches only itself.
func Match(rule, permission string) bool {
	if rule == "*" {
		return true
	}
	if p, ok := strings.CutSuffix(rule, ".*"); ok {
		return permission == p || strings.HasPrefix(permission, p+".")
	}
	return rule == permission
}

func defaultRules(r Role) ([]string, bool) {
	switch r {
	case Owner, BotAdmin:
		return []string{"*"}, true
	case GroupAdmin:
		return []string{"utils.*", "question.*"}, true
	case Member:
		return []string{}, true
	}
	return nil, false
}

// Engine evaluates permissions against a fixed configuration.
// An Engine is safe for concurrent use; it is never modified after New.
type Engine struct {
	cfg Config
}

// New creates an Engine from configuration.
// The engine holds cfg by reference, so cfg must not change afterward.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Rules returns the permission rules for a role. Configured overrides take
// precedence over built-in defaults. Unknown roles without configured rules
// have no rules.
func (e *Engine) Rules(r Role) []string {
	if rules, ok := e.cfg.RolePermissions[string(r)]; ok {
		return rules
	}
	rules, _ := defaultRules(r)
	return rules
}

// Roles computes the roles held by p. Built-in roles come first in the order
// owner, bot admin, group admin, followed by custom roles in lexical order.
// A principal holding no other role is exactly a member.
func (e *Engine) Roles(p Principal) []Role {
	var r []Role
	if slices.Contains(e.cfg.Owners, p.User) {
		r = append(r, Owner)
	}
	if e.botAdmin(p) {
		r = append(r, BotAdmin)
	}
	if p.Group != "" && p.Elevated {
		r = append(r, GroupAdmin)
	}
	for _, c := range e.custom(p) {
		if !slices.Contains(r, c) {
			r = append(r, c)
		}
	}
	if len(r) == 0 {
		return []Role{Member}
	}
	return r
}

func (e *Engine) botAdmin(p Principal) bool {
	if slices.Contains(e.cfg.BotAdmins.Global, p.User) {
		return true
	}
	if p.Group == "" {
		return false
	}
	return slices.Contains(e.cfg.BotAdmins.Groups[p.Group], p.User)
}

func (e *Engine) custom(p Principal) []Role {
	var r []Role
	add := func(members map[string][]string) {
		for role, users := range members {
			if slices.Contains(users, p.User) && !slices.Contains(r, Role(role)) {
				r = append(r, Role(role))
			}
		}
	}
	add(e.cfg.RoleMembers.Global)
	if p.Group != "" {
		add(e.cfg.RoleMembers.Groups[p.Group])
	}
	slices.Sort(r)
	return r
}

// Has reports whether p holds permission. Per-user rules are checked before
// any role rules. The empty permission is public.
func (e *Engine) Has(p Principal, permission string) bool {
	if permission == "" {
		return true
	}
	if grants(e.cfg.UserPermissions.Global[p.User], permission) {
		return true
	}
	if p.Group != "" && grants(e.cfg.UserPermissions.Groups[p.Group][p.User], permission) {
		return true
	}
	for _, r := range e.Roles(p) {
		if grants(e.Rules(r), permission) {
			return true
		}
	}
	return false
}

func grants(rules []string, permission string) bool {
	return slices.ContainsFunc(rules, func(rule string) bool { return Match(rule, permission) })
}
