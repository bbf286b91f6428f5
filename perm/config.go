package perm

// Config is the RBAC configuration section.
type Config struct {
	// Owners is the list of user IDs with the owner role.
	Owners []string `toml:"owners"`
	// BotAdmins lists user IDs with the bot admin role.
	BotAdmins Scoped[[]string] `toml:"bot_admins"`
	// RolePermissions overrides the rules for built-in roles and defines
	// rules for custom roles.
	RolePermissions map[string][]string `toml:"role_permissions"`
	// RoleMembers maps custom role names to their members.
	RoleMembers Scoped[map[string][]string] `toml:"role_members"`
	// UserPermissions grants rules directly to user IDs.
	UserPermissions Scoped[map[string][]string] `toml:"user_permissions"`
}

// Scoped is a setting that applies globally and per group.
type Scoped[T any] struct {
	Global T            `toml:"global"`
	Groups map[string]T `toml:"groups"`
}
