package plugins

import "fmt"

// Permission is a capability token a plugin may request from the host
type Permission string

const (
	PermissionDatabaseRead   Permission = "database.read"
	PermissionDatabaseWrite  Permission = "database.write"
	PermissionAPIRead        Permission = "api.read"
	PermissionAPIWrite       Permission = "api.write"
	PermissionFilesRead      Permission = "files.read"
	PermissionFilesWrite     Permission = "files.write"
	PermissionNetworkRequest Permission = "network.request"
)

var allPermissions = []Permission{
	PermissionDatabaseRead,
	PermissionDatabaseWrite,
	PermissionAPIRead,
	PermissionAPIWrite,
	PermissionFilesRead,
	PermissionFilesWrite,
	PermissionNetworkRequest,
}

// AllPermissions returns the permission vocabulary in declaration order
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// ParsePermission converts a token into a Permission, rejecting anything outside the vocabulary
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsValid() {
		return "", &ValidationError{
			Field:   "permissions",
			Value:   s,
			Message: fmt.Sprintf("Permission not allowed: %s", s),
		}
	}
	return p, nil
}

// IsValid reports whether p is one of the whitelisted permissions
func (p Permission) IsValid() bool {
	for _, allowed := range allPermissions {
		if p == allowed {
			return true
		}
	}
	return false
}

func (p Permission) String() string {
	return string(p)
}
