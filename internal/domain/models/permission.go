package models

import (
	"regexp"
	"sort"
	"strings"

	"github.com/turtacn/authcore/pkg/errors"
)

var permissionNamePattern = regexp.MustCompile(`^[A-Z_]+$`)

// Permission is an immutable (resource, action, name) triple.
type Permission struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Name     string `json:"name"`
}

// NewPermission validates and builds a Permission. Resource and action are lowercased.
func NewPermission(resource, action, name string) (Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	name = strings.TrimSpace(name)

	if err := ValidateResourceAction(resource, action); err != nil {
		return Permission{}, err
	}
	if err := ValidatePermissionName(name); err != nil {
		return Permission{}, err
	}
	return Permission{Resource: resource, Action: action, Name: name}, nil
}

// ValidatePermissionName rejects names outside [A-Z_]+.
func ValidatePermissionName(name string) error {
	if !permissionNamePattern.MatchString(name) {
		return errors.ErrInvalidArgument("name", "must match [A-Z_]+")
	}
	return nil
}

// ValidateResourceAction rejects a blank resource or action and either one containing ':',
// which separates them in resource:action.
func ValidateResourceAction(resource, action string) error {
	if resource == "" || strings.Contains(resource, ":") {
		return errors.ErrInvalidArgument("resource", "must not be blank or contain ':'")
	}
	if action == "" || strings.Contains(action, ":") {
		return errors.ErrInvalidArgument("action", "must not be blank or contain ':'")
	}
	return nil
}

// FullName returns resource:action.
func (p Permission) FullName() string {
	return p.Resource + ":" + p.Action
}

// Matches reports whether p satisfies a check for resource/action or, when name is set, the exact name.
func (p Permission) Matches(resource, action, name string) bool {
	if name != "" {
		return p.Name == name
	}
	return p.Resource == strings.ToLower(resource) && p.Action == strings.ToLower(action)
}

// Role is a named set of permissions.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// EffectivePermissions returns the union of the permissions held through roles,
// deduplicated by identity and ordered by name.
func EffectivePermissions(roles []Role) []Permission {
	seen := make(map[Permission]struct{})
	out := make([]Permission, 0)
	for _, role := range roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].FullName() < out[j].FullName()
	})
	return out
}

// PermissionNames returns the distinct names of perms, sorted.
func PermissionNames(perms []Permission) []string {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Name] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PermissionCheckKey is the cache key fragment for a check: the exact name when given, otherwise resource:action.
// Names never contain ':' and resource:action always does, so the two forms cannot collide.
func PermissionCheckKey(resource, action, name string) string {
	if name != "" {
		return name
	}
	return strings.ToLower(resource) + ":" + strings.ToLower(action)
}
