package constants

import roles "streammap-backend/internal/pkg/constants"

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	CreateProject:       {roles.Contributor, roles.Admin},
	EditProject:         {roles.Contributor, roles.Admin},
	DeleteProject:       {roles.Admin},
	ManageOrganizations: {roles.Admin},
	ManageStates:        {roles.Admin},
	ManageUsers:         {roles.Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
