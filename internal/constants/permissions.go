package constants

const (
	CreateProject       = "create_project"
	EditProject         = "edit_project"
	DeleteProject       = "delete_project"
	ManageOrganizations = "manage_organizations"
	ManageStates        = "manage_states"
	ManageUsers         = "manage_users"
)
