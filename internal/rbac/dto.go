package rbac

// AssignRoleDTO assigns a named role to a user.
type AssignRoleDTO struct {
	Role string `json:"role"`
}

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

func (d AssignRoleDTO) Validate() error {
	if d.Role == "" {
		return ValidationError{Msg: "role is required"}
	}
	return nil
}

// GrantPermissionDTO grants a catalog permission to a role.
type GrantPermissionDTO struct {
	Permission string `json:"permission"`
}

func (d GrantPermissionDTO) Validate() error {
	if d.Permission == "" {
		return ValidationError{Msg: "permission is required"}
	}
	return nil
}

// AssignDeskDTO puts a user on a desk.
type AssignDeskDTO struct {
	UserID int64 `json:"user_id"`
}

func (d AssignDeskDTO) Validate() error {
	if d.UserID == 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	return nil
}
