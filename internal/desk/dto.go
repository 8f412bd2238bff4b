package desk

import "strings"

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

type CreateDeskDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d *CreateDeskDTO) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	if len(d.Name) > 100 {
		return ValidationError{Msg: "name must be at most 100 characters"}
	}
	return nil
}

type UpdateDeskDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (d *UpdateDeskDTO) Validate() error {
	if d.Name != nil {
		trimmed := strings.TrimSpace(*d.Name)
		if trimmed == "" {
			return ValidationError{Msg: "name cannot be blank"}
		}
		if len(trimmed) > 100 {
			return ValidationError{Msg: "name must be at most 100 characters"}
		}
		d.Name = &trimmed
	}
	return nil
}

type SetPrimaryDTO struct {
	UserID int64 `json:"user_id"`
}

func (d SetPrimaryDTO) Validate() error {
	if d.UserID == 0 {
		return ValidationError{Msg: "user_id is required"}
	}
	return nil
}
