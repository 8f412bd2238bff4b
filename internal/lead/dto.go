package lead

import (
	"net/mail"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

type CreateLeadDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	DeskID    *int64 `json:"desk_id"`
}

func (d *CreateLeadDTO) Validate() error {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.Email = strings.TrimSpace(d.Email)

	if d.FirstName == "" {
		return ValidationError{Msg: "first_name is required"}
	}
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return ValidationError{Msg: "email is not a valid address"}
	}
	return nil
}

type UpdateLeadDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Status    *string `json:"status"`
}

func (d *UpdateLeadDTO) Validate() error {
	if d.FirstName != nil && strings.TrimSpace(*d.FirstName) == "" {
		return ValidationError{Msg: "first_name cannot be blank"}
	}
	if d.Status != nil && !Status(*d.Status).Valid() {
		return ValidationError{Msg: "status must be one of new, contacted, qualified, converted, lost"}
	}
	return nil
}

// AssignLeadDTO assigns or unassigns a lead. A nil AssigneeID clears the
// assignment.
type AssignLeadDTO struct {
	AssigneeID *int64 `json:"assignee_id"`
}
