package user

import (
	"net/mail"
	"strings"
)

type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

const minPasswordLength = 8

type CreateUserDTO struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (d *CreateUserDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))

	if d.Username == "" {
		return ValidationError{Msg: "username is required"}
	}
	if len(d.Username) < 3 {
		return ValidationError{Msg: "username must be at least 3 characters"}
	}
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if _, err := mail.ParseAddress(d.Email); err != nil {
		return ValidationError{Msg: "email is not a valid address"}
	}
	if len(d.Password) < minPasswordLength {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}

type UpdateUserDTO struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*d.Email))
		if _, err := mail.ParseAddress(normalized); err != nil {
			return ValidationError{Msg: "email is not a valid address"}
		}
		d.Email = &normalized
	}
	return nil
}

type ResetPasswordDTO struct {
	NewPassword string `json:"new_password"`
}

func (d ResetPasswordDTO) Validate() error {
	if len(d.NewPassword) < minPasswordLength {
		return ValidationError{Msg: "password must be at least 8 characters"}
	}
	return nil
}
