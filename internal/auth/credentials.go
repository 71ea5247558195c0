package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Credentials is a login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Normalize trims the username; passwords are sent as typed.
func (c Credentials) Normalize() Credentials {
	c.Username = strings.TrimSpace(c.Username)
	return c
}

// Validate checks that both username and password are present.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Username,
			validation.Required,
			validation.Length(1, 64),
		),
		validation.Field(
			&c.Password,
			validation.Required,
		),
	)
}
