package auth

import (
	"strings"

	"github.com/cpdo/zoning-tracker/internal/core/common/validation"
)

// LoginDTO accepts a username or an email in Username.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

func (d *LoginDTO) Normalize() {
	d.Username = strings.TrimSpace(d.Username)
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refresh_token", d.RefreshToken).Required()

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
