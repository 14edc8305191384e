package user

import (
	"strings"

	"github.com/cpdo/zoning-tracker/internal"
	"github.com/cpdo/zoning-tracker/internal/core/common/sanitize"
	"github.com/cpdo/zoning-tracker/internal/core/common/validation"
)

type CreateUserDTO struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Designation     string `json:"designation"`
	Section         string `json:"section"`
	Role            string `json:"role"`
}

// UpdateUserDTO changes an account. An empty Password keeps the current one.
type UpdateUserDTO struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	Designation     string `json:"designation"`
	Section         string `json:"section"`
	Role            string `json:"role"`
}

type UpdateProfileDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type PasswordStrengthDTO struct {
	Password string `json:"password"`
}

type ListResponse struct {
	Users []*User `json:"users"`
	Total int     `json:"total"`
}

type DirectoryResponse struct {
	Users []DirectoryEntry `json:"users"`
}

func clean(s string) string {
	return sanitize.Text(s)
}

func (d *CreateUserDTO) Normalize() {
	d.FirstName = clean(d.FirstName)
	d.LastName = clean(d.LastName)
	d.Username = clean(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Designation = clean(d.Designation)
	d.Section = clean(d.Section)
	d.Role = strings.TrimSpace(d.Role)
	if d.Designation == "" {
		d.Designation = DefaultDesignation
	}
	if d.Section == "" {
		d.Section = DefaultSection
	}
	if d.Role == "" {
		d.Role = internal.RoleUser
	}
}

func passwordRules(v *validation.ValidationBuilder, field, password, confirm string) {
	v.Field(field, password).Required().Custom(minPassword(field))
	v.Field("confirm_password", confirm).Required().Matches(password, internal.ErrCodePasswordMismatch)
}

func minPassword(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		if s, _ := value.(string); len([]rune(s)) < MinPasswordLength {
			return internal.NewValidationFieldError(field, "password must be at least 6 characters", internal.ErrCodePasswordTooShort)
		}
		return nil
	}
}

func (d *CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).Required().MaxLength(100)
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	passwordRules(v, "password", d.Password, d.ConfirmPassword)
	v.Field("role", d.Role).OneOf(Roles...)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *UpdateUserDTO) Normalize() {
	d.FirstName = clean(d.FirstName)
	d.LastName = clean(d.LastName)
	d.Username = clean(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Designation = clean(d.Designation)
	d.Section = clean(d.Section)
	d.Role = strings.TrimSpace(d.Role)
}

func (d *UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).Required().MaxLength(100)
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	v.Field("role", d.Role).Required().OneOf(Roles...)
	if d.Password != "" || d.ConfirmPassword != "" {
		passwordRules(v, "password", d.Password, d.ConfirmPassword)
	}

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *UpdateProfileDTO) Normalize() {
	d.Username = clean(d.Username)
	d.Email = strings.TrimSpace(d.Email)
}

func (d *UpdateProfileDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email()

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (d *ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	passwordRules(v, "new_password", d.NewPassword, d.ConfirmPassword)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
