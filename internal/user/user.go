package user

import (
	"strings"
	"time"

	"github.com/cpdo/zoning-tracker/internal"
	userDatamodel "github.com/cpdo/zoning-tracker/internal/core/datamodel/user"
)

const (
	DefaultDesignation = "CPCD"
	DefaultSection     = "Plans"
)

var Roles = []string{internal.RoleAdmin, internal.RoleUser, internal.RoleViewer}

// User is the account as the API exposes it.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Designation  string    `json:"designation"`
	Section      string    `json:"section"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DirectoryEntry feeds the routed-to and OIC pickers.
type DirectoryEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FullName joins first and last name when both are present.
func FullName(first, last string) string {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first != "" && last != "" {
		return first + " " + last
	}
	return first + last
}

func (u *User) Principal() *internal.Principal {
	return &internal.Principal{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
	}
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Designation:  u.Designation,
		Section:      u.Section,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Designation:  u.Designation,
		Section:      u.Section,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	out := make([]*User, 0, len(users))
	for _, u := range users {
		out = append(out, FromDataModel(u))
	}
	return out
}
