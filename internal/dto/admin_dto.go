package dto

import (
	"time"

	"github.com/google/uuid"
)

// AdminUserQuery is the raw listing query; the service clamps and defaults
// it before it reaches the store.
type AdminUserQuery struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	SortBy   string `query:"sort_by"`
	SortDir  string `query:"sort_dir"`
	Role     string `query:"role"`
	Search   string `query:"search"`
}

type AdminUserRow struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	Roles         []string  `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
}

type AdminUserList struct {
	Users    []AdminUserRow `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type CreateInternalUserRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"` // admin or staff
	TempPassword string `json:"temp_password"`
}

type AssignRolesRequest struct {
	Roles []string `json:"roles"`
}

type AdminDeleteUserRequest struct {
	Password string `json:"password"`
}
