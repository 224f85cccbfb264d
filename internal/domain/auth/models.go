package auth

import "time"

const (
	RoleEmployee = "employee"
	RoleChecker  = "checker"
	RoleApprover = "approver"
	RoleAdmin    = "admin"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserContext is the authenticated identity carried on a request context.
type UserContext struct {
	UserID string
	Name   string
	Role   string
}

func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleChecker, RoleApprover, RoleAdmin:
		return true
	}
	return false
}
