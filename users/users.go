package users

import (
	"golang.org/x/crypto/bcrypt"
)

// RoleType is the organisation role the HR backend reports for a user.
type RoleType string

const (
	RoleOwner    RoleType = "owner"
	RoleAdmin    RoleType = "admin"
	RoleManager  RoleType = "manager"
	RoleColeader RoleType = "coleader"
	RoleMember   RoleType = "member"
)

// DashboardRoles are the roles allowed to sign in to the admin dashboard.
var DashboardRoles = []RoleType{RoleAdmin, RoleOwner, RoleManager}

// User is the profile returned by the login endpoint. It is persisted next to
// the session but the HTTP layer never looks inside it.
type User struct {
	ID       string   `json:"id"`        // HR record identifier
	AuthID   string   `json:"auth_id"`   // Identity provider subject
	Email    string   `json:"email"`     // Login email
	FullName string   `json:"full_name"` // Display name
	Role     RoleType `json:"role"`      // Organisation role
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// CanUseDashboard reports whether the user holds one of the DashboardRoles.
func (u *User) CanUseDashboard() bool {
	return u.HasRole(DashboardRoles...)
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
