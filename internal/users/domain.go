package users

import "strings"

// Role is the application role of a member.
type Role string

const (
	RoleMember      Role = "MEMBER"
	RoleAdmin       Role = "ADMIN"
	RoleSeller      Role = "SELLER"
	RoleStorekeeper Role = "STOREKEEPER"
)

var roleLabels = map[Role]string{
	RoleMember:      "Miembro",
	RoleAdmin:       "Admin",
	RoleSeller:      "Vendedor",
	RoleStorekeeper: "Almacenero",
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// Label returns the role name shown in the admin screens.
func (r Role) Label() string {
	return roleLabels[r]
}

// Status is the membership status.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Member is a user of the point of sale as the admin screens see it.
type Member struct {
	ID       string `json:"member_id"`
	Name     string `json:"member_name"`
	Lastname string `json:"member_lastname"`
	Role     Role   `json:"member_role_app"`
	Status   Status `json:"member_status"`
}

// Profile is the self-service form: names plus a new password.
type Profile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Lastname        string `json:"lastname"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ProfileError is the structured failure of a profile update.
type ProfileError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Name    string `json:"name"`
}

func (e *ProfileError) Error() string {
	return e.Name + ": " + e.Message
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
