package models

// StaffRole represents the available roles for the RBAC system.
type StaffRole string

const (
	RoleAdmin    StaffRole = "ADMIN"
	RoleHomeroom StaffRole = "HOMEROOM"
	RoleProctor  StaffRole = "PROCTOR"
	RoleKitchen  StaffRole = "KITCHEN"
)

// Valid reports whether the role is known.
func (r StaffRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleHomeroom, RoleProctor, RoleKitchen:
		return true
	}
	return false
}

// Staff is a school employee able to sign in.
type Staff struct {
	Username      string    `json:"username" yaml:"username"`
	Password      string    `json:"-" yaml:"password"`
	FullName      string    `json:"full_name" yaml:"full_name"`
	Role          StaffRole `json:"role" yaml:"role"`
	HomeroomClass string    `json:"homeroom_class,omitempty" yaml:"homeroom_class,omitempty"`
}

// HasHomeroom reports whether the staff member is accountable for a class.
func (s Staff) HasHomeroom() bool {
	return s.Role == RoleHomeroom && s.HomeroomClass != ""
}
