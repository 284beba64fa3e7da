package enums

import "fmt"

// Role is the account role carried in access tokens.
type Role string

const (
	RoleDonor          Role = "donor"
	RoleRequester      Role = "requester"
	RoleBloodBankAdmin Role = "bloodbank_admin"
)

var validRoles = []Role{
	RoleDonor,
	RoleRequester,
	RoleBloodBankAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanCreateRequests reports whether the role may open blood requests.
func (r Role) CanCreateRequests() bool {
	return r == RoleRequester || r == RoleDonor
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
