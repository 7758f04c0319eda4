package enums

import "fmt"

// RecipientRole identifies which party of an order a notification targets.
type RecipientRole string

const (
	RecipientRoleBuyer  RecipientRole = "buyer"
	RecipientRoleSeller RecipientRole = "seller"
)

var validRecipientRoles = []RecipientRole{
	RecipientRoleBuyer,
	RecipientRoleSeller,
}

// String implements fmt.Stringer.
func (r RecipientRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RecipientRole.
func (r RecipientRole) IsValid() bool {
	for _, candidate := range validRecipientRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecipientRole converts raw input into a RecipientRole.
func ParseRecipientRole(value string) (RecipientRole, error) {
	for _, candidate := range validRecipientRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recipient role %q", value)
}
