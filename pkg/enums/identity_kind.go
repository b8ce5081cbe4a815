package enums

import "fmt"

// IdentityKind names the persisted identity slot a token belongs to.
type IdentityKind string

const (
	IdentityKindUser  IdentityKind = "auth"
	IdentityKindAdmin IdentityKind = "admin"
)

var validIdentityKinds = []IdentityKind{
	IdentityKindUser,
	IdentityKindAdmin,
}

// String implements fmt.Stringer.
func (i IdentityKind) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IdentityKind.
func (i IdentityKind) IsValid() bool {
	for _, candidate := range validIdentityKinds {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIdentityKind converts raw input into a IdentityKind.
func ParseIdentityKind(value string) (IdentityKind, error) {
	for _, candidate := range validIdentityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity kind %q", value)
}
