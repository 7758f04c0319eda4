package enums

import "fmt"

// EmailLogStatus tracks delivery progress for a dispatched notification.
type EmailLogStatus string

const (
	EmailLogStatusPending EmailLogStatus = "pending"
	EmailLogStatusSent    EmailLogStatus = "sent"
	EmailLogStatusFailed  EmailLogStatus = "failed"
)

var validEmailLogStatuses = []EmailLogStatus{
	EmailLogStatusPending,
	EmailLogStatusSent,
	EmailLogStatusFailed,
}

// String implements fmt.Stringer.
func (e EmailLogStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EmailLogStatus.
func (e EmailLogStatus) IsValid() bool {
	for _, candidate := range validEmailLogStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEmailLogStatus converts raw input into an EmailLogStatus.
func ParseEmailLogStatus(value string) (EmailLogStatus, error) {
	for _, candidate := range validEmailLogStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email log status %q", value)
}
