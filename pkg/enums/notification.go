package enums

import "fmt"

// NotificationKind groups inbox entries for the mobile client.
type NotificationKind string

const (
	NotificationKindRequestStatus NotificationKind = "request_status"
	NotificationKindStockAlert    NotificationKind = "stock_alert"
	NotificationKindDonation      NotificationKind = "donation"
	NotificationKindSystem        NotificationKind = "system"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindRequestStatus,
	NotificationKindStockAlert,
	NotificationKindDonation,
	NotificationKindSystem,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
