package requests

import "github.com/angelmondragon/bloodlink-backend/pkg/enums"

// edges lists every status a request may move to from a given status.
// Terminal statuses have no entry.
var edges = map[enums.RequestStatus][]enums.RequestStatus{
	enums.RequestStatusPending:  {enums.RequestStatusApproved, enums.RequestStatusRejected},
	enums.RequestStatusApproved: {enums.RequestStatusCompleted},
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to enums.RequestStatus) bool {
	for _, target := range edges[from] {
		if target == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable in one step from current.
func NextStatuses(current enums.RequestStatus) []enums.RequestStatus {
	next := edges[current]
	out := make([]enums.RequestStatus, len(next))
	copy(out, next)
	return out
}
