package domain

// anomalyTransitions is the directed status graph. Any (current, target)
// pair not present here is an invalid transition.
var anomalyTransitions = map[AnomalyStatus][]AnomalyStatus{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusResolved, StatusClosed},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {StatusOpen},
}

// AllowedTransitions returns the set of statuses reachable from current.
// The returned slice is a copy; callers may mutate it freely.
func AllowedTransitions(current AnomalyStatus) []AnomalyStatus {
	targets := anomalyTransitions[current]
	out := make([]AnomalyStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether moving from current to target follows an
// edge of the transition graph. Self-loops are never allowed.
func CanTransition(current, target AnomalyStatus) bool {
	for _, t := range anomalyTransitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidAnomalyStatus reports whether s is one of the four canonical statuses.
func ValidAnomalyStatus(s AnomalyStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidWindowStatus reports whether s is a canonical maintenance window status.
func ValidWindowStatus(s WindowStatus) bool {
	switch s {
	case WindowStatusScheduled, WindowStatusInProgress, WindowStatusCompleted, WindowStatusCancelled:
		return true
	}
	return false
}

// ValidPlanStatus reports whether s is a canonical action plan status.
func ValidPlanStatus(s PlanStatus) bool {
	switch s {
	case PlanStatusDraft, PlanStatusApproved, PlanStatusInProgress, PlanStatusCompleted:
		return true
	}
	return false
}

// ValidItemStatus reports whether s is a canonical action item status.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemStatusPending, ItemStatusInProgress, ItemStatusCompleted, ItemStatusBlocked:
		return true
	}
	return false
}
