package domain

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when an entity id is absent from the store.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidTransitionError is returned when a status change does not follow an
// edge of the transition graph. It carries the current status and the
// allowed-target set so callers can surface a corrective retry.
type InvalidTransitionError struct {
	ID      string
	Current AnomalyStatus
	Target  AnomalyStatus
	Allowed []AnomalyStatus
}

func (e InvalidTransitionError) Error() string {
	targets := make([]string, len(e.Allowed))
	for i, t := range e.Allowed {
		targets[i] = string(t)
	}
	return fmt.Sprintf("invalid status transition from %q to %q (allowed: %s)",
		e.Current, e.Target, strings.Join(targets, ", "))
}

// PreconditionFailedError is returned when a mutation's business
// precondition does not hold, e.g. closing an anomaly without a closure
// artifact. The mutation is aborted before any write.
type PreconditionFailedError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e PreconditionFailedError) Error() string {
	return fmt.Sprintf("precondition failed for %s %s: %s", e.Entity, e.ID, e.Reason)
}

// ValidationError is returned when required input is missing or malformed
// before any mutation occurs. Fields lists the offending input names when
// field-level attribution is possible.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}
