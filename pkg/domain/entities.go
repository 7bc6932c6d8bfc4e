// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by anomalycore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records, persistence
// buckets, and derived-index keys.
const (
	// EntityAnomaly identifies an equipment anomaly record.
	EntityAnomaly EntityType = "anomaly"
	// EntityMaintenanceWindow identifies a maintenance window record.
	EntityMaintenanceWindow EntityType = "maintenance_window"
	// EntityActionPlan identifies an action plan record.
	EntityActionPlan EntityType = "action_plan"
)

// AnomalyStatus represents the canonical anomaly lifecycle states.
type AnomalyStatus string

// Canonical anomaly statuses. Transitions between them are constrained by
// the graph in transitions.go.
const (
	// StatusOpen is the default status of a newly detected anomaly.
	StatusOpen       AnomalyStatus = "open"
	StatusInProgress AnomalyStatus = "in_progress"
	StatusResolved   AnomalyStatus = "resolved"
	StatusClosed     AnomalyStatus = "closed"
)

// WindowStatus enumerates maintenance window workflow states.
type WindowStatus string

// Canonical maintenance window statuses.
const (
	WindowStatusScheduled  WindowStatus = "scheduled"
	WindowStatusInProgress WindowStatus = "in_progress"
	WindowStatusCompleted  WindowStatus = "completed"
	WindowStatusCancelled  WindowStatus = "cancelled"
)

// WindowType enumerates maintenance window categories.
type WindowType string

// Canonical maintenance window types.
const (
	WindowTypePlanned   WindowType = "planned"
	WindowTypeEmergency WindowType = "emergency"
	WindowTypeRoutine   WindowType = "routine"
)

// PlanStatus enumerates action plan workflow states, independent of the
// parent anomaly's status.
type PlanStatus string

// Canonical action plan statuses.
const (
	PlanStatusDraft      PlanStatus = "draft"
	PlanStatusApproved   PlanStatus = "approved"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
)

// ItemStatus enumerates action item workflow states.
type ItemStatus string

// Canonical action item statuses.
const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusBlocked    ItemStatus = "blocked"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Anomaly is the central entity: an industrial equipment anomaly tracked
// from detection to closure. It carries two competing score sets (machine
// predicted vs. human override) selected by UseUserScores; consumers read
// scores through ActiveScores, never the raw fields.
type Anomaly struct {
	Base
	Title                 string        `json:"title"`
	Description           string        `json:"description"`
	NumEquipement         string        `json:"num_equipement"`
	Systeme               string        `json:"systeme"`
	EquipmentID           *string       `json:"equipment_id"`
	Service               *string       `json:"service"`
	ResponsiblePerson     *string       `json:"responsible_person"`
	Status                AnomalyStatus `json:"status"`
	OriginSource          *string       `json:"origin_source"`
	DateDetection         time.Time     `json:"date_detection"`
	DescriptionEquipement string        `json:"description_equipement"`
	SectionProprietaire   string        `json:"section_proprietaire"`

	// Machine-predicted scores. CriticalityLevel is the sum of the three
	// sub-scores at the time of prediction.
	FiabiliteScore     *float64 `json:"fiabilite_score"`
	DisponibiliteScore *float64 `json:"disponibilite_score"`
	ProcessSafetyScore *float64 `json:"process_safety_score"`
	CriticalityLevel   *float64 `json:"criticality_level"`

	// Human override scores, authoritative while UseUserScores is set.
	UserFiabiliteScore     *float64 `json:"user_fiabilite_score"`
	UserDisponibiliteScore *float64 `json:"user_disponibilite_score"`
	UserProcessSafetyScore *float64 `json:"user_process_safety_score"`
	UserCriticalityLevel   *float64 `json:"user_criticality_level"`
	UseUserScores          bool     `json:"use_user_scores"`

	EstimatedHours      *float64 `json:"estimated_hours"`
	Priority            *string  `json:"priority"`
	MaintenanceWindowID *string  `json:"maintenance_window_id"`

	// Approval metadata. Reset whenever predicted scores change, set on
	// approval or manual override.
	IsApproved bool       `json:"is_approved"`
	ApprovedAt *time.Time `json:"approved_at"`
	ApprovedBy *string    `json:"approved_by"`

	// RexFile references the mandatory closure-justification artifact
	// (storage URL or key). A closed anomaly always has it populated.
	RexFile *string `json:"rex_file"`

	CreatedBy      *string    `json:"created_by"`
	UpdatedBy      *string    `json:"updated_by"`
	LastModifiedBy *string    `json:"last_modified_by"`
	LastModifiedAt *time.Time `json:"last_modified_at"`
}

// MaintenanceWindow is a scheduled or active interval to which anomalies may
// be attached via Anomaly.MaintenanceWindowID. The window does not own the
// anomaly's lifecycle.
type MaintenanceWindow struct {
	Base
	Type         WindowType   `json:"type"`
	DurationDays int          `json:"duration_days"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Description  *string      `json:"description"`
	Status       WindowStatus `json:"status"`
	CreatedBy    *string      `json:"created_by"`
	UpdatedBy    *string      `json:"updated_by"`
}

// ActionPlan is the one-to-one repair plan for an anomaly, holding zero or
// more ordered action items.
type ActionPlan struct {
	Base
	AnomalyID          string       `json:"anomaly_id"`
	NeedsOutage        bool         `json:"needs_outage"`
	OutageType         *string      `json:"outage_type"`
	OutageDuration     *int         `json:"outage_duration"`
	PlannedDate        *time.Time   `json:"planned_date"`
	TotalDurationHours *float64     `json:"total_duration_hours"`
	TotalDurationDays  *float64     `json:"total_duration_days"`
	EstimatedCost      *float64     `json:"estimated_cost"`
	Priority           *string      `json:"priority"`
	Comments           *string      `json:"comments"`
	Status             PlanStatus   `json:"status"`
	ApprovedBy         *string      `json:"approved_by"`
	ApprovedAt         *time.Time   `json:"approved_at"`
	CreatedBy          *string      `json:"created_by"`
	UpdatedBy          *string      `json:"updated_by"`
	Items              []ActionItem `json:"action_items"`
}

// ActionItem is a single step within an action plan. Its status is
// independent of the parent anomaly's status.
type ActionItem struct {
	Base
	Action             string     `json:"action"`
	Responsable        *string    `json:"responsable"`
	PDRSDisponible     bool       `json:"pdrs_disponible"`
	RessourcesInternes *string    `json:"ressources_internes"`
	RessourcesExternes *string    `json:"ressources_externes"`
	Statut             ItemStatus `json:"statut"`
	DureeHeures        *float64   `json:"duree_heures"`
	DureeJours         *float64   `json:"duree_jours"`
	CreatedBy          *string    `json:"created_by"`
	UpdatedBy          *string    `json:"updated_by"`
}

// Change captures a single committed mutation for downstream consumers
// (derived-index synchronization). Before/After hold typed entity snapshots.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured per commit.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
