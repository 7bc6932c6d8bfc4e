package core

import "anomalycore/pkg/domain"

type (
	EntityType         = domain.EntityType
	AnomalyStatus      = domain.AnomalyStatus
	WindowStatus       = domain.WindowStatus
	WindowType         = domain.WindowType
	PlanStatus         = domain.PlanStatus
	ItemStatus         = domain.ItemStatus
	Severity           = domain.Severity
	Base               = domain.Base
	Anomaly            = domain.Anomaly
	MaintenanceWindow  = domain.MaintenanceWindow
	ActionPlan         = domain.ActionPlan
	ActionItem         = domain.ActionItem
	ScoreSet           = domain.ScoreSet
	PredictedScores    = domain.PredictedScores
	ScoreOverride      = domain.ScoreOverride
	Change             = domain.Change
	Action             = domain.Action
	Commit             = domain.Commit
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityAnomaly           = domain.EntityAnomaly
	EntityMaintenanceWindow = domain.EntityMaintenanceWindow
	EntityActionPlan        = domain.EntityActionPlan
)

const (
	StatusOpen       = domain.StatusOpen
	StatusInProgress = domain.StatusInProgress
	StatusResolved   = domain.StatusResolved
	StatusClosed     = domain.StatusClosed
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
