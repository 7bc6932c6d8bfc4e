package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateAnomaly(Anomaly) (Anomaly, error)
	UpdateAnomaly(id string, mutator func(*Anomaly) error) (Anomaly, error)
	DeleteAnomaly(id string) error
	FindAnomaly(id string) (Anomaly, bool)
	CreateMaintenanceWindow(MaintenanceWindow) (MaintenanceWindow, error)
	UpdateMaintenanceWindow(id string, mutator func(*MaintenanceWindow) error) (MaintenanceWindow, error)
	DeleteMaintenanceWindow(id string) error
	FindMaintenanceWindow(id string) (MaintenanceWindow, bool)
	CreateActionPlan(ActionPlan) (ActionPlan, error)
	UpdateActionPlan(id string, mutator func(*ActionPlan) error) (ActionPlan, error)
	DeleteActionPlan(id string) error
	FindActionPlan(id string) (ActionPlan, bool)
	FindActionPlanByAnomaly(anomalyID string) (ActionPlan, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListAnomalies() []Anomaly
	FindAnomaly(id string) (Anomaly, bool)
	ListMaintenanceWindows() []MaintenanceWindow
	FindMaintenanceWindow(id string) (MaintenanceWindow, bool)
	ListActionPlans() []ActionPlan
	FindActionPlan(id string) (ActionPlan, bool)
	FindActionPlanByAnomaly(anomalyID string) (ActionPlan, bool)
}

// Commit summarizes a successfully committed transaction: the rule
// evaluation outcome plus the ordered mutations that landed. The change
// slice is what the derived-index notifier consumes; it is only ever
// populated for transactions that actually committed.
type Commit struct {
	Result  Result
	Changes []Change
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Commit, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetAnomaly(id string) (Anomaly, bool)
	ListAnomalies() []Anomaly
	GetMaintenanceWindow(id string) (MaintenanceWindow, bool)
	ListMaintenanceWindows() []MaintenanceWindow
	GetActionPlan(id string) (ActionPlan, bool)
	GetActionPlanByAnomaly(anomalyID string) (ActionPlan, bool)
	ListActionPlans() []ActionPlan
}
