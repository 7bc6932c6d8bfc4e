// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anomalycore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Anomaly aliases domain.Anomaly for in-memory persistence operations.
	Anomaly = domain.Anomaly
	// MaintenanceWindow aliases domain.MaintenanceWindow.
	MaintenanceWindow = domain.MaintenanceWindow
	// ActionPlan aliases domain.ActionPlan.
	ActionPlan = domain.ActionPlan
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Commit aliases domain.Commit summarizing a committed transaction.
	Commit = domain.Commit
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	anomalies map[string]Anomaly
	windows   map[string]MaintenanceWindow
	plans     map[string]ActionPlan
}

// Snapshot captures a point-in-time clone of the store state. Durable
// backends serialize it as JSON buckets after each committed transaction.
type Snapshot struct {
	Anomalies map[string]Anomaly           `json:"anomalies"`
	Windows   map[string]MaintenanceWindow `json:"maintenance_windows"`
	Plans     map[string]ActionPlan        `json:"action_plans"`
}

func newMemoryState() memoryState {
	return memoryState{
		anomalies: make(map[string]Anomaly),
		windows:   make(map[string]MaintenanceWindow),
		plans:     make(map[string]ActionPlan),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.anomalies {
		cloned.anomalies[k] = cloneAnomaly(v)
	}
	for k, v := range s.windows {
		cloned.windows[k] = cloneWindow(v)
	}
	for k, v := range s.plans {
		cloned.plans[k] = clonePlan(v)
	}
	return cloned
}

func cloneAnomaly(a Anomaly) Anomaly                    { return a }
func cloneWindow(w MaintenanceWindow) MaintenanceWindow { return w }
func clonePlan(p ActionPlan) ActionPlan {
	cp := p
	cp.Items = append([]domain.ActionItem(nil), p.Items...)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the transaction timestamp source (tests).
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

func newID() string { return uuid.NewString() }

// transaction is a mutation set applied to a clone of the store state; it
// becomes visible only when RunInTransaction commits.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// view exposes a read-only snapshot of the transactional state to rules.
type view struct {
	state *memoryState
}

var _ TransactionView = view{}

// ListAnomalies returns all anomalies within the snapshot.
func (v view) ListAnomalies() []Anomaly {
	out := make([]Anomaly, 0, len(v.state.anomalies))
	for _, a := range v.state.anomalies {
		out = append(out, cloneAnomaly(a))
	}
	return out
}

// FindAnomaly retrieves an anomaly by ID from the snapshot.
func (v view) FindAnomaly(id string) (Anomaly, bool) {
	a, ok := v.state.anomalies[id]
	if !ok {
		return Anomaly{}, false
	}
	return cloneAnomaly(a), true
}

// ListMaintenanceWindows returns all maintenance windows.
func (v view) ListMaintenanceWindows() []MaintenanceWindow {
	out := make([]MaintenanceWindow, 0, len(v.state.windows))
	for _, w := range v.state.windows {
		out = append(out, cloneWindow(w))
	}
	return out
}

// FindMaintenanceWindow retrieves a window by ID from the snapshot.
func (v view) FindMaintenanceWindow(id string) (MaintenanceWindow, bool) {
	w, ok := v.state.windows[id]
	if !ok {
		return MaintenanceWindow{}, false
	}
	return cloneWindow(w), true
}

// ListActionPlans returns all action plans.
func (v view) ListActionPlans() []ActionPlan {
	out := make([]ActionPlan, 0, len(v.state.plans))
	for _, p := range v.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}

// FindActionPlan retrieves a plan by ID from the snapshot.
func (v view) FindActionPlan(id string) (ActionPlan, bool) {
	p, ok := v.state.plans[id]
	if !ok {
		return ActionPlan{}, false
	}
	return clonePlan(p), true
}

// FindActionPlanByAnomaly retrieves the plan attached to an anomaly, if any.
func (v view) FindActionPlanByAnomaly(anomalyID string) (ActionPlan, bool) {
	for _, p := range v.state.plans {
		if p.AnomalyID == anomalyID {
			return clonePlan(p), true
		}
	}
	return ActionPlan{}, false
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The mutations become visible, and the commit's change list is
// returned, only when fn and every blocking rule pass.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Commit{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Commit{}, err
		}
		result = res
		if res.HasBlocking() {
			return Commit{Result: res}, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return Commit{Result: result, Changes: tx.changes}, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

// Snapshot implements domain.Transaction.
func (tx *transaction) Snapshot() TransactionView {
	return view{state: &tx.state}
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// CreateAnomaly stores a new anomaly within the transaction.
func (tx *transaction) CreateAnomaly(a Anomaly) (Anomaly, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if _, exists := tx.state.anomalies[a.ID]; exists {
		return Anomaly{}, fmt.Errorf("anomaly %q already exists", a.ID)
	}
	if a.Status == "" {
		a.Status = domain.StatusOpen
	}
	if a.MaintenanceWindowID != nil {
		if _, ok := tx.state.windows[*a.MaintenanceWindowID]; !ok {
			return Anomaly{}, domain.NotFoundError{Entity: domain.EntityMaintenanceWindow, ID: *a.MaintenanceWindowID}
		}
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.anomalies[a.ID] = cloneAnomaly(a)
	tx.recordChange(Change{Entity: domain.EntityAnomaly, Action: domain.ActionCreate, After: cloneAnomaly(a)})
	return cloneAnomaly(a), nil
}

// UpdateAnomaly mutates an anomaly using the provided mutator function.
func (tx *transaction) UpdateAnomaly(id string, mutator func(*Anomaly) error) (Anomaly, error) {
	current, ok := tx.state.anomalies[id]
	if !ok {
		return Anomaly{}, domain.NotFoundError{Entity: domain.EntityAnomaly, ID: id}
	}
	before := cloneAnomaly(current)
	if err := mutator(&current); err != nil {
		return Anomaly{}, err
	}
	if current.MaintenanceWindowID != nil {
		if _, ok := tx.state.windows[*current.MaintenanceWindowID]; !ok {
			return Anomaly{}, domain.NotFoundError{Entity: domain.EntityMaintenanceWindow, ID: *current.MaintenanceWindowID}
		}
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.anomalies[id] = cloneAnomaly(current)
	tx.recordChange(Change{Entity: domain.EntityAnomaly, Action: domain.ActionUpdate, Before: before, After: cloneAnomaly(current)})
	return cloneAnomaly(current), nil
}

// DeleteAnomaly removes an anomaly from the transaction state, cascading to
// its action plan.
func (tx *transaction) DeleteAnomaly(id string) error {
	current, ok := tx.state.anomalies[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAnomaly, ID: id}
	}
	for planID, plan := range tx.state.plans {
		if plan.AnomalyID == id {
			delete(tx.state.plans, planID)
			tx.recordChange(Change{Entity: domain.EntityActionPlan, Action: domain.ActionDelete, Before: clonePlan(plan)})
		}
	}
	delete(tx.state.anomalies, id)
	tx.recordChange(Change{Entity: domain.EntityAnomaly, Action: domain.ActionDelete, Before: cloneAnomaly(current)})
	return nil
}

// FindAnomaly retrieves an anomaly from the transactional state.
func (tx *transaction) FindAnomaly(id string) (Anomaly, bool) {
	a, ok := tx.state.anomalies[id]
	if !ok {
		return Anomaly{}, false
	}
	return cloneAnomaly(a), true
}

// CreateMaintenanceWindow stores a new maintenance window.
func (tx *transaction) CreateMaintenanceWindow(w MaintenanceWindow) (MaintenanceWindow, error) {
	if w.ID == "" {
		w.ID = newID()
	}
	if _, exists := tx.state.windows[w.ID]; exists {
		return MaintenanceWindow{}, fmt.Errorf("maintenance window %q already exists", w.ID)
	}
	if w.Status == "" {
		w.Status = domain.WindowStatusScheduled
	}
	if w.EndDate.Before(w.StartDate) {
		return MaintenanceWindow{}, domain.ValidationError{Message: "maintenance window end date precedes start date"}
	}
	w.CreatedAt = tx.now
	w.UpdatedAt = tx.now
	tx.state.windows[w.ID] = cloneWindow(w)
	tx.recordChange(Change{Entity: domain.EntityMaintenanceWindow, Action: domain.ActionCreate, After: cloneWindow(w)})
	return cloneWindow(w), nil
}

// UpdateMaintenanceWindow mutates an existing maintenance window.
func (tx *transaction) UpdateMaintenanceWindow(id string, mutator func(*MaintenanceWindow) error) (MaintenanceWindow, error) {
	current, ok := tx.state.windows[id]
	if !ok {
		return MaintenanceWindow{}, domain.NotFoundError{Entity: domain.EntityMaintenanceWindow, ID: id}
	}
	before := cloneWindow(current)
	if err := mutator(&current); err != nil {
		return MaintenanceWindow{}, err
	}
	if current.EndDate.Before(current.StartDate) {
		return MaintenanceWindow{}, domain.ValidationError{Message: "maintenance window end date precedes start date"}
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.windows[id] = cloneWindow(current)
	tx.recordChange(Change{Entity: domain.EntityMaintenanceWindow, Action: domain.ActionUpdate, Before: before, After: cloneWindow(current)})
	return cloneWindow(current), nil
}

// DeleteMaintenanceWindow removes a window, detaching any anomalies that
// reference it. Detached anomalies surface as update changes so the derived
// index stays consistent.
func (tx *transaction) DeleteMaintenanceWindow(id string) error {
	current, ok := tx.state.windows[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityMaintenanceWindow, ID: id}
	}
	for anomalyID, a := range tx.state.anomalies {
		if a.MaintenanceWindowID != nil && *a.MaintenanceWindowID == id {
			before := cloneAnomaly(a)
			a.MaintenanceWindowID = nil
			a.UpdatedAt = tx.now
			tx.state.anomalies[anomalyID] = cloneAnomaly(a)
			tx.recordChange(Change{Entity: domain.EntityAnomaly, Action: domain.ActionUpdate, Before: before, After: cloneAnomaly(a)})
		}
	}
	delete(tx.state.windows, id)
	tx.recordChange(Change{Entity: domain.EntityMaintenanceWindow, Action: domain.ActionDelete, Before: cloneWindow(current)})
	return nil
}

// FindMaintenanceWindow retrieves a window from the transactional state.
func (tx *transaction) FindMaintenanceWindow(id string) (MaintenanceWindow, bool) {
	w, ok := tx.state.windows[id]
	if !ok {
		return MaintenanceWindow{}, false
	}
	return cloneWindow(w), true
}

// CreateActionPlan stores a new action plan. Each anomaly holds at most one
// plan; a second create for the same anomaly fails.
func (tx *transaction) CreateActionPlan(p ActionPlan) (ActionPlan, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.plans[p.ID]; exists {
		return ActionPlan{}, fmt.Errorf("action plan %q already exists", p.ID)
	}
	if _, ok := tx.state.anomalies[p.AnomalyID]; !ok {
		return ActionPlan{}, domain.NotFoundError{Entity: domain.EntityAnomaly, ID: p.AnomalyID}
	}
	for _, existing := range tx.state.plans {
		if existing.AnomalyID == p.AnomalyID {
			return ActionPlan{}, fmt.Errorf("anomaly %q already has action plan %q", p.AnomalyID, existing.ID)
		}
	}
	if p.Status == "" {
		p.Status = domain.PlanStatusDraft
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	for i := range p.Items {
		if p.Items[i].ID == "" {
			p.Items[i].ID = newID()
		}
		if p.Items[i].Statut == "" {
			p.Items[i].Statut = domain.ItemStatusPending
		}
		p.Items[i].CreatedAt = tx.now
		p.Items[i].UpdatedAt = tx.now
	}
	tx.state.plans[p.ID] = clonePlan(p)
	tx.recordChange(Change{Entity: domain.EntityActionPlan, Action: domain.ActionCreate, After: clonePlan(p)})
	return clonePlan(p), nil
}

// UpdateActionPlan mutates an existing action plan.
func (tx *transaction) UpdateActionPlan(id string, mutator func(*ActionPlan) error) (ActionPlan, error) {
	current, ok := tx.state.plans[id]
	if !ok {
		return ActionPlan{}, domain.NotFoundError{Entity: domain.EntityActionPlan, ID: id}
	}
	before := clonePlan(current)
	current = clonePlan(current)
	if err := mutator(&current); err != nil {
		return ActionPlan{}, err
	}
	current.ID = id
	current.AnomalyID = before.AnomalyID
	current.UpdatedAt = tx.now
	for i := range current.Items {
		if current.Items[i].ID == "" {
			current.Items[i].ID = newID()
			current.Items[i].CreatedAt = tx.now
		}
		if current.Items[i].Statut == "" {
			current.Items[i].Statut = domain.ItemStatusPending
		}
		current.Items[i].UpdatedAt = tx.now
	}
	tx.state.plans[id] = clonePlan(current)
	tx.recordChange(Change{Entity: domain.EntityActionPlan, Action: domain.ActionUpdate, Before: before, After: clonePlan(current)})
	return clonePlan(current), nil
}

// DeleteActionPlan removes an action plan from the transaction state.
func (tx *transaction) DeleteActionPlan(id string) error {
	current, ok := tx.state.plans[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityActionPlan, ID: id}
	}
	delete(tx.state.plans, id)
	tx.recordChange(Change{Entity: domain.EntityActionPlan, Action: domain.ActionDelete, Before: clonePlan(current)})
	return nil
}

// FindActionPlan retrieves a plan from the transactional state.
func (tx *transaction) FindActionPlan(id string) (ActionPlan, bool) {
	p, ok := tx.state.plans[id]
	if !ok {
		return ActionPlan{}, false
	}
	return clonePlan(p), true
}

// FindActionPlanByAnomaly retrieves the plan attached to an anomaly, if any.
func (tx *transaction) FindActionPlanByAnomaly(anomalyID string) (ActionPlan, bool) {
	for _, p := range tx.state.plans {
		if p.AnomalyID == anomalyID {
			return clonePlan(p), true
		}
	}
	return ActionPlan{}, false
}

// Read helpers ---------------------------------------------------------------

// GetAnomaly retrieves an anomaly by ID from committed state.
func (s *Store) GetAnomaly(id string) (Anomaly, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.anomalies[id]
	if !ok {
		return Anomaly{}, false
	}
	return cloneAnomaly(a), true
}

// ListAnomalies returns all anomalies from committed state.
func (s *Store) ListAnomalies() []Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Anomaly, 0, len(s.state.anomalies))
	for _, a := range s.state.anomalies {
		out = append(out, cloneAnomaly(a))
	}
	return out
}

// GetMaintenanceWindow retrieves a window by ID.
func (s *Store) GetMaintenanceWindow(id string) (MaintenanceWindow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.windows[id]
	if !ok {
		return MaintenanceWindow{}, false
	}
	return cloneWindow(w), true
}

// ListMaintenanceWindows returns all maintenance windows.
func (s *Store) ListMaintenanceWindows() []MaintenanceWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MaintenanceWindow, 0, len(s.state.windows))
	for _, w := range s.state.windows {
		out = append(out, cloneWindow(w))
	}
	return out
}

// GetActionPlan retrieves a plan by ID.
func (s *Store) GetActionPlan(id string) (ActionPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plans[id]
	if !ok {
		return ActionPlan{}, false
	}
	return clonePlan(p), true
}

// GetActionPlanByAnomaly retrieves the plan attached to an anomaly, if any.
func (s *Store) GetActionPlanByAnomaly(anomalyID string) (ActionPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.state.plans {
		if p.AnomalyID == anomalyID {
			return clonePlan(p), true
		}
	}
	return ActionPlan{}, false
}

// ListActionPlans returns all action plans.
func (s *Store) ListActionPlans() []ActionPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActionPlan, 0, len(s.state.plans))
	for _, p := range s.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}

// ExportState returns a deep-copied snapshot of committed state for durable
// backends to serialize.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Anomalies: make(map[string]Anomaly, len(s.state.anomalies)),
		Windows:   make(map[string]MaintenanceWindow, len(s.state.windows)),
		Plans:     make(map[string]ActionPlan, len(s.state.plans)),
	}
	for k, v := range s.state.anomalies {
		snap.Anomalies[k] = cloneAnomaly(v)
	}
	for k, v := range s.state.windows {
		snap.Windows[k] = cloneWindow(v)
	}
	for k, v := range s.state.plans {
		snap.Plans[k] = clonePlan(v)
	}
	return snap
}

// ImportState replaces committed state with the provided snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snap.Anomalies {
		state.anomalies[k] = cloneAnomaly(v)
	}
	for k, v := range snap.Windows {
		state.windows[k] = cloneWindow(v)
	}
	for k, v := range snap.Plans {
		state.plans[k] = clonePlan(v)
	}
	s.state = state
}
