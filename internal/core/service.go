package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"anomalycore/internal/artifact"
	"anomalycore/pkg/domain"
)

// Service exposes the transactional anomaly lifecycle operations: CRUD over
// the three entity kinds, the status transition engine, and the score
// reconciler. Every committed mutation is handed to the configured
// ChangeNotifier so the derived index can follow.
type Service struct {
	store     PersistentStore
	notifier  ChangeNotifier
	artifacts ArtifactStore
	logger    Logger
	clock     Clock
	metrics   MetricsRecorder
	tracer    Tracer
}

// ArtifactStore is the subset of blob-store capability the service needs to
// persist closure-justification files. Satisfied by artifact.Store.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts artifact.PutOptions) (artifact.Info, error)
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: noopLogger{},
		clock:  ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	return ctx, func(err error) {
		if span != nil {
			span.End(err)
		}
		if s.metrics != nil {
			s.metrics.Observe(ctx, operation, err == nil, s.clock.Now().Sub(start))
		}
	}
}

// notify hands the committed change list to the derived-index notifier.
// It is only ever called after a successful commit; a failed or rolled-back
// transaction never produces index traffic.
func (s *Service) notify(ctx context.Context, changes []Change) {
	if s.notifier == nil || len(changes) == 0 {
		return
	}
	s.notifier.NotifyChanges(ctx, changes)
}

func (s *Service) warnViolations(result Result) {
	for _, v := range result.Violations {
		if v.Severity != SeverityBlock {
			s.logger.Warn("rule violation", "rule", v.Rule, "severity", string(v.Severity), "entity", string(v.Entity), "entity_id", v.EntityID, "message", v.Message)
		}
	}
}

// Anomaly CRUD ---------------------------------------------------------------

// CreateAnomaly persists a new anomaly after validating required fields.
func (s *Service) CreateAnomaly(ctx context.Context, anomaly Anomaly) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "create_anomaly")
	var err error
	defer func() { done(err) }()

	if vErr := validateNewAnomaly(anomaly); vErr != nil {
		err = vErr
		return Anomaly{}, Result{}, err
	}
	var created Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateAnomaly(anomaly)
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return created, commit.Result, nil
}

// UpdateAnomaly mutates an anomaly using the provided mutator.
func (s *Service) UpdateAnomaly(ctx context.Context, id string, mutator func(*Anomaly) error) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "update_anomaly")
	var err error
	defer func() { done(err) }()

	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAnomaly(id, mutator)
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// DeleteAnomaly removes an anomaly record and emits the corresponding
// delete event.
func (s *Service) DeleteAnomaly(ctx context.Context, id string) (Result, error) {
	ctx, done := s.instrument(ctx, "delete_anomaly")
	var err error
	defer func() { done(err) }()

	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteAnomaly(id)
	})
	if err != nil {
		return commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return commit.Result, nil
}

// GetAnomaly retrieves an anomaly from committed state.
func (s *Service) GetAnomaly(ctx context.Context, id string) (Anomaly, error) {
	a, ok := s.store.GetAnomaly(id)
	if !ok {
		return Anomaly{}, domain.NotFoundError{Entity: EntityAnomaly, ID: id}
	}
	return a, nil
}

// ListAnomalies returns all anomalies from committed state.
func (s *Service) ListAnomalies(ctx context.Context) []Anomaly {
	return s.store.ListAnomalies()
}

// Status transition engine ---------------------------------------------------

// TransitionRequest describes a single status transition.
type TransitionRequest struct {
	Target AnomalyStatus
	Actor  string
	// Comment, when set, is appended to the description as a timestamped
	// note recording the transition.
	Comment string
	// ArtifactRef supplies the closure-justification artifact reference for
	// transitions into closed when the anomaly does not carry one yet.
	ArtifactRef string
}

// Transition validates and applies a single status change. Invalid edges
// fail with domain.InvalidTransitionError carrying the allowed-target set;
// closing without a closure artifact fails with
// domain.PreconditionFailedError. The validity check runs inside the
// transaction, against the state that commits.
func (s *Service) Transition(ctx context.Context, id string, req TransitionRequest) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "transition_anomaly")
	var err error
	defer func() { done(err) }()

	if req.Target == "" {
		err = domain.ValidationError{Message: "target status is required"}
		return Anomaly{}, Result{}, err
	}
	if !domain.ValidAnomalyStatus(req.Target) {
		err = domain.ValidationError{Message: fmt.Sprintf("unknown status %q", req.Target)}
		return Anomaly{}, Result{}, err
	}

	now := s.clock.Now()
	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		current, ok := tx.FindAnomaly(id)
		if !ok {
			return domain.NotFoundError{Entity: EntityAnomaly, ID: id}
		}
		if !domain.CanTransition(current.Status, req.Target) {
			return domain.InvalidTransitionError{
				ID:      id,
				Current: current.Status,
				Target:  req.Target,
				Allowed: domain.AllowedTransitions(current.Status),
			}
		}
		if req.Target == StatusClosed {
			ref := current.RexFile
			if req.ArtifactRef != "" {
				ref = &req.ArtifactRef
			}
			if ref == nil || *ref == "" {
				return domain.PreconditionFailedError{
					Entity: EntityAnomaly,
					ID:     id,
					Reason: "closure-justification artifact reference is required",
				}
			}
		}
		from := current.Status
		var txErr error
		updated, txErr = tx.UpdateAnomaly(id, func(a *Anomaly) error {
			a.Status = req.Target
			if req.ArtifactRef != "" {
				ref := req.ArtifactRef
				a.RexFile = &ref
			}
			stampActor(a, req.Actor, now)
			if req.Comment != "" {
				appendTransitionNote(a, from, req.Target, req.Comment, now)
			}
			return nil
		})
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	s.logger.Info("anomaly status updated", "anomaly_id", id, "status", string(req.Target), "actor", req.Actor)
	return updated, commit.Result, nil
}

// BulkUpdated reports a single applied transition within a bulk request.
type BulkUpdated struct {
	ID   string        `json:"id"`
	From AnomalyStatus `json:"from_status"`
	To   AnomalyStatus `json:"to_status"`
}

// BulkSkipped reports an anomaly whose transition was rejected, with its
// current status and allowed-target set so the caller can retry correctly.
type BulkSkipped struct {
	ID      string          `json:"id"`
	Current AnomalyStatus   `json:"current_status"`
	Allowed []AnomalyStatus `json:"valid_transitions"`
	Reason  string          `json:"reason"`
}

// BulkTransitionResult itemizes the outcome of a bulk transition.
type BulkTransitionResult struct {
	Updated  []BulkUpdated `json:"updated"`
	Skipped  []BulkSkipped `json:"skipped"`
	NotFound []string      `json:"not_found"`
}

// TransitionMany applies the same target status to many anomalies with
// partial-success semantics: each anomaly is evaluated independently, ids
// absent from the store are reported in NotFound, rejected transitions in
// Skipped, and all valid updates commit atomically in one transaction.
func (s *Service) TransitionMany(ctx context.Context, ids []string, target AnomalyStatus, actor string) (BulkTransitionResult, Result, error) {
	ctx, done := s.instrument(ctx, "transition_anomalies_bulk")
	var err error
	defer func() { done(err) }()

	if len(ids) == 0 {
		err = domain.ValidationError{Message: "anomaly ids are required"}
		return BulkTransitionResult{}, Result{}, err
	}
	if !domain.ValidAnomalyStatus(target) {
		err = domain.ValidationError{Message: fmt.Sprintf("unknown status %q", target)}
		return BulkTransitionResult{}, Result{}, err
	}

	now := s.clock.Now()
	var result BulkTransitionResult
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		result = BulkTransitionResult{}
		for _, id := range ids {
			current, ok := tx.FindAnomaly(id)
			if !ok {
				result.NotFound = append(result.NotFound, id)
				continue
			}
			if !domain.CanTransition(current.Status, target) {
				result.Skipped = append(result.Skipped, BulkSkipped{
					ID:      id,
					Current: current.Status,
					Allowed: domain.AllowedTransitions(current.Status),
					Reason:  "invalid transition",
				})
				continue
			}
			if target == StatusClosed && (current.RexFile == nil || *current.RexFile == "") {
				result.Skipped = append(result.Skipped, BulkSkipped{
					ID:      id,
					Current: current.Status,
					Allowed: domain.AllowedTransitions(current.Status),
					Reason:  "missing closure artifact",
				})
				continue
			}
			from := current.Status
			if _, txErr := tx.UpdateAnomaly(id, func(a *Anomaly) error {
				a.Status = target
				stampActor(a, actor, now)
				return nil
			}); txErr != nil {
				return txErr
			}
			result.Updated = append(result.Updated, BulkUpdated{ID: id, From: from, To: target})
		}
		return nil
	})
	if err != nil {
		return BulkTransitionResult{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	s.logger.Info("bulk status update applied", "target", string(target), "updated", len(result.Updated), "skipped", len(result.Skipped), "not_found", len(result.NotFound))
	return result, commit.Result, nil
}

// CloseWithArtifact stores the closure-justification file and transitions
// the anomaly into closed in one operation. The upload happens first; a
// failed upload aborts before any store write.
func (s *Service) CloseWithArtifact(ctx context.Context, id, actor, filename string, r io.Reader, contentType string) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "close_anomaly_with_artifact")
	var err error
	defer func() { done(err) }()

	if s.artifacts == nil {
		err = fmt.Errorf("no artifact store configured")
		return Anomaly{}, Result{}, err
	}
	if filename == "" {
		err = domain.ValidationError{Message: "artifact filename is required"}
		return Anomaly{}, Result{}, err
	}
	current, ok := s.store.GetAnomaly(id)
	if !ok {
		err = domain.NotFoundError{Entity: EntityAnomaly, ID: id}
		return Anomaly{}, Result{}, err
	}
	if !domain.CanTransition(current.Status, StatusClosed) {
		err = domain.InvalidTransitionError{
			ID:      id,
			Current: current.Status,
			Target:  StatusClosed,
			Allowed: domain.AllowedTransitions(current.Status),
		}
		return Anomaly{}, Result{}, err
	}

	key := fmt.Sprintf("rex/anomaly_%s/%s", id, filename)
	info, err := s.artifacts.Put(ctx, key, r, artifact.PutOptions{ContentType: contentType})
	if err != nil {
		err = fmt.Errorf("store closure artifact: %w", err)
		return Anomaly{}, Result{}, err
	}
	ref := info.URL
	if ref == "" {
		ref = info.Key
	}
	return s.Transition(ctx, id, TransitionRequest{Target: StatusClosed, Actor: actor, ArtifactRef: ref})
}

// Score reconciler -----------------------------------------------------------

// ApplyPredicted overwrites the predicted score set with a fresh machine
// prediction, revoking any prior approval and clearing the override flag.
func (s *Service) ApplyPredicted(ctx context.Context, id, actor string, scores PredictedScores) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "apply_predicted_scores")
	var err error
	defer func() { done(err) }()

	now := s.clock.Now()
	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAnomaly(id, func(a *Anomaly) error {
			a.ApplyPredicted(scores)
			stampActor(a, actor, now)
			return nil
		})
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// ApprovePredictions certifies whichever score set is currently active.
func (s *Service) ApprovePredictions(ctx context.Context, id, actor string) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "approve_predictions")
	var err error
	defer func() { done(err) }()

	now := s.clock.Now()
	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAnomaly(id, func(a *Anomaly) error {
			a.Approve(actor, now)
			stampActor(a, actor, now)
			return nil
		})
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// OverridePredictions merges a partial human edit into the override score
// set, marks it active, and auto-approves. An empty override is rejected
// before any write.
func (s *Service) OverridePredictions(ctx context.Context, id, actor string, override ScoreOverride) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "override_predictions")
	var err error
	defer func() { done(err) }()

	if override.IsZero() {
		err = domain.ValidationError{Message: "no score fields provided"}
		return Anomaly{}, Result{}, err
	}
	now := s.clock.Now()
	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAnomaly(id, func(a *Anomaly) error {
			a.ApplyOverride(override, actor, now)
			stampActor(a, actor, now)
			return nil
		})
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// OverridePredictionFields parses an untyped partial field mapping (the
// collaborator-facing surface) and applies it as an override. Validation is
// all-or-nothing: one malformed field rejects the whole input.
func (s *Service) OverridePredictionFields(ctx context.Context, id, actor string, fields map[string]any) (Anomaly, Result, error) {
	override, err := domain.ParseScoreOverride(fields)
	if err != nil {
		return Anomaly{}, Result{}, err
	}
	return s.OverridePredictions(ctx, id, actor, override)
}

// ActiveScores resolves the authoritative score set for an anomaly. This is
// the single read path for score consumers.
func (s *Service) ActiveScores(ctx context.Context, id string) (ScoreSet, error) {
	a, ok := s.store.GetAnomaly(id)
	if !ok {
		return ScoreSet{}, domain.NotFoundError{Entity: EntityAnomaly, ID: id}
	}
	return a.ActiveScores(), nil
}

// Maintenance windows --------------------------------------------------------

// CreateMaintenanceWindow persists a new maintenance window.
func (s *Service) CreateMaintenanceWindow(ctx context.Context, window MaintenanceWindow) (MaintenanceWindow, Result, error) {
	ctx, done := s.instrument(ctx, "create_maintenance_window")
	var err error
	defer func() { done(err) }()

	if vErr := validateNewWindow(window); vErr != nil {
		err = vErr
		return MaintenanceWindow{}, Result{}, err
	}
	var created MaintenanceWindow
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateMaintenanceWindow(window)
		return txErr
	})
	if err != nil {
		return MaintenanceWindow{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return created, commit.Result, nil
}

// UpdateMaintenanceWindow mutates an existing window.
func (s *Service) UpdateMaintenanceWindow(ctx context.Context, id string, mutator func(*MaintenanceWindow) error) (MaintenanceWindow, Result, error) {
	ctx, done := s.instrument(ctx, "update_maintenance_window")
	var err error
	defer func() { done(err) }()

	var updated MaintenanceWindow
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateMaintenanceWindow(id, mutator)
		return txErr
	})
	if err != nil {
		return MaintenanceWindow{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// DeleteMaintenanceWindow removes a window, detaching any attached
// anomalies within the same transaction.
func (s *Service) DeleteMaintenanceWindow(ctx context.Context, id string) (Result, error) {
	ctx, done := s.instrument(ctx, "delete_maintenance_window")
	var err error
	defer func() { done(err) }()

	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteMaintenanceWindow(id)
	})
	if err != nil {
		return commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return commit.Result, nil
}

// AttachAnomalyToWindow links an anomaly to a maintenance window within a
// transaction that validates the window exists.
func (s *Service) AttachAnomalyToWindow(ctx context.Context, anomalyID, windowID string) (Anomaly, Result, error) {
	ctx, done := s.instrument(ctx, "attach_anomaly_to_window")
	var err error
	defer func() { done(err) }()

	var updated Anomaly
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindMaintenanceWindow(windowID); !ok {
			return domain.NotFoundError{Entity: EntityMaintenanceWindow, ID: windowID}
		}
		var txErr error
		updated, txErr = tx.UpdateAnomaly(anomalyID, func(a *Anomaly) error {
			a.MaintenanceWindowID = &windowID
			return nil
		})
		return txErr
	})
	if err != nil {
		return Anomaly{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// GetMaintenanceWindow retrieves a window from committed state.
func (s *Service) GetMaintenanceWindow(ctx context.Context, id string) (MaintenanceWindow, error) {
	w, ok := s.store.GetMaintenanceWindow(id)
	if !ok {
		return MaintenanceWindow{}, domain.NotFoundError{Entity: EntityMaintenanceWindow, ID: id}
	}
	return w, nil
}

// ListMaintenanceWindows returns all windows from committed state.
func (s *Service) ListMaintenanceWindows(ctx context.Context) []MaintenanceWindow {
	return s.store.ListMaintenanceWindows()
}

// Action plans ---------------------------------------------------------------

// CreateActionPlan persists the one-to-one repair plan for an anomaly.
func (s *Service) CreateActionPlan(ctx context.Context, plan ActionPlan) (ActionPlan, Result, error) {
	ctx, done := s.instrument(ctx, "create_action_plan")
	var err error
	defer func() { done(err) }()

	if plan.AnomalyID == "" {
		err = domain.ValidationError{Message: "anomaly id is required", Fields: []string{"anomaly_id"}}
		return ActionPlan{}, Result{}, err
	}
	var created ActionPlan
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateActionPlan(plan)
		return txErr
	})
	if err != nil {
		return ActionPlan{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return created, commit.Result, nil
}

// UpdateActionPlan mutates an existing action plan.
func (s *Service) UpdateActionPlan(ctx context.Context, id string, mutator func(*ActionPlan) error) (ActionPlan, Result, error) {
	ctx, done := s.instrument(ctx, "update_action_plan")
	var err error
	defer func() { done(err) }()

	var updated ActionPlan
	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateActionPlan(id, mutator)
		return txErr
	})
	if err != nil {
		return ActionPlan{}, commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return updated, commit.Result, nil
}

// DeleteActionPlan removes an action plan record.
func (s *Service) DeleteActionPlan(ctx context.Context, id string) (Result, error) {
	ctx, done := s.instrument(ctx, "delete_action_plan")
	var err error
	defer func() { done(err) }()

	commit, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteActionPlan(id)
	})
	if err != nil {
		return commit.Result, err
	}
	s.warnViolations(commit.Result)
	s.notify(ctx, commit.Changes)
	return commit.Result, nil
}

// GetActionPlan retrieves a plan from committed state.
func (s *Service) GetActionPlan(ctx context.Context, id string) (ActionPlan, error) {
	p, ok := s.store.GetActionPlan(id)
	if !ok {
		return ActionPlan{}, domain.NotFoundError{Entity: EntityActionPlan, ID: id}
	}
	return p, nil
}

// GetActionPlanByAnomaly retrieves the plan attached to an anomaly.
func (s *Service) GetActionPlanByAnomaly(ctx context.Context, anomalyID string) (ActionPlan, error) {
	p, ok := s.store.GetActionPlanByAnomaly(anomalyID)
	if !ok {
		return ActionPlan{}, domain.NotFoundError{Entity: EntityActionPlan, ID: anomalyID}
	}
	return p, nil
}

// ListActionPlans returns all plans from committed state.
func (s *Service) ListActionPlans(ctx context.Context) []ActionPlan {
	return s.store.ListActionPlans()
}

// ReindexAll re-emits an upsert event for every record in the store so an
// empty or drifted derived index can be rebuilt. Returns the number of
// records pushed.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	ctx, done := s.instrument(ctx, "reindex_all")
	var err error
	defer func() { done(err) }()

	if s.notifier == nil {
		err = fmt.Errorf("no notifier configured")
		return 0, err
	}
	var changes []Change
	err = s.store.View(ctx, func(v TransactionView) error {
		for _, a := range v.ListAnomalies() {
			changes = append(changes, Change{Entity: EntityAnomaly, Action: ActionUpdate, After: a})
		}
		for _, w := range v.ListMaintenanceWindows() {
			changes = append(changes, Change{Entity: EntityMaintenanceWindow, Action: ActionUpdate, After: w})
		}
		for _, p := range v.ListActionPlans() {
			changes = append(changes, Change{Entity: EntityActionPlan, Action: ActionUpdate, After: p})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.notify(ctx, changes)
	return len(changes), nil
}

// Helpers --------------------------------------------------------------------

func stampActor(a *Anomaly, actor string, now time.Time) {
	if actor == "" {
		return
	}
	who := actor
	a.UpdatedBy = &who
	a.LastModifiedBy = &who
	a.LastModifiedAt = &now
}

// appendTransitionNote records a status-change comment inside the
// description field. There is no separate audit log; the record carries
// its own history.
func appendTransitionNote(a *Anomaly, from, to AnomalyStatus, comment string, now time.Time) {
	note := fmt.Sprintf("\n[%s] Status changed from %s to %s: %s", now.Format("2006-01-02 15:04"), from, to, comment)
	if a.Description != "" {
		a.Description += note
	} else {
		a.Description = note
	}
}

func validateNewAnomaly(a Anomaly) error {
	var missing []string
	if a.Title == "" {
		missing = append(missing, "title")
	}
	if a.Description == "" {
		missing = append(missing, "description")
	}
	if a.NumEquipement == "" {
		missing = append(missing, "num_equipement")
	}
	if a.Systeme == "" {
		missing = append(missing, "systeme")
	}
	if a.DateDetection.IsZero() {
		missing = append(missing, "date_detection")
	}
	if a.DescriptionEquipement == "" {
		missing = append(missing, "description_equipement")
	}
	if a.SectionProprietaire == "" {
		missing = append(missing, "section_proprietaire")
	}
	if len(missing) > 0 {
		return domain.ValidationError{Message: "missing required fields", Fields: missing}
	}
	if a.Status != "" && !domain.ValidAnomalyStatus(a.Status) {
		return domain.ValidationError{Message: fmt.Sprintf("unknown status %q", a.Status)}
	}
	return nil
}

func validateNewWindow(w MaintenanceWindow) error {
	var missing []string
	if w.Type == "" {
		missing = append(missing, "type")
	}
	if w.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if w.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if len(missing) > 0 {
		return domain.ValidationError{Message: "missing required fields", Fields: missing}
	}
	return nil
}
