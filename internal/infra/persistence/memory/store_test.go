package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"anomalycore/pkg/domain"
)

func newTestAnomaly(title string) Anomaly {
	return Anomaly{
		Title:                 title,
		Description:           "pressure drop on discharge line",
		NumEquipement:         "P-101",
		Systeme:               "cooling",
		DateDetection:         time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		DescriptionEquipement: "primary coolant pump",
		SectionProprietaire:   "34MC",
	}
}

func mustCreateAnomaly(t *testing.T, store *Store, a Anomaly) Anomaly {
	t.Helper()
	var created Anomaly
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateAnomaly(a)
		return txErr
	})
	if err != nil {
		t.Fatalf("create anomaly: %v", err)
	}
	return created
}

func TestCreateAnomalyDefaultsAndChange(t *testing.T) {
	store := NewStore(nil)
	var commit Commit
	var created Anomaly
	commit, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateAnomaly(newTestAnomaly("pump vibration"))
		return txErr
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open default", created.Status)
	}
	if len(commit.Changes) != 1 {
		t.Fatalf("changes = %d, want 1", len(commit.Changes))
	}
	ch := commit.Changes[0]
	if ch.Entity != domain.EntityAnomaly || ch.Action != domain.ActionCreate {
		t.Fatalf("change = %s/%s, want anomaly/create", ch.Entity, ch.Action)
	}
	if _, ok := store.GetAnomaly(created.ID); !ok {
		t.Fatal("committed anomaly not readable")
	}
}

func TestFailedTransactionDiscardsStateAndChanges(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	commit, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, txErr := tx.CreateAnomaly(newTestAnomaly("discarded")); txErr != nil {
			return txErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(commit.Changes) != 0 {
		t.Fatal("failed transaction must not surface changes")
	}
	if got := store.ListAnomalies(); len(got) != 0 {
		t.Fatalf("store has %d anomalies after rollback, want 0", len(got))
	}
}

func TestBlockingRuleRollsBack(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAllRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateAnomaly(newTestAnomaly("blocked"))
		return txErr
	})
	var rve domain.RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("err = %v, want RuleViolationError", err)
	}
	if got := store.ListAnomalies(); len(got) != 0 {
		t.Fatal("blocked transaction must not commit")
	}
}

type blockAllRule struct{}

func (blockAllRule) Name() string { return "block-all" }

func (blockAllRule) Evaluate(_ context.Context, _ TransactionView, changes []Change) (domain.Result, error) {
	var result domain.Result
	for range changes {
		result.Violations = append(result.Violations, domain.Violation{
			Rule:     "block-all",
			Severity: domain.SeverityBlock,
			Message:  "nothing may change",
		})
	}
	return result, nil
}

func TestUpdateAnomalyRecordsBeforeAfter(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("drift"))

	commit, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.UpdateAnomaly(created.ID, func(a *Anomaly) error {
			a.Status = domain.StatusInProgress
			return nil
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	ch := commit.Changes[0]
	before, ok := ch.Before.(Anomaly)
	if !ok || before.Status != domain.StatusOpen {
		t.Fatalf("before snapshot = %#v, want open anomaly", ch.Before)
	}
	after, ok := ch.After.(Anomaly)
	if !ok || after.Status != domain.StatusInProgress {
		t.Fatalf("after snapshot = %#v, want in_progress anomaly", ch.After)
	}
}

func TestUpdateMissingAnomalyFails(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.UpdateAnomaly("nope", func(a *Anomaly) error { return nil })
		return txErr
	})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestAnomalyWindowReferenceValidated(t *testing.T) {
	store := NewStore(nil)
	a := newTestAnomaly("bad ref")
	missing := "no-such-window"
	a.MaintenanceWindowID = &missing
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateAnomaly(a)
		return txErr
	})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntityMaintenanceWindow {
		t.Fatalf("err = %v, want maintenance window NotFoundError", err)
	}
}

func TestDeleteAnomalyCascadesToPlan(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("with plan"))
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateActionPlan(ActionPlan{AnomalyID: created.ID})
		return txErr
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	commit, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteAnomaly(created.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(commit.Changes) != 2 {
		t.Fatalf("changes = %d, want plan delete + anomaly delete", len(commit.Changes))
	}
	if commit.Changes[0].Entity != domain.EntityActionPlan || commit.Changes[0].Action != domain.ActionDelete {
		t.Fatalf("first change = %s/%s, want action_plan/delete", commit.Changes[0].Entity, commit.Changes[0].Action)
	}
	if commit.Changes[1].Entity != domain.EntityAnomaly || commit.Changes[1].Action != domain.ActionDelete {
		t.Fatalf("second change = %s/%s, want anomaly/delete", commit.Changes[1].Entity, commit.Changes[1].Action)
	}
	if got := store.ListActionPlans(); len(got) != 0 {
		t.Fatal("plan must be cascade-deleted")
	}
}

func TestWindowDateOrderingValidated(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateMaintenanceWindow(MaintenanceWindow{
			Type:      domain.WindowTypePlanned,
			StartDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		})
		return txErr
	})
	var vErr domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDeleteWindowDetachesAnomalies(t *testing.T) {
	store := NewStore(nil)
	var window MaintenanceWindow
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		window, txErr = tx.CreateMaintenanceWindow(MaintenanceWindow{
			Type:      domain.WindowTypePlanned,
			StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("create window: %v", err)
	}
	a := newTestAnomaly("attached")
	a.MaintenanceWindowID = &window.ID
	created := mustCreateAnomaly(t, store, a)

	commit, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.DeleteMaintenanceWindow(window.ID)
	})
	if err != nil {
		t.Fatalf("delete window: %v", err)
	}
	got, _ := store.GetAnomaly(created.ID)
	if got.MaintenanceWindowID != nil {
		t.Fatal("anomaly still references the deleted window")
	}
	var sawDetach bool
	for _, ch := range commit.Changes {
		if ch.Entity == domain.EntityAnomaly && ch.Action == domain.ActionUpdate {
			sawDetach = true
		}
	}
	if !sawDetach {
		t.Fatal("detach must surface as an anomaly update change")
	}
}

func TestOnePlanPerAnomaly(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("planned"))
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.CreateActionPlan(ActionPlan{AnomalyID: created.ID})
		return txErr
	})
	if err != nil {
		t.Fatalf("first plan: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.CreateActionPlan(ActionPlan{AnomalyID: created.ID})
		return txErr
	})
	if err == nil {
		t.Fatal("second plan for the same anomaly must fail")
	}
}

func TestActionItemsGetDefaults(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("itemized"))
	var plan ActionPlan
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		plan, txErr = tx.CreateActionPlan(ActionPlan{
			AnomalyID: created.ID,
			Items:     []domain.ActionItem{{Action: "replace seal"}, {Action: "verify torque"}},
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	for i, item := range plan.Items {
		if item.ID == "" {
			t.Fatalf("item %d missing generated id", i)
		}
		if item.Statut != domain.ItemStatusPending {
			t.Fatalf("item %d statut = %s, want pending default", i, item.Statut)
		}
	}
}

func TestUpdatePlanPinsAnomalyID(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("pinned"))
	var plan ActionPlan
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		plan, txErr = tx.CreateActionPlan(ActionPlan{AnomalyID: created.ID})
		return txErr
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.UpdateActionPlan(plan.ID, func(p *ActionPlan) error {
			p.AnomalyID = "hijacked"
			return nil
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("update plan: %v", err)
	}
	got, _ := store.GetActionPlan(plan.ID)
	if got.AnomalyID != created.ID {
		t.Fatalf("anomaly id = %s, want pinned %s", got.AnomalyID, created.ID)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("durable"))

	restored := NewStore(nil)
	restored.ImportState(store.ExportState())
	got, ok := restored.GetAnomaly(created.ID)
	if !ok {
		t.Fatal("anomaly missing after import")
	}
	if got.Title != created.Title {
		t.Fatalf("title = %q, want %q", got.Title, created.Title)
	}
}

func TestViewSeesCommittedStateOnly(t *testing.T) {
	store := NewStore(nil)
	created := mustCreateAnomaly(t, store, newTestAnomaly("visible"))
	err := store.View(context.Background(), func(v TransactionView) error {
		if _, ok := v.FindAnomaly(created.ID); !ok {
			return fmt.Errorf("committed anomaly not visible in view")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSetClockControlsTimestamps(t *testing.T) {
	store := NewStore(nil)
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetClock(func() time.Time { return frozen })
	created := mustCreateAnomaly(t, store, newTestAnomaly("frozen"))
	if !created.CreatedAt.Equal(frozen) || !created.UpdatedAt.Equal(frozen) {
		t.Fatalf("timestamps = %v/%v, want %v", created.CreatedAt, created.UpdatedAt, frozen)
	}
}
