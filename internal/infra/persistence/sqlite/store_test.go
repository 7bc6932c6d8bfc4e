package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"anomalycore/pkg/domain"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func seedAnomaly(title string) domain.Anomaly {
	return domain.Anomaly{
		Title:                 title,
		Description:           "seal weeping at flange",
		NumEquipement:         "P-101",
		Systeme:               "cooling",
		DateDetection:         time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		DescriptionEquipement: "primary coolant pump",
		SectionProprietaire:   "34MC",
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anomalies.db")
	ctx := context.Background()

	store := openTestStore(t, path)
	var id string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreateAnomaly(seedAnomaly("pump seal leak"))
		if err != nil {
			return err
		}
		id = created.ID
		if _, err := tx.CreateMaintenanceWindow(domain.MaintenanceWindow{
			Type:      domain.WindowTypePlanned,
			StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		}); err != nil {
			return err
		}
		_, err = tx.CreateActionPlan(domain.ActionPlan{
			AnomalyID: created.ID,
			Items:     []domain.ActionItem{{Action: "replace seal", Responsable: strPtr("crew-a")}},
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	anomaly, ok := reopened.GetAnomaly(id)
	if !ok {
		t.Fatal("anomaly lost across reopen")
	}
	if anomaly.Title != "pump seal leak" || anomaly.Status != domain.StatusOpen {
		t.Fatalf("restored anomaly = %+v", anomaly)
	}
	plan, ok := reopened.GetActionPlanByAnomaly(id)
	if !ok {
		t.Fatal("plan lost across reopen")
	}
	if len(plan.Items) != 1 || plan.Items[0].Action != "replace seal" {
		t.Fatalf("restored plan = %+v", plan)
	}
	if windows := reopened.ListMaintenanceWindows(); len(windows) != 1 {
		t.Fatalf("restored %d windows, want 1", len(windows))
	}
}

func TestFailedTransactionLeavesSnapshotUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anomalies.db")
	ctx := context.Background()

	store := openTestStore(t, path)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateAnomaly(seedAnomaly("ghost")); err != nil {
			return err
		}
		return context.Canceled
	}); err == nil {
		t.Fatal("expected transaction failure")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestStore(t, path)
	if anomalies := reopened.ListAnomalies(); len(anomalies) != 0 {
		t.Fatalf("rolled-back write persisted: %+v", anomalies)
	}
}

func TestSnapshotOverwritesPriorState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anomalies.db")
	ctx := context.Background()

	store := openTestStore(t, path)
	var id string
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		created, err := tx.CreateAnomaly(seedAnomaly("initial"))
		id = created.ID
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteAnomaly(id)
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTestStore(t, path)
	if anomalies := reopened.ListAnomalies(); len(anomalies) != 0 {
		t.Fatalf("deleted anomaly resurrected: %+v", anomalies)
	}
}
