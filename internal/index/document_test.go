package index

import (
	"strings"
	"testing"
	"time"

	"anomalycore/pkg/domain"
)

func TestKeyIsStablePerEntity(t *testing.T) {
	if got := Key(domain.EntityAnomaly, "42"); got != "anomaly_42" {
		t.Fatalf("key = %q", got)
	}
	if got := Key(domain.EntityMaintenanceWindow, "w1"); got != "maintenance_window_w1" {
		t.Fatalf("key = %q", got)
	}
	if got := Key(domain.EntityActionPlan, "p1"); got != "action_plan_p1" {
		t.Fatalf("key = %q", got)
	}
}

func TestAnomalyDocument(t *testing.T) {
	rex := "rex/anomaly_a1/report.pdf"
	crit := 7.5
	a := domain.Anomaly{
		Description:           "seal leak on suction flange",
		NumEquipement:         "P-101",
		Systeme:               "cooling",
		DescriptionEquipement: "primary coolant pump",
		SectionProprietaire:   "34MC",
		Status:                domain.StatusInProgress,
		DateDetection:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CriticalityLevel:      &crit,
		RexFile:               &rex,
	}
	a.ID = "a1"

	doc, ok := ForRecord(a)
	if !ok {
		t.Fatal("anomaly must be indexable")
	}
	if doc.Key != "anomaly_a1" {
		t.Fatalf("key = %q", doc.Key)
	}
	for _, fragment := range []string{
		"Anomaly Record ID a1",
		"seal leak on suction flange",
		"2026-03-10",
		"'P-101'",
		"in_progress",
		"Criticality level is 7.5",
		"REX file is available at rex/anomaly_a1/report.pdf",
	} {
		if !strings.Contains(doc.Text, fragment) {
			t.Errorf("document %q missing %q", doc.Text, fragment)
		}
	}
	if doc.Metadata["source"] != "anomaly" || doc.Metadata["id"] != "a1" {
		t.Fatalf("metadata = %v", doc.Metadata)
	}
}

func TestAnomalyDocumentWithoutRex(t *testing.T) {
	var a domain.Anomaly
	a.ID = "a2"
	doc, _ := ForRecord(a)
	if !strings.Contains(doc.Text, "No REX file is associated with this anomaly.") {
		t.Fatalf("document %q missing the no-rex sentence", doc.Text)
	}
}

func TestWindowDocument(t *testing.T) {
	notes := "turnaround week"
	w := domain.MaintenanceWindow{
		Type:        domain.WindowTypePlanned,
		StartDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC),
		Status:      domain.WindowStatusScheduled,
		Description: &notes,
	}
	w.ID = "w1"
	doc, ok := ForRecord(w)
	if !ok {
		t.Fatal("window must be indexable")
	}
	for _, fragment := range []string{"Maintenance Window ID w1", "planned", "2026-06-01", "2026-06-08", "scheduled", "turnaround week"} {
		if !strings.Contains(doc.Text, fragment) {
			t.Errorf("document %q missing %q", doc.Text, fragment)
		}
	}
}

func TestPlanDocument(t *testing.T) {
	p := domain.ActionPlan{
		AnomalyID:   "a1",
		Status:      domain.PlanStatusApproved,
		NeedsOutage: true,
		Items:       []domain.ActionItem{{Action: "replace seal"}},
	}
	p.ID = "p1"
	doc, ok := ForRecord(p)
	if !ok {
		t.Fatal("plan must be indexable")
	}
	for _, fragment := range []string{"Action Plan ID p1", "Anomaly ID a1", "1 action items", "outage is required", "approved"} {
		if !strings.Contains(doc.Text, fragment) {
			t.Errorf("document %q missing %q", doc.Text, fragment)
		}
	}
}

func TestForRecordRejectsUnknownTypes(t *testing.T) {
	if _, ok := ForRecord(struct{ ID string }{"x"}); ok {
		t.Fatal("unknown snapshot types must not be indexable")
	}
	if _, ok := RecordID(42); ok {
		t.Fatal("unknown snapshot types must not yield ids")
	}
}
