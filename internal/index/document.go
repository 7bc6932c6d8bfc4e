// Package index keeps an external document index in step with the record
// store. Committed mutations arrive as change lists, get rendered into
// natural-language documents, and are pushed to the indexing service over
// HTTP. Synchronization is best effort: a failed push is logged and the
// record store remains authoritative.
package index

import (
	"fmt"
	"strings"

	"anomalycore/pkg/domain"
)

// Document is one renderable unit of the derived index.
type Document struct {
	Key      string
	Text     string
	Metadata map[string]any
}

// Key derives the stable index key for an entity kind and record id. The
// same record always maps to the same key, so re-indexing overwrites
// instead of duplicating.
func Key(entity domain.EntityType, id string) string {
	return fmt.Sprintf("%s_%s", entity, id)
}

// ForRecord renders the index document for a typed entity snapshot. The
// switch is intentionally closed: an unknown snapshot type reports false
// so the caller can log and skip it.
func ForRecord(record any) (Document, bool) {
	switch v := record.(type) {
	case domain.Anomaly:
		return anomalyDocument(v), true
	case domain.MaintenanceWindow:
		return windowDocument(v), true
	case domain.ActionPlan:
		return planDocument(v), true
	default:
		return Document{}, false
	}
}

// RecordID extracts the record id from a typed entity snapshot.
func RecordID(record any) (string, bool) {
	switch v := record.(type) {
	case domain.Anomaly:
		return v.ID, true
	case domain.MaintenanceWindow:
		return v.ID, true
	case domain.ActionPlan:
		return v.ID, true
	default:
		return "", false
	}
}

func anomalyDocument(a domain.Anomaly) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Anomaly Record ID %s: '%s' reported on %s. ", a.ID, a.Description, a.DateDetection.Format("2006-01-02"))
	fmt.Fprintf(&b, "The affected equipment is '%s' (%s) in system '%s', owned by section '%s'. ",
		a.NumEquipement, a.DescriptionEquipement, a.Systeme, a.SectionProprietaire)
	fmt.Fprintf(&b, "Current status is '%s'.", a.Status)
	if scores := a.ActiveScores(); scores.Criticite != nil {
		fmt.Fprintf(&b, " Criticality level is %.1f.", *scores.Criticite)
	}
	if a.RexFile != nil && *a.RexFile != "" {
		fmt.Fprintf(&b, " REX file is available at %s.", *a.RexFile)
	} else {
		b.WriteString(" No REX file is associated with this anomaly.")
	}
	return Document{
		Key:      Key(domain.EntityAnomaly, a.ID),
		Text:     b.String(),
		Metadata: map[string]any{"source": string(domain.EntityAnomaly), "id": a.ID},
	}
}

func windowDocument(w domain.MaintenanceWindow) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Maintenance Window ID %s: %s maintenance scheduled from %s to %s. ",
		w.ID, w.Type, w.StartDate.Format("2006-01-02"), w.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "The status is '%s'.", w.Status)
	if w.Description != nil && *w.Description != "" {
		fmt.Fprintf(&b, " Notes: '%s'.", *w.Description)
	}
	return Document{
		Key:      Key(domain.EntityMaintenanceWindow, w.ID),
		Text:     b.String(),
		Metadata: map[string]any{"source": string(domain.EntityMaintenanceWindow), "id": w.ID},
	}
}

func planDocument(p domain.ActionPlan) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Action Plan ID %s for Anomaly ID %s: %d action items. ", p.ID, p.AnomalyID, len(p.Items))
	if p.PlannedDate != nil {
		fmt.Fprintf(&b, "Planned for %s. ", p.PlannedDate.Format("2006-01-02"))
	}
	if p.NeedsOutage {
		b.WriteString("An equipment outage is required. ")
	}
	fmt.Fprintf(&b, "Current status is '%s'.", p.Status)
	return Document{
		Key:      Key(domain.EntityActionPlan, p.ID),
		Text:     b.String(),
		Metadata: map[string]any{"source": string(domain.EntityActionPlan), "id": p.ID},
	}
}
