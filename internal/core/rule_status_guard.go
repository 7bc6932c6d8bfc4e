package core

import (
	"context"
	"fmt"

	"anomalycore/pkg/domain"
)

// NewStatusGuardRule blocks commits that would leave an entity holding a
// status outside its enumeration, or a closed anomaly without a
// closure-justification artifact. The service layer rejects these before
// writing; the rule is the commit-time backstop for any other write path.
func NewStatusGuardRule() domain.Rule {
	return statusGuardRule{}
}

type statusGuardRule struct{}

func (statusGuardRule) Name() string { return "status_guard" }

func (r statusGuardRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		switch after := change.After.(type) {
		case domain.Anomaly:
			if !domain.ValidAnomalyStatus(after.Status) {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("anomaly status %q is not a recognized status", after.Status),
					Entity:   domain.EntityAnomaly,
					EntityID: after.ID,
				})
			}
			if after.Status == domain.StatusClosed && (after.RexFile == nil || *after.RexFile == "") {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  "closed anomaly requires a closure-justification artifact reference",
					Entity:   domain.EntityAnomaly,
					EntityID: after.ID,
				})
			}
		case domain.MaintenanceWindow:
			if !domain.ValidWindowStatus(after.Status) {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("maintenance window status %q is not a recognized status", after.Status),
					Entity:   domain.EntityMaintenanceWindow,
					EntityID: after.ID,
				})
			}
		case domain.ActionPlan:
			if !domain.ValidPlanStatus(after.Status) {
				result.Violations = append(result.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("action plan status %q is not a recognized status", after.Status),
					Entity:   domain.EntityActionPlan,
					EntityID: after.ID,
				})
			}
			for _, item := range after.Items {
				if !domain.ValidItemStatus(item.Statut) {
					result.Violations = append(result.Violations, domain.Violation{
						Rule:     r.Name(),
						Severity: domain.SeverityBlock,
						Message:  fmt.Sprintf("action item %s status %q is not a recognized status", item.ID, item.Statut),
						Entity:   domain.EntityActionPlan,
						EntityID: after.ID,
					})
				}
			}
		}
	}
	return result, nil
}

// NewScoreConsistencyRule warns when an anomaly's active criticality drifts
// from the sum of its three active sub-scores. An explicit criticality
// override is allowed to diverge, so the rule never blocks.
func NewScoreConsistencyRule() domain.Rule {
	return scoreConsistencyRule{}
}

type scoreConsistencyRule struct{}

func (scoreConsistencyRule) Name() string { return "score_consistency" }

const criticalityTolerance = 1e-9

func (r scoreConsistencyRule) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var result domain.Result
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			continue
		}
		after, ok := change.After.(domain.Anomaly)
		if !ok {
			continue
		}
		scores := after.ActiveScores()
		if scores.FiabiliteIntegrite == nil || scores.Disponibilite == nil || scores.ProcessSafety == nil || scores.Criticite == nil {
			continue
		}
		sum := *scores.FiabiliteIntegrite + *scores.Disponibilite + *scores.ProcessSafety
		if diff := sum - *scores.Criticite; diff > criticalityTolerance || diff < -criticalityTolerance {
			result.Violations = append(result.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("criticality %.4f differs from sub-score sum %.4f", *scores.Criticite, sum),
				Entity:   domain.EntityAnomaly,
				EntityID: after.ID,
			})
		}
	}
	return result, nil
}
