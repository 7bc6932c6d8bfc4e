package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Score field names accepted on the override surface.
const (
	FieldFiabiliteIntegrite = "fiabilite_integrite"
	FieldDisponibilite      = "disponibilite"
	FieldProcessSafety      = "process_safety"
	FieldCriticite          = "criticite"
)

// ScoreSet is the resolved view of whichever score set is currently
// authoritative for an anomaly. It is the single read path for every
// downstream consumer; nothing reads the predicted/override fields directly.
type ScoreSet struct {
	FiabiliteIntegrite *float64 `json:"fiabilite_integrite"`
	Disponibilite      *float64 `json:"disponibilite"`
	ProcessSafety      *float64 `json:"process_safety"`
	Criticite          *float64 `json:"criticite"`
}

// PredictedScores carries a fresh machine prediction. Criticality is always
// derived as the sum of the three sub-scores, never supplied.
type PredictedScores struct {
	Fiabilite     float64
	Disponibilite float64
	ProcessSafety float64
}

// ScoreOverride is a partial human edit of the override score set. Nil
// fields are left unchanged.
type ScoreOverride struct {
	Fiabilite     *float64
	Disponibilite *float64
	ProcessSafety *float64
	Criticite     *float64
}

// IsZero reports whether the override carries no fields at all.
func (o ScoreOverride) IsZero() bool {
	return o.Fiabilite == nil && o.Disponibilite == nil && o.ProcessSafety == nil && o.Criticite == nil
}

// ActiveScores returns the override set when UseUserScores is set, else the
// predicted set.
func (a *Anomaly) ActiveScores() ScoreSet {
	if a.UseUserScores {
		return ScoreSet{
			FiabiliteIntegrite: a.UserFiabiliteScore,
			Disponibilite:      a.UserDisponibiliteScore,
			ProcessSafety:      a.UserProcessSafetyScore,
			Criticite:          a.UserCriticalityLevel,
		}
	}
	return ScoreSet{
		FiabiliteIntegrite: a.FiabiliteScore,
		Disponibilite:      a.DisponibiliteScore,
		ProcessSafety:      a.ProcessSafetyScore,
		Criticite:          a.CriticalityLevel,
	}
}

// ApplyPredicted overwrites the predicted score set with a fresh prediction.
// Criticality is recomputed as the sum of the three sub-scores. Any prior
// approval is revoked and the override flag cleared: every re-prediction
// requires re-review.
func (a *Anomaly) ApplyPredicted(p PredictedScores) {
	a.FiabiliteScore = ptr(p.Fiabilite)
	a.DisponibiliteScore = ptr(p.Disponibilite)
	a.ProcessSafetyScore = ptr(p.ProcessSafety)
	a.CriticalityLevel = ptr(p.Fiabilite + p.Disponibilite + p.ProcessSafety)
	a.IsApproved = false
	a.ApprovedAt = nil
	a.ApprovedBy = nil
	a.UseUserScores = false
}

// Approve certifies whichever score set is currently active, without
// touching either set.
func (a *Anomaly) Approve(actor string, now time.Time) {
	a.IsApproved = true
	a.ApprovedAt = &now
	a.ApprovedBy = &actor
}

// ApplyOverride merges a partial human edit into the override score set,
// marks the override set active, and auto-approves: a manual edit implies
// acceptance by the editor. When criticality is not supplied it is
// recomputed only if all three sub-scores are present after the merge;
// otherwise the stored value is left as-is.
func (a *Anomaly) ApplyOverride(o ScoreOverride, actor string, now time.Time) {
	if o.Fiabilite != nil {
		a.UserFiabiliteScore = ptr(*o.Fiabilite)
	}
	if o.Disponibilite != nil {
		a.UserDisponibiliteScore = ptr(*o.Disponibilite)
	}
	if o.ProcessSafety != nil {
		a.UserProcessSafetyScore = ptr(*o.ProcessSafety)
	}
	if o.Criticite != nil {
		a.UserCriticalityLevel = ptr(*o.Criticite)
	} else if a.UserFiabiliteScore != nil && a.UserDisponibiliteScore != nil && a.UserProcessSafetyScore != nil {
		a.UserCriticalityLevel = ptr(*a.UserFiabiliteScore + *a.UserDisponibiliteScore + *a.UserProcessSafetyScore)
	}
	a.UseUserScores = true
	a.Approve(actor, now)
}

// ParseScoreOverride extracts the four named score fields from an untyped
// input map. Validation is all-or-nothing: a single malformed field rejects
// the whole input before anything is applied. Unknown keys are ignored.
func ParseScoreOverride(fields map[string]any) (ScoreOverride, error) {
	var out ScoreOverride
	var bad []string
	assign := func(name string, dst **float64) {
		raw, ok := fields[name]
		if !ok {
			return
		}
		v, err := toFloat(raw)
		if err != nil {
			bad = append(bad, name)
			return
		}
		*dst = &v
	}
	assign(FieldFiabiliteIntegrite, &out.Fiabilite)
	assign(FieldDisponibilite, &out.Disponibilite)
	assign(FieldProcessSafety, &out.ProcessSafety)
	assign(FieldCriticite, &out.Criticite)

	if len(bad) > 0 {
		sort.Strings(bad)
		return ScoreOverride{}, ValidationError{Message: "score fields must be numeric", Fields: bad}
	}
	if out.IsZero() {
		return ScoreOverride{}, ValidationError{Message: "no score fields provided"}
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, strconv.ErrSyntax
	}
}

func ptr[T any](v T) *T { return &v }
