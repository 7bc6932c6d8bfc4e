package core

import "anomalycore/pkg/domain"

// Rule defines an evaluation executed within a transaction boundary.
type Rule = domain.Rule

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewStatusGuardRule())
	engine.Register(NewScoreConsistencyRule())
	return engine
}
