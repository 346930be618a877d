package core

// PlannedClass is one class the planning call decided the generated module
// needs, with its responsibility and method list.
type PlannedClass struct {
	Name           string   `json:"name"`
	Responsibility string   `json:"responsibility"`
	Methods        []string `json:"methods"`
}

// ImplementationPlan is the structured output of the planning-manager LLM
// call. It is immutable input to the code generator and lives only for the
// duration of one run.
type ImplementationPlan struct {
	Classes       []PlannedClass `json:"classes"`
	Dependencies  []string       `json:"dependencies"`
	StrategyNotes string         `json:"strategy_notes"`
	ModelUsed     string         `json:"model_used"`
	Temperature   float64        `json:"temperature"`
}
