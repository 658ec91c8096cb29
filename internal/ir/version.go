package ir

// Version constants for the plan schema and engine.
const (
	// PlanVersion is the compiled plan schema version.
	PlanVersion = "1"

	// EngineVersion is the contract engine version.
	EngineVersion = "0.1.0"
)
