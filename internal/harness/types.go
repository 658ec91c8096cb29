package harness

import "github.com/sensiml/piccolo-sub000/internal/compiler"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: the expected validity held and every
	// assertion passed.
	Pass bool `json:"pass"`

	// Plan is the compiled plan.
	Plan *compiler.Plan `json:"-"`

	// PlanHash is the content hash of Plan.
	PlanHash string `json:"plan_hash"`

	// Stored is the plan reloaded from the scenario's in-memory store.
	Stored *compiler.Plan `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
