package kitchen

import "time"

// Stage is the per-order preparation pipeline position.
type Stage string

const (
	StagePreparing      Stage = "preparing"
	StagePrepComplete   Stage = "prep_complete"
	StageBakeComplete   Stage = "bake_complete"
	StageQualityChecked Stage = "quality_checked"
)

// nextStage is the strictly forward pipeline order.
var nextStage = map[Stage]Stage{
	StagePreparing:    StagePrepComplete,
	StagePrepComplete: StageBakeComplete,
	StageBakeComplete: StageQualityChecked,
}

// Ingredient is part of a recipe snapshot.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// RecipeSnapshot is a recipe resolved at request-creation time. It is never
// re-resolved, so later recipe edits do not change an in-flight order.
type RecipeSnapshot struct {
	RecipeID    string       `json:"recipe_identifier"`
	Name        string       `json:"name"`
	Price       int64        `json:"price"` // cents
	Ingredients []Ingredient `json:"ingredients"`
}

// Request is the kitchen's own record of one order's preparation. At most one
// request exists per order identifier.
type Request struct {
	OrderID   string
	Recipes   []RecipeSnapshot
	Stage     Stage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRequest starts the preparation pipeline for an order.
func NewRequest(orderID string, recipes []RecipeSnapshot, now time.Time) *Request {
	return &Request{
		OrderID:   orderID,
		Recipes:   recipes,
		Stage:     StagePreparing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the pipeline one step forward to the given stage. Duplicate
// or out-of-order stage signals are no-ops.
func (r *Request) Advance(to Stage, now time.Time) bool {
	if nextStage[r.Stage] != to {
		return false
	}
	r.Stage = to
	r.UpdatedAt = now
	return true
}
