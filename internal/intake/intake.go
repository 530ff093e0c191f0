// Package intake holds the caffeine intake log: immutable dose events and
// the in-memory store that owns them.
package intake

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidAmount is returned by callers that need to surface a rejected
// dose. The Store itself treats invalid doses as a silent no-op.
var ErrInvalidAmount = errors.New("amount_mg must be positive and at most 1000000")

// MaxAmountMg caps a single dose. Anything larger is a typo, and sums of
// amounts near the float64 limit overflow to +Inf.
const MaxAmountMg = 1e6

// Intake is a single logged caffeine dose. Values are never mutated after
// creation; the Store hands out copies.
type Intake struct {
	ID       string    `json:"id"`
	TakenAt  time.Time `json:"taken_at"`
	AmountMg float64   `json:"amount_mg"`
	Label    string    `json:"label"`
}

// ValidAmount reports whether mg is a dose the store will accept.
func ValidAmount(mg float64) bool {
	return mg > 0 && mg <= MaxAmountMg && !math.IsNaN(mg)
}

// Journal persists the intake log outside the process. Implementations must
// return intakes from LoadIntakes in the order they were saved.
type Journal interface {
	SaveIntake(in Intake) error
	DeleteIntake(id string) error
	LoadIntakes() ([]Intake, error)
}
