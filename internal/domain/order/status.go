package order

import (
	"fmt"

	"github.com/example/online-store/internal/model"
)

// validTransitions defines allowed state transitions
var validTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:   {model.OrderReserved, model.OrderCancelled},
	model.OrderReserved:  {model.OrderCompleted, model.OrderCancelled},
	model.OrderCompleted: {}, // terminal state
	model.OrderCancelled: {}, // terminal state
}

// CanTransition checks if an order in status from may move to status to
func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func transitionError(from, to model.OrderStatus) error {
	switch {
	case from == model.OrderCancelled:
		return fmt.Errorf("%w: order is already cancelled", ErrInvalidTransition)
	case from == model.OrderCompleted:
		return fmt.Errorf("%w: order is already completed", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}
}
