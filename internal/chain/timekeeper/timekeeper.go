// Package timekeeper advances the global time slot and detects epoch
// boundaries (§3 time, §4.6 "detected when slot/EPOCH_LENGTH increases").
//
// Grounded on pkg/consensus/epoch_boundary.go's slot-monotonicity check and
// epoch-index comparison.
package timekeeper

import (
	"errors"

	"github.com/jamnode/jamcore/internal/config"
)

// ErrBadSlot is returned when the new slot does not strictly exceed the
// prior one (§4.6 errors: BadSlot).
var ErrBadSlot = errors.New("timekeeper: slot is not strictly increasing")

// Advance validates that newSlot > priorSlot and reports whether the epoch
// index changed.
func Advance(cfg *config.Config, priorSlot, newSlot uint32) (epochChanged bool, err error) {
	if newSlot <= priorSlot {
		return false, ErrBadSlot
	}
	return cfg.EpochOf(priorSlot) != cfg.EpochOf(newSlot), nil
}
