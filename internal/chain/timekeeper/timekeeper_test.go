package timekeeper

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
)

func TestAdvanceWithinEpoch(t *testing.T) {
	cfg := config.Tiny()
	epochChanged, err := Advance(cfg, 0, 1)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if epochChanged {
		t.Fatal("epochChanged = true, want false within the same epoch")
	}
}

func TestAdvanceAcrossEpochBoundary(t *testing.T) {
	cfg := config.Tiny()
	epochChanged, err := Advance(cfg, cfg.EpochLength-1, cfg.EpochLength)
	if err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if !epochChanged {
		t.Fatal("epochChanged = false, want true crossing an epoch boundary")
	}
}

func TestAdvanceRejectsNonMonotoneSlot(t *testing.T) {
	cfg := config.Tiny()
	if _, err := Advance(cfg, 5, 5); err != ErrBadSlot {
		t.Fatalf("Advance error = %v, want ErrBadSlot for equal slots", err)
	}
	if _, err := Advance(cfg, 5, 4); err != ErrBadSlot {
		t.Fatalf("Advance error = %v, want ErrBadSlot for a decreasing slot", err)
	}
}
