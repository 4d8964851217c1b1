package report

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
)

func TestExpectedGuarantorsIsDeterministic(t *testing.T) {
	cfg := config.Tiny()
	seed := oracle.Hash{0x42}

	a := ExpectedGuarantors(cfg, seed, int(cfg.Validators), 0, 3)
	b := ExpectedGuarantors(cfg, seed, int(cfg.Validators), 0, 3)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic result: %v vs %v", a, b)
		}
	}
}

func TestExpectedGuarantorsPartitionsValidators(t *testing.T) {
	cfg := config.Tiny() // V=6, CORES=2
	seed := oracle.Hash{0x07}

	seen := map[int]uint16{}
	for core := uint16(0); core < uint16(cfg.Cores); core++ {
		for _, idx := range ExpectedGuarantors(cfg, seed, int(cfg.Validators), core, 1) {
			if other, ok := seen[int(idx)]; ok {
				t.Fatalf("validator %d assigned to both core %d and core %d", idx, other, core)
			}
			seen[int(idx)] = core
		}
	}
	if len(seen) != int(cfg.Validators) {
		t.Fatalf("covered %d of %d validators", len(seen), cfg.Validators)
	}
}

func TestRotationWindowAdvancesEveryRotationPeriod(t *testing.T) {
	cfg := config.Tiny() // RotationPeriod=4
	if RotationWindow(cfg, 0) != 0 {
		t.Fatalf("window(0) = %d, want 0", RotationWindow(cfg, 0))
	}
	if RotationWindow(cfg, cfg.RotationPeriod) != 1 {
		t.Fatalf("window(rotation_period) = %d, want 1", RotationWindow(cfg, cfg.RotationPeriod))
	}
	if RotationWindow(cfg, cfg.RotationPeriod-1) != 0 {
		t.Fatalf("window(rotation_period-1) = %d, want 0", RotationWindow(cfg, cfg.RotationPeriod-1))
	}
}
