package entropy

import (
	"testing"

	"github.com/jamnode/jamcore/internal/oracle"
)

func TestOnBlockFoldsIntoEta0Only(t *testing.T) {
	var pool [4]oracle.Hash
	pool[1] = oracle.Hash{9}
	vrfOutput := oracle.Hash{1, 2, 3}

	before0 := pool[0]
	OnBlock(&pool, vrfOutput)

	if pool[0] == before0 {
		t.Fatal("OnBlock did not change eta0")
	}
	want := oracle.Blake2b256(before0[:], vrfOutput[:])
	if pool[0] != want {
		t.Fatalf("eta0 = %x, want %x", pool[0], want)
	}
	if pool[1] != (oracle.Hash{9}) {
		t.Fatal("OnBlock must not touch eta1..eta3")
	}
}

func TestOnEpochRolloverShiftsPool(t *testing.T) {
	pool := [4]oracle.Hash{{0}, {1}, {2}, {3}}
	OnEpochRollover(&pool)

	if pool[1] != (oracle.Hash{0}) {
		t.Fatalf("eta1 = %v, want eta0's prior value", pool[1])
	}
	if pool[2] != (oracle.Hash{1}) {
		t.Fatalf("eta2 = %v, want eta1's prior value", pool[2])
	}
	if pool[3] != (oracle.Hash{2}) {
		t.Fatalf("eta3 = %v, want eta2's prior value", pool[3])
	}
	if pool[0] != (oracle.Hash{0}) {
		t.Fatal("OnEpochRollover must leave eta0 untouched")
	}
}

// TestEpochBoundaryOrderingRotatesPreBlockEta0 exercises the actual call
// order an epoch-boundary block must use (§4.12 step 6): rotate first, then
// fold in this block's VRF output. Calling OnBlock before OnEpochRollover
// would leak the new block's contribution into eta1.
func TestEpochBoundaryOrderingRotatesPreBlockEta0(t *testing.T) {
	pool := [4]oracle.Hash{{0xAA}, {0xBB}, {0xCC}, {0xDD}}
	preBlockEta0 := pool[0]
	vrfOutput := oracle.Hash{1, 2, 3}

	OnEpochRollover(&pool)
	OnBlock(&pool, vrfOutput)

	if pool[1] != preBlockEta0 {
		t.Fatalf("eta1 = %x, want the pre-block eta0 %x", pool[1], preBlockEta0)
	}
	want := oracle.Blake2b256(preBlockEta0[:], vrfOutput[:])
	if pool[0] != want {
		t.Fatalf("eta0 = %x, want H(pre-block eta0 || vrf) = %x", pool[0], want)
	}
}
