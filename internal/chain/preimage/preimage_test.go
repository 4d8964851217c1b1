package preimage

import (
	"testing"

	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func TestProcessHappyPath(t *testing.T) {
	acc := state.NewAccount()
	blob := []byte{0x01, 0x02, 0x03}
	h := oracle.Blake2b256(blob)
	acc.Solicit(h, uint32(len(blob)))

	services := map[state.ServiceId]*state.Account{7: acc}
	items := []state.PreimageItem{{Service: 7, Blob: blob}}

	counts, sizes, out := Process(services, items, 42)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if got := acc.Preimages[h]; string(got) != string(blob) {
		t.Fatalf("preimage not stored: %v", got)
	}
	var slots []uint32
	for _, v := range acc.Lookup {
		slots = v
	}
	if len(slots) != 1 || slots[0] != 42 {
		t.Fatalf("lookup history = %v, want [42]", slots)
	}
	if counts[7] != 1 || sizes[7] != uint64(len(blob)) {
		t.Fatalf("counts/sizes = %v/%v, want 1/%d", counts, sizes, len(blob))
	}
}

func TestProcessRejectsUnsolicited(t *testing.T) {
	acc := state.NewAccount()
	services := map[state.ServiceId]*state.Account{7: acc}
	items := []state.PreimageItem{{Service: 7, Blob: []byte{0x01}}}

	_, _, out := Process(services, items, 1)
	if out.Err != ErrPreimageUnneeded {
		t.Fatalf("err = %v, want ErrPreimageUnneeded", out.Err)
	}
}

func TestProcessRejectsAlreadyHeld(t *testing.T) {
	acc := state.NewAccount()
	blob := []byte{0x01, 0x02, 0x03}
	h := oracle.Blake2b256(blob)
	acc.Solicit(h, uint32(len(blob)))
	acc.Preimages[h] = blob

	services := map[state.ServiceId]*state.Account{7: acc}
	items := []state.PreimageItem{{Service: 7, Blob: blob}}

	_, _, out := Process(services, items, 1)
	if out.Err != ErrPreimageUnneeded {
		t.Fatalf("err = %v, want ErrPreimageUnneeded (already held)", out.Err)
	}
}

func TestProcessRejectsMissingService(t *testing.T) {
	services := map[state.ServiceId]*state.Account{}
	items := []state.PreimageItem{{Service: 99, Blob: []byte{0x01}}}

	_, _, out := Process(services, items, 1)
	if out.Err != ErrRequesterNotFound {
		t.Fatalf("err = %v, want ErrRequesterNotFound", out.Err)
	}
}

func TestProcessRejectsUnsortedItems(t *testing.T) {
	acc := state.NewAccount()
	services := map[state.ServiceId]*state.Account{7: acc}
	items := []state.PreimageItem{
		{Service: 7, Blob: []byte{0x02}},
		{Service: 7, Blob: []byte{0x01}},
	}

	_, _, out := Process(services, items, 1)
	if out.Err != ErrPreimagesNotSortedOrUnique {
		t.Fatalf("err = %v, want ErrPreimagesNotSortedOrUnique", out.Err)
	}
}
