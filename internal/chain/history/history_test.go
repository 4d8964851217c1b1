package history

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func hashOf(b byte) oracle.Hash {
	var h oracle.Hash
	h[0] = b
	return h
}

func TestAppendTrimsToRecentHistorySize(t *testing.T) {
	cfg := config.Tiny()
	h := &state.RecentHistory{}
	for i := 0; i < int(cfg.RecentHistorySize)+3; i++ {
		Append(cfg, h, hashOf(byte(i)), hashOf(byte(100+i)), nil)
	}
	if got := len(h.Entries); got != int(cfg.RecentHistorySize) {
		t.Fatalf("entries = %d, want %d", got, cfg.RecentHistorySize)
	}
	// Oldest surviving entry is the 4th pushed.
	if h.Entries[0].HeaderHash != hashOf(3) {
		t.Fatalf("oldest entry = %x, want header 3", h.Entries[0].HeaderHash[:4])
	}
}

func TestAppendFoldsAccResultIntoMMR(t *testing.T) {
	cfg := config.Tiny()
	h := &state.RecentHistory{}

	Append(cfg, h, hashOf(1), hashOf(10), nil)
	if len(h.MMR) != 1 || h.MMR[0] == nil {
		t.Fatalf("after one append: peaks = %v", h.MMR)
	}
	first := *h.MMR[0]

	// A second leaf carries into a height-1 peak, clearing the lowest slot.
	second := hashOf(20)
	Append(cfg, h, hashOf(2), second, nil)
	if len(h.MMR) != 2 || h.MMR[0] != nil || h.MMR[1] == nil {
		t.Fatalf("after two appends: peaks = %v", h.MMR)
	}
	want := oracle.Keccak256(first[:], second[:])
	if *h.MMR[1] != want {
		t.Fatalf("carried peak = %x, want keccak(peak||leaf)", (*h.MMR[1])[:4])
	}
}

func TestBackfillRootSetsNewestEntry(t *testing.T) {
	cfg := config.Tiny()
	h := &state.RecentHistory{}
	Append(cfg, h, hashOf(1), hashOf(10), nil)
	Append(cfg, h, hashOf(2), hashOf(20), nil)

	root := hashOf(0xAA)
	BackfillRoot(h, root)
	if h.Entries[1].StateRoot != root {
		t.Fatalf("newest StateRoot = %x, want %x", h.Entries[1].StateRoot[:4], root[:4])
	}
	if h.Entries[0].StateRoot != (oracle.Hash{}) {
		t.Fatalf("older entry's StateRoot mutated")
	}

	// A no-op on an empty history.
	BackfillRoot(&state.RecentHistory{}, root)
}
