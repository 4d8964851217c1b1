package auth

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
)

func hashOf(b byte) oracle.Hash {
	var h oracle.Hash
	h[0] = b
	return h
}

func TestAdvanceRefillsFromQueueAndTrims(t *testing.T) {
	cfg := config.Tiny()
	cfg.Cores = 1
	cfg.AuthPoolMax = 2

	pools := [][]oracle.Hash{{hashOf(1), hashOf(2)}}
	queues := [][]oracle.Hash{{hashOf(10), hashOf(11)}}

	out := Advance(cfg, pools, queues, 0)
	if len(out) != 1 {
		t.Fatalf("out length = %d, want 1", len(out))
	}
	if len(out[0]) != 2 {
		t.Fatalf("pool length = %d, want AuthPoolMax=2", len(out[0]))
	}
	// slot 0 % len(queue)=2 -> queue[0], appended then trimmed to the
	// newest AuthPoolMax entries: {pools[1], queue[0]}.
	if out[0][0] != hashOf(2) || out[0][1] != hashOf(10) {
		t.Fatalf("out[0] = %v, want [2, 10]", out[0])
	}
	// the original pool slice must not have been mutated in place.
	if pools[0][0] != hashOf(1) {
		t.Fatal("Advance mutated the input pool slice")
	}
}

func TestConsumeShiftsLeft(t *testing.T) {
	pools := [][]oracle.Hash{{hashOf(1), hashOf(2), hashOf(3)}}
	Consume(pools, 0, 1)
	want := []oracle.Hash{hashOf(1), hashOf(3)}
	if len(pools[0]) != len(want) {
		t.Fatalf("pool length = %d, want %d", len(pools[0]), len(want))
	}
	for i := range want {
		if pools[0][i] != want[i] {
			t.Fatalf("pool[%d] = %v, want %v", i, pools[0][i], want[i])
		}
	}
}

func TestIndexOf(t *testing.T) {
	pools := [][]oracle.Hash{{hashOf(1), hashOf(2)}}
	if idx := IndexOf(pools, 0, hashOf(2)); idx != 1 {
		t.Fatalf("IndexOf = %d, want 1", idx)
	}
	if idx := IndexOf(pools, 0, hashOf(9)); idx != -1 {
		t.Fatalf("IndexOf = %d, want -1", idx)
	}
}
