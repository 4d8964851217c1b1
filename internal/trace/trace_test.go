package trace

import (
	"bytes"
	"testing"

	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
	"github.com/jamnode/jamcore/internal/trie"
)

func rawStateFrom(entries []trie.KV) RawState {
	return RawState{
		StateRoot: trie.BuildFrom(entries).Root(),
		Entries:   entries,
	}
}

func TestFileRoundTrip(t *testing.T) {
	entries := []trie.KV{
		{Key: trie.Key{1}, Value: []byte("alpha")},
		{Key: trie.Key{2}, Value: []byte("beta")},
	}
	f := &File{
		Pre: rawStateFrom(entries),
		Block: state.Block{
			Header: state.Header{
				Parent: oracle.Hash{9},
				Slot:   3,
			},
		},
		Post: rawStateFrom(entries),
	}

	b := Encode(f)
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.Pre.StateRoot != f.Pre.StateRoot {
		t.Fatalf("Pre.StateRoot = %x, want %x", got.Pre.StateRoot, f.Pre.StateRoot)
	}
	if got.Block.Header.Slot != 3 {
		t.Fatalf("Block.Header.Slot = %d, want 3", got.Block.Header.Slot)
	}
	if len(got.Post.Entries) != len(entries) {
		t.Fatalf("Post.Entries length = %d, want %d", len(got.Post.Entries), len(entries))
	}
	for i, kv := range got.Post.Entries {
		if kv.Key != entries[i].Key || !bytes.Equal(kv.Value, entries[i].Value) {
			t.Fatalf("Post.Entries[%d] = %+v, want %+v", i, kv, entries[i])
		}
	}
}

func TestRawStateVerify(t *testing.T) {
	entries := []trie.KV{{Key: trie.Key{5}, Value: []byte("x")}}
	rs := rawStateFrom(entries)
	if err := rs.Verify(); err != nil {
		t.Fatalf("Verify on correctly-rooted state: %v", err)
	}

	rs.StateRoot[0] ^= 0xff
	if err := rs.Verify(); err != ErrRootMismatch {
		t.Fatalf("Verify error = %v, want ErrRootMismatch", err)
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	entries := []trie.KV{{Key: trie.Key{1}, Value: []byte("a")}}
	f := &File{Pre: rawStateFrom(entries), Post: rawStateFrom(entries)}
	b := append(Encode(f), 0x00)
	if _, err := Decode(b); err == nil {
		t.Fatal("Decode with trailing byte should have failed")
	}
}
