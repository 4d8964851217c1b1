package trie

import (
	"testing"

	"github.com/jamnode/jamcore/internal/oracle"
)

func key(b byte) Key {
	var k Key
	k[0] = b
	return k
}

func TestEmptyTrieRoot(t *testing.T) {
	tr := New()
	if !tr.Empty() {
		t.Fatal("new trie should be empty")
	}
	if tr.Root() != zeroHash {
		t.Fatalf("empty trie root = %x, want zero", tr.Root())
	}
}

func TestPutGet(t *testing.T) {
	tr := New()
	tr.Put(key(1), []byte("hello"))
	got, err := tr.Get(key(1))
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Get = %q, want hello", got)
	}
}

func TestGetMissing(t *testing.T) {
	tr := New()
	tr.Put(key(1), []byte("a"))
	if _, err := tr.Get(key(2)); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeterministicRootIndependentOfInsertOrder(t *testing.T) {
	entries := []KV{
		{Key: key(1), Value: []byte("alpha")},
		{Key: key(2), Value: []byte("beta")},
		{Key: key(200), Value: make([]byte, 40)},
	}
	a := BuildFrom(entries)
	reversed := []KV{entries[2], entries[1], entries[0]}
	b := BuildFrom(reversed)
	if a.Root() != b.Root() {
		t.Fatalf("root depends on insertion order: %x != %x", a.Root(), b.Root())
	}
}

func TestDeleteCollapses(t *testing.T) {
	tr := New()
	tr.Put(key(1), []byte("a"))
	tr.Put(key(2), []byte("b"))
	tr.Delete(key(2))
	if _, err := tr.Get(key(2)); err != ErrNotFound {
		t.Fatalf("expected key(2) removed, got %v", err)
	}
	only := New()
	only.Put(key(1), []byte("a"))
	if tr.Root() != only.Root() {
		t.Fatalf("root after delete = %x, want %x", tr.Root(), only.Root())
	}
}

func TestEmbeddedVsRegularLeafEncodingAffectsHash(t *testing.T) {
	small := New()
	small.Put(key(5), make([]byte, 32))
	big := New()
	big.Put(key(5), make([]byte, 33))
	if small.Root() == big.Root() {
		t.Fatal("32-byte (embedded) and 33-byte (regular) values must hash differently")
	}
}

func TestMMRAppendDeterministic(t *testing.T) {
	m1 := NewMMR()
	m2 := NewMMR()
	for i := 0; i < 5; i++ {
		h := oracle.Blake2b256([]byte{byte(i)})
		m1.Append(h)
		m2.Append(h)
	}
	if len(m1.Peaks) != len(m2.Peaks) {
		t.Fatalf("peak count mismatch: %d != %d", len(m1.Peaks), len(m2.Peaks))
	}
	for i := range m1.Peaks {
		a, b := m1.Peaks[i], m2.Peaks[i]
		if (a == nil) != (b == nil) {
			t.Fatalf("peak %d nil mismatch", i)
		}
		if a != nil && *a != *b {
			t.Fatalf("peak %d differs: %x != %x", i, *a, *b)
		}
	}
}

func TestMMRAppendCarries(t *testing.T) {
	m := NewMMR()
	m.Append(oracle.Blake2b256([]byte("a")))
	if len(m.Peaks) != 1 || m.Peaks[0] == nil {
		t.Fatalf("after 1 append: peaks = %v", m.Peaks)
	}
	m.Append(oracle.Blake2b256([]byte("b")))
	// Two leaves carry into a single height-1 peak; height-0 slot clears.
	if len(m.Peaks) != 2 || m.Peaks[0] != nil || m.Peaks[1] == nil {
		t.Fatalf("after 2 appends: peaks = %v", m.Peaks)
	}
}
