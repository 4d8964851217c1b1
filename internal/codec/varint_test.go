package codec

import (
	"bytes"
	"testing"
)

func TestEncodeUnsignedSingleByte(t *testing.T) {
	for _, x := range []uint64{0, 1, 127} {
		got := EncodeUnsigned(x)
		if len(got) != 1 || got[0] != byte(x) {
			t.Fatalf("EncodeUnsigned(%d) = %v, want single byte %d", x, got, x)
		}
	}
}

func TestUnsignedRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 127, 128, 129, 255, 256, 16383, 16384, 65535, 65536,
		1 << 20, 1 << 27, 1 << 34, 1 << 41, 1 << 48, 1 << 55,
		(1 << 63) - 1, 1 << 63, ^uint64(0),
	}
	for _, x := range values {
		enc := EncodeUnsigned(x)
		got, n, err := DecodeUnsigned(enc)
		if err != nil {
			t.Fatalf("DecodeUnsigned(%x) error: %v", enc, err)
		}
		if n != len(enc) {
			t.Fatalf("x=%d: consumed %d bytes, want %d", x, n, len(enc))
		}
		if got != x {
			t.Fatalf("round trip x=%d got=%d enc=%x", x, got, enc)
		}
	}
}

func TestDecodeUnsignedTruncated(t *testing.T) {
	enc := EncodeUnsigned(1 << 20)
	for i := 0; i < len(enc); i++ {
		if _, _, err := DecodeUnsigned(enc[:i]); err != ErrNotEnoughData {
			t.Fatalf("truncated at %d: got %v, want ErrNotEnoughData", i, err)
		}
	}
}

func TestWriterReaderBlobRoundTrip(t *testing.T) {
	w := NewWriter(16)
	w.PutU32(42)
	w.PutBlob([]byte("hello world"))
	w.PutBool(true)
	w.PutUnsigned(300)

	r := NewReader(w.Bytes())
	u32, err := r.U32()
	if err != nil || u32 != 42 {
		t.Fatalf("U32 = %d, %v", u32, err)
	}
	blob, err := r.Blob()
	if err != nil || !bytes.Equal(blob, []byte("hello world")) {
		t.Fatalf("Blob = %q, %v", blob, err)
	}
	b, err := r.Bool()
	if err != nil || !b {
		t.Fatalf("Bool = %v, %v", b, err)
	}
	u, err := r.Unsigned()
	if err != nil || u != 300 {
		t.Fatalf("Unsigned = %d, %v", u, err)
	}
	if !r.Done() {
		t.Fatalf("expected reader to be exhausted, %d bytes remain", r.Remaining())
	}
}

func TestDecodeExactTrailingData(t *testing.T) {
	w := NewWriter(4)
	w.PutU8(1)
	b := append(w.Bytes(), 0xFF)
	_, err := DecodeExact(b, func(r *Reader) (uint8, error) { return r.U8() })
	if err != ErrTrailingData {
		t.Fatalf("got %v, want ErrTrailingData", err)
	}
}

func TestEncodeSeqDecodeSeq(t *testing.T) {
	items := []uint32{1, 2, 3, 4, 5}
	w := NewWriter(16)
	EncodeSeq(w, items, func(w *Writer, v uint32) { w.PutU32(v) })
	r := NewReader(w.Bytes())
	got, err := DecodeSeq(r, func(r *Reader) (uint32, error) { return r.U32() })
	if err != nil {
		t.Fatalf("DecodeSeq error: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("len = %d, want %d", len(got), len(items))
	}
	for i := range items {
		if got[i] != items[i] {
			t.Fatalf("item %d = %d, want %d", i, got[i], items[i])
		}
	}
}

func TestEncodeOptionDecodeOption(t *testing.T) {
	w := NewWriter(8)
	v := uint32(7)
	EncodeOption(w, &v, func(w *Writer, x uint32) { w.PutU32(x) })
	EncodeOption[uint32](w, nil, func(w *Writer, x uint32) { w.PutU32(x) })

	r := NewReader(w.Bytes())
	got, err := DecodeOption(r, func(r *Reader) (uint32, error) { return r.U32() })
	if err != nil || got == nil || *got != 7 {
		t.Fatalf("first option = %v, %v", got, err)
	}
	got2, err := DecodeOption(r, func(r *Reader) (uint32, error) { return r.U32() })
	if err != nil || got2 != nil {
		t.Fatalf("second option = %v, %v, want nil", got2, err)
	}
}
